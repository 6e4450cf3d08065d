/*
Engine implements the strategy dispatcher.

# Module
  - event loop: one goroutine runs market data, order reports, strategy
    invocations, ledger writes and scheduler callbacks in arrival order
  - tick store: bounded history the strategies read their derivative slice from
  - registry: loaded strategies and the symbol interest index used for fan-out
  - risk engine: basic sizing of the signals before they reach the gateway

# Source
 1. market data & order reports from the gateway feed
 2. synthetic market data from the paper gateway
 3. scheduler ticks and underlying refreshes posted by background goroutines

# Produce
  - signals to the execution gateway
  - one ledger entry per submitted signal
*/
package engine
