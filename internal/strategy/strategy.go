// Package strategy defines the strategy capability, its lifecycle and the
// registry the dispatcher fans market data out through.
package strategy

import (
	"time"

	"carrytrader/internal/ledger"
	"carrytrader/internal/schema"
)

// Input is what a strategy sees on each invocation.
type Input struct {
	Now time.Time
	// Derivatives holds the stored ticks of the subscribed symbols touched
	// by the triggering update, in insertion order.
	Derivatives []schema.Tick
	// Underlyings holds copies of the strategy's underlying specs.
	Underlyings []schema.UnderlyingSpec
}

// Strategy is the capability the dispatcher drives. Concrete strategies
// implement Name, Symbols and OnTick and embed *Base for the rest.
type Strategy interface {
	Name() string
	// Symbols is the subscribed derivative set.
	Symbols() []string
	// OnTick returns the signals to submit. Returned values that are not
	// constructed signals are ignored by the caller.
	OnTick(in Input) ([]schema.Signal, error)

	Lifecycle
}

// Lifecycle is the state and bookkeeping shared by every strategy.
type Lifecycle interface {
	State() State
	Active() bool
	// Activate sets the active flag and resumes the scheduler. It reports
	// false when the strategy was already active or cannot be activated.
	Activate(now time.Time) bool
	// Deactivate clears the active flag and pauses the scheduler.
	Deactivate(now time.Time) bool
	// Teardown stops the scheduler for good and marks the strategy deleted.
	Teardown(now time.Time)

	// Load attaches the resolved instruments and the loop poster.
	Load(now time.Time, instruments map[string]schema.InstrumentSpec, poster Poster) error
	Instrument(symbol string) (schema.InstrumentSpec, bool)
	UnderlyingSymbols() []string
	MarkExecuted(now time.Time)

	Scheduler() *Scheduler
	Ledger() *ledger.Ledger
	Info() Info
}

// Info is a point-in-time view of a strategy.
type Info struct {
	Name           string
	State          State
	Symbols        []string
	Underlyings    []string
	CreatedAt      time.Time
	LoadedAt       time.Time
	LastExecutedAt time.Time
	ActivatedAt    time.Time
	DeactivatedAt  time.Time
	Signals        int
}
