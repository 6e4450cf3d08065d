// Package primary is the Primary / Remarkets broker gateway: REST for
// authentication, instrument details and orders, and a websocket for market
// data and order reports.
package primary

import (
	"strings"
	"time"

	wsm "carrytrader/pkg/websocket"
)

// Environment selects the broker endpoints.
type Environment string

const (
	EnvRemarkets Environment = "remarkets"
	EnvLive      Environment = "live"
)

const (
	_remarketsBaseUrl = "https://api.remarkets.primary.com.ar/"
	_remarketsWsUrl   = "wss://api.remarkets.primary.com.ar/"
	_liveBaseUrl      = "https://api.primary.com.ar/"
	_liveWsUrl        = "wss://api.primary.com.ar/"

	DefaultMarket      = "ROFX"
	DefaultProprietary = "PBCP"
)

type Config struct {
	Environment Environment
	// BaseURL and WSURL override the environment endpoints.
	BaseURL  string
	WSURL    string
	Username string
	Password string
	Account  string
	Market   string
	// Timeout bounds every REST call.
	Timeout       time.Duration
	PingInterval  time.Duration
	MaxReconnects int
	Backoff       wsm.Backoff
}

func (c Config) withDefaults() Config {
	if c.Environment == "" {
		c.Environment = EnvRemarkets
	}
	if c.BaseURL == "" {
		c.BaseURL = _remarketsBaseUrl
		if c.Environment == EnvLive {
			c.BaseURL = _liveBaseUrl
		}
	}
	if c.WSURL == "" {
		c.WSURL = _remarketsWsUrl
		if c.Environment == EnvLive {
			c.WSURL = _liveWsUrl
		}
	}
	if !strings.HasSuffix(c.BaseURL, "/") {
		c.BaseURL += "/"
	}
	if c.Market == "" {
		c.Market = DefaultMarket
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.MaxReconnects <= 0 {
		c.MaxReconnects = 10
	}
	return c
}
