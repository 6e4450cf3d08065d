package main

import (
	"context"
	"time"

	"carrytrader/internal/mdg"
	"carrytrader/internal/og"
	"carrytrader/internal/og/primary"
	"carrytrader/internal/ops"
	"carrytrader/internal/schema"
	"carrytrader/internal/underlying"
	"carrytrader/internal/underlying/yahoo"
)

const (
	_paperMaturityDays = 30
	_paperBasePrice    = 100
	// _paperCarry is the discount of the paper underlyings against the
	// synthetic derivative mid.
	_paperCarry = 0.01
)

// session is a gateway that also owns its feed.
type session interface {
	og.Gateway
	og.Feed
}

// newGateway returns the configured gateway and the instrument cache path
// to use with it. The paper gateway never touches the cache.
func newGateway(cfg ops.Config, now time.Time) (session, string, error) {
	if cfg.Gateway.Paper {
		return og.NewPaper(og.PaperConfig{
			Account:     cfg.Gateway.Account,
			Instruments: og.PaperInstruments(cfg.Strategy.Symbols, _paperMaturityDays, now),
			Interval:    cfg.Gateway.PaperInterval,
			Generator: mdg.GeneratorConfig{
				Market:    cfg.Gateway.Market,
				BasePrice: _paperBasePrice,
				Spread:    0.002,
				Drift:     0.001,
			},
		}), "", nil
	}

	gw, err := primary.New(primary.Config{
		Environment:   primary.Environment(cfg.Gateway.Environment),
		BaseURL:       cfg.Gateway.BaseURL,
		WSURL:         cfg.Gateway.WSURL,
		Username:      cfg.Gateway.Username,
		Password:      cfg.Gateway.Password,
		Account:       cfg.Gateway.Account,
		Market:        cfg.Gateway.Market,
		Timeout:       cfg.Gateway.Timeout,
		MaxReconnects: cfg.Gateway.MaxReconnects,
	}, nil)
	if err != nil {
		return nil, "", err
	}
	return gw, cfg.Engine.SpecsPath, nil
}

func newReferenceSource(cfg ops.Config) underlying.Source {
	if cfg.Gateway.Paper {
		return paperSource{price: _paperBasePrice * (1 - _paperCarry)}
	}
	return yahoo.New(yahoo.Config{
		BaseURL: cfg.Reference.BaseURL,
		Suffix:  cfg.Reference.Suffix,
		Timeout: cfg.Reference.Timeout,
	})
}

// paperSource quotes every underlying at a fixed price.
type paperSource struct {
	price float64
}

func (s paperSource) Fetch(_ context.Context, symbols []string) (map[string]schema.UnderlyingSpec, error) {
	now := time.Now().UTC()
	out := make(map[string]schema.UnderlyingSpec, len(symbols))
	for _, sym := range symbols {
		out[sym] = schema.UnderlyingSpec{
			Symbol:        sym,
			LastPrice:     s.price,
			PreviousClose: s.price,
			DayHigh:       s.price,
			DayLow:        s.price,
			DayOpen:       s.price,
			Currency:      "ARS",
			Exchange:      "PAPER",
			UpdatedAt:     now,
		}
	}
	return out, nil
}
