package mdg

import (
	"math"
	"time"

	"carrytrader/internal/schema"
	"carrytrader/pkg/exception"
)

// GeneratorConfig shapes the synthetic book of a Generator.
type GeneratorConfig struct {
	Market    string
	BasePrice float64
	BaseSize  float64
	// Spread is the distance from mid to each best level, relative to mid.
	Spread float64
	// Step is the relative distance between consecutive levels.
	Step float64
	// Drift is the relative mid move applied per generated event, alternating sign.
	Drift  float64
	Levels int
}

// Generator creates synthetic market data events for a fixed symbol set,
// round robin. It feeds the paper gateway.
type Generator struct {
	cfg     GeneratorConfig
	symbols []string
	mids    map[string]float64
	index   int
	n       uint64
}

// NewGenerator creates a generator for symbols.
func NewGenerator(cfg GeneratorConfig, symbols []string) (*Generator, error) {
	if len(symbols) == 0 {
		return nil, exception.ErrEmptySymbol
	}
	if cfg.Market == "" {
		cfg.Market = "ROFX"
	}
	if cfg.BasePrice <= 0 {
		cfg.BasePrice = 100
	}
	if cfg.BaseSize <= 0 {
		cfg.BaseSize = 1
	}
	if cfg.Spread < 0 {
		cfg.Spread = 0
	}
	if cfg.Step <= 0 {
		cfg.Step = 0.001
	}
	if cfg.Levels <= 0 || cfg.Levels > schema.BookDepth {
		cfg.Levels = schema.BookDepth
	}

	mids := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		mids[s] = cfg.BasePrice
	}
	return &Generator{
		cfg:     cfg,
		symbols: append([]string(nil), symbols...),
		mids:    mids,
	}, nil
}

// Next creates the next raw event in sequence.
func (g *Generator) Next(now time.Time) schema.MarketDataEvent {
	symbol := g.symbols[g.index]
	g.index = (g.index + 1) % len(g.symbols)
	g.n++

	mid := g.mids[symbol]
	if g.cfg.Drift != 0 {
		sign := 1.0
		if g.n%2 == 0 {
			sign = -1
		}
		mid = round2(mid * (1 + sign*g.cfg.Drift))
		g.mids[symbol] = mid
	}

	bids := make([]schema.BookEntry, g.cfg.Levels)
	offers := make([]schema.BookEntry, g.cfg.Levels)
	for i := 0; i < g.cfg.Levels; i++ {
		off := g.cfg.Spread + float64(i)*g.cfg.Step
		bids[i] = schema.BookEntry{Price: round2(mid * (1 - off)), Size: g.cfg.BaseSize}
		offers[i] = schema.BookEntry{Price: round2(mid * (1 + off)), Size: g.cfg.BaseSize}
	}

	ms := now.UnixMilli()
	return schema.MarketDataEvent{
		Type:         "Md",
		Timestamp:    ms,
		InstrumentID: schema.InstrumentID{MarketID: g.cfg.Market, Symbol: symbol},
		MarketData: schema.MarketDataBlock{
			Last:   &schema.LastTrade{Price: mid, Size: g.cfg.BaseSize, Date: ms},
			Bids:   bids,
			Offers: offers,
		},
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
