package mdg

import (
	"time"

	"carrytrader/internal/schema"
	"carrytrader/pkg/exception"
)

// Normalizer maps raw gateway market data events to schema.Tick rows.
type Normalizer struct {
	depth int
}

// NewNormalizer creates a normalizer keeping at most depth book levels per side.
func NewNormalizer(depth int) *Normalizer {
	if depth <= 0 || depth > schema.BookDepth {
		depth = schema.BookDepth
	}
	return &Normalizer{depth: depth}
}

// Validate reports whether the event can become a tick: it needs a symbol
// and at least one non-empty book side.
func (n *Normalizer) Validate(ev schema.MarketDataEvent) error {
	if ev.InstrumentID.Symbol == "" {
		return exception.ErrEmptySymbol
	}
	if len(ev.MarketData.Bids) == 0 && len(ev.MarketData.Offers) == 0 {
		return exception.ErrEmptyBook
	}
	return nil
}

// Normalize converts a raw event into a tick stamped with now, the local
// receive time. The event and last trade times only feed the delays.
func (n *Normalizer) Normalize(ev schema.MarketDataEvent, now time.Time) (schema.Tick, error) {
	if err := n.Validate(ev); err != nil {
		return schema.Tick{}, err
	}

	md := ev.MarketData
	tick := schema.Tick{
		Timestamp:         now,
		Market:            ev.InstrumentID.MarketID,
		Symbol:            ev.InstrumentID.Symbol,
		ImpliedVolatility: float64(md.ImpliedVolatility),
		TradedVolume:      float64(md.TradedVolume),
		NotionalVolume:    float64(md.NominalVolume),
		OpenInterest:      float64(md.OpenInterest),
	}
	if ev.Timestamp > 0 {
		tick.DelayVsEventMs = now.Sub(time.UnixMilli(ev.Timestamp)).Milliseconds()
	}
	if md.Last != nil {
		tick.LastPrice = md.Last.Price
		tick.LastSize = md.Last.Size
		if md.Last.Date > 0 {
			tick.DelayVsLastTradeMs = now.Sub(time.UnixMilli(md.Last.Date)).Milliseconds()
		}
	}
	fillLevels(&tick.Asks, md.Offers, n.depth)
	fillLevels(&tick.Bids, md.Bids, n.depth)
	return tick, nil
}

func fillLevels(dst *[schema.BookDepth]schema.Level, src []schema.BookEntry, depth int) {
	for i := 0; i < depth && i < len(src); i++ {
		dst[i] = schema.Level{Price: src[i].Price, Size: src[i].Size, Valid: true}
	}
}
