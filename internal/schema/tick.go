package schema

import "time"

// BookDepth is the number of price levels kept per book side.
const BookDepth = 5

// Level is one price level of a book side. Valid is false for levels the feed did not carry.
type Level struct {
	Price float64
	Size  float64
	Valid bool
}

// Tick is one normalized market data observation for a derivative.
type Tick struct {
	Seq       uint64
	Timestamp time.Time
	Market    string
	Symbol    string

	LastPrice float64
	LastSize  float64

	Asks [BookDepth]Level
	Bids [BookDepth]Level

	ImpliedVolatility float64
	TradedVolume      float64
	NotionalVolume    float64
	OpenInterest      float64

	DelayVsEventMs     int64
	DelayVsLastTradeMs int64
}

// AskLevel returns the n-th (1-based) ask level.
func (t Tick) AskLevel(n int) (Level, bool) {
	return level(t.Asks[:], n)
}

// BidLevel returns the n-th (1-based) bid level.
func (t Tick) BidLevel(n int) (Level, bool) {
	return level(t.Bids[:], n)
}

// BestAsk returns the top of the ask side.
func (t Tick) BestAsk() (Level, bool) {
	return t.AskLevel(1)
}

// BestBid returns the top of the bid side.
func (t Tick) BestBid() (Level, bool) {
	return t.BidLevel(1)
}

// HasBook reports whether at least one side carries a level.
func (t Tick) HasBook() bool {
	return t.Asks[0].Valid || t.Bids[0].Valid
}

func level(rows []Level, n int) (Level, bool) {
	if n < 1 || n > len(rows) {
		return Level{}, false
	}
	l := rows[n-1]
	return l, l.Valid
}
