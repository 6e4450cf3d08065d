package schema

import (
	"bytes"
	"strconv"

	"github.com/bytedance/sonic"
)

// InstrumentID identifies an instrument on the broker.
type InstrumentID struct {
	MarketID string `json:"marketId"`
	Symbol   string `json:"symbol"`
}

// MarketDataEvent is the raw market data message pushed by the execution gateway feed.
type MarketDataEvent struct {
	Type         string          `json:"type"`
	Timestamp    int64           `json:"timestamp"` // epoch ms
	InstrumentID InstrumentID    `json:"instrumentId"`
	MarketData   MarketDataBlock `json:"marketData"`
}

// MarketDataBlock carries the requested market data entries. Any entry may be absent.
type MarketDataBlock struct {
	Last              *LastTrade  `json:"LA"`
	Bids              []BookEntry `json:"BI"`
	Offers            []BookEntry `json:"OF"`
	ImpliedVolatility Number      `json:"IV"`
	TradedVolume      Number      `json:"TV"`
	NominalVolume     Number      `json:"NV"`
	OpenInterest      Number      `json:"OI"`
}

// LastTrade is the last traded price entry.
type LastTrade struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
	Date  int64   `json:"date"` // epoch ms
}

// BookEntry is one level of the bid or offer side.
type BookEntry struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// Number decodes a market data scalar that the broker sends either as a bare
// number, as null, or as an entry object with price/size.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] != '{' {
		v, err := strconv.ParseFloat(string(bytes.Trim(data, `"`)), 64)
		if err != nil {
			return err
		}
		*n = Number(v)
		return nil
	}
	var entry struct {
		Price *float64 `json:"price"`
		Size  *float64 `json:"size"`
	}
	if err := sonic.Unmarshal(data, &entry); err != nil {
		return err
	}
	switch {
	case entry.Price != nil && *entry.Price != 0:
		*n = Number(*entry.Price)
	case entry.Size != nil:
		*n = Number(*entry.Size)
	default:
		*n = 0
	}
	return nil
}

// OrderReportEvent is the order status message pushed by the execution gateway feed.
type OrderReportEvent struct {
	Type        string      `json:"type"`
	OrderReport OrderReport `json:"orderReport"`
}

// OrderReport is the broker view of an order.
type OrderReport struct {
	OrderID      string       `json:"orderId"`
	ClOrdID      string       `json:"clOrdId"`
	Proprietary  string       `json:"proprietary"`
	ExecID       string       `json:"execId"`
	InstrumentID InstrumentID `json:"instrumentId"`
	Price        float64      `json:"price"`
	OrderQty     float64      `json:"orderQty"`
	OrdType      string       `json:"ordType"`
	Side         string       `json:"side"`
	TimeInForce  string       `json:"timeInForce"`
	TransactTime string       `json:"transactTime"`
	AvgPx        float64      `json:"avgPx"`
	LastPx       float64      `json:"lastPx"`
	LastQty      float64      `json:"lastQty"`
	CumQty       float64      `json:"cumQty"`
	LeavesQty    float64      `json:"leavesQty"`
	Status       string       `json:"status"`
	Text         string       `json:"text"`
}

// ErrorEvent is an error message pushed by the execution gateway feed.
type ErrorEvent struct {
	Type        string `json:"type"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	Description string `json:"description"`
}

func (e ErrorEvent) String() string {
	if e.Description != "" {
		return e.Message + ": " + e.Description
	}
	return e.Message
}
