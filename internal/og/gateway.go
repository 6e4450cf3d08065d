// Package og is the execution gateway boundary: order submission, the
// market data and order report feed, and the order state tracker.
package og

import (
	"context"

	"carrytrader/internal/schema"
)

// Entry is a market data entry the feed can carry.
type Entry string

const (
	EntryBids          Entry = "BI"
	EntryOffers        Entry = "OF"
	EntryLast          Entry = "LA"
	EntryIndexValue    Entry = "IV"
	EntryTradeVolume   Entry = "TV"
	EntryNominalVolume Entry = "NV"
	EntryOpenInterest  Entry = "OI"
)

// DefaultEntries is every entry a tick is built from.
var DefaultEntries = []Entry{
	EntryBids, EntryOffers, EntryLast, EntryIndexValue,
	EntryTradeVolume, EntryNominalVolume, EntryOpenInterest,
}

// DefaultDepth is the book depth requested from the feed.
const DefaultDepth = schema.BookDepth

const (
	StatusOK             = "OK"
	StatusNotImplemented = "not implemented"
	StatusTimeout        = "timeout"
)

// Response is the gateway answer to a submitted signal. A failure carries
// the error text as status and an empty broker id.
type Response struct {
	BrokerOrderID string
	ProprietaryID string
	Status        string
}

// OK reports whether the broker accepted the signal.
func (r Response) OK() bool {
	return r.Status == StatusOK
}

// Failed builds the response of a failed submission.
func Failed(err error) Response {
	return Response{Status: err.Error()}
}

// Gateway is a broker session.
type Gateway interface {
	// Subscribe requests market data of symbols on the feed.
	Subscribe(ctx context.Context, symbols []string, entries []Entry, depth int) error
	// Submit sends a signal. Failures are reported in the response.
	Submit(ctx context.Context, sig schema.Signal) Response
	// Instruments downloads the detailed instrument specs.
	Instruments(ctx context.Context) ([]schema.InstrumentSpec, error)
	Close() error
}

// Feed delivers market data and order reports to h until ctx is done or
// the gateway is closed.
type Feed interface {
	Run(ctx context.Context, h Handlers) error
}

// Handlers receive the feed callbacks. Nil handlers are skipped.
type Handlers struct {
	OnMarketData  func(ev schema.MarketDataEvent)
	OnOrderUpdate func(report schema.OrderReport)
	OnError       func(ev schema.ErrorEvent)
	// OnFatal is called once when the session cannot continue.
	OnFatal func(err error)
}

func (h Handlers) marketData(ev schema.MarketDataEvent) {
	if h.OnMarketData != nil {
		h.OnMarketData(ev)
	}
}

func (h Handlers) orderUpdate(r schema.OrderReport) {
	if h.OnOrderUpdate != nil {
		h.OnOrderUpdate(r)
	}
}

func (h Handlers) error(ev schema.ErrorEvent) {
	if h.OnError != nil {
		h.OnError(ev)
	}
}

func (h Handlers) fatal(err error) {
	if h.OnFatal != nil {
		h.OnFatal(err)
	}
}

// Dispatch delivers a feed event to the matching handler. Events of other
// types are ignored.
func (h Handlers) Dispatch(ev any) {
	switch e := ev.(type) {
	case schema.MarketDataEvent:
		h.marketData(e)
	case schema.OrderReport:
		h.orderUpdate(e)
	case schema.ErrorEvent:
		h.error(e)
	case error:
		h.fatal(e)
	}
}
