// Package ledger records the outcome of every signal a strategy submitted.
package ledger

import (
	"sync"
	"time"

	"carrytrader/internal/schema"
)

// StatusOK is the status of a signal the gateway accepted.
const StatusOK = "OK"

// Entry is one submitted signal and its round trip.
type Entry struct {
	ResponseAt    time.Time
	Strategy      string
	Signal        schema.SignalSnapshot
	BrokerOrderID string
	ProprietaryID string
	Status        string
	// SendLatencyMs is measured from the start of the strategy invocation to the send.
	SendLatencyMs float64
	// ExecutionLatencyMs is measured from the start of the strategy invocation to the response.
	ExecutionLatencyMs float64
}

// Accepted reports whether the gateway acknowledged the signal with a broker id.
func (e Entry) Accepted() bool {
	return e.Status == StatusOK && e.BrokerOrderID != ""
}

// Timing is the clock readings of one submission.
type Timing struct {
	Exec     time.Time
	Send     time.Time
	Response time.Time
}

// NewEntry builds an entry with latencies relative to t.Exec.
func NewEntry(strategy string, sig schema.Signal, brokerOrderID, proprietaryID, status string, t Timing) Entry {
	return Entry{
		ResponseAt:         t.Response,
		Strategy:           strategy,
		Signal:             sig.Snapshot(),
		BrokerOrderID:      brokerOrderID,
		ProprietaryID:      proprietaryID,
		Status:             status,
		SendLatencyMs:      millis(t.Send.Sub(t.Exec)),
		ExecutionLatencyMs: millis(t.Response.Sub(t.Exec)),
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Ledger is the append-only signal record of one strategy. Appends come from
// the dispatcher loop; reads may come from anywhere.
type Ledger struct {
	mu      sync.RWMutex
	entries []Entry
}

// New creates an empty ledger optionally pre-sizing storage.
func New(capacity int) *Ledger {
	if capacity < 0 {
		capacity = 0
	}
	return &Ledger{entries: make([]Entry, 0, capacity)}
}

// Append records an entry.
func (l *Ledger) Append(e Entry) {
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
}

// Entries returns a copy of the recorded entries in append order.
func (l *Ledger) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Summary aggregates a ledger for reporting.
type Summary struct {
	Total            int
	Accepted         int
	Failed           int
	AvgExecLatencyMs float64
	MaxExecLatencyMs float64
}

// Summary aggregates the recorded entries.
func (l *Ledger) Summary() Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var s Summary
	var sum float64
	for _, e := range l.entries {
		s.Total++
		if e.Accepted() {
			s.Accepted++
		} else {
			s.Failed++
		}
		sum += e.ExecutionLatencyMs
		if e.ExecutionLatencyMs > s.MaxExecLatencyMs {
			s.MaxExecLatencyMs = e.ExecutionLatencyMs
		}
	}
	if s.Total > 0 {
		s.AvgExecLatencyMs = sum / float64(s.Total)
	}
	return s
}
