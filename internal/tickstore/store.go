// Package tickstore keeps the bounded, session-wide history of normalized ticks.
package tickstore

import (
	"carrytrader/internal/schema"
)

// DefaultCapacity is the default bound of the history.
const DefaultCapacity = 100_000

// Store is a fixed-capacity ring buffer of ticks. When full, appending
// evicts the oldest row. It is owned by the dispatcher loop and is not safe
// for concurrent use.
type Store struct {
	rows  []schema.Tick
	head  int // index of the oldest row
	size  int
	seq   uint64
	limit int
}

// New creates a store holding at most capacity ticks.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		rows:  make([]schema.Tick, capacity),
		limit: capacity,
	}
}

// Append stores a tick, stamping its insertion sequence, and evicts the
// oldest rows beyond the capacity.
func (s *Store) Append(t schema.Tick) schema.Tick {
	s.seq++
	t.Seq = s.seq
	if s.size == s.limit {
		s.evict()
	}
	s.rows[s.index(s.size)] = t
	s.size++
	return t
}

// EnforceCapacity keeps only the most recent max rows. Later appends keep
// honoring the tighter bound. A non-positive max is ignored.
func (s *Store) EnforceCapacity(max int) {
	if max <= 0 {
		return
	}
	if max < s.limit {
		s.limit = max
	}
	for s.size > s.limit {
		s.evict()
	}
}

func (s *Store) evict() {
	s.rows[s.head] = schema.Tick{}
	s.head = (s.head + 1) % len(s.rows)
	s.size--
}

// Query returns the ticks of the given symbols in insertion order.
func (s *Store) Query(symbols ...string) []schema.Tick {
	if len(symbols) == 0 || s.size == 0 {
		return nil
	}
	want := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		want[sym] = struct{}{}
	}

	var out []schema.Tick
	for i := 0; i < s.size; i++ {
		t := s.rows[s.index(i)]
		if _, ok := want[t.Symbol]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Latest returns the most recent tick of symbol.
func (s *Store) Latest(symbol string) (schema.Tick, bool) {
	for i := s.size - 1; i >= 0; i-- {
		t := s.rows[s.index(i)]
		if t.Symbol == symbol {
			return t, true
		}
	}
	return schema.Tick{}, false
}

// Len returns the number of stored ticks.
func (s *Store) Len() int {
	return s.size
}

// Cap returns the current bound.
func (s *Store) Cap() int {
	return s.limit
}

// Seq returns the sequence stamped on the last appended tick.
func (s *Store) Seq() uint64 {
	return s.seq
}

func (s *Store) index(i int) int {
	return (s.head + i) % len(s.rows)
}
