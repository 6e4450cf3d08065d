// Package underlying keeps the reference quotes of the spot instruments
// the derivatives are priced against.
package underlying

import (
	"context"
	"sync"

	"carrytrader/internal/schema"
)

// Source fetches reference quotes. Symbols it cannot resolve are omitted
// from the result.
type Source interface {
	Fetch(ctx context.Context, symbols []string) (map[string]schema.UnderlyingSpec, error)
}

// Book holds the last known underlying specs. Readers always get copies.
type Book struct {
	mu    sync.RWMutex
	specs map[string]schema.UnderlyingSpec
}

// NewBook creates an empty book.
func NewBook() *Book {
	return &Book{specs: make(map[string]schema.UnderlyingSpec)}
}

// Apply merges fresh specs into the book. Symbols absent from specs keep
// their previous values.
func (b *Book) Apply(specs map[string]schema.UnderlyingSpec) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sym, spec := range specs {
		if spec.Symbol == "" {
			spec.Symbol = sym
		}
		b.specs[sym] = spec
	}
}

// Get returns a copy of the spec of symbol.
func (b *Book) Get(symbol string) (schema.UnderlyingSpec, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	spec, ok := b.specs[symbol]
	return spec, ok
}

// Snapshot returns copies of the specs of symbols, in the given order.
// Unknown symbols are skipped.
func (b *Book) Snapshot(symbols []string) []schema.UnderlyingSpec {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]schema.UnderlyingSpec, 0, len(symbols))
	for _, sym := range symbols {
		if spec, ok := b.specs[sym]; ok {
			out = append(out, spec)
		}
	}
	return out
}

// Len returns the number of known underlyings.
func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.specs)
}
