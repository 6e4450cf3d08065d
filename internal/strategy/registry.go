package strategy

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"carrytrader/internal/schema"
	"carrytrader/pkg/exception"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Instruments resolves the spec of a derivative symbol.
type Instruments interface {
	Lookup(symbol string) (schema.InstrumentSpec, bool)
}

// Feed subscribes the market data of symbols.
type Feed interface {
	Subscribe(ctx context.Context, symbols []string) error
}

// FeedFunc adapts a function to Feed.
type FeedFunc func(ctx context.Context, symbols []string) error

func (f FeedFunc) Subscribe(ctx context.Context, symbols []string) error {
	return f(ctx, symbols)
}

// Registry holds the loaded strategies and the symbol interest index
// used for fan-out.
type Registry struct {
	instruments Instruments
	feed        Feed
	poster      Poster
	now         func() time.Time

	mu         sync.RWMutex
	strategies map[string]Strategy
	order      []string
	interest   map[string][]string
}

// NewRegistry creates an empty registry. feed and poster may be nil.
func NewRegistry(instruments Instruments, feed Feed, poster Poster) *Registry {
	return &Registry{
		instruments: instruments,
		feed:        feed,
		poster:      poster,
		now:         func() time.Time { return time.Now().UTC() },
		strategies:  make(map[string]Strategy),
		interest:    make(map[string][]string),
	}
}

// Load registers s. Every symbol must resolve to an instrument, otherwise
// nothing is registered. A feed subscription failure is logged and the
// strategy is still registered. A loaded strategy starts inactive.
func (r *Registry) Load(ctx context.Context, s Strategy) error {
	if s == nil {
		return exception.ErrNilInstance
	}
	name := s.Name()

	r.mu.RLock()
	_, exists := r.strategies[name]
	r.mu.RUnlock()
	if exists {
		return errors.Wrapf(exception.ErrStrategyExists, "strategy: %s", name)
	}

	symbols := s.Symbols()
	if len(symbols) == 0 {
		return errors.Wrapf(exception.ErrStrategyNoSymbols, "strategy: %s", name)
	}
	if r.instruments == nil {
		return errors.Wrap(exception.ErrNilInstance, "instrument catalog")
	}
	specs := make(map[string]schema.InstrumentSpec, len(symbols))
	for _, sym := range symbols {
		spec, ok := r.instruments.Lookup(sym)
		if !ok {
			return errors.Wrap(exception.ErrUnknownInstrument, "load strategy").
				With("strategy", name).
				With("symbol", sym)
		}
		specs[sym] = spec
	}

	if r.feed != nil {
		if err := r.feed.Subscribe(ctx, symbols); err != nil {
			logs.Errorf("subscribe feed of %s, symbols: %v, err: %+v", name, symbols, err)
		}
	}

	if err := s.Load(r.now(), specs, r.poster); err != nil {
		return errors.Wrapf(err, "load %s", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.strategies[name]; ok {
		return errors.Wrapf(exception.ErrStrategyExists, "strategy: %s", name)
	}
	r.strategies[name] = s
	r.order = append(r.order, name)
	for _, sym := range symbols {
		r.interest[sym] = append(r.interest[sym], name)
	}
	logs.Infof("strategy %s loaded, symbols: %v, underlyings: %v", name, symbols, s.UnderlyingSymbols())
	return nil
}

// Toggle activates or deactivates strategies by name. Unknown names are
// logged and skipped. It returns the names whose state changed.
func (r *Registry) Toggle(states map[string]bool) []string {
	now := r.now()
	changed := make([]string, 0, len(states))
	for _, name := range slices.Sorted(maps.Keys(states)) {
		s, ok := r.Get(name)
		if !ok {
			logs.Warnf("toggle strategy %s, err: %+v", name, exception.ErrStrategyNotFound)
			continue
		}

		var done bool
		if states[name] {
			done = s.Activate(now)
		} else {
			done = s.Deactivate(now)
		}
		if done {
			changed = append(changed, name)
			logs.Infof("strategy %s is now %s", name, s.State())
		}
	}
	return changed
}

// Remove unloads strategies: they leave the interest index, are deactivated
// and torn down. Unknown names are logged and skipped.
func (r *Registry) Remove(names ...string) []Strategy {
	now := r.now()
	removed := make([]Strategy, 0, len(names))
	for _, name := range names {
		s, ok := r.pop(name)
		if !ok {
			logs.Warnf("remove strategy %s, err: %+v", name, exception.ErrStrategyNotFound)
			continue
		}
		s.Deactivate(now)
		s.Teardown(now)
		removed = append(removed, s)
		logs.Infof("strategy %s removed", name)
	}
	return removed
}

// RemoveAll unloads every strategy in load order.
func (r *Registry) RemoveAll() []Strategy {
	return r.Remove(r.Names()...)
}

func (r *Registry) pop(name string) (Strategy, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.strategies[name]
	if !ok {
		return nil, false
	}
	delete(r.strategies, name)
	r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == name })
	for _, sym := range s.Symbols() {
		names := slices.DeleteFunc(r.interest[sym], func(n string) bool { return n == name })
		if len(names) == 0 {
			delete(r.interest, sym)
			continue
		}
		r.interest[sym] = names
	}
	return s, true
}

// Get returns a loaded strategy.
func (r *Registry) Get(name string) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[name]
	return s, ok
}

// Interested returns, in load order, the strategies subscribed to any of symbols.
func (r *Registry) Interested(symbols ...string) []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, sym := range symbols {
		for _, name := range r.interest[sym] {
			seen[name] = struct{}{}
		}
	}
	out := make([]Strategy, 0, len(seen))
	for _, name := range r.order {
		if _, ok := seen[name]; ok {
			out = append(out, r.strategies[name])
		}
	}
	return out
}

// Names returns the loaded strategy names in load order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// All returns the loaded strategies in load order.
func (r *Registry) All() []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Strategy, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.strategies[name])
	}
	return out
}

// Symbols returns every subscribed derivative symbol.
func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.interest))
}

// UnderlyingSymbols returns the union of the loaded strategies' underlyings.
func (r *Registry) UnderlyingSymbols() []string {
	var out []string
	for _, s := range r.All() {
		for _, u := range s.UnderlyingSymbols() {
			if !slices.Contains(out, u) {
				out = append(out, u)
			}
		}
	}
	slices.Sort(out)
	return out
}

// Len returns the number of loaded strategies.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.strategies)
}
