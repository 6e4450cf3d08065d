package engine

import (
	"context"
	"sync"

	"carrytrader/internal/og"
	"carrytrader/internal/strategy"
	"carrytrader/internal/tickstore"
	"carrytrader/internal/underlying"

	"github.com/yanun0323/logs"
)

// Load registers s on the loop. A loaded strategy is inactive until toggled on.
func (d *Dispatcher) Load(ctx context.Context, s strategy.Strategy) error {
	var err error
	if e := d.Do(ctx, func() { err = d.registry.Load(ctx, s) }); e != nil {
		return e
	}
	return err
}

// Toggle activates or deactivates strategies by name on the loop and
// returns the names whose state changed.
func (d *Dispatcher) Toggle(ctx context.Context, states map[string]bool) ([]string, error) {
	var changed []string
	if err := d.Do(ctx, func() { changed = d.registry.Toggle(states) }); err != nil {
		return nil, err
	}
	return changed, nil
}

// Remove unloads strategies by name on the loop.
func (d *Dispatcher) Remove(ctx context.Context, names ...string) ([]strategy.Strategy, error) {
	var removed []strategy.Strategy
	if err := d.Do(ctx, func() { removed = d.registry.Remove(names...) }); err != nil {
		return nil, err
	}
	return removed, nil
}

// Shutdown deactivates and removes every strategy, closes the gateway and
// stops the loop. It returns the removed strategies for reporting.
func (d *Dispatcher) Shutdown(ctx context.Context) []strategy.Strategy {
	var (
		once    sync.Once
		removed []strategy.Strategy
	)
	drain := func() {
		once.Do(func() {
			for _, s := range d.registry.All() {
				s.Deactivate(d.now())
			}
			removed = d.registry.RemoveAll()
		})
	}
	if err := d.Do(ctx, drain); err != nil {
		logs.Warnf("drain strategies off the loop, err: %+v", err)
		drain()
	}

	if err := d.gateway.Close(); err != nil {
		logs.Errorf("close gateway, err: %+v", err)
	}
	d.Close()
	return removed
}

func (d *Dispatcher) Registry() *strategy.Registry {
	return d.registry
}

func (d *Dispatcher) Store() *tickstore.Store {
	return d.store
}

func (d *Dispatcher) Book() *underlying.Book {
	return d.book
}

func (d *Dispatcher) Orders() *og.StateMachine {
	return d.orders
}
