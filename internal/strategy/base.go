package strategy

import (
	"slices"
	"sync"
	"time"

	"carrytrader/internal/ledger"
	"carrytrader/internal/schema"
	"carrytrader/pkg/exception"

	"github.com/yanun0323/errors"
)

// Base implements Lifecycle. Embed it in concrete strategies.
type Base struct {
	name    string
	symbols []string

	mu          sync.RWMutex
	state       State
	instruments map[string]schema.InstrumentSpec
	underlyings []string
	createdAt   time.Time
	loadedAt    time.Time
	executedAt  time.Time
	activatedAt time.Time
	deactivated time.Time

	scheduler *Scheduler
	ledger    *ledger.Ledger
}

// NewBase creates the lifecycle of a strategy subscribing symbols.
// Duplicate symbols are dropped.
func NewBase(name string, symbols []string) (*Base, error) {
	if name == "" {
		return nil, exception.ErrStrategyEmptyName
	}
	uniq := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s != "" && !slices.Contains(uniq, s) {
			uniq = append(uniq, s)
		}
	}
	if len(uniq) == 0 {
		return nil, errors.Wrapf(exception.ErrStrategyNoSymbols, "strategy: %s", name)
	}

	return &Base{
		name:      name,
		symbols:   uniq,
		state:     StateCreated,
		createdAt: time.Now().UTC(),
		scheduler: NewScheduler(name),
		ledger:    ledger.New(64),
	}, nil
}

func (b *Base) Name() string {
	return b.name
}

func (b *Base) Symbols() []string {
	return slices.Clone(b.symbols)
}

func (b *Base) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *Base) Active() bool {
	return b.State() == StateActive
}

func (b *Base) Load(now time.Time, instruments map[string]schema.InstrumentSpec, poster Poster) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateCreated {
		return errors.Errorf("strategy %s cannot be loaded in state %s", b.name, b.state)
	}

	specs := make(map[string]schema.InstrumentSpec, len(b.symbols))
	var unders []string
	for _, sym := range b.symbols {
		spec, ok := instruments[sym]
		if !ok {
			return errors.Wrapf(exception.ErrUnknownInstrument, "symbol: %s", sym)
		}
		specs[sym] = spec
		if u := spec.UnderlyingSymbol; u != "" && !slices.Contains(unders, u) {
			unders = append(unders, u)
		}
	}
	slices.Sort(unders)

	b.instruments = specs
	b.underlyings = unders
	b.scheduler.attach(poster)
	b.state = StateInactive
	b.loadedAt = now
	return nil
}

func (b *Base) Instrument(symbol string) (schema.InstrumentSpec, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	spec, ok := b.instruments[symbol]
	return spec, ok
}

func (b *Base) UnderlyingSymbols() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.underlyings)
}

func (b *Base) Activate(now time.Time) bool {
	b.mu.Lock()
	if b.state != StateInactive {
		b.mu.Unlock()
		return false
	}
	b.state = StateActive
	b.activatedAt = now
	b.mu.Unlock()

	if err := b.scheduler.Resume(); err != nil {
		b.mu.Lock()
		b.state = StateInactive
		b.mu.Unlock()
		return false
	}
	return true
}

func (b *Base) Deactivate(now time.Time) bool {
	b.mu.Lock()
	if b.state != StateActive {
		b.mu.Unlock()
		return false
	}
	b.state = StateInactive
	b.deactivated = now
	b.mu.Unlock()

	b.scheduler.Pause()
	return true
}

func (b *Base) Teardown(now time.Time) {
	b.Deactivate(now)
	b.scheduler.Stop()

	b.mu.Lock()
	b.state = StateDeleted
	b.mu.Unlock()
}

func (b *Base) MarkExecuted(now time.Time) {
	b.mu.Lock()
	b.executedAt = now
	b.mu.Unlock()
}

func (b *Base) Scheduler() *Scheduler {
	return b.scheduler
}

func (b *Base) Ledger() *ledger.Ledger {
	return b.ledger
}

func (b *Base) Info() Info {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Info{
		Name:           b.name,
		State:          b.state,
		Symbols:        slices.Clone(b.symbols),
		Underlyings:    slices.Clone(b.underlyings),
		CreatedAt:      b.createdAt,
		LoadedAt:       b.loadedAt,
		LastExecutedAt: b.executedAt,
		ActivatedAt:    b.activatedAt,
		DeactivatedAt:  b.deactivated,
		Signals:        b.ledger.Len(),
	}
}
