package strategy

import (
	"context"
	"sync"

	"carrytrader/internal/schema"
	"carrytrader/pkg/exception"
)

type fakeStrategy struct {
	*Base

	mu    sync.Mutex
	calls []Input
}

func newFakeStrategy(name string, symbols ...string) *fakeStrategy {
	b, err := NewBase(name, symbols)
	if err != nil {
		panic(err)
	}
	return &fakeStrategy{Base: b}
}

func (f *fakeStrategy) OnTick(in Input) ([]schema.Signal, error) {
	f.mu.Lock()
	f.calls = append(f.calls, in)
	f.mu.Unlock()
	return nil, nil
}

type fakeInstruments map[string]schema.InstrumentSpec

func (f fakeInstruments) Lookup(symbol string) (schema.InstrumentSpec, bool) {
	s, ok := f[symbol]
	return s, ok
}

func instruments(symbols ...string) fakeInstruments {
	out := make(fakeInstruments, len(symbols))
	for _, s := range symbols {
		out[s] = schema.InstrumentSpec{Symbol: s, UnderlyingSymbol: s[:4]}
	}
	return out
}

type recordingFeed struct {
	mu         sync.Mutex
	subscribed [][]string
	err        error
}

func (f *recordingFeed) Subscribe(_ context.Context, symbols []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.subscribed = append(f.subscribed, symbols)
	return nil
}

// chanPoster queues posted work for the test to run, like the dispatcher loop.
type chanPoster chan func()

func (c chanPoster) Post(fn func()) error {
	select {
	case c <- fn:
		return nil
	default:
		return exception.ErrQueueFull
	}
}
