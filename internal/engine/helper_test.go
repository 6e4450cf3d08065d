package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"carrytrader/internal/obs"
	"carrytrader/internal/og"
	"carrytrader/internal/risk"
	"carrytrader/internal/schema"
	"carrytrader/internal/strategy"

	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu         sync.Mutex
	subscribed []string
	sent       []schema.Signal
	closed     bool
	submit     func(sig schema.Signal) og.Response
	subErr     error
}

func (g *fakeGateway) Subscribe(_ context.Context, symbols []string, _ []og.Entry, _ int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.subErr != nil {
		return g.subErr
	}
	g.subscribed = append(g.subscribed, symbols...)
	return nil
}

func (g *fakeGateway) Submit(_ context.Context, sig schema.Signal) og.Response {
	g.mu.Lock()
	g.sent = append(g.sent, sig)
	submit := g.submit
	n := len(g.sent)
	g.mu.Unlock()
	if submit != nil {
		return submit(sig)
	}
	return og.Response{BrokerOrderID: "b-" + string(rune('0'+n)), ProprietaryID: "PBCP", Status: og.StatusOK}
}

func (g *fakeGateway) Instruments(context.Context) ([]schema.InstrumentSpec, error) {
	return nil, nil
}

func (g *fakeGateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

func (g *fakeGateway) sentCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sent)
}

type scriptStrategy struct {
	*strategy.Base

	mu     sync.Mutex
	calls  []strategy.Input
	onTick func(in strategy.Input) ([]schema.Signal, error)
}

func newScript(t *testing.T, name string, onTick func(in strategy.Input) ([]schema.Signal, error), symbols ...string) *scriptStrategy {
	b, err := strategy.NewBase(name, symbols)
	require.NoError(t, err)
	return &scriptStrategy{Base: b, onTick: onTick}
}

func (s *scriptStrategy) OnTick(in strategy.Input) ([]schema.Signal, error) {
	s.mu.Lock()
	s.calls = append(s.calls, in)
	s.mu.Unlock()
	if s.onTick == nil {
		return nil, nil
	}
	return s.onTick(in)
}

func (s *scriptStrategy) Calls() []strategy.Input {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]strategy.Input(nil), s.calls...)
}

type catalog map[string]schema.InstrumentSpec

func (c catalog) Lookup(symbol string) (schema.InstrumentSpec, bool) {
	s, ok := c[symbol]
	return s, ok
}

func testCatalog() catalog {
	out := catalog{}
	for _, sym := range []string{"GGAL/DIC23", "YPFD/DIC23", "PAMP/DIC23"} {
		out[sym] = schema.InstrumentSpec{Symbol: sym, Market: "ROFX", UnderlyingSymbol: sym[:4]}
	}
	return out
}

type harness struct {
	d       *Dispatcher
	gw      *fakeGateway
	metrics *obs.Metrics
}

func newHarness(t *testing.T, cfg Config, rk *risk.Engine) *harness {
	gw := &fakeGateway{}
	m := obs.NewMetrics()
	d, err := New(cfg, Deps{Instruments: testCatalog(), Gateway: gw, Risk: rk, Metrics: m})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return &harness{d: d, gw: gw, metrics: m}
}

// load registers and activates strategies.
func (h *harness) load(t *testing.T, ss ...strategy.Strategy) {
	states := map[string]bool{}
	for _, s := range ss {
		require.NoError(t, h.d.Load(t.Context(), s))
		states[s.Name()] = true
	}
	_, err := h.d.Toggle(t.Context(), states)
	require.NoError(t, err)
}

// feed pushes events through the gateway callback and waits for the loop.
func (h *harness) feed(t *testing.T, evs ...schema.MarketDataEvent) {
	handlers := h.d.Handlers()
	for _, ev := range evs {
		handlers.OnMarketData(ev)
	}
	h.sync(t)
}

func (h *harness) sync(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), 3*time.Second)
	defer cancel()
	require.NoError(t, h.d.Do(ctx, func() {}))
}

func quote(symbol string, bid, ask float64) schema.MarketDataEvent {
	ev := schema.MarketDataEvent{
		Type:         "Md",
		Timestamp:    time.Now().UnixMilli(),
		InstrumentID: schema.InstrumentID{MarketID: "ROFX", Symbol: symbol},
	}
	if bid > 0 {
		ev.MarketData.Bids = []schema.BookEntry{{Price: bid, Size: 10}}
	}
	if ask > 0 {
		ev.MarketData.Offers = []schema.BookEntry{{Price: ask, Size: 10}}
	}
	return ev
}

func buy(symbol string) func(strategy.Input) ([]schema.Signal, error) {
	return func(strategy.Input) ([]schema.Signal, error) {
		o, err := schema.PlaceOrder(schema.NewOrderParams{Symbol: symbol, Side: schema.OrderSideBuy, Size: 1})
		if err != nil {
			return nil, err
		}
		return []schema.Signal{o}, nil
	}
}
