package engine

import (
	"context"
	"runtime/debug"
	"time"

	"carrytrader/internal/bus"
	"carrytrader/internal/ledger"
	"carrytrader/internal/mdg"
	"carrytrader/internal/obs"
	"carrytrader/internal/og"
	"carrytrader/internal/risk"
	"carrytrader/internal/schema"
	"carrytrader/internal/strategy"
	"carrytrader/internal/tickstore"
	"carrytrader/internal/underlying"
	"carrytrader/pkg/exception"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

type Config struct {
	Capacity      int
	QueueSize     int
	SubmitTimeout time.Duration
	Depth         int
}

// Deps are the collaborators of the dispatcher. Risk, Metrics and OnFatal
// may be nil.
type Deps struct {
	Instruments strategy.Instruments
	Gateway     og.Gateway
	Book        *underlying.Book
	Risk        *risk.Engine
	Metrics     *obs.Metrics
	OnFatal     func(err error)
}

// Dispatcher routes market data to the strategies and their signals to the
// gateway. Everything but Post, Do and the handlers runs on the loop.
type Dispatcher struct {
	cfg      Config
	queue    *bus.Queue
	store    *tickstore.Store
	norm     *mdg.Normalizer
	registry *strategy.Registry
	book     *underlying.Book
	gateway  og.Gateway
	risk     *risk.Engine
	orders   *og.StateMachine
	metrics  *obs.Metrics
	onFatal  func(err error)
	now      func() time.Time

	ctx context.Context
}

// New creates a dispatcher. Run must be called to process events.
func New(cfg Config, deps Deps) (*Dispatcher, error) {
	if deps.Gateway == nil || deps.Instruments == nil {
		return nil, errors.Wrap(exception.ErrNilInstance, "gateway and instruments are required")
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = tickstore.DefaultCapacity
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 4096
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 5 * time.Second
	}
	if cfg.Depth <= 0 {
		cfg.Depth = og.DefaultDepth
	}
	if deps.Book == nil {
		deps.Book = underlying.NewBook()
	}

	d := &Dispatcher{
		cfg:     cfg,
		queue:   bus.NewQueue(cfg.QueueSize),
		store:   tickstore.New(cfg.Capacity),
		norm:    mdg.NewNormalizer(cfg.Depth),
		book:    deps.Book,
		gateway: deps.Gateway,
		risk:    deps.Risk,
		orders:  og.NewStateMachine(),
		metrics: deps.Metrics,
		onFatal: deps.OnFatal,
		now:     func() time.Time { return time.Now().UTC() },
		ctx:     context.Background(),
	}
	feed := strategy.FeedFunc(func(ctx context.Context, symbols []string) error {
		return d.gateway.Subscribe(ctx, symbols, og.DefaultEntries, d.cfg.Depth)
	})
	d.registry = strategy.NewRegistry(deps.Instruments, feed, d)
	return d, nil
}

// Run processes events until ctx is done or Close is called.
func (d *Dispatcher) Run(ctx context.Context) {
	d.ctx = ctx
	d.queue.Run(ctx)
}

// Close stops accepting events. Queued events still run.
func (d *Dispatcher) Close() {
	d.queue.Close()
}

// Post hands fn to the loop without blocking.
func (d *Dispatcher) Post(fn func()) error {
	err := d.queue.TryPublish(fn)
	switch {
	case err == nil:
	case errors.Is(err, exception.ErrQueueFull):
		d.metrics.Inc(obs.CounterQueueDrop)
	case errors.Is(err, exception.ErrQueueClosed):
		d.metrics.Inc(obs.CounterQueueClosed)
	}
	return err
}

// Do runs fn on the loop and waits for it. It must not be called from the loop.
func (d *Dispatcher) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if err := d.queue.Publish(ctx, func() {
		defer close(done)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handlers returns the gateway callbacks feeding this dispatcher.
func (d *Dispatcher) Handlers() og.Handlers {
	return og.Handlers{
		OnMarketData: func(ev schema.MarketDataEvent) {
			now := d.now()
			if err := d.Post(func() { d.HandleMarketData(ev, now) }); err != nil {
				logs.Warnf("drop market data of %s, err: %+v", ev.InstrumentID.Symbol, err)
			}
		},
		OnOrderUpdate: func(r schema.OrderReport) {
			if err := d.Post(func() { d.HandleOrderReport(r) }); err != nil {
				logs.Warnf("drop order report %s %s, err: %+v", r.ClOrdID, r.Status, err)
			}
		},
		OnError: func(ev schema.ErrorEvent) {
			d.metrics.Inc(obs.CounterFeedError)
			logs.Errorf("gateway error message: %s", ev.String())
		},
		OnFatal: func(err error) {
			logs.Errorf("gateway fatal, err: %+v", err)
			if d.onFatal != nil {
				d.onFatal(err)
			}
		},
	}
}

// HandleMarketData stores the event as a tick and runs the active
// strategies subscribed to its symbol. now is the local receive time.
// Events without a book are dropped.
func (d *Dispatcher) HandleMarketData(ev schema.MarketDataEvent, now time.Time) {
	tick, err := d.norm.Normalize(ev, now)
	if err != nil {
		d.metrics.Inc(obs.CounterTickDropped)
		logs.Debugf("drop market data of %q, err: %+v", ev.InstrumentID.Symbol, err)
		return
	}
	tick = d.store.Append(tick)
	d.store.EnforceCapacity(d.cfg.Capacity)
	d.metrics.ObserveTick(tick.Symbol, time.Duration(tick.DelayVsEventMs)*time.Millisecond)

	d.dispatch(tick.Symbol)
}

func (d *Dispatcher) dispatch(affected ...string) {
	for _, s := range d.registry.Interested(affected...) {
		if !s.Active() {
			continue
		}
		d.invoke(s, affected)
	}
}

// invoke runs s on the ticks of affected. The strategy sees the wall clock
// at invocation, not the receive time of the triggering event.
func (d *Dispatcher) invoke(s strategy.Strategy, affected []string) {
	symbols := make([]string, 0, len(affected))
	for _, sym := range s.Symbols() {
		for _, a := range affected {
			if sym == a {
				symbols = append(symbols, sym)
				break
			}
		}
	}
	exec := d.now()
	in := strategy.Input{
		Now:         exec,
		Derivatives: d.store.Query(symbols...),
		Underlyings: d.book.Snapshot(s.UnderlyingSymbols()),
	}

	signals, err := call(s, in)
	s.MarkExecuted(exec)
	d.metrics.ObserveInvocation(d.now().Sub(exec))
	if err != nil {
		d.metrics.Inc(obs.CounterStrategyFault)
		logs.Errorf("strategy %s on tick %v, err: %+v", s.Name(), affected, err)
		return
	}

	for _, sig := range signals {
		d.submit(s, sig, exec)
	}
}

func call(s strategy.Strategy, in strategy.Input) (signals []schema.Signal, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(exception.ErrStrategyPanic, "%v", r).With("stack", string(debug.Stack()))
		}
	}()
	return s.OnTick(in)
}

func (d *Dispatcher) submit(s strategy.Strategy, sig schema.Signal, exec time.Time) {
	if !schema.Recognized(sig) {
		d.metrics.Inc(obs.CounterSignalIgnored)
		logs.Warnf("strategy %s returned an unrecognized signal %T, ignored", s.Name(), sig)
		return
	}

	if d.risk != nil {
		var spec schema.InstrumentSpec
		if o, ok := sig.(*schema.NewOrder); ok {
			spec, _ = s.Instrument(o.Symbol)
		}
		if decision := d.risk.Evaluate(sig, spec, d.now()); !decision.Allowed() {
			d.metrics.ObserveDenied(s.Name())
			logs.Warnf("strategy %s signal %s denied, err: %+v", s.Name(), sig.ID(), decision.Err())
			return
		}
	}

	send := d.now()
	resp := og.Submit(d.ctx, d.gateway, sig, d.cfg.SubmitTimeout)
	recv := d.now()

	sig.Attach(resp.BrokerOrderID, resp.Status)
	entry := ledger.NewEntry(s.Name(), sig, resp.BrokerOrderID, resp.ProprietaryID, resp.Status, ledger.Timing{
		Exec:     exec,
		Send:     send,
		Response: recv,
	})
	s.Ledger().Append(entry)
	d.metrics.ObserveSignal(s.Name(), resp.OK(), send.Sub(exec), recv.Sub(exec))

	if o, ok := sig.(*schema.NewOrder); ok && resp.OK() {
		if _, err := d.orders.ApplySubmit(o, resp, recv); err != nil {
			logs.Warnf("track order %s, err: %+v", resp.BrokerOrderID, err)
		}
	}

	if resp.OK() {
		logs.Infof("strategy %s %s sent, broker id: %s, exec: %.1fms", s.Name(), sig.Operation(), resp.BrokerOrderID, entry.ExecutionLatencyMs)
	} else {
		logs.Errorf("strategy %s %s failed, status: %s", s.Name(), sig.Operation(), resp.Status)
	}
}

// HandleOrderReport applies a broker report to the order tracker.
func (d *Dispatcher) HandleOrderReport(r schema.OrderReport) {
	d.metrics.Inc(obs.CounterOrderReport)
	o, err := d.orders.ApplyReport(r, d.now())
	if err != nil {
		logs.Warnf("order report %s %s, err: %+v", r.ClOrdID, r.Status, err)
		return
	}
	logs.Infof("order %s %s %s, cum: %v, leaves: %v", o.ClOrdID, o.Symbol, o.State, o.CumQty, o.LeavesQty)
}
