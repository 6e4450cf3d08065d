package primary

import (
	"context"
	"net/http"
	"slices"
	"sync"

	"carrytrader/internal/og"
	"carrytrader/internal/schema"
	"carrytrader/pkg/exception"
	wsm "carrytrader/pkg/websocket"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

var (
	_ og.Gateway = (*Gateway)(nil)
	_ og.Feed    = (*Gateway)(nil)
)

// Gateway is a broker session on the Primary API.
type Gateway struct {
	cfg      Config
	rest     *rest
	handlers og.Handlers
	manager  *wsm.Manager

	mu          sync.Mutex
	specs       map[string]schema.InstrumentSpec
	symbols     []string
	entries     []og.Entry
	depth       int
	proprietary map[string]string
	closed      bool
	stop        context.CancelFunc

	fatalOnce sync.Once
}

// New creates a gateway. client may be nil.
func New(cfg Config, client *http.Client) (*Gateway, error) {
	cfg = cfg.withDefaults()
	g := &Gateway{
		cfg:         cfg,
		rest:        newRest(cfg, client),
		specs:       make(map[string]schema.InstrumentSpec),
		entries:     og.DefaultEntries,
		depth:       og.DefaultDepth,
		proprietary: make(map[string]string),
	}

	manager, err := wsm.NewManager(wsm.Config{
		Dialer:       wsm.NewDialer(cfg.WSURL, g.handshakeHeader),
		PingInterval: cfg.PingInterval,
		Backoff:      cfg.Backoff,
		MaxAttempts:  cfg.MaxReconnects,
		OnConnect:    g.onConnect,
		OnMessage:    g.onMessage,
		OnDisconnect: g.onDisconnect,
	})
	if err != nil {
		return nil, errors.Wrap(err, "new websocket manager")
	}
	g.manager = manager
	return g, nil
}

func (g *Gateway) handshakeHeader(ctx context.Context) (http.Header, error) {
	token, err := g.rest.Token(ctx)
	if err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Set(_headerToken, token)
	return h, nil
}

// Run keeps the websocket session alive and delivers its events to h until
// ctx is done or Close is called. Exhausted reconnects are reported through
// h.OnFatal.
func (g *Gateway) Run(ctx context.Context, h og.Handlers) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return exception.ErrConnectionClose
	}
	ctx, g.stop = context.WithCancel(ctx)
	g.handlers = h
	g.mu.Unlock()

	if err := g.manager.Run(ctx); err != nil {
		err = errors.Wrap(exception.ErrConnectionClose, err.Error())
		g.fatalOnce.Do(func() { g.handlers.Dispatch(err) })
		return err
	}
	return nil
}

func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	if g.stop != nil {
		g.stop()
	}
	return nil
}

func (g *Gateway) Instruments(ctx context.Context) ([]schema.InstrumentSpec, error) {
	specs, err := g.rest.instruments(ctx)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	for _, s := range specs {
		g.specs[s.Symbol] = s
	}
	g.mu.Unlock()
	return specs, nil
}

// Subscribe records the symbols for replay on reconnect and subscribes them
// at once when the session is up.
func (g *Gateway) Subscribe(_ context.Context, symbols []string, entries []og.Entry, depth int) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return exception.ErrConnectionClose
	}
	if len(entries) != 0 {
		g.entries = slices.Clone(entries)
	}
	if depth > 0 {
		g.depth = depth
	}
	added := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s != "" && !slices.Contains(g.symbols, s) {
			g.symbols = append(g.symbols, s)
			added = append(added, s)
		}
	}
	msg := g.marketDataRequest(added)
	g.mu.Unlock()

	if len(added) == 0 || !g.manager.Writer().Connected() {
		return nil
	}
	return g.send(msg)
}

func (g *Gateway) send(msg any) error {
	payload, err := sonic.ConfigFastest.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}
	return g.manager.Send(payload)
}

func (g *Gateway) onConnect(_ context.Context, w *wsm.Writer) error {
	g.mu.Lock()
	var msgs []any
	if g.cfg.Account != "" {
		msgs = append(msgs, orderReportRequest(g.cfg.Account))
	}
	if len(g.symbols) != 0 {
		msgs = append(msgs, g.marketDataRequest(g.symbols))
	}
	g.mu.Unlock()

	for _, msg := range msgs {
		payload, err := sonic.ConfigFastest.Marshal(msg)
		if err != nil {
			return errors.Wrap(err, "marshal subscription")
		}
		if !w.Send(wsm.MessageText, payload) {
			return errors.Wrap(exception.ErrConnectionClose, "replay subscription")
		}
	}
	logs.Infof("primary websocket connected, symbols: %d", len(g.symbols))
	return nil
}

func (g *Gateway) onDisconnect(err error) {
	logs.Warnf("primary websocket disconnected, err: %+v", err)
	// The token may have expired; the next dial authenticates again.
	g.rest.resetToken()
}

// Submit sends a signal. Failures come back as the response status.
func (g *Gateway) Submit(ctx context.Context, sig schema.Signal) og.Response {
	switch s := sig.(type) {
	case *schema.NewOrder:
		g.mu.Lock()
		spec, known := g.specs[s.Symbol]
		g.mu.Unlock()
		market := g.cfg.Market
		if known && spec.Market != "" {
			market = spec.Market
		}

		id, prop, err := g.rest.placeOrder(ctx, orderQuery(s, market, g.cfg.Account, spec, known))
		if err != nil {
			return og.Failed(err)
		}
		g.mu.Lock()
		g.proprietary[id] = prop
		g.mu.Unlock()
		return og.Response{BrokerOrderID: id, ProprietaryID: prop, Status: og.StatusOK}

	case *schema.CancelOrder:
		g.mu.Lock()
		prop, ok := g.proprietary[s.OrderID]
		g.mu.Unlock()
		if !ok {
			prop = DefaultProprietary
		}
		id, prop, err := g.rest.cancelOrder(ctx, s.OrderID, prop)
		if err != nil {
			return og.Failed(err)
		}
		return og.Response{BrokerOrderID: id, ProprietaryID: prop, Status: og.StatusOK}

	case *schema.ModifyOrder:
		return og.Response{Status: og.StatusNotImplemented}

	default:
		return og.Failed(exception.ErrSignalUnsupported)
	}
}
