package og

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"carrytrader/internal/mdg"
	"carrytrader/internal/schema"
	"carrytrader/pkg/exception"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// PaperConfig controls the paper gateway.
type PaperConfig struct {
	Account     string
	Instruments []schema.InstrumentSpec
	// Interval is the period of the synthetic market data. Zero disables the feed.
	Interval  time.Duration
	Generator mdg.GeneratorConfig
}

// Paper is an in-process gateway: it accepts every valid order, fills
// market orders at once and can feed synthetic market data.
type Paper struct {
	cfg PaperConfig

	mu         sync.Mutex
	subscribed []string
	gen        *mdg.Generator
	pending    map[string]*schema.NewOrder
	seq        uint64
	closed     bool

	reports chan schema.OrderReport
	done    chan struct{}
}

// NewPaper creates a paper gateway. Feed events flow once Run is called.
func NewPaper(cfg PaperConfig) *Paper {
	if cfg.Account == "" {
		cfg.Account = "paper"
	}
	return &Paper{
		cfg:     cfg,
		pending: make(map[string]*schema.NewOrder),
		reports: make(chan schema.OrderReport, 256),
		done:    make(chan struct{}),
	}
}

func (p *Paper) Subscribe(_ context.Context, symbols []string, _ []Entry, _ int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return exception.ErrConnectionClose
	}
	for _, s := range symbols {
		if !slices.Contains(p.subscribed, s) {
			p.subscribed = append(p.subscribed, s)
		}
	}
	gen, err := mdg.NewGenerator(p.cfg.Generator, p.subscribed)
	if err != nil {
		return err
	}
	p.gen = gen
	return nil
}

func (p *Paper) Instruments(context.Context) ([]schema.InstrumentSpec, error) {
	return slices.Clone(p.cfg.Instruments), nil
}

func (p *Paper) Submit(ctx context.Context, sig schema.Signal) Response {
	if err := ctx.Err(); err != nil {
		return Failed(err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return Failed(exception.ErrConnectionClose)
	}

	switch s := sig.(type) {
	case *schema.NewOrder:
		p.seq++
		id := fmt.Sprintf("paper-%d", p.seq)
		report := schema.OrderReport{
			OrderID:      id,
			ClOrdID:      id,
			Proprietary:  p.cfg.Account,
			InstrumentID: schema.InstrumentID{Symbol: s.Symbol},
			Price:        s.Price,
			OrderQty:     s.Size,
			OrdType:      s.Type.String(),
			Side:         s.Side.String(),
			TimeInForce:  s.TimeInForce.String(),
			TransactTime: time.Now().UTC().Format(time.RFC3339Nano),
			Status:       "NEW",
			LeavesQty:    s.Size,
		}
		p.pending[id] = s
		p.emit(report)
		if s.Type == schema.OrderTypeMarket {
			delete(p.pending, id)
			report.Status = "FILLED"
			report.CumQty, report.LeavesQty = s.Size, 0
			report.AvgPx, report.LastPx, report.LastQty = s.Price, s.Price, s.Size
			p.emit(report)
		}
		return Response{BrokerOrderID: id, ProprietaryID: p.cfg.Account, Status: StatusOK}

	case *schema.CancelOrder:
		o, ok := p.pending[s.OrderID]
		if !ok {
			return Failed(errors.Wrapf(exception.ErrOrderUnknown, "clOrdId: %s", s.OrderID))
		}
		delete(p.pending, s.OrderID)
		p.emit(schema.OrderReport{
			OrderID:      s.OrderID,
			ClOrdID:      s.OrderID,
			Proprietary:  p.cfg.Account,
			InstrumentID: schema.InstrumentID{Symbol: o.Symbol},
			OrderQty:     o.Size,
			Side:         o.Side.String(),
			Status:       "CANCELLED",
		})
		return Response{BrokerOrderID: s.OrderID, ProprietaryID: p.cfg.Account, Status: StatusOK}

	case *schema.ModifyOrder:
		return Response{Status: StatusNotImplemented}

	default:
		return Failed(exception.ErrSignalUnsupported)
	}
}

// emit queues a report for Run. The caller holds p.mu.
func (p *Paper) emit(r schema.OrderReport) {
	select {
	case p.reports <- r:
	default:
		logs.Warnf("paper gateway drop order report %s %s", r.ClOrdID, r.Status)
	}
}

// Run delivers order reports and synthetic market data to h until ctx is
// done or the gateway is closed.
func (p *Paper) Run(ctx context.Context, h Handlers) error {
	var tick <-chan time.Time
	if p.cfg.Interval > 0 {
		ticker := time.NewTicker(p.cfg.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.done:
			return nil
		case r := <-p.reports:
			h.orderUpdate(r)
		case now := <-tick:
			p.mu.Lock()
			gen := p.gen
			var ev schema.MarketDataEvent
			if gen != nil {
				ev = gen.Next(now)
			}
			p.mu.Unlock()
			if gen != nil {
				h.marketData(ev)
			}
		}
	}
}

func (p *Paper) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.done)
	return nil
}

// PaperInstruments builds specs for symbols maturing days from now.
func PaperInstruments(symbols []string, days int, now time.Time) []schema.InstrumentSpec {
	maturity := now.AddDate(0, 0, days).Truncate(24 * time.Hour)
	out := make([]schema.InstrumentSpec, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, schema.InstrumentSpec{
			Symbol:        s,
			Market:        "ROFX",
			MaturityDate:  maturity,
			TickSize:      0.01,
			VolumeMin:     1,
			VolumeMax:     10_000,
			PriceDecimals: 2,
		})
	}
	return out
}
