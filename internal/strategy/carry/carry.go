// Package carry trades the implied carry rate between a derivative and its underlying.
package carry

import (
	"slices"
	"sync"
	"time"

	"carrytrader/internal/arbitrage"
	"carrytrader/internal/schema"
	"carrytrader/internal/strategy"
	"carrytrader/pkg/exception"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Config parameterizes a carry strategy.
type Config struct {
	Name       string
	Symbols    []string
	Size       float64
	Thresholds arbitrage.Thresholds
	// BoardEvery is the period of the rate board recalculation. Zero disables it.
	BoardEvery time.Duration
}

// Strategy evaluates every updated derivative against its underlying and
// emits a market order when the carry clears the thresholds.
type Strategy struct {
	*strategy.Base

	size   float64
	policy arbitrage.Policy

	mu sync.Mutex
	// quotes holds the last quotes seen per derivative, read by the rate board.
	quotes map[string]arbitrage.Quotes
	board  map[string]arbitrage.Rates
}

// New creates a carry strategy.
func New(cfg Config) (*Strategy, error) {
	if !(cfg.Size > 0) {
		return nil, errors.Wrapf(exception.ErrInvalidArgument, "size: %v", cfg.Size)
	}
	base, err := strategy.NewBase(cfg.Name, cfg.Symbols)
	if err != nil {
		return nil, err
	}

	s := &Strategy{
		Base:   base,
		size:   cfg.Size,
		policy: arbitrage.Policy{Thresholds: cfg.Thresholds},
		quotes: make(map[string]arbitrage.Quotes),
		board:  make(map[string]arbitrage.Rates),
	}
	if cfg.BoardEvery > 0 {
		if err := base.Scheduler().Add(strategy.Task{Name: "rate-board", Every: cfg.BoardEvery, Run: s.refreshBoard}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// OnTick implements strategy.Strategy.
func (s *Strategy) OnTick(in strategy.Input) ([]schema.Signal, error) {
	unders := make(map[string]schema.UnderlyingSpec, len(in.Underlyings))
	for _, u := range in.Underlyings {
		unders[u.Symbol] = u
	}

	var signals []schema.Signal
	for _, tick := range latest(in.Derivatives) {
		spec, ok := s.Instrument(tick.Symbol)
		if !ok {
			continue
		}
		q, ok := quotes(tick, unders[spec.UnderlyingSymbol])
		if !ok {
			logs.Debugf("%s skip %s, incomplete quotes", s.Name(), tick.Symbol)
			continue
		}
		r, err := arbitrage.Calc(spec.MaturityDate, in.Now, q)
		s.record(tick.Symbol, q, r, err)
		if err != nil {
			logs.Debugf("%s skip %s, err: %+v", s.Name(), tick.Symbol, err)
			continue
		}

		d, ok := s.policy.Decide(r)
		if !ok {
			continue
		}
		sig, err := schema.PlaceOrder(schema.NewOrderParams{
			Symbol:     tick.Symbol,
			Side:       d.Side,
			Size:       s.size,
			Type:       schema.OrderTypeMarket,
			Price:      spec.RoundPrice(d.Price),
			StopLoss:   spec.RoundPrice(d.StopLoss),
			TakeProfit: spec.RoundPrice(d.TakeProfit),
			Comment:    r.String(),
		})
		if err != nil {
			logs.Errorf("%s build %s order for %s, err: %+v", s.Name(), d.Side, tick.Symbol, err)
			continue
		}
		signals = append(signals, sig)
	}
	return signals, nil
}

// Board returns the last computed rates per derivative.
func (s *Strategy) Board() map[string]arbitrage.Rates {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]arbitrage.Rates, len(s.board))
	for k, v := range s.board {
		out[k] = v
	}
	return out
}

// refreshBoard recomputes the rates from the last known quotes, as the
// remaining days shrink even without new market data.
func (s *Strategy) refreshBoard(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	symbols := make([]string, 0, len(s.quotes))
	for sym := range s.quotes {
		symbols = append(symbols, sym)
	}
	slices.Sort(symbols)

	for _, sym := range symbols {
		spec, ok := s.Instrument(sym)
		if !ok {
			continue
		}
		r, err := arbitrage.Calc(spec.MaturityDate, now, s.quotes[sym])
		if err != nil {
			delete(s.board, sym)
			logs.Warnf("%s rate board %s, err: %+v", s.Name(), sym, err)
			continue
		}
		s.board[sym] = r
		logs.Infof("%s rate board %s: %s", s.Name(), sym, r)
	}
}

func (s *Strategy) record(symbol string, q arbitrage.Quotes, r arbitrage.Rates, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[symbol] = q
	if err != nil {
		delete(s.board, symbol)
		return
	}
	s.board[symbol] = r
}

// latest keeps the most recent tick of each symbol, in order of first appearance.
func latest(ticks []schema.Tick) []schema.Tick {
	idx := make(map[string]int, 4)
	out := make([]schema.Tick, 0, 4)
	for _, t := range ticks {
		if i, ok := idx[t.Symbol]; ok {
			out[i] = t
			continue
		}
		idx[t.Symbol] = len(out)
		out = append(out, t)
	}
	return out
}

func quotes(t schema.Tick, u schema.UnderlyingSpec) (arbitrage.Quotes, bool) {
	ask, okAsk := t.BestAsk()
	bid, okBid := t.BestBid()
	if !okAsk || !okBid || u.Symbol == "" {
		return arbitrage.Quotes{}, false
	}
	return arbitrage.Quotes{
		DerivAsk: ask.Price,
		DerivBid: bid.Price,
		UnderAsk: u.Ask(),
		UnderBid: u.Bid(),
	}, true
}
