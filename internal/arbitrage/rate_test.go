package arbitrage

import (
	"math"
	"testing"
	"time"

	"carrytrader/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

func TestCalcSellOnly(t *testing.T) {
	now := time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC)
	maturity := now.Add(30 * day)
	q := Quotes{DerivAsk: 106, DerivBid: 104, UnderAsk: 100, UnderBid: 100}

	r, err := Calc(maturity, now, q)
	require.NoError(t, err)

	assert.InDelta(t, 30, r.Days, 1e-9)
	assert.InDelta(t, math.Log(100.0/106.0)/30, r.Taker, 1e-12)
	assert.InDelta(t, math.Log(104.0/100.0)/30, r.Payer, 1e-12)
	assert.InDelta(t, 2*r.Taker, r.ProfitTaker, 1e-12)
	assert.InDelta(t, 2*r.Payer, r.ProfitPayer, 1e-12)

	d, ok := Policy{Thresholds: Thresholds{Taker: 0.0001, Payer: 0.0001}}.Decide(r)
	require.True(t, ok)
	assert.Equal(t, schema.OrderSideSell, d.Side)
	assert.Equal(t, 104.0, d.Price)
	assert.Equal(t, 106.0, d.StopLoss)
	assert.InDelta(t, 104*(1-r.Payer), d.TakeProfit, 1e-12)
}

func TestCalcBuy(t *testing.T) {
	now := time.Now()
	q := Quotes{DerivAsk: 95, DerivBid: 94, UnderAsk: 100, UnderBid: 100}

	r, err := Calc(now.Add(10*day), now, q)
	require.NoError(t, err)
	assert.Greater(t, r.Taker, 0.0)
	assert.Less(t, r.Payer, 0.0)

	d, ok := Policy{Thresholds: Thresholds{Taker: 0.0001, Payer: 0.0001}}.Decide(r)
	require.True(t, ok)
	assert.Equal(t, schema.OrderSideBuy, d.Side)
	assert.Equal(t, 95.0, d.Price)
	assert.Equal(t, 94.0, d.StopLoss)
	assert.InDelta(t, 95*(1+r.Taker), d.TakeProfit, 1e-12)
}

func TestCalcSkips(t *testing.T) {
	now := time.Now()
	good := Quotes{DerivAsk: 106, DerivBid: 104, UnderAsk: 100, UnderBid: 100}

	testCases := []struct {
		desc     string
		maturity time.Time
		quotes   Quotes
		err      error
	}{
		{"matured", now.Add(-time.Hour), good, ErrMatured},
		{"maturing now", now, good, ErrMatured},
		{"zero deriv ask", now.Add(day), Quotes{DerivBid: 104, UnderAsk: 100, UnderBid: 100}, ErrInvalidQuotes},
		{"negative under bid", now.Add(day), Quotes{DerivAsk: 106, DerivBid: 104, UnderAsk: 100, UnderBid: -1}, ErrInvalidQuotes},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := Calc(tc.maturity, now, tc.quotes)
			assert.True(t, errors.Is(err, tc.err), "got %+v", err)
		})
	}
}

func TestPolicyNoTrade(t *testing.T) {
	testCases := []struct {
		desc  string
		rates Rates
		thr   Thresholds
	}{
		{"both below", Rates{Taker: 0.00001, Payer: -0.1, Quotes: Quotes{DerivAsk: 1, DerivBid: 1}}, Thresholds{Taker: 0.0001, Payer: 0.0001}},
		{"taker high but payer positive", Rates{Taker: 0.01, Payer: 0.001, Quotes: Quotes{DerivAsk: 1, DerivBid: 1}}, Thresholds{Taker: 0.0001, Payer: 0.1}},
		{"payer high but taker positive", Rates{Taker: 0.001, Payer: 0.01, Quotes: Quotes{DerivAsk: 1, DerivBid: 1}}, Thresholds{Taker: 0.1, Payer: 0.0001}},
		{"spread filter", Rates{Taker: -0.01, Payer: 0.01, Quotes: Quotes{DerivAsk: 110, DerivBid: 100}}, Thresholds{Payer: 0.0001, MaxDerivSpread: 0.05}},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, ok := Policy{Thresholds: tc.thr}.Decide(tc.rates)
			assert.False(t, ok)
		})
	}
}

func TestRatesString(t *testing.T) {
	r := Rates{Taker: -0.001942, Payer: 0.001307, Days: 30, Quotes: Quotes{DerivAsk: 106, DerivBid: 104, UnderAsk: 100, UnderBid: 100}}
	s := r.String()
	assert.Contains(t, s, "rt=-0.001942")
	assert.Contains(t, s, "rp=0.001307")
	assert.Contains(t, s, "da=106")
	assert.Contains(t, s, "d=30.00")
}
