// Package arbitrage computes the implied daily carry rates between a
// derivative and its underlying and turns them into trade decisions.
package arbitrage

import (
	"fmt"
	"math"
	"time"

	"carrytrader/internal/schema"

	"github.com/yanun0323/errors"
)

const day = 24 * time.Hour

var (
	ErrMatured       = errors.New("instrument matured")
	ErrInvalidQuotes = errors.New("non-positive quote")
)

// Quotes is the top of book of a derivative and its underlying.
type Quotes struct {
	DerivAsk float64
	DerivBid float64
	UnderAsk float64
	UnderBid float64
}

func (q Quotes) valid() bool {
	for _, v := range []float64{q.DerivAsk, q.DerivBid, q.UnderAsk, q.UnderBid} {
		if !(v > 0) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Rates is the carry evaluation of one derivative.
type Rates struct {
	Days  float64
	Taker float64
	Payer float64
	// ProfitTaker and ProfitPayer are spread-adjusted profit estimates.
	ProfitTaker float64
	ProfitPayer float64
	Quotes      Quotes
}

// RemainingDays is the fractional number of days from now to maturity.
func RemainingDays(maturity, now time.Time) float64 {
	return float64(maturity.Sub(now)) / float64(day)
}

// Calc computes the daily rates. Buying the derivative at the ask and
// selling the underlying at the bid takes the rate; selling the derivative
// at the bid and buying the underlying at the ask pays it.
func Calc(maturity, now time.Time, q Quotes) (Rates, error) {
	days := RemainingDays(maturity, now)
	if !(days > 0) {
		return Rates{}, errors.Wrapf(ErrMatured, "remaining days: %.4f", days)
	}
	if !q.valid() {
		return Rates{}, errors.Wrapf(ErrInvalidQuotes, "%+v", q)
	}

	taker := math.Log(q.UnderBid/q.DerivAsk) / days
	payer := math.Log(q.DerivBid/q.UnderAsk) / days
	derivSpread := q.DerivAsk - q.DerivBid
	underSpread := q.UnderAsk - q.UnderBid

	return Rates{
		Days:        days,
		Taker:       taker,
		Payer:       payer,
		ProfitTaker: derivSpread*taker - underSpread,
		ProfitPayer: derivSpread*payer - underSpread,
		Quotes:      q,
	}, nil
}

// DerivSpread is the derivative spread relative to its bid.
func (r Rates) DerivSpread() float64 {
	return (r.Quotes.DerivAsk - r.Quotes.DerivBid) / r.Quotes.DerivBid
}

// String is the compact snapshot carried in signal comments.
func (r Rates) String() string {
	q := r.Quotes
	return fmt.Sprintf("rt=%.6f rp=%.6f pt=%.4f pp=%.4f da=%g db=%g ua=%g ub=%g d=%.2f",
		r.Taker, r.Payer, r.ProfitTaker, r.ProfitPayer,
		q.DerivAsk, q.DerivBid, q.UnderAsk, q.UnderBid, r.Days)
}

// Thresholds gate the decisions of a Policy.
type Thresholds struct {
	Taker float64
	Payer float64
	// MaxDerivSpread skips derivatives whose relative spread exceeds it. Zero disables the filter.
	MaxDerivSpread float64
}

// Decision is the trade a Policy picked.
type Decision struct {
	Side       schema.OrderSide
	Price      float64
	StopLoss   float64
	TakeProfit float64
}

// Policy maps rates to a decision.
type Policy struct {
	Thresholds Thresholds
}

// Decide returns the trade for r, if any.
//
// Buy when the taker rate clears its threshold while the payer rate is
// negative: price at the derivative ask, stop at its bid, target grown by
// the taker rate. Sell is the mirror image on the payer side.
func (p Policy) Decide(r Rates) (Decision, bool) {
	if p.Thresholds.MaxDerivSpread > 0 && r.DerivSpread() > p.Thresholds.MaxDerivSpread {
		return Decision{}, false
	}

	q := r.Quotes
	switch {
	case r.Taker > p.Thresholds.Taker && r.Payer < 0:
		return Decision{
			Side:       schema.OrderSideBuy,
			Price:      q.DerivAsk,
			StopLoss:   q.DerivBid,
			TakeProfit: q.DerivAsk * (1 + r.Taker),
		}, true
	case r.Payer > p.Thresholds.Payer && r.Taker < 0:
		return Decision{
			Side:       schema.OrderSideSell,
			Price:      q.DerivBid,
			StopLoss:   q.DerivAsk,
			TakeProfit: q.DerivBid * (1 - r.Payer),
		}, true
	default:
		return Decision{}, false
	}
}
