// Package risk applies the basic sizing checks to outgoing orders.
package risk

import (
	"math"
	"time"

	"carrytrader/internal/schema"
	"carrytrader/pkg/exception"

	"github.com/yanun0323/errors"
)

// Config defines simple risk limits. Zero disables a limit.
type Config struct {
	KillSwitch       bool          `yaml:"kill_switch"`
	MaxOrderSize     float64       `yaml:"max_order_size"`
	MaxOrderNotional float64       `yaml:"max_order_notional"`
	OrderRateLimit   int           `yaml:"order_rate_limit"`
	OrderRateWindow  time.Duration `yaml:"order_rate_window"`
}

type Action uint8

const (
	ActionAllow Action = iota
	ActionDeny
)

type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonKillSwitch
	ReasonRateLimit
	ReasonVolumeMin
	ReasonVolumeMax
	ReasonMaxSize
	ReasonMaxNotional
	ReasonPriceBand
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonKillSwitch:
		return "kill switch"
	case ReasonRateLimit:
		return "order rate limit"
	case ReasonVolumeMin:
		return "below instrument volume min"
	case ReasonVolumeMax:
		return "above instrument volume max"
	case ReasonMaxSize:
		return "above max order size"
	case ReasonMaxNotional:
		return "above max order notional"
	case ReasonPriceBand:
		return "outside instrument price band"
	default:
		return "unknown"
	}
}

// Decision is the verdict on one signal.
type Decision struct {
	Action Action
	Reason Reason
}

func (d Decision) Allowed() bool {
	return d.Action == ActionAllow
}

// Err is nil for allowed signals and wraps ErrOrderRiskDenied otherwise.
func (d Decision) Err() error {
	if d.Allowed() {
		return nil
	}
	return errors.Wrap(exception.ErrOrderRiskDenied, d.Reason.String())
}

func deny(r Reason) Decision {
	return Decision{Action: ActionDeny, Reason: r}
}

// Engine evaluates risk decisions. It is not safe for concurrent use and
// runs on the event loop.
type Engine struct {
	cfg             Config
	rateWindowStart time.Time
	rateCount       int
}

// NewEngine creates a risk engine with static limits.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// SetKillSwitch blocks or unblocks new orders.
func (e *Engine) SetKillSwitch(on bool) {
	e.cfg.KillSwitch = on
}

// Evaluate checks sig against the limits and the instrument spec. Only new
// orders are sized; cancels always pass so working orders can be pulled.
func (e *Engine) Evaluate(sig schema.Signal, spec schema.InstrumentSpec, now time.Time) Decision {
	o, ok := sig.(*schema.NewOrder)
	if !ok {
		return Decision{}
	}

	if e.cfg.KillSwitch {
		return deny(ReasonKillSwitch)
	}

	if e.cfg.OrderRateLimit > 0 && e.cfg.OrderRateWindow > 0 {
		if e.rateWindowStart.IsZero() || now.Sub(e.rateWindowStart) >= e.cfg.OrderRateWindow {
			e.rateWindowStart = now
			e.rateCount = 0
		}
		e.rateCount++
		if e.rateCount > e.cfg.OrderRateLimit {
			return deny(ReasonRateLimit)
		}
	}

	if spec.VolumeMin > 0 && o.Size < spec.VolumeMin {
		return deny(ReasonVolumeMin)
	}
	if spec.VolumeMax > 0 && o.Size > spec.VolumeMax {
		return deny(ReasonVolumeMax)
	}
	if e.cfg.MaxOrderSize > 0 && o.Size > e.cfg.MaxOrderSize {
		return deny(ReasonMaxSize)
	}

	if o.Type == schema.OrderTypeLimit && outsideBand(o.Price, spec) {
		return deny(ReasonPriceBand)
	}

	if e.cfg.MaxOrderNotional > 0 {
		multiplier := spec.ContractMultiplier
		if multiplier <= 0 {
			multiplier = 1
		}
		notional := o.Price * o.Size * multiplier
		if math.IsInf(notional, 0) || notional > e.cfg.MaxOrderNotional {
			return deny(ReasonMaxNotional)
		}
	}

	return Decision{}
}

func outsideBand(price float64, spec schema.InstrumentSpec) bool {
	if spec.PriceMin > 0 && price < spec.PriceMin {
		return true
	}
	return spec.PriceMax > 0 && price > spec.PriceMax
}
