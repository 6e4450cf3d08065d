package schema

import (
	"strings"
	"time"

	"carrytrader/pkg/exception"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
)

// InstrumentSpec is the static reference data of a tradable derivative.
type InstrumentSpec struct {
	Symbol             string    `json:"symbol"`
	Market             string    `json:"market"`
	Segment            string    `json:"segment"`
	UnderlyingSymbol   string    `json:"underlyingSymbol"`
	Currency           string    `json:"currency"`
	CFICode            string    `json:"cfiCode"`
	MaturityDate       time.Time `json:"maturityDate"`
	TickSize           float64   `json:"tickSize"`
	PriceMin           float64   `json:"priceMin"`
	PriceMax           float64   `json:"priceMax"`
	ContractMultiplier float64   `json:"contractMultiplier"`
	VolumeMin          float64   `json:"volumeMin"`
	VolumeMax          float64   `json:"volumeMax"`
	PriceDecimals      int32     `json:"priceDecimals"`
	SizeDecimals       int32     `json:"sizeDecimals"`
	OrderTypes         []string  `json:"orderTypes"`
	TimesInForce       []string  `json:"timesInForce"`
}

// Validate checks the fields every consumer relies on.
func (s InstrumentSpec) Validate() error {
	if s.Symbol == "" {
		return exception.ErrEmptySymbol
	}
	if s.TickSize < 0 || s.VolumeMin < 0 || s.VolumeMax < 0 {
		return errors.Wrapf(exception.ErrInvalidInstrument, "negative tick/volume bound for %s", s.Symbol)
	}
	if s.VolumeMax > 0 && s.VolumeMin > s.VolumeMax {
		return errors.Wrapf(exception.ErrInvalidInstrument, "volume min %v > max %v for %s", s.VolumeMin, s.VolumeMax, s.Symbol)
	}
	if s.PriceDecimals < 0 || s.SizeDecimals < 0 {
		return errors.Wrapf(exception.ErrInvalidInstrument, "negative precision for %s", s.Symbol)
	}
	return nil
}

// HasMaturity reports whether the instrument expires.
func (s InstrumentSpec) HasMaturity() bool {
	return !s.MaturityDate.IsZero()
}

// RoundPrice snaps a price to the instrument tick size and price precision.
func (s InstrumentSpec) RoundPrice(price float64) float64 {
	d := decimal.NewFromFloat(price)
	if s.TickSize > 0 {
		step := decimal.NewFromFloat(s.TickSize)
		d = d.Div(step).Round(0).Mul(step)
	}
	if s.PriceDecimals > 0 {
		d = d.Round(s.PriceDecimals)
	}
	f, _ := d.Float64()
	return f
}

// FormatPrice renders a price with the instrument price precision.
func (s InstrumentSpec) FormatPrice(price float64) string {
	return decimal.NewFromFloat(price).StringFixed(s.PriceDecimals)
}

// FormatSize renders a size with the instrument size precision.
func (s InstrumentSpec) FormatSize(size float64) string {
	return decimal.NewFromFloat(size).StringFixed(s.SizeDecimals)
}

// AllowsOrderType reports whether the broker accepts the order type. An empty list allows all.
func (s InstrumentSpec) AllowsOrderType(t OrderType) bool {
	return allows(s.OrderTypes, t.String())
}

// AllowsTimeInForce reports whether the broker accepts the time-in-force. An empty list allows all.
func (s InstrumentSpec) AllowsTimeInForce(t TimeInForce) bool {
	return allows(s.TimesInForce, t.String())
}

func allows(list []string, want string) bool {
	if len(list) == 0 {
		return true
	}
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), want) {
			return true
		}
	}
	return false
}

// UnderlyingSpec is the reference data of a spot instrument linked to derivatives.
type UnderlyingSpec struct {
	Symbol        string
	LastPrice     float64
	PreviousClose float64
	DayHigh       float64
	DayLow        float64
	DayOpen       float64
	Volume        float64
	Currency      string
	Exchange      string
	UpdatedAt     time.Time
}

// Bid is the underlying bid. The reference source carries no spread, so it equals the last price.
func (u UnderlyingSpec) Bid() float64 {
	return u.LastPrice
}

// Ask is the underlying ask. See Bid.
func (u UnderlyingSpec) Ask() float64 {
	return u.LastPrice
}
