package primary

import (
	"context"
	"strings"
	"time"

	"carrytrader/internal/schema"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const _maturityLayout = "20060102"

type instrumentsResponse struct {
	statusResponse
	Instruments []instrumentDetail `json:"instruments"`
}

type instrumentDetail struct {
	InstrumentID schema.InstrumentID `json:"instrumentId"`
	Segment      struct {
		MarketSegmentID string `json:"marketSegmentId"`
		MarketID        string `json:"marketId"`
	} `json:"segment"`
	CFICode                  string   `json:"cficode"`
	Currency                 string   `json:"currency"`
	Underlying               string   `json:"underlying"`
	MaturityDate             string   `json:"maturityDate"`
	MinPriceIncrement        float64  `json:"minPriceIncrement"`
	TickSize                 float64  `json:"tickSize"`
	LowLimitPrice            float64  `json:"lowLimitPrice"`
	HighLimitPrice           float64  `json:"highLimitPrice"`
	ContractMultiplier       float64  `json:"contractMultiplier"`
	MinTradeVolume           float64  `json:"minTradeVolume"`
	MaxTradeVolume           float64  `json:"maxTradeVolume"`
	InstrumentPricePrecision int32    `json:"instrumentPricePrecision"`
	InstrumentSizePrecision  int32    `json:"instrumentSizePrecision"`
	OrderTypes               []string `json:"orderTypes"`
	TimesInForce             []string `json:"timesInForce"`
}

// spec maps a broker instrument onto an InstrumentSpec. The price step is
// the minimum price increment; tickSize is only a fallback.
func (d instrumentDetail) spec() schema.InstrumentSpec {
	s := schema.InstrumentSpec{
		Symbol:             d.InstrumentID.Symbol,
		Market:             d.InstrumentID.MarketID,
		Segment:            d.Segment.MarketSegmentID,
		UnderlyingSymbol:   strings.TrimSpace(d.Underlying),
		Currency:           d.Currency,
		CFICode:            d.CFICode,
		TickSize:           d.MinPriceIncrement,
		PriceMin:           d.LowLimitPrice,
		PriceMax:           d.HighLimitPrice,
		ContractMultiplier: d.ContractMultiplier,
		VolumeMin:          d.MinTradeVolume,
		VolumeMax:          d.MaxTradeVolume,
		PriceDecimals:      d.InstrumentPricePrecision,
		SizeDecimals:       d.InstrumentSizePrecision,
		OrderTypes:         d.OrderTypes,
		TimesInForce:       d.TimesInForce,
	}
	if s.TickSize <= 0 {
		s.TickSize = d.TickSize
	}
	if s.Market == "" {
		s.Market = d.Segment.MarketID
	}
	if d.MaturityDate != "" {
		if t, err := time.ParseInLocation(_maturityLayout, d.MaturityDate, time.UTC); err == nil {
			s.MaturityDate = t
		} else {
			logs.Warnf("parse maturity of %s, value: %s, err: %+v", s.Symbol, d.MaturityDate, err)
		}
	}
	return s
}

func (r *rest) instruments(ctx context.Context) ([]schema.InstrumentSpec, error) {
	var resp instrumentsResponse
	if err := r.get(ctx, "rest/instruments/details", nil, &resp); err != nil {
		return nil, errors.Wrap(err, "get instrument details")
	}
	if err := resp.err(); err != nil {
		return nil, errors.Wrap(err, "get instrument details")
	}

	specs := make([]schema.InstrumentSpec, 0, len(resp.Instruments))
	for _, d := range resp.Instruments {
		s := d.spec()
		if err := s.Validate(); err != nil {
			logs.Warnf("skip instrument %s, err: %+v", s.Symbol, err)
			continue
		}
		specs = append(specs, s)
	}
	return specs, nil
}
