package primary

import (
	"carrytrader/internal/og"
	"carrytrader/internal/schema"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/logs"
)

const (
	_typeMarketData  = "Md"
	_typeOrderReport = "or"
	_statusError     = "ERROR"
)

type product struct {
	Symbol   string `json:"symbol"`
	MarketID string `json:"marketId"`
}

type marketDataRequest struct {
	Type     string     `json:"type"`
	Level    int        `json:"level"`
	Entries  []og.Entry `json:"entries"`
	Products []product  `json:"products"`
	Depth    int        `json:"depth"`
}

type account struct {
	ID string `json:"id"`
}

type orderReportSubscription struct {
	Type     string    `json:"type"`
	Accounts []account `json:"accounts"`
}

// marketDataRequest builds the smd message of symbols. The caller holds g.mu.
func (g *Gateway) marketDataRequest(symbols []string) marketDataRequest {
	products := make([]product, 0, len(symbols))
	for _, s := range symbols {
		market := g.cfg.Market
		if spec, ok := g.specs[s]; ok && spec.Market != "" {
			market = spec.Market
		}
		products = append(products, product{Symbol: s, MarketID: market})
	}
	return marketDataRequest{
		Type:     "smd",
		Level:    1,
		Entries:  g.entries,
		Products: products,
		Depth:    g.depth,
	}
}

func orderReportRequest(id string) orderReportSubscription {
	return orderReportSubscription{Type: "os", Accounts: []account{{ID: id}}}
}

type probe struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

// onMessage routes an inbound frame to the handlers. Undecodable frames are
// logged and dropped.
func (g *Gateway) onMessage(payload []byte) {
	var p probe
	if err := sonic.ConfigFastest.Unmarshal(payload, &p); err != nil {
		logs.Warnf("decode primary message, err: %+v, payload: %s", err, payload)
		return
	}

	switch {
	case p.Type == _typeMarketData:
		var ev schema.MarketDataEvent
		if err := sonic.ConfigFastest.Unmarshal(payload, &ev); err != nil {
			logs.Warnf("decode market data, err: %+v, payload: %s", err, payload)
			return
		}
		g.handlers.Dispatch(ev)
	case p.Type == _typeOrderReport:
		var ev schema.OrderReportEvent
		if err := sonic.ConfigFastest.Unmarshal(payload, &ev); err != nil {
			logs.Warnf("decode order report, err: %+v, payload: %s", err, payload)
			return
		}
		g.handlers.Dispatch(ev.OrderReport)
	case p.Status == _statusError:
		var ev schema.ErrorEvent
		if err := sonic.ConfigFastest.Unmarshal(payload, &ev); err != nil {
			logs.Warnf("decode error message, err: %+v, payload: %s", err, payload)
			return
		}
		g.handlers.Dispatch(ev)
	default:
		logs.Debugf("ignore primary message type %q", p.Type)
	}
}
