package primary

import (
	"context"
	"net/url"
	"strconv"

	"carrytrader/internal/schema"
	"carrytrader/pkg/exception"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
)

type orderResponse struct {
	statusResponse
	Order struct {
		ClientID    string `json:"clientId"`
		Proprietary string `json:"proprietary"`
	} `json:"order"`
}

func (r orderResponse) result() (string, string, error) {
	if err := r.err(); err != nil {
		return "", "", errors.Wrap(exception.ErrOrderResponseStatus, err.Error())
	}
	if r.Order.ClientID == "" {
		return "", "", exception.ErrOrderEmptyResponseID
	}
	return r.Order.ClientID, r.Order.Proprietary, nil
}

// orderQuery builds the newSingleOrder query. Market orders carry no price.
func orderQuery(o *schema.NewOrder, market, account string, spec schema.InstrumentSpec, known bool) url.Values {
	q := url.Values{}
	q.Set("marketId", market)
	q.Set("symbol", o.Symbol)
	q.Set("orderQty", formatSize(o.Size, spec, known))
	q.Set("ordType", o.Type.String())
	q.Set("side", o.Side.String())
	q.Set("timeInForce", o.TimeInForce.String())
	q.Set("account", account)
	q.Set("cancelPrevious", strconv.FormatBool(false))
	q.Set("iceberg", strconv.FormatBool(false))
	if o.Type == schema.OrderTypeLimit {
		q.Set("price", formatPrice(o.Price, spec, known))
	}
	return q
}

func formatPrice(price float64, spec schema.InstrumentSpec, known bool) string {
	if known {
		return spec.FormatPrice(spec.RoundPrice(price))
	}
	return decimal.NewFromFloat(price).String()
}

func formatSize(size float64, spec schema.InstrumentSpec, known bool) string {
	if known {
		return spec.FormatSize(size)
	}
	return decimal.NewFromFloat(size).String()
}

func (r *rest) placeOrder(ctx context.Context, q url.Values) (string, string, error) {
	var resp orderResponse
	if err := r.get(ctx, "rest/order/newSingleOrder", q, &resp); err != nil {
		return "", "", errors.Wrap(err, "new single order")
	}
	return resp.result()
}

func (r *rest) cancelOrder(ctx context.Context, clOrdID, proprietary string) (string, string, error) {
	q := url.Values{}
	q.Set("clOrdId", clOrdID)
	q.Set("proprietary", proprietary)

	var resp orderResponse
	if err := r.get(ctx, "rest/order/cancelById", q, &resp); err != nil {
		return "", "", errors.Wrapf(err, "cancel order %s", clOrdID)
	}
	return resp.result()
}
