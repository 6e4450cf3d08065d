package og

import (
	"slices"
	"strings"
	"sync"
	"time"

	"carrytrader/internal/schema"
	"carrytrader/pkg/exception"

	"github.com/yanun0323/errors"
)

// OrderState tracks the lifecycle of an order.
type OrderState uint16

const (
	OrderStateUnknown OrderState = iota
	OrderStateSent
	OrderStatePendingNew
	OrderStateNew
	OrderStatePartFilled
	OrderStateFilled
	OrderStatePendingCancel
	OrderStateCanceled
	OrderStateRejected
	OrderStateExpired
)

func (s OrderState) String() string {
	switch s {
	case OrderStateSent:
		return "SENT"
	case OrderStatePendingNew:
		return "PENDING_NEW"
	case OrderStateNew:
		return "NEW"
	case OrderStatePartFilled:
		return "PARTIALLY_FILLED"
	case OrderStateFilled:
		return "FILLED"
	case OrderStatePendingCancel:
		return "PENDING_CANCEL"
	case OrderStateCanceled:
		return "CANCELLED"
	case OrderStateRejected:
		return "REJECTED"
	case OrderStateExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further report can change the order.
func (s OrderState) Terminal() bool {
	switch s {
	case OrderStateFilled, OrderStateCanceled, OrderStateRejected, OrderStateExpired:
		return true
	default:
		return false
	}
}

// ParseOrderState maps a broker order status.
func ParseOrderState(status string) OrderState {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "PENDING_NEW":
		return OrderStatePendingNew
	case "NEW":
		return OrderStateNew
	case "PARTIALLY_FILLED":
		return OrderStatePartFilled
	case "FILLED":
		return OrderStateFilled
	case "PENDING_CANCEL", "PENDING_REPLACE":
		return OrderStatePendingCancel
	case "CANCELLED", "CANCELED":
		return OrderStateCanceled
	case "REJECTED":
		return OrderStateRejected
	case "EXPIRED":
		return OrderStateExpired
	default:
		return OrderStateUnknown
	}
}

// Order is the tracked view of an order.
type Order struct {
	ClOrdID     string
	Proprietary string
	OrderID     string
	SignalID    string
	Symbol      string
	Side        schema.OrderSide
	Price       float64
	Qty         float64
	CumQty      float64
	LeavesQty   float64
	AvgPx       float64
	State       OrderState
	Text        string
	UpdatedAt   time.Time
}

// StateMachine tracks orders from submission responses and order reports,
// keyed by the broker client order id.
type StateMachine struct {
	mu     sync.RWMutex
	orders map[string]*Order
	order  []string
}

// NewStateMachine creates an empty tracker.
func NewStateMachine() *StateMachine {
	return &StateMachine{orders: make(map[string]*Order)}
}

// Order returns a copy of the tracked order.
func (m *StateMachine) Order(clOrdID string) (Order, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[clOrdID]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// ApplySubmit starts tracking an accepted new order.
func (m *StateMachine) ApplySubmit(o *schema.NewOrder, resp Response, now time.Time) (Order, error) {
	if !resp.OK() || resp.BrokerOrderID == "" {
		return Order{}, errors.Wrapf(exception.ErrOrderEmptyResponseID, "status: %s", resp.Status)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[resp.BrokerOrderID]; ok {
		return Order{}, errors.Wrapf(exception.ErrOrderDuplicate, "clOrdId: %s", resp.BrokerOrderID)
	}
	tracked := &Order{
		ClOrdID:     resp.BrokerOrderID,
		Proprietary: resp.ProprietaryID,
		SignalID:    o.ID(),
		Symbol:      o.Symbol,
		Side:        o.Side,
		Price:       o.Price,
		Qty:         o.Size,
		LeavesQty:   o.Size,
		State:       OrderStateSent,
		UpdatedAt:   now,
	}
	m.insert(tracked)
	return *tracked, nil
}

// ApplyReport updates an order from a broker report. Reports of orders not
// submitted by this session are tracked from their first report.
func (m *StateMachine) ApplyReport(r schema.OrderReport, now time.Time) (Order, error) {
	if r.ClOrdID == "" {
		return Order{}, errors.Wrap(exception.ErrOrderUnknown, "empty clOrdId")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[r.ClOrdID]
	if !ok {
		o = &Order{ClOrdID: r.ClOrdID, Symbol: r.InstrumentID.Symbol}
		if side, ok := schema.ParseOrderSide(r.Side); ok {
			o.Side = side
		}
		m.insert(o)
	}
	if o.State.Terminal() {
		return *o, errors.Wrapf(exception.ErrOrderInvalidTransit, "%s is %s, report %s", o.ClOrdID, o.State, r.Status)
	}

	if r.Proprietary != "" {
		o.Proprietary = r.Proprietary
	}
	if r.OrderID != "" {
		o.OrderID = r.OrderID
	}
	if r.Price != 0 {
		o.Price = r.Price
	}
	if r.OrderQty != 0 {
		o.Qty = r.OrderQty
	}
	o.CumQty = r.CumQty
	o.LeavesQty = r.LeavesQty
	o.AvgPx = r.AvgPx
	o.Text = r.Text
	o.State = ParseOrderState(r.Status)
	o.UpdatedAt = now
	return *o, nil
}

// Orders returns copies of every tracked order in tracking order.
func (m *StateMachine) Orders() []Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Order, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.orders[id])
	}
	return out
}

// Counts returns the number of orders per state.
func (m *StateMachine) Counts() map[OrderState]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[OrderState]int)
	for _, o := range m.orders {
		out[o.State]++
	}
	return out
}

// Open returns the client ids of the orders that are not terminal.
func (m *StateMachine) Open() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, id := range m.order {
		if !m.orders[id].State.Terminal() {
			out = append(out, id)
		}
	}
	return slices.Clip(out)
}

func (m *StateMachine) insert(o *Order) {
	m.orders[o.ClOrdID] = o
	m.order = append(m.order, o.ClOrdID)
}
