package schema

import (
	"math"
	"time"

	"carrytrader/pkg/exception"

	"github.com/google/uuid"
	"github.com/yanun0323/errors"
)

// Signal is a trading action requested by a strategy. The variants are
// *NewOrder, *ModifyOrder and *CancelOrder.
type Signal interface {
	// ID is the correlation id assigned at construction, independent of any broker id.
	ID() string
	Operation() Operation
	Snapshot() SignalSnapshot
	// Attach records the broker order id and execution status after submission.
	Attach(brokerOrderID, status string)
	Execution() Execution

	signal()
}

// Execution is the only part of a signal written after submission.
type Execution struct {
	BrokerOrderID string
	Status        string
	Attached      bool
}

// SignalSnapshot is a flat, immutable copy of a signal for audit records.
type SignalSnapshot struct {
	ID          string
	Operation   Operation
	Symbol      string
	Side        OrderSide
	Size        float64
	Type        OrderType
	TimeInForce TimeInForce
	Price       float64
	StopLoss    float64
	TakeProfit  float64
	OrderID     string
	Comment     string
	CreatedAt   time.Time
}

type header struct {
	id        string
	createdAt time.Time
	comment   string
	exec      Execution
}

func newHeader(comment string) header {
	return header{
		id:        uuid.NewString(),
		createdAt: time.Now().UTC(),
		comment:   comment,
	}
}

func (h *header) ID() string {
	return h.id
}

func (h *header) Execution() Execution {
	return h.exec
}

func (h *header) Attach(brokerOrderID, status string) {
	h.exec = Execution{BrokerOrderID: brokerOrderID, Status: status, Attached: true}
}

func (h *header) snapshot(op Operation) SignalSnapshot {
	return SignalSnapshot{
		ID:        h.id,
		Operation: op,
		Comment:   h.comment,
		CreatedAt: h.createdAt,
	}
}

func (*header) signal() {}

// NewOrderParams holds the fields of a new order request.
// Zero prices mean "not supplied".
type NewOrderParams struct {
	Symbol      string
	Side        OrderSide
	Size        float64
	Type        OrderType
	TimeInForce TimeInForce
	Price       float64
	StopLoss    float64
	TakeProfit  float64
	Comment     string
}

// NewOrder places an order.
type NewOrder struct {
	header

	Symbol      string
	Side        OrderSide
	Size        float64
	Type        OrderType
	TimeInForce TimeInForce
	// Price is the limit price of limit orders and the reference price of market orders.
	Price      float64
	StopLoss   float64
	TakeProfit float64
}

// PlaceOrder validates p and builds a NewOrder signal.
//
// An explicit limit order without a price fails. When the type is not set,
// the order is a limit order if a price is supplied and a market order otherwise.
// The time-in-force defaults to DAY.
func PlaceOrder(p NewOrderParams) (*NewOrder, error) {
	if p.Symbol == "" {
		return nil, exception.ErrSignalEmptySymbol
	}
	if !p.Side.IsAvailable() {
		return nil, exception.ErrSignalInvalidSide
	}
	if !(p.Size > 0) || math.IsInf(p.Size, 0) {
		return nil, errors.Wrapf(exception.ErrSignalInvalidSize, "size: %v", p.Size)
	}
	for _, v := range []float64{p.Price, p.StopLoss, p.TakeProfit} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.Wrapf(exception.ErrSignalInvalidPrice, "price: %v", v)
		}
	}

	switch {
	case p.Type == OrderTypeLimit && p.Price == 0:
		return nil, exception.ErrSignalLimitWithoutPrice
	case p.Price == 0:
		p.Type = OrderTypeMarket
	case !p.Type.IsAvailable():
		p.Type = OrderTypeLimit
	}
	if !p.TimeInForce.IsAvailable() {
		p.TimeInForce = TimeInForceDay
	}

	return &NewOrder{
		header:      newHeader(p.Comment),
		Symbol:      p.Symbol,
		Side:        p.Side,
		Size:        p.Size,
		Type:        p.Type,
		TimeInForce: p.TimeInForce,
		Price:       p.Price,
		StopLoss:    p.StopLoss,
		TakeProfit:  p.TakeProfit,
	}, nil
}

func (o *NewOrder) Operation() Operation {
	return OperationNew
}

func (o *NewOrder) Snapshot() SignalSnapshot {
	s := o.snapshot(OperationNew)
	s.Symbol = o.Symbol
	s.Side = o.Side
	s.Size = o.Size
	s.Type = o.Type
	s.TimeInForce = o.TimeInForce
	s.Price = o.Price
	s.StopLoss = o.StopLoss
	s.TakeProfit = o.TakeProfit
	return s
}

// ModifyParams holds the fields of an order modification. Zero means "unchanged".
type ModifyParams struct {
	OrderID    string
	Price      float64
	Size       float64
	StopLoss   float64
	TakeProfit float64
	Comment    string
}

// ModifyOrder amends a working order. It is validated but no gateway executes it.
type ModifyOrder struct {
	header

	OrderID    string
	Price      float64
	Size       float64
	StopLoss   float64
	TakeProfit float64
}

// Modify validates p and builds a ModifyOrder signal.
func Modify(p ModifyParams) (*ModifyOrder, error) {
	if p.OrderID == "" {
		return nil, exception.ErrSignalEmptyOrderID
	}
	if p.Price == 0 && p.Size == 0 && p.StopLoss == 0 && p.TakeProfit == 0 {
		return nil, exception.ErrSignalEmptyModification
	}
	if p.Size < 0 {
		return nil, errors.Wrapf(exception.ErrSignalInvalidSize, "size: %v", p.Size)
	}
	for _, v := range []float64{p.Price, p.StopLoss, p.TakeProfit} {
		if v < 0 {
			return nil, errors.Wrapf(exception.ErrSignalInvalidPrice, "price: %v", v)
		}
	}
	return &ModifyOrder{
		header:     newHeader(p.Comment),
		OrderID:    p.OrderID,
		Price:      p.Price,
		Size:       p.Size,
		StopLoss:   p.StopLoss,
		TakeProfit: p.TakeProfit,
	}, nil
}

func (o *ModifyOrder) Operation() Operation {
	return OperationModify
}

func (o *ModifyOrder) Snapshot() SignalSnapshot {
	s := o.snapshot(OperationModify)
	s.OrderID = o.OrderID
	s.Price = o.Price
	s.Size = o.Size
	s.StopLoss = o.StopLoss
	s.TakeProfit = o.TakeProfit
	return s
}

// CancelOrder cancels a working order by its broker id.
type CancelOrder struct {
	header

	OrderID string
}

// Cancel builds a CancelOrder signal.
func Cancel(orderID, comment string) (*CancelOrder, error) {
	if orderID == "" {
		return nil, exception.ErrSignalEmptyOrderID
	}
	return &CancelOrder{header: newHeader(comment), OrderID: orderID}, nil
}

func (o *CancelOrder) Operation() Operation {
	return OperationCancel
}

func (o *CancelOrder) Snapshot() SignalSnapshot {
	s := o.snapshot(OperationCancel)
	s.OrderID = o.OrderID
	return s
}

// Recognized reports whether sig is one of the signal variants built by its constructor.
// Nil pointers and zero values fail the check.
func Recognized(sig Signal) bool {
	switch s := sig.(type) {
	case *NewOrder:
		return s != nil && s.id != ""
	case *ModifyOrder:
		return s != nil && s.id != ""
	case *CancelOrder:
		return s != nil && s.id != ""
	default:
		return false
	}
}
