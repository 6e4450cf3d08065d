package schema

import "strings"

// OrderSide buy, sell
type OrderSide uint8

const (
	_order_side_beg OrderSide = iota
	OrderSideBuy
	OrderSideSell
	_order_side_end
)

func (s OrderSide) IsAvailable() bool {
	return s > _order_side_beg && s < _order_side_end
}

func (s OrderSide) String() string {
	switch s {
	case OrderSideBuy:
		return "BUY"
	case OrderSideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the other side of the book.
func (s OrderSide) Opposite() OrderSide {
	switch s {
	case OrderSideBuy:
		return OrderSideSell
	case OrderSideSell:
		return OrderSideBuy
	default:
		return s
	}
}

// ParseOrderSide accepts "buy"/"sell" in any case.
func ParseOrderSide(s string) (OrderSide, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return OrderSideBuy, true
	case "SELL":
		return OrderSideSell, true
	default:
		return _order_side_beg, false
	}
}

// OrderType limit, market
type OrderType uint8

const (
	_order_type_beg OrderType = iota
	OrderTypeLimit
	OrderTypeMarket
	_order_type_end
)

func (t OrderType) IsAvailable() bool {
	return t > _order_type_beg && t < _order_type_end
}

func (t OrderType) String() string {
	switch t {
	case OrderTypeLimit:
		return "LIMIT"
	case OrderTypeMarket:
		return "MARKET"
	default:
		return "UNKNOWN"
	}
}

// TimeInForce DAY, IOC, FOK, GTD
type TimeInForce uint8

const (
	_time_in_force_beg TimeInForce = iota
	TimeInForceDay
	TimeInForceIOC
	TimeInForceFOK
	TimeInForceGTD
	_time_in_force_end
)

func (t TimeInForce) IsAvailable() bool {
	return t > _time_in_force_beg && t < _time_in_force_end
}

func (t TimeInForce) String() string {
	switch t {
	case TimeInForceDay:
		return "DAY"
	case TimeInForceIOC:
		return "IOC"
	case TimeInForceFOK:
		return "FOK"
	case TimeInForceGTD:
		return "GTD"
	default:
		return "UNKNOWN"
	}
}

// ParseTimeInForce accepts the broker spelling of a time-in-force.
func ParseTimeInForce(s string) (TimeInForce, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DAY":
		return TimeInForceDay, true
	case "IOC", "IMMEDIATE_OR_CANCEL":
		return TimeInForceIOC, true
	case "FOK", "FILL_OR_KILL":
		return TimeInForceFOK, true
	case "GTD", "GOOD_TILL_DATE":
		return TimeInForceGTD, true
	default:
		return _time_in_force_beg, false
	}
}

// Operation new, modify, cancel
type Operation uint8

const (
	_operation_beg Operation = iota
	OperationNew
	OperationModify
	OperationCancel
	_operation_end
)

func (o Operation) IsAvailable() bool {
	return o > _operation_beg && o < _operation_end
}

func (o Operation) String() string {
	switch o {
	case OperationNew:
		return "NEW"
	case OperationModify:
		return "MODIFY"
	case OperationCancel:
		return "CANCEL"
	default:
		return "UNKNOWN"
	}
}
