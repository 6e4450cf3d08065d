package exception

import "github.com/yanun0323/errors"

var (
	ErrSignalLimitWithoutPrice = errors.New("signal: limit order requires a limit price")
	ErrSignalEmptySymbol       = errors.New("signal: empty symbol")
	ErrSignalInvalidSize       = errors.New("signal: size must be > 0")
	ErrSignalInvalidSide       = errors.New("signal: unknown side")
	ErrSignalInvalidPrice      = errors.New("signal: price must be > 0")
	ErrSignalEmptyOrderID      = errors.New("signal: empty order id")
	ErrSignalEmptyModification = errors.New("signal: modify carries no change")
	ErrSignalUnsupported       = errors.New("signal: unsupported operation")
)

var (
	ErrOrderRiskDenied      = errors.New("order: denied by risk engine")
	ErrOrderDuplicate       = errors.New("order: already tracked")
	ErrOrderUnknown         = errors.New("order: not found")
	ErrOrderInvalidTransit  = errors.New("order: invalid state transition")
	ErrOrderResponseStatus  = errors.New("order: response status is not OK")
	ErrOrderEmptyResponseID = errors.New("order: empty response order id")
)
