package exception

import "github.com/yanun0323/errors"

var (
	ErrEmptyBook          = errors.New("market data: no bid or offer side")
	ErrEmptySymbol        = errors.New("market data: empty symbol")
	ErrUnknownInstrument  = errors.New("market data: instrument spec not found")
	ErrInvalidInstrument  = errors.New("market data: invalid instrument spec")
	ErrReferenceFetch     = errors.New("reference: fetch failed")
	ErrReferenceNoResults = errors.New("reference: no rows resolved")
)
