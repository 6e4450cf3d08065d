package exception

import "github.com/yanun0323/errors"

var (
	ErrStrategyExists    = errors.New("strategy: already loaded")
	ErrStrategyNotFound  = errors.New("strategy: not loaded")
	ErrStrategyNoSymbols = errors.New("strategy: no symbols subscribed")
	ErrStrategyDeleted   = errors.New("strategy: deleted")
	ErrStrategyEmptyName = errors.New("strategy: empty name")
	ErrStrategyPanic     = errors.New("strategy: handler panicked")
	ErrSchedulerStopped  = errors.New("scheduler: stopped")
	ErrQueueFull         = errors.New("event queue full")
	ErrQueueClosed       = errors.New("event queue closed")
)
