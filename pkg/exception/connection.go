package exception

import "github.com/yanun0323/errors"

var (
	ErrInResponseError   = errors.New("there is an error in response error field")
	ErrConnectionClose   = errors.New("connection closed")
	ErrGatewayAuth       = errors.New("gateway: authentication failed")
	ErrGatewayNotStarted = errors.New("gateway: feed not started")
	ErrGatewayTimeout    = errors.New("gateway: call timed out")
)
