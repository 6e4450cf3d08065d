package og

import (
	"context"
	"fmt"
	"time"

	"carrytrader/internal/schema"
	"carrytrader/pkg/exception"

	"github.com/yanun0323/errors"
)

// Submit calls gw.Submit bounded by timeout. It never panics and never
// blocks past the timeout: a panic or a deadline becomes a failed response.
func Submit(ctx context.Context, gw Gateway, sig schema.Signal, timeout time.Duration) Response {
	if gw == nil {
		return Failed(exception.ErrGatewayNotStarted)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan Response, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Failed(errors.Wrapf(exception.ErrInternal, "gateway panic: %v", r))
			}
		}()
		done <- gw.Submit(ctx, sig)
	}()

	select {
	case resp := <-done:
		if !resp.OK() {
			resp.BrokerOrderID = ""
		}
		return resp
	case <-ctx.Done():
		return Response{Status: fmt.Sprintf("%s: %v", StatusTimeout, ctx.Err())}
	}
}
