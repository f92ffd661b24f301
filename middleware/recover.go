package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/xraph/docflow/tx"
)

// Recover returns middleware that recovers from panics in the handler
// chain. A panicking call is reverted like any other failed call.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, t *tx.Tx, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("call panicked",
					slog.String("tx_name", t.Name),
					slog.String("tx_id", t.ID.String()),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = fmt.Errorf("panic in call %s: %v", t.Name, r)
			}
		}()
		return next(ctx)
	}
}
