package middleware

import (
	"context"
	"log/slog"

	"github.com/xraph/docflow/tx"
)

// Timeout returns middleware that enforces a per-call deadline. If the
// call has a non-zero Timeout, a context.WithTimeout wraps the handler.
// A call whose context is already done is reverted without being applied.
// Calls mutate state synchronously, so a handler that returns after its
// deadline keeps its outcome and the overrun is only logged.
func Timeout(logger *slog.Logger) Middleware {
	return func(ctx context.Context, t *tx.Tx, next Handler) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if t.Timeout <= 0 {
			return next(ctx)
		}

		ctx, cancel := context.WithTimeout(ctx, t.Timeout)
		defer cancel()

		err := next(ctx)
		if ctx.Err() != nil {
			logger.Warn("call overran its timeout",
				slog.String("tx_id", t.ID.String()),
				slog.String("tx_name", t.Name),
				slog.Duration("timeout", t.Timeout),
			)
		}
		return err
	}
}
