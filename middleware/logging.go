package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/docflow/tx"
)

// Logging returns middleware that logs each call and its outcome.
// Reverted calls log at Warn: a revert is a normal ledger outcome.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, t *tx.Tx, next Handler) error {
		logger.Debug("call submitted",
			slog.String("tx_name", t.Name),
			slog.String("tx_id", t.ID.String()),
			slog.String("caller", t.Caller.String()),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Warn("call reverted",
				slog.String("tx_name", t.Name),
				slog.String("tx_id", t.ID.String()),
				slog.String("target", t.Target.String()),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("call committed",
				slog.String("tx_name", t.Name),
				slog.String("tx_id", t.ID.String()),
				slog.String("target", t.Target.String()),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
