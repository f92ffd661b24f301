package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/tx"
)

// SubmitFunc builds and submits one attempt of a call. It must read the
// current USN afresh on every attempt.
type SubmitFunc func(ctx context.Context, attempt int) (*tx.Receipt, error)

// Resubmit runs fn until it succeeds, fails with anything other than
// docflow.ErrWrongUSN, or runs out of attempts. Between attempts it waits
// for the configured backoff. The receipt and error of the last attempt
// are returned.
func (c *Client) Resubmit(ctx context.Context, fn SubmitFunc) (*tx.Receipt, error) {
	var (
		rcpt *tx.Receipt
		err  error
	)
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		rcpt, err = fn(ctx, attempt)
		if err == nil || !errors.Is(err, docflow.ErrWrongUSN) {
			return rcpt, err
		}
		if attempt == c.maxAttempts {
			break
		}

		delay := c.backoff.Delay(attempt)
		c.logger.Debug("resubmitting after usn race",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
		)
		if waitErr := sleepCtx(ctx, delay); waitErr != nil {
			return rcpt, waitErr
		}
	}
	return rcpt, fmt.Errorf("docflow/client: gave up after %d attempts: %w", c.maxAttempts, err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
