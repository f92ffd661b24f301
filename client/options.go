package client

import (
	"context"
	"log/slog"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/backoff"
)

// Option configures a Client.
type Option func(*Client)

// WithConfig takes the page size and the resubmission policy from cfg.
func WithConfig(cfg docflow.Config) Option {
	return func(c *Client) {
		c.pageSize = cfg.PageSize
		c.maxAttempts = cfg.ResubmitAttempts
		c.backoff = backoff.FromConfig(cfg)
	}
}

// WithPageSize sets the number of instances read per page. Values below
// one are ignored.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithConcurrency bounds the lookups LoadSummaries runs at once.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithRetry sets how many times Resubmit tries a call and the delay
// strategy between tries.
func WithRetry(maxAttempts int, s backoff.Strategy) Option {
	return func(c *Client) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if s != nil {
			c.backoff = s
		}
	}
}

// WithPageHook installs a function called before every page read with the
// cursor about to be read. A hook error stops the enumeration.
func WithPageHook(fn func(ctx context.Context, next uint64) error) Option {
	return func(c *Client) { c.onPage = fn }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}
