package redis

import (
	"context"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/docflow/event"
	"github.com/xraph/docflow/tx"
	"github.com/xraph/docflow/workflow"
)

// Compile-time interface checks.
var (
	_ tx.Store       = (*Store)(nil)
	_ event.Store    = (*Store)(nil)
	_ workflow.Store = (*Store)(nil)
)

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithKeyPrefix namespaces every key. Defaults to "docflow:".
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.keys = keys(prefix) }
}

// Store implements the composite store.Store interface backed by Redis.
type Store struct {
	client goredis.Cmdable
	logger *slog.Logger
	keys   keys
}

// New creates a new Redis-backed store. The caller owns the Redis client
// lifecycle.
func New(client goredis.Cmdable, opts ...Option) *Store {
	s := &Store{client: client, logger: slog.Default(), keys: defaultKeys}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Client returns the underlying Redis client.
func (s *Store) Client() goredis.Cmdable { return s.client }

// Migrate is a no-op for Redis (schemaless).
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close is a no-op; the caller owns the Redis client lifecycle.
func (s *Store) Close() error { return nil }
