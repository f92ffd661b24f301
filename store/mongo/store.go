package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/event"
	"github.com/xraph/docflow/tx"
	"github.com/xraph/docflow/workflow"
)

// Collection name constants.
const (
	colReceipts = "docflow_receipts"
	colEvents   = "docflow_events"
	colHistory  = "docflow_history"
)

// Ensure Store implements all subsystem interfaces at compile time.
var (
	_ tx.Store       = (*Store)(nil)
	_ event.Store    = (*Store)(nil)
	_ workflow.Store = (*Store)(nil)
)

// Store is a MongoDB implementation of store.Store.
// The caller owns the client lifecycle; Store never disconnects it.
type Store struct {
	db     *mongod.Database
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a new MongoDB store on db.
func New(db *mongod.Database, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying database for advanced usage.
func (s *Store) DB() *mongod.Database {
	return s.db
}

// Migrate creates indexes for all docflow collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}

		_, err := s.db.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("%w: %s indexes: %w", docflow.ErrMigrationFailed, col, err)
		}
		s.logger.Debug("ensured indexes", "collection", col, "count", len(models))
	}

	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// Close is a no-op because the caller owns the client lifecycle.
func (s *Store) Close() error {
	return nil
}

// ── helpers ──────────────────────────────────────────────────────

// isNoDocuments returns true when err indicates no MongoDB documents found.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// findPage builds find options with a sort and optional skip and limit.
func findPage(sort bson.D, limit, offset int) *options.FindOptionsBuilder {
	opts := options.Find().SetSort(sort)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	return opts
}

// sleepCtx sleeps for the given duration, or returns early if the context
// is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// migrationIndexes returns the index definitions for all docflow collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colReceipts: {
			{Keys: bson.D{{Key: "seq", Value: 1}}},
			{Keys: bson.D{
				{Key: "caller", Value: 1},
				{Key: "seq", Value: 1},
			}},
		},
		colEvents: {
			// Pending events index for subscribe.
			{Keys: bson.D{
				{Key: "name", Value: 1},
				{Key: "acked", Value: 1},
				{Key: "created_at", Value: 1},
			}},
		},
		colHistory: {
			// One archived entry per (workflow, usn).
			{
				Keys:    bson.D{{Key: "workflow_id", Value: 1}, {Key: "usn", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
}
