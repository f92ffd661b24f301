package bunstore

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/event"
	"github.com/xraph/docflow/store"
	"github.com/xraph/docflow/tx"
	"github.com/xraph/docflow/workflow"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Ensure Store implements all subsystem interfaces at compile time.
var (
	_ tx.Store       = (*Store)(nil)
	_ event.Store    = (*Store)(nil)
	_ workflow.Store = (*Store)(nil)
)

// Store is a Bun ORM implementation of store.Store using PostgreSQL dialect.
// The caller owns the *bun.DB lifecycle; Store never closes it.
type Store struct {
	db     *bun.DB
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

// New creates a new Bun store. The caller owns the db lifecycle; the Store
// will not close it on Close().
func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying *bun.DB for advanced usage.
func (s *Store) DB() *bun.DB {
	return s.db
}

// Migrate brings the database to the latest embedded schema version.
// Pending versions are applied in one transaction under an advisory
// lock, so a failed version leaves the previous schema in place.
func (s *Store) Migrate(ctx context.Context) error {
	plan, err := store.LoadMigrations(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, t bun.Tx) error {
		if _, err := t.ExecContext(ctx, `SELECT pg_advisory_xact_lock(?)`, store.MigrationLockKey); err != nil {
			return fmt.Errorf("docflow/bun: lock migrations: %w", err)
		}
		if _, err := t.NewCreateTable().Model((*schemaVersion)(nil)).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("docflow/bun: create versions table: %w", err)
		}

		current, err := currentVersion(ctx, t)
		if err != nil {
			return err
		}

		for _, m := range plan {
			if m.Version <= current {
				continue
			}
			if _, err := t.ExecContext(ctx, m.SQL); err != nil {
				return fmt.Errorf("%w: %03d_%s: %w", docflow.ErrMigrationFailed, m.Version, m.Name, err)
			}
			v := &schemaVersion{Version: m.Version, Name: m.Name}
			if _, err := t.NewInsert().Model(v).Exec(ctx); err != nil {
				return fmt.Errorf("docflow/bun: record version %d: %w", m.Version, err)
			}
			s.logger.Info("applied migration",
				slog.Int("version", m.Version),
				slog.String("name", m.Name),
			)
		}
		return nil
	})
}

// SchemaVersion returns the latest applied migration version, or 0 for
// an unmigrated database.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	if _, err := s.db.NewCreateTable().Model((*schemaVersion)(nil)).IfNotExists().Exec(ctx); err != nil {
		return 0, fmt.Errorf("docflow/bun: create versions table: %w", err)
	}
	return currentVersion(ctx, s.db)
}

func currentVersion(ctx context.Context, db bun.IDB) (int, error) {
	var v int
	err := db.NewSelect().
		Model((*schemaVersion)(nil)).
		ColumnExpr("COALESCE(MAX(version), 0)").
		Scan(ctx, &v)
	if err != nil {
		return 0, fmt.Errorf("docflow/bun: read schema version: %w", err)
	}
	return v, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op because the caller owns the *bun.DB lifecycle.
func (s *Store) Close() error {
	return nil
}
