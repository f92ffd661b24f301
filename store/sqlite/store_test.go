package sqlite_test

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/xraph/grove"
	_ "github.com/xraph/grove/drivers/sqlitedriver" // register sqlite driver

	"github.com/xraph/docflow/store/sqlite"
	"github.com/xraph/docflow/store/storetest"
)

// setupTestStore opens a file-backed SQLite database in a temp dir and
// returns a migrated Store.
func setupTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "docflow.db") + "?_pragma=busy_timeout(5000)"
	db, err := grove.Open(ctx, "sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	s := sqlite.New(db, sqlite.WithLogger(slog.Default()))
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestStore_Ping(t *testing.T) {
	s := setupTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func TestStore_MigrateIdempotent(t *testing.T) {
	s := setupTestStore(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}

func TestStore_CloseLeavesDBOpen(t *testing.T) {
	s := setupTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("db closed by store: %v", err)
	}
}

func TestStore_Conformance(t *testing.T) {
	storetest.Run(t, setupTestStore(t))
}
