package store

import (
	"context"

	"github.com/xraph/docflow/event"
	"github.com/xraph/docflow/tx"
	"github.com/xraph/docflow/workflow"
)

// Store is the aggregate persistence interface. A single backend
// implements all of the subsystem stores.
type Store interface {
	tx.Store
	event.Store
	workflow.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
