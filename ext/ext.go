// Package ext defines the extension system for docflow.
// Extensions are notified of lifecycle events (schema finalized,
// workflow created, transitioned or closed, call committed or reverted)
// and can react to them: metrics, audit trails, archiving.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package ext

import (
	"context"

	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/registry"
	"github.com/xraph/docflow/schema"
	"github.com/xraph/docflow/tx"
	"github.com/xraph/docflow/workflow"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// RightChange describes a granted or revoked right entry.
type RightChange struct {
	State   schema.State
	Edge    int
	User    id.UserID
	Right   schema.Right
	Granted bool
}

// ──────────────────────────────────────────────────
// Schema hooks
// ──────────────────────────────────────────────────

// SchemaDeployed is called after a new schema is created.
type SchemaDeployed interface {
	OnSchemaDeployed(ctx context.Context, s *schema.Schema) error
}

// SchemaFinalized is called after a schema's topology is locked.
type SchemaFinalized interface {
	OnSchemaFinalized(ctx context.Context, s *schema.Schema) error
}

// RightChanged is called after a right entry is granted or revoked.
type RightChanged interface {
	OnRightChanged(ctx context.Context, s *schema.Schema, c RightChange) error
}

// ──────────────────────────────────────────────────
// Workflow hooks
// ──────────────────────────────────────────────────

// WorkflowCreated is called once the call that created an instance has
// committed.
type WorkflowCreated interface {
	OnWorkflowCreated(ctx context.Context, ev registry.Event) error
}

// WorkflowTransitioned is called after a lifecycle call appends the
// history entry at usn.
type WorkflowTransitioned interface {
	OnWorkflowTransitioned(ctx context.Context, w *workflow.Instance, usn int, entry workflow.HistoryEntry) error
}

// WorkflowClosed is called once the call that concluded an instance has
// committed.
type WorkflowClosed interface {
	OnWorkflowClosed(ctx context.Context, ev registry.Event) error
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// TxCommitted is called after a submitted call is applied.
type TxCommitted interface {
	OnTxCommitted(ctx context.Context, r *tx.Receipt) error
}

// TxReverted is called after a submitted call fails.
type TxReverted interface {
	OnTxReverted(ctx context.Context, r *tx.Receipt, err error) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
