package ext

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/docflow/registry"
	"github.com/xraph/docflow/schema"
	"github.com/xraph/docflow/tx"
	"github.com/xraph/docflow/workflow"
)

// entry pairs a hook implementation with the extension name captured at
// registration time.
type entry[H any] struct {
	name string
	hook H
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
// Register all extensions before the engine starts taking calls. A hook
// that fails or panics is logged and skipped; the next extension still
// runs.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	schemaDeployed       []entry[SchemaDeployed]
	schemaFinalized      []entry[SchemaFinalized]
	rightChanged         []entry[RightChanged]
	workflowCreated      []entry[WorkflowCreated]
	workflowTransitioned []entry[WorkflowTransitioned]
	workflowClosed       []entry[WorkflowClosed]
	txCommitted          []entry[TxCommitted]
	txReverted           []entry[TxReverted]
	shutdown             []entry[Shutdown]
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// cache appends e to list when it implements H.
func cache[H any](list []entry[H], e Extension) []entry[H] {
	if h, ok := e.(H); ok {
		return append(list, entry[H]{name: e.Name(), hook: h})
	}
	return list
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)

	r.schemaDeployed = cache(r.schemaDeployed, e)
	r.schemaFinalized = cache(r.schemaFinalized, e)
	r.rightChanged = cache(r.rightChanged, e)
	r.workflowCreated = cache(r.workflowCreated, e)
	r.workflowTransitioned = cache(r.workflowTransitioned, e)
	r.workflowClosed = cache(r.workflowClosed, e)
	r.txCommitted = cache(r.txCommitted, e)
	r.txReverted = cache(r.txReverted, e)
	r.shutdown = cache(r.shutdown, e)
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// ──────────────────────────────────────────────────
// Schema event emitters
// ──────────────────────────────────────────────────

// EmitSchemaDeployed notifies all extensions that implement SchemaDeployed.
func (r *Registry) EmitSchemaDeployed(ctx context.Context, s *schema.Schema) {
	for _, e := range r.schemaDeployed {
		r.call("OnSchemaDeployed", e.name, func() error { return e.hook.OnSchemaDeployed(ctx, s) })
	}
}

// EmitSchemaFinalized notifies all extensions that implement SchemaFinalized.
func (r *Registry) EmitSchemaFinalized(ctx context.Context, s *schema.Schema) {
	for _, e := range r.schemaFinalized {
		r.call("OnSchemaFinalized", e.name, func() error { return e.hook.OnSchemaFinalized(ctx, s) })
	}
}

// EmitRightChanged notifies all extensions that implement RightChanged.
func (r *Registry) EmitRightChanged(ctx context.Context, s *schema.Schema, c RightChange) {
	for _, e := range r.rightChanged {
		r.call("OnRightChanged", e.name, func() error { return e.hook.OnRightChanged(ctx, s, c) })
	}
}

// ──────────────────────────────────────────────────
// Workflow event emitters
// ──────────────────────────────────────────────────

// EmitWorkflowCreated notifies all extensions that implement WorkflowCreated.
func (r *Registry) EmitWorkflowCreated(ctx context.Context, ev registry.Event) {
	for _, e := range r.workflowCreated {
		r.call("OnWorkflowCreated", e.name, func() error { return e.hook.OnWorkflowCreated(ctx, ev) })
	}
}

// EmitWorkflowTransitioned notifies all extensions that implement WorkflowTransitioned.
func (r *Registry) EmitWorkflowTransitioned(ctx context.Context, w *workflow.Instance, usn int, h workflow.HistoryEntry) {
	for _, e := range r.workflowTransitioned {
		r.call("OnWorkflowTransitioned", e.name, func() error { return e.hook.OnWorkflowTransitioned(ctx, w, usn, h) })
	}
}

// EmitWorkflowClosed notifies all extensions that implement WorkflowClosed.
func (r *Registry) EmitWorkflowClosed(ctx context.Context, ev registry.Event) {
	for _, e := range r.workflowClosed {
		r.call("OnWorkflowClosed", e.name, func() error { return e.hook.OnWorkflowClosed(ctx, ev) })
	}
}

// ──────────────────────────────────────────────────
// Ledger event emitters
// ──────────────────────────────────────────────────

// EmitTxCommitted notifies all extensions that implement TxCommitted.
func (r *Registry) EmitTxCommitted(ctx context.Context, rec *tx.Receipt) {
	for _, e := range r.txCommitted {
		r.call("OnTxCommitted", e.name, func() error { return e.hook.OnTxCommitted(ctx, rec) })
	}
}

// EmitTxReverted notifies all extensions that implement TxReverted.
func (r *Registry) EmitTxReverted(ctx context.Context, rec *tx.Receipt, callErr error) {
	for _, e := range r.txReverted {
		r.call("OnTxReverted", e.name, func() error { return e.hook.OnTxReverted(ctx, rec, callErr) })
	}
}

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		r.call("OnShutdown", e.name, func() error { return e.hook.OnShutdown(ctx) })
	}
}

// call runs one hook, turning an error or a panic into a log line.
func (r *Registry) call(hook, extName string, fn func() error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("extension hook panicked",
				slog.String("hook", hook),
				slog.String("extension", extName),
				slog.String("panic", fmt.Sprint(p)),
			)
		}
	}()
	if err := fn(); err != nil {
		r.logHookError(hook, extName, err)
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Hook errors are never propagated.
func (r *Registry) logHookError(hook, extName string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
