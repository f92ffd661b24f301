package engine

import (
	"context"
	"log/slog"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/access"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/registry"
	"github.com/xraph/docflow/schema"
	"github.com/xraph/docflow/tx"
	"github.com/xraph/docflow/workflow"
)

// ──────────────────────────────────────────────────
// Registry
// ──────────────────────────────────────────────────

// CreateWorkflow creates an instance bound to the schema at schemaAddr.
// An unknown or nil schema address fails with docflow.ErrInvalidSE.
func (eng *Engine) CreateWorkflow(ctx context.Context, caller id.UserID, schemaAddr id.SchemaID, docTypes []workflow.DocType) (*workflow.Instance, *tx.Receipt, error) {
	var sch workflow.Authorizer
	if s, err := eng.Schema(schemaAddr); err == nil {
		sch = s
	}

	var inst *workflow.Instance
	rcpt, err := eng.submit(ctx, "createWorkflow", caller, eng.registry.Address(), len(docTypes), func(ctx context.Context) error {
		var createErr error
		inst, createErr = eng.registry.CreateWorkflow(ctx, caller, sch, docTypes)
		return createErr
	})
	if err != nil {
		return nil, rcpt, err
	}
	eng.extensions.EmitWorkflowCreated(ctx, registry.EventOf(inst))
	return inst, rcpt, nil
}

// RemoveWorkflow unlinks the open instance with registry id seq. The
// caller must be a ContractAdmin of the registry.
func (eng *Engine) RemoveWorkflow(ctx context.Context, caller id.UserID, seq uint64) (*tx.Receipt, error) {
	var inst *workflow.Instance
	rcpt, err := eng.submit(ctx, "removeWorkflow", caller, eng.registry.Address(), 0, func(ctx context.Context) error {
		if !eng.registry.HasRole(access.ContractAdmin, caller) {
			return docflow.ErrUnauthorized
		}
		var removeErr error
		inst, removeErr = eng.registry.RemoveWorkflow(ctx, seq)
		return removeErr
	})
	if err != nil {
		return rcpt, err
	}
	eng.extensions.EmitWorkflowClosed(ctx, registry.EventOf(inst))
	return rcpt, nil
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// DoInit submits the initial transition of the instance at addr.
func (eng *Engine) DoInit(ctx context.Context, caller id.UserID, addr id.WorkflowID, usn int, next schema.State, ids []workflow.DocID, content []workflow.Hash) (*tx.Receipt, error) {
	return eng.transition(ctx, "doInit", caller, addr, usn, len(ids), func(ctx context.Context, w *workflow.Instance) error {
		return w.DoInit(ctx, caller, usn, next, ids, content)
	})
}

// DoApprove submits an approval transition.
func (eng *Engine) DoApprove(ctx context.Context, caller id.UserID, addr id.WorkflowID, usn int, next schema.State) (*tx.Receipt, error) {
	return eng.transition(ctx, "doApprove", caller, addr, usn, 0, func(ctx context.Context, w *workflow.Instance) error {
		return w.DoApprove(ctx, caller, usn, next)
	})
}

// DoReview submits a review that removes and then adds documents.
func (eng *Engine) DoReview(ctx context.Context, caller id.UserID, addr id.WorkflowID, usn int, removed, added []workflow.DocID, content []workflow.Hash) (*tx.Receipt, error) {
	return eng.transition(ctx, "doReview", caller, addr, usn, len(removed)+len(added), func(ctx context.Context, w *workflow.Instance) error {
		return w.DoReview(ctx, caller, usn, removed, added, content)
	})
}

// DoSignoff submits the completing transition.
func (eng *Engine) DoSignoff(ctx context.Context, caller id.UserID, addr id.WorkflowID, usn int, next schema.State) (*tx.Receipt, error) {
	return eng.transition(ctx, "doSignoff", caller, addr, usn, 0, func(ctx context.Context, w *workflow.Instance) error {
		return w.DoSignoff(ctx, caller, usn, next)
	})
}

// DoAbort submits the aborting transition.
func (eng *Engine) DoAbort(ctx context.Context, caller id.UserID, addr id.WorkflowID, usn int, next schema.State) (*tx.Receipt, error) {
	return eng.transition(ctx, "doAbort", caller, addr, usn, 0, func(ctx context.Context, w *workflow.Instance) error {
		return w.DoAbort(ctx, caller, usn, next)
	})
}

// transition submits one lifecycle call and, once it commits, emits the
// history entry it appended at usn. A signoff or abort also emits the
// instance's closure.
func (eng *Engine) transition(
	ctx context.Context,
	name string,
	caller id.UserID,
	addr id.WorkflowID,
	usn, items int,
	call func(context.Context, *workflow.Instance) error,
) (*tx.Receipt, error) {
	w, err := eng.registry.Lookup(addr)
	if err != nil {
		return nil, err
	}

	rcpt, err := eng.submit(ctx, name, caller, addr, items, func(ctx context.Context) error {
		return call(ctx, w)
	})
	if err != nil {
		return rcpt, err
	}

	entry, histErr := w.HistoryAt(usn)
	if histErr != nil {
		eng.logger.Warn("committed transition has no history entry",
			slog.String("workflow_id", addr.String()),
			slog.Int("usn", usn),
			slog.String("error", histErr.Error()),
		)
		return rcpt, nil
	}
	eng.extensions.EmitWorkflowTransitioned(ctx, w, usn, entry)
	if entry.Action == schema.Signoff || entry.Action == schema.Abort {
		eng.extensions.EmitWorkflowClosed(ctx, registry.EventOf(w))
	}
	return rcpt, nil
}
