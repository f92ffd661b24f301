package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/docflow/ext"
	"github.com/xraph/docflow/registry"
	"github.com/xraph/docflow/schema"
	"github.com/xraph/docflow/tx"
	"github.com/xraph/docflow/workflow"
)

// Compile-time interface checks.
var (
	_ ext.Extension            = (*Extension)(nil)
	_ ext.SchemaDeployed       = (*Extension)(nil)
	_ ext.SchemaFinalized      = (*Extension)(nil)
	_ ext.RightChanged         = (*Extension)(nil)
	_ ext.WorkflowCreated      = (*Extension)(nil)
	_ ext.WorkflowTransitioned = (*Extension)(nil)
	_ ext.WorkflowClosed       = (*Extension)(nil)
	_ ext.TxCommitted          = (*Extension)(nil)
	_ ext.TxReverted           = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one entry of the audit trail.
type AuditEvent struct {
	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Actor      string         `json:"actor,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Extension bridges docflow lifecycle events to an audit trail backend.
// Each lifecycle hook emits a structured audit event through the [Recorder].
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit-hook" }

// ── Schema hooks ────────────────────────────────────

// OnSchemaDeployed implements ext.SchemaDeployed.
func (e *Extension) OnSchemaDeployed(ctx context.Context, s *schema.Schema) error {
	return e.record(ctx, ActionSchemaDeployed, SeverityInfo, OutcomeSuccess,
		ResourceSchema, s.ID().String(), CategorySchema, "", nil,
		"states", s.TotalStates(),
	)
}

// OnSchemaFinalized implements ext.SchemaFinalized.
func (e *Extension) OnSchemaFinalized(ctx context.Context, s *schema.Schema) error {
	return e.record(ctx, ActionSchemaFinalized, SeverityInfo, OutcomeSuccess,
		ResourceSchema, s.ID().String(), CategorySchema, "", nil,
		"states", s.TotalStates(),
	)
}

// OnRightChanged implements ext.RightChanged. Revocations are recorded
// at warning severity.
func (e *Extension) OnRightChanged(ctx context.Context, s *schema.Schema, c ext.RightChange) error {
	action, severity := ActionRightGranted, SeverityInfo
	if !c.Granted {
		action, severity = ActionRightRevoked, SeverityWarning
	}
	return e.record(ctx, action, severity, OutcomeSuccess,
		ResourceSchema, s.ID().String(), CategorySchema, "", nil,
		"state", uint32(c.State),
		"edge", c.Edge,
		"user", c.User.String(),
		"right", c.Right.String(),
	)
}

// ── Workflow hooks ──────────────────────────────────

// OnWorkflowCreated implements ext.WorkflowCreated.
func (e *Extension) OnWorkflowCreated(ctx context.Context, ev registry.Event) error {
	return e.record(ctx, ActionWorkflowCreated, SeverityInfo, OutcomeSuccess,
		ResourceWorkflow, ev.Address.String(), CategoryWorkflow, "", nil,
		"seq", ev.Seq,
		"schema", ev.Schema.String(),
	)
}

// OnWorkflowTransitioned implements ext.WorkflowTransitioned.
func (e *Extension) OnWorkflowTransitioned(ctx context.Context, w *workflow.Instance, usn int, entry workflow.HistoryEntry) error {
	return e.record(ctx, ActionWorkflowTransitioned, SeverityInfo, OutcomeSuccess,
		ResourceWorkflow, w.Address().String(), CategoryWorkflow, entry.User.String(), nil,
		"usn", usn,
		"right", entry.Action.String(),
		"state", uint32(entry.State),
		"removed", len(entry.Removed),
		"added", len(entry.Added),
	)
}

// OnWorkflowClosed implements ext.WorkflowClosed. Aborted instances are
// recorded as failures.
func (e *Extension) OnWorkflowClosed(ctx context.Context, ev registry.Event) error {
	severity, outcome := SeverityInfo, OutcomeSuccess
	if ev.Mode == workflow.ModeAborted {
		severity, outcome = SeverityWarning, OutcomeFailure
	}
	return e.record(ctx, ActionWorkflowClosed, severity, outcome,
		ResourceWorkflow, ev.Address.String(), CategoryWorkflow, "", nil,
		"seq", ev.Seq,
		"schema", ev.Schema.String(),
		"mode", ev.Mode.String(),
	)
}

// ── Ledger hooks ────────────────────────────────────

// OnTxCommitted implements ext.TxCommitted.
func (e *Extension) OnTxCommitted(ctx context.Context, r *tx.Receipt) error {
	return e.record(ctx, ActionTxCommitted, SeverityInfo, OutcomeSuccess,
		ResourceTx, r.TxID.String(), CategoryTx, r.Caller.String(), nil,
		"tx_name", r.Name,
		"seq", r.Seq,
		"target", r.Target.String(),
		"fee", r.Fee,
	)
}

// OnTxReverted implements ext.TxReverted.
func (e *Extension) OnTxReverted(ctx context.Context, r *tx.Receipt, callErr error) error {
	return e.record(ctx, ActionTxReverted, SeverityWarning, OutcomeFailure,
		ResourceTx, r.TxID.String(), CategoryTx, r.Caller.String(), callErr,
		"tx_name", r.Name,
		"seq", r.Seq,
		"target", r.Target.String(),
		"fee", r.Fee,
	)
}

// ── Internal helpers ────────────────────────────────

// record builds and sends an audit event if the action is enabled.
// The kvPairs argument is a list of key-value pairs added to Metadata.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category, actor string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Actor:      actor,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
