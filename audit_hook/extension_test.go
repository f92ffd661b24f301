package audithook_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	ah "github.com/xraph/docflow/audit_hook"
	"github.com/xraph/docflow/access"
	"github.com/xraph/docflow/ext"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/registry"
	"github.com/xraph/docflow/schema"
	"github.com/xraph/docflow/tx"
	"github.com/xraph/docflow/workflow"
)

// ── Mock recorder ────────────────────────────────────

// mockRecorder captures audit events for verification.
type mockRecorder struct {
	mu     sync.Mutex
	events []*ah.AuditEvent
}

func (m *mockRecorder) Record(_ context.Context, evt *ah.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func (m *mockRecorder) last() *ah.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return nil
	}
	return m.events[len(m.events)-1]
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func (m *mockRecorder) findByAction(action string) *ah.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, evt := range m.events {
		if evt.Action == action {
			return evt
		}
	}
	return nil
}

// ── Test helpers ─────────────────────────────────────

// newTestSchema builds the finalized schema S0→S1 with no rights.
func newTestSchema(t *testing.T, owner id.UserID) *schema.Schema {
	t.Helper()
	s := schema.New(owner)
	if err := s.Grant(owner, access.ContractAdmin, owner); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	for _, targets := range [][]schema.State{{1}, {}} {
		if _, err := s.AddState(owner, targets); err != nil {
			t.Fatalf("AddState: %v", err)
		}
	}
	if err := s.Finalize(owner); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return s
}

func newTestInstance(t *testing.T) *workflow.Instance {
	t.Helper()
	owner := id.NewUserID()
	reg := registry.New(owner)
	if err := reg.Grant(owner, access.ContractAdmin, owner); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	w, err := reg.CreateWorkflow(context.Background(), owner, newTestSchema(t, owner), []workflow.DocType{{Lo: 0, Hi: 1}})
	if err != nil {
		t.Fatalf("CreateWorkflow: %v", err)
	}
	return w
}

func newTestReceipt(status tx.Status) *tx.Receipt {
	now := time.Now()
	return &tx.Receipt{
		TxID:        id.NewTxID(),
		Seq:         7,
		Name:        "doApprove",
		Caller:      id.NewUserID(),
		Target:      id.NewWorkflowID(),
		Status:      status,
		Fee:         21,
		SubmittedAt: now,
		CompletedAt: now,
	}
}

// ── Tests ────────────────────────────────────────────

func TestExtension_Name(t *testing.T) {
	e := ah.New(&mockRecorder{})
	if e.Name() != "audit-hook" {
		t.Errorf("expected name %q, got %q", "audit-hook", e.Name())
	}
}

// ── Schema hook tests ────────────────────────────────

func TestExtension_SchemaFinalized(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec)
	s := newTestSchema(t, id.NewUserID())

	if err := e.OnSchemaFinalized(context.Background(), s); err != nil {
		t.Fatalf("OnSchemaFinalized: %v", err)
	}

	evt := rec.last()
	if evt == nil {
		t.Fatal("no event recorded")
	}
	if evt.Action != ah.ActionSchemaFinalized {
		t.Errorf("Action: want %q, got %q", ah.ActionSchemaFinalized, evt.Action)
	}
	if evt.Resource != ah.ResourceSchema {
		t.Errorf("Resource: want %q, got %q", ah.ResourceSchema, evt.Resource)
	}
	if evt.Category != ah.CategorySchema {
		t.Errorf("Category: want %q, got %q", ah.CategorySchema, evt.Category)
	}
	if evt.ResourceID != s.ID().String() {
		t.Errorf("ResourceID: want %q, got %q", s.ID().String(), evt.ResourceID)
	}
	if evt.Metadata["states"] != 2 {
		t.Errorf("Metadata[states]: want 2, got %v", evt.Metadata["states"])
	}
}

func TestExtension_RightChanged(t *testing.T) {
	tests := []struct {
		name     string
		granted  bool
		action   string
		severity string
	}{
		{"granted", true, ah.ActionRightGranted, ah.SeverityInfo},
		{"revoked", false, ah.ActionRightRevoked, ah.SeverityWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &mockRecorder{}
			e := ah.New(rec)
			s := newTestSchema(t, id.NewUserID())
			user := id.NewUserID()

			c := ext.RightChange{State: 0, Edge: 0, User: user, Right: schema.Init, Granted: tt.granted}
			if err := e.OnRightChanged(context.Background(), s, c); err != nil {
				t.Fatalf("OnRightChanged: %v", err)
			}

			evt := rec.last()
			if evt.Action != tt.action {
				t.Errorf("Action: want %q, got %q", tt.action, evt.Action)
			}
			if evt.Severity != tt.severity {
				t.Errorf("Severity: want %q, got %q", tt.severity, evt.Severity)
			}
			if evt.Metadata["user"] != user.String() {
				t.Errorf("Metadata[user]: want %q, got %v", user.String(), evt.Metadata["user"])
			}
			if evt.Metadata["right"] != "init" {
				t.Errorf("Metadata[right]: want %q, got %v", "init", evt.Metadata["right"])
			}
		})
	}
}

// ── Workflow hook tests ──────────────────────────────

func TestExtension_WorkflowTransitioned(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec)
	w := newTestInstance(t)
	user := id.NewUserID()

	entry := workflow.HistoryEntry{
		User:   user,
		Action: schema.Approve,
		State:  1,
		Added:  []workflow.DocID{workflow.MakeDocID(0, 0)},
	}
	if err := e.OnWorkflowTransitioned(context.Background(), w, 3, entry); err != nil {
		t.Fatalf("OnWorkflowTransitioned: %v", err)
	}

	evt := rec.last()
	if evt.ResourceID != w.Address().String() {
		t.Errorf("ResourceID: want %q, got %q", w.Address().String(), evt.ResourceID)
	}
	if evt.Actor != user.String() {
		t.Errorf("Actor: want %q, got %q", user.String(), evt.Actor)
	}
	if evt.Metadata["usn"] != 3 {
		t.Errorf("Metadata[usn]: want 3, got %v", evt.Metadata["usn"])
	}
	if evt.Metadata["right"] != "approve" {
		t.Errorf("Metadata[right]: want %q, got %v", "approve", evt.Metadata["right"])
	}
	if evt.Metadata["added"] != 1 {
		t.Errorf("Metadata[added]: want 1, got %v", evt.Metadata["added"])
	}
}

func TestExtension_WorkflowClosed(t *testing.T) {
	tests := []struct {
		mode     workflow.Mode
		severity string
		outcome  string
	}{
		{workflow.ModeComplete, ah.SeverityInfo, ah.OutcomeSuccess},
		{workflow.ModeAborted, ah.SeverityWarning, ah.OutcomeFailure},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			rec := &mockRecorder{}
			e := ah.New(rec)
			ev := registry.Event{Seq: 4, Address: id.NewWorkflowID(), Schema: id.NewSchemaID(), Mode: tt.mode}

			if err := e.OnWorkflowClosed(context.Background(), ev); err != nil {
				t.Fatalf("OnWorkflowClosed: %v", err)
			}

			evt := rec.last()
			if evt.Severity != tt.severity {
				t.Errorf("Severity: want %q, got %q", tt.severity, evt.Severity)
			}
			if evt.Outcome != tt.outcome {
				t.Errorf("Outcome: want %q, got %q", tt.outcome, evt.Outcome)
			}
			if evt.Metadata["mode"] != tt.mode.String() {
				t.Errorf("Metadata[mode]: want %q, got %v", tt.mode.String(), evt.Metadata["mode"])
			}
			if evt.Metadata["seq"] != uint64(4) {
				t.Errorf("Metadata[seq]: want 4, got %v", evt.Metadata["seq"])
			}
		})
	}
}

// ── Ledger hook tests ────────────────────────────────

func TestExtension_TxReverted(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec)
	r := newTestReceipt(tx.StatusReverted)

	if err := e.OnTxReverted(context.Background(), r, errors.New("wrong usn")); err != nil {
		t.Fatalf("OnTxReverted: %v", err)
	}

	evt := rec.last()
	if evt.Action != ah.ActionTxReverted {
		t.Errorf("Action: want %q, got %q", ah.ActionTxReverted, evt.Action)
	}
	if evt.Severity != ah.SeverityWarning {
		t.Errorf("Severity: want %q, got %q", ah.SeverityWarning, evt.Severity)
	}
	if evt.Outcome != ah.OutcomeFailure {
		t.Errorf("Outcome: want %q, got %q", ah.OutcomeFailure, evt.Outcome)
	}
	if evt.Reason != "wrong usn" {
		t.Errorf("Reason: want %q, got %q", "wrong usn", evt.Reason)
	}
	if evt.Actor != r.Caller.String() {
		t.Errorf("Actor: want %q, got %q", r.Caller.String(), evt.Actor)
	}
	if evt.Metadata["tx_name"] != "doApprove" {
		t.Errorf("Metadata[tx_name]: want %q, got %v", "doApprove", evt.Metadata["tx_name"])
	}
	if evt.Metadata["fee"] != uint64(21) {
		t.Errorf("Metadata[fee]: want 21, got %v", evt.Metadata["fee"])
	}
}

// ── Filtering tests ──────────────────────────────────

func TestExtension_WithActions_Filters(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec, ah.WithActions(ah.ActionTxReverted))
	ctx := context.Background()

	_ = e.OnTxCommitted(ctx, newTestReceipt(tx.StatusCommitted))
	if rec.count() != 0 {
		t.Fatalf("expected filtered action to be skipped, got %d events", rec.count())
	}

	_ = e.OnTxReverted(ctx, newTestReceipt(tx.StatusReverted), errors.New("boom"))
	if rec.count() != 1 {
		t.Fatalf("expected 1 event, got %d", rec.count())
	}
}

// ── RecorderFunc adapter test ────────────────────────

func TestRecorderFunc(t *testing.T) {
	var captured *ah.AuditEvent
	fn := ah.RecorderFunc(func(_ context.Context, evt *ah.AuditEvent) error {
		captured = evt
		return nil
	})

	e := ah.New(fn)
	if err := e.OnTxCommitted(context.Background(), newTestReceipt(tx.StatusCommitted)); err != nil {
		t.Fatalf("OnTxCommitted: %v", err)
	}
	if captured == nil {
		t.Fatal("RecorderFunc was not called")
	}
	if captured.Action != ah.ActionTxCommitted {
		t.Errorf("Action: want %q, got %q", ah.ActionTxCommitted, captured.Action)
	}
}

// ── Recorder error handling test ─────────────────────

func TestExtension_RecorderError_DoesNotPropagate(t *testing.T) {
	failingRecorder := ah.RecorderFunc(func(_ context.Context, _ *ah.AuditEvent) error {
		return errors.New("audit backend down")
	})

	e := ah.New(failingRecorder)
	if err := e.OnTxCommitted(context.Background(), newTestReceipt(tx.StatusCommitted)); err != nil {
		t.Fatalf("expected no error (audit failure swallowed), got: %v", err)
	}
}

// ── Registry integration test ────────────────────────

func TestExtension_ViaRegistry(t *testing.T) {
	rec := &mockRecorder{}
	reg := ext.NewRegistry(slog.Default())
	reg.Register(ah.New(rec))

	ctx := context.Background()
	s := newTestSchema(t, id.NewUserID())
	w := newTestInstance(t)
	ev := registry.Event{Seq: 1, Address: w.Address(), Schema: w.Schema(), Mode: workflow.ModeComplete}

	reg.EmitSchemaDeployed(ctx, s)
	reg.EmitSchemaFinalized(ctx, s)
	reg.EmitRightChanged(ctx, s, ext.RightChange{User: id.NewUserID(), Right: schema.Init, Granted: true})
	reg.EmitRightChanged(ctx, s, ext.RightChange{User: id.NewUserID(), Right: schema.Init})
	reg.EmitWorkflowCreated(ctx, ev)
	reg.EmitWorkflowTransitioned(ctx, w, 0, workflow.HistoryEntry{User: id.NewUserID(), Action: schema.Init, State: 1})
	reg.EmitWorkflowClosed(ctx, ev)
	reg.EmitTxCommitted(ctx, newTestReceipt(tx.StatusCommitted))
	reg.EmitTxReverted(ctx, newTestReceipt(tx.StatusReverted), errors.New("fail"))

	allActions := ah.AllActions()
	if rec.count() != len(allActions) {
		t.Fatalf("expected %d events, got %d", len(allActions), rec.count())
	}
	for _, action := range allActions {
		if rec.findByAction(action) == nil {
			t.Errorf("missing event for action %q", action)
		}
	}
}

func TestAllActions(t *testing.T) {
	if n := len(ah.AllActions()); n != 9 {
		t.Errorf("expected 9 actions, got %d", n)
	}
}
