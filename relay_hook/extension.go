package relayhook

import (
	"context"

	"github.com/xraph/relay"
	"github.com/xraph/relay/event"

	"github.com/xraph/docflow/ext"
	"github.com/xraph/docflow/registry"
	"github.com/xraph/docflow/schema"
	"github.com/xraph/docflow/tx"
	"github.com/xraph/docflow/workflow"
)

// Compile-time interface checks.
var (
	_ ext.Extension            = (*Extension)(nil)
	_ ext.SchemaFinalized      = (*Extension)(nil)
	_ ext.WorkflowCreated      = (*Extension)(nil)
	_ ext.WorkflowTransitioned = (*Extension)(nil)
	_ ext.WorkflowClosed       = (*Extension)(nil)
	_ ext.TxCommitted          = (*Extension)(nil)
	_ ext.TxReverted           = (*Extension)(nil)
)

// Extension bridges docflow lifecycle events to Relay for webhook
// delivery. Each lifecycle hook emits a typed event via [relay.Relay.Send].
type Extension struct {
	relay    *relay.Relay
	tenant   string
	enabled  map[string]bool        // nil = all enabled
	payloads map[string]PayloadFunc // custom payload builders
}

// New creates an Extension that emits docflow lifecycle events through
// the provided Relay instance.
func New(r *relay.Relay, opts ...Option) *Extension {
	h := &Extension{relay: r}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name implements ext.Extension.
func (h *Extension) Name() string { return "relay-hook" }

// ── Schema hooks ────────────────────────────────────

// OnSchemaFinalized implements ext.SchemaFinalized.
func (h *Extension) OnSchemaFinalized(ctx context.Context, s *schema.Schema) error {
	return h.send(ctx, EventSchemaFinalized, &schemaPayload{
		SchemaID: s.ID().String(),
		States:   s.TotalStates(),
	})
}

// ── Workflow hooks ──────────────────────────────────

// OnWorkflowCreated implements ext.WorkflowCreated.
func (h *Extension) OnWorkflowCreated(ctx context.Context, ev registry.Event) error {
	return h.send(ctx, EventWorkflowCreated, newRegistryPayload(ev))
}

// OnWorkflowTransitioned implements ext.WorkflowTransitioned.
func (h *Extension) OnWorkflowTransitioned(ctx context.Context, w *workflow.Instance, usn int, entry workflow.HistoryEntry) error {
	return h.send(ctx, EventWorkflowTransitioned, &transitionPayload{
		Address: w.Address().String(),
		USN:     usn,
		User:    entry.User.String(),
		Right:   entry.Action.String(),
		State:   uint32(entry.State),
		Removed: len(entry.Removed),
		Added:   len(entry.Added),
	})
}

// OnWorkflowClosed implements ext.WorkflowClosed.
func (h *Extension) OnWorkflowClosed(ctx context.Context, ev registry.Event) error {
	return h.send(ctx, EventWorkflowClosed, newRegistryPayload(ev))
}

// ── Ledger hooks ────────────────────────────────────

// OnTxCommitted implements ext.TxCommitted.
func (h *Extension) OnTxCommitted(ctx context.Context, r *tx.Receipt) error {
	return h.send(ctx, EventTxCommitted, newTxPayload(r))
}

// OnTxReverted implements ext.TxReverted.
func (h *Extension) OnTxReverted(ctx context.Context, r *tx.Receipt, callErr error) error {
	return h.send(ctx, EventTxReverted, &txRevertedPayload{
		txPayload: *newTxPayload(r),
		Error:     callErr.Error(),
	})
}

// ── Internal helpers ────────────────────────────────

// send emits an event through Relay if the event type is enabled.
func (h *Extension) send(ctx context.Context, eventType string, defaultData any) error {
	if h.enabled != nil && !h.enabled[eventType] {
		return nil
	}

	data := defaultData
	if fn, ok := h.payloads[eventType]; ok {
		custom, err := fn(defaultData)
		if err != nil {
			return err
		}
		data = custom
	}

	return h.relay.Send(ctx, &event.Event{
		Type:     eventType,
		TenantID: h.tenant,
		Data:     data,
	})
}

// ── Default payload types ───────────────────────────

type schemaPayload struct {
	SchemaID string `json:"schema_id"`
	States   int    `json:"states"`
}

type registryPayload struct {
	Seq      uint64 `json:"seq"`
	Address  string `json:"address"`
	SchemaID string `json:"schema_id"`
	Mode     string `json:"mode"`
}

func newRegistryPayload(ev registry.Event) *registryPayload {
	return &registryPayload{
		Seq:      ev.Seq,
		Address:  ev.Address.String(),
		SchemaID: ev.Schema.String(),
		Mode:     ev.Mode.String(),
	}
}

type transitionPayload struct {
	Address string `json:"address"`
	USN     int    `json:"usn"`
	User    string `json:"user"`
	Right   string `json:"right"`
	State   uint32 `json:"state"`
	Removed int    `json:"removed,omitempty"`
	Added   int    `json:"added,omitempty"`
}

type txPayload struct {
	TxID   string `json:"tx_id"`
	Name   string `json:"name"`
	Seq    uint64 `json:"seq"`
	Caller string `json:"caller"`
	Target string `json:"target,omitempty"`
	Fee    uint64 `json:"fee"`
}

func newTxPayload(r *tx.Receipt) *txPayload {
	p := &txPayload{
		TxID:   r.TxID.String(),
		Name:   r.Name,
		Seq:    r.Seq,
		Caller: r.Caller.String(),
		Fee:    r.Fee,
	}
	if !r.Target.IsNil() {
		p.Target = r.Target.String()
	}
	return p
}

type txRevertedPayload struct {
	txPayload
	Error string `json:"error"`
}
