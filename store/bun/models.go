package bunstore

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/xraph/docflow/event"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/tx"
	"github.com/xraph/docflow/workflow"
)

// ── Receipt model ─────────────────────────────────────────────────

type receiptModel struct {
	bun.BaseModel `bun:"table:docflow_receipts,alias:r"`

	TxID        string    `bun:"tx_id,pk"`
	Seq         int64     `bun:"seq,notnull"`
	Name        string    `bun:"name,notnull"`
	Caller      string    `bun:"caller,notnull"`
	Target      string    `bun:"target,nullzero"`
	Status      string    `bun:"status,notnull"`
	Fee         int64     `bun:"fee,notnull"`
	Error       string    `bun:"error,notnull"`
	SubmittedAt time.Time `bun:"submitted_at,notnull"`
	CompletedAt time.Time `bun:"completed_at,notnull"`
}

func toReceiptModel(r *tx.Receipt) *receiptModel {
	return &receiptModel{
		TxID:        r.TxID.String(),
		Seq:         int64(r.Seq),
		Name:        r.Name,
		Caller:      r.Caller.String(),
		Target:      r.Target.String(),
		Status:      string(r.Status),
		Fee:         int64(r.Fee),
		Error:       r.Error,
		SubmittedAt: r.SubmittedAt,
		CompletedAt: r.CompletedAt,
	}
}

func fromReceiptModel(m *receiptModel) (*tx.Receipt, error) {
	txID, err := id.ParseTxID(m.TxID)
	if err != nil {
		return nil, fmt.Errorf("docflow/bun: parse tx id %q: %w", m.TxID, err)
	}
	caller, err := id.ParseUserID(m.Caller)
	if err != nil {
		return nil, fmt.Errorf("docflow/bun: parse caller %q: %w", m.Caller, err)
	}
	var target id.ID
	if err := target.UnmarshalText([]byte(m.Target)); err != nil {
		return nil, fmt.Errorf("docflow/bun: parse target %q: %w", m.Target, err)
	}

	return &tx.Receipt{
		TxID:        txID,
		Seq:         uint64(m.Seq),
		Name:        m.Name,
		Caller:      caller,
		Target:      target,
		Status:      tx.Status(m.Status),
		Fee:         uint64(m.Fee),
		Error:       m.Error,
		SubmittedAt: m.SubmittedAt,
		CompletedAt: m.CompletedAt,
	}, nil
}

// ── Event model ───────────────────────────────────────────────────

type eventModel struct {
	bun.BaseModel `bun:"table:docflow_events,alias:e"`

	ID        string    `bun:"id,pk"`
	Name      string    `bun:"name,notnull"`
	Seq       int64     `bun:"seq,notnull"`
	Address   string    `bun:"address,notnull"`
	SchemaID  string    `bun:"schema_id,notnull"`
	Mode      int16     `bun:"mode,notnull"`
	Acked     bool      `bun:"acked,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func toEventModel(evt *event.Event) *eventModel {
	return &eventModel{
		ID:        evt.ID.String(),
		Name:      evt.Name,
		Seq:       int64(evt.Seq),
		Address:   evt.Address.String(),
		SchemaID:  evt.Schema.String(),
		Mode:      int16(evt.Mode),
		Acked:     evt.Acked,
		CreatedAt: evt.CreatedAt,
	}
}

func fromEventModel(m *eventModel) (*event.Event, error) {
	evtID, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("docflow/bun: parse event id %q: %w", m.ID, err)
	}
	addr, err := id.ParseWorkflowID(m.Address)
	if err != nil {
		return nil, fmt.Errorf("docflow/bun: parse address %q: %w", m.Address, err)
	}
	schemaID, err := id.ParseSchemaID(m.SchemaID)
	if err != nil {
		return nil, fmt.Errorf("docflow/bun: parse schema id %q: %w", m.SchemaID, err)
	}

	return &event.Event{
		ID:        evtID,
		Name:      m.Name,
		Seq:       uint64(m.Seq),
		Address:   addr,
		Schema:    schemaID,
		Mode:      workflow.Mode(m.Mode),
		Acked:     m.Acked,
		CreatedAt: m.CreatedAt,
	}, nil
}

// ── History model ─────────────────────────────────────────────────

type historyModel struct {
	bun.BaseModel `bun:"table:docflow_history,alias:h"`

	WorkflowID string                `bun:"workflow_id,pk"`
	USN        int                   `bun:"usn,pk"`
	Entry      workflow.HistoryEntry `bun:"entry,type:jsonb,notnull"`
	CreatedAt  time.Time             `bun:"created_at,notnull"`
}

func toHistoryModel(rec *workflow.Record) *historyModel {
	return &historyModel{
		WorkflowID: rec.Workflow.String(),
		USN:        rec.USN,
		Entry:      rec.Entry,
		CreatedAt:  rec.CreatedAt,
	}
}

func fromHistoryModel(m *historyModel) (*workflow.Record, error) {
	wf, err := id.ParseWorkflowID(m.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("docflow/bun: parse workflow id %q: %w", m.WorkflowID, err)
	}
	return &workflow.Record{
		Workflow:  wf,
		USN:       m.USN,
		Entry:     m.Entry,
		CreatedAt: m.CreatedAt,
	}, nil
}

// ── Schema version model ──────────────────────────────────────────

type schemaVersion struct {
	bun.BaseModel `bun:"table:docflow_schema_versions,alias:sv"`

	Version   int       `bun:"version,pk"`
	Name      string    `bun:"name,notnull"`
	AppliedAt time.Time `bun:"applied_at,notnull,default:current_timestamp"`
}
