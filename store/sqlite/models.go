package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/docflow/event"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/tx"
	"github.com/xraph/docflow/workflow"
)

// ── Receipt model ─────────────────────────────────────────────────

type receiptModel struct {
	grove.BaseModel `grove:"table:docflow_receipts"`

	TxID        string    `grove:"tx_id,pk"`
	Seq         int64     `grove:"seq,notnull"`
	Name        string    `grove:"name,notnull"`
	Caller      string    `grove:"caller,notnull"`
	Target      string    `grove:"target"`
	Status      string    `grove:"status,notnull"`
	Fee         int64     `grove:"fee,notnull,default:0"`
	Error       string    `grove:"error,notnull"`
	SubmittedAt time.Time `grove:"submitted_at,notnull"`
	CompletedAt time.Time `grove:"completed_at,notnull"`
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
		SubmittedAt: r.SubmittedAt.UTC(),
		CompletedAt: r.CompletedAt.UTC(),
	}
}

func fromReceiptModel(m *receiptModel) (*tx.Receipt, error) {
	txID, err := id.ParseTxID(m.TxID)
	if err != nil {
		return nil, fmt.Errorf("docflow/sqlite: parse tx id %q: %w", m.TxID, err)
	}
	caller, err := id.ParseUserID(m.Caller)
	if err != nil {
		return nil, fmt.Errorf("docflow/sqlite: parse caller %q: %w", m.Caller, err)
	}
	var target id.ID
	if err := target.UnmarshalText([]byte(m.Target)); err != nil {
		return nil, fmt.Errorf("docflow/sqlite: parse target %q: %w", m.Target, err)
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
	grove.BaseModel `grove:"table:docflow_events"`

	ID        string    `grove:"id,pk"`
	Name      string    `grove:"name,notnull"`
	Seq       int64     `grove:"seq,notnull"`
	Address   string    `grove:"address,notnull"`
	SchemaID  string    `grove:"schema_id,notnull"`
	Mode      int       `grove:"mode,notnull"`
	Acked     bool      `grove:"acked,notnull,default:0"`
	CreatedAt time.Time `grove:"created_at,notnull"`
}

func toEventModel(evt *event.Event) *eventModel {
	return &eventModel{
		ID:        evt.ID.String(),
		Name:      evt.Name,
		Seq:       int64(evt.Seq),
		Address:   evt.Address.String(),
		SchemaID:  evt.Schema.String(),
		Mode:      int(evt.Mode),
		Acked:     evt.Acked,
		CreatedAt: evt.CreatedAt.UTC(),
	}
}

func fromEventModel(m *eventModel) (*event.Event, error) {
	evtID, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("docflow/sqlite: parse event id %q: %w", m.ID, err)
	}
	addr, err := id.ParseWorkflowID(m.Address)
	if err != nil {
		return nil, fmt.Errorf("docflow/sqlite: parse address %q: %w", m.Address, err)
	}
	schemaID, err := id.ParseSchemaID(m.SchemaID)
	if err != nil {
		return nil, fmt.Errorf("docflow/sqlite: parse schema id %q: %w", m.SchemaID, err)
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

// historyModel keeps the entry as JSON text; SQLite has no document type.
type historyModel struct {
	grove.BaseModel `grove:"table:docflow_history"`

	WorkflowID string    `grove:"workflow_id,pk"`
	USN        int       `grove:"usn,pk"`
	Entry      string    `grove:"entry,notnull"`
	CreatedAt  time.Time `grove:"created_at,notnull"`
}

func toHistoryModel(rec *workflow.Record) (*historyModel, error) {
	b, err := json.Marshal(rec.Entry)
	if err != nil {
		return nil, fmt.Errorf("docflow/sqlite: encode history entry: %w", err)
	}
	return &historyModel{
		WorkflowID: rec.Workflow.String(),
		USN:        rec.USN,
		Entry:      string(b),
		CreatedAt:  rec.CreatedAt.UTC(),
	}, nil
}

func fromHistoryModel(m *historyModel) (*workflow.Record, error) {
	wf, err := id.ParseWorkflowID(m.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("docflow/sqlite: parse workflow id %q: %w", m.WorkflowID, err)
	}
	var entry workflow.HistoryEntry
	if err := json.Unmarshal([]byte(m.Entry), &entry); err != nil {
		return nil, fmt.Errorf("docflow/sqlite: decode history entry: %w", err)
	}
	return &workflow.Record{
		Workflow:  wf,
		USN:       m.USN,
		Entry:     entry,
		CreatedAt: m.CreatedAt,
	}, nil
}
