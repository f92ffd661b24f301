package mongo

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xraph/docflow/event"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/schema"
	"github.com/xraph/docflow/tx"
	"github.com/xraph/docflow/workflow"
)

// Unsigned 64-bit values are stored as int64 with the same bits; BSON has
// no unsigned integer type.

// ── Receipt model ─────────────────────────────────────────────────

type receiptModel struct {
	TxID        string    `bson:"_id"`
	Seq         int64     `bson:"seq"`
	Name        string    `bson:"name"`
	Caller      string    `bson:"caller"`
	Target      string    `bson:"target,omitempty"`
	Status      string    `bson:"status"`
	Fee         int64     `bson:"fee"`
	Error       string    `bson:"error,omitempty"`
	SubmittedAt time.Time `bson:"submitted_at"`
	CompletedAt time.Time `bson:"completed_at"`
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
	r := &tx.Receipt{
		Seq:         uint64(m.Seq),
		Name:        m.Name,
		Status:      tx.Status(m.Status),
		Fee:         uint64(m.Fee),
		Error:       m.Error,
		SubmittedAt: m.SubmittedAt,
		CompletedAt: m.CompletedAt,
	}
	for _, f := range []struct {
		dst *id.ID
		src string
	}{{&r.TxID, m.TxID}, {&r.Caller, m.Caller}, {&r.Target, m.Target}} {
		if err := f.dst.UnmarshalText([]byte(f.src)); err != nil {
			return nil, fmt.Errorf("docflow/mongo: parse id %q: %w", f.src, err)
		}
	}
	return r, nil
}

// ── Event model ───────────────────────────────────────────────────

type eventModel struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Seq       int64     `bson:"seq"`
	Address   string    `bson:"address"`
	SchemaID  string    `bson:"schema_id"`
	Mode      int32     `bson:"mode"`
	Acked     bool      `bson:"acked"`
	CreatedAt time.Time `bson:"created_at"`
}

func toEventModel(evt *event.Event) *eventModel {
	return &eventModel{
		ID:        evt.ID.String(),
		Name:      evt.Name,
		Seq:       int64(evt.Seq),
		Address:   evt.Address.String(),
		SchemaID:  evt.Schema.String(),
		Mode:      int32(evt.Mode),
		Acked:     evt.Acked,
		CreatedAt: evt.CreatedAt,
	}
}

func fromEventModel(m *eventModel) (*event.Event, error) {
	evtID, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("docflow/mongo: parse event id %q: %w", m.ID, err)
	}
	addr, err := id.ParseWorkflowID(m.Address)
	if err != nil {
		return nil, fmt.Errorf("docflow/mongo: parse address %q: %w", m.Address, err)
	}
	schemaID, err := id.ParseSchemaID(m.SchemaID)
	if err != nil {
		return nil, fmt.Errorf("docflow/mongo: parse schema id %q: %w", m.SchemaID, err)
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
	ID         string    `bson:"_id"`
	WorkflowID string    `bson:"workflow_id"`
	USN        int       `bson:"usn"`
	User       string    `bson:"user"`
	Action     int32     `bson:"action"`
	State      int64     `bson:"state"`
	Removed    []int64   `bson:"removed,omitempty"`
	Added      []int64   `bson:"added,omitempty"`
	Content    [][]byte  `bson:"content,omitempty"`
	CreatedAt  time.Time `bson:"created_at"`
}

func toHistoryModel(rec *workflow.Record) *historyModel {
	e := rec.Entry
	m := &historyModel{
		ID:         rec.Workflow.String() + ":" + strconv.Itoa(rec.USN),
		WorkflowID: rec.Workflow.String(),
		USN:        rec.USN,
		User:       e.User.String(),
		Action:     int32(e.Action),
		State:      int64(e.State),
		CreatedAt:  rec.CreatedAt,
	}
	for _, d := range e.Removed {
		m.Removed = append(m.Removed, int64(d))
	}
	for _, d := range e.Added {
		m.Added = append(m.Added, int64(d))
	}
	for _, h := range e.Content {
		m.Content = append(m.Content, append([]byte(nil), h[:]...))
	}
	return m
}

func fromHistoryModel(m *historyModel) (*workflow.Record, error) {
	wf, err := id.ParseWorkflowID(m.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("docflow/mongo: parse workflow id %q: %w", m.WorkflowID, err)
	}
	user, err := id.ParseUserID(m.User)
	if err != nil {
		return nil, fmt.Errorf("docflow/mongo: parse user %q: %w", m.User, err)
	}

	e := workflow.HistoryEntry{
		User:   user,
		Action: schema.Right(m.Action),
		State:  schema.State(m.State),
	}
	for _, d := range m.Removed {
		e.Removed = append(e.Removed, workflow.DocID(uint64(d)))
	}
	for _, d := range m.Added {
		e.Added = append(e.Added, workflow.DocID(uint64(d)))
	}
	for _, b := range m.Content {
		var h workflow.Hash
		if len(b) != len(h) {
			return nil, fmt.Errorf("docflow/mongo: hash of %d bytes", len(b))
		}
		copy(h[:], b)
		e.Content = append(e.Content, h)
	}
	return &workflow.Record{Workflow: wf, USN: m.USN, Entry: e, CreatedAt: m.CreatedAt}, nil
}
