package redis

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/xraph/docflow/event"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/schema"
	"github.com/xraph/docflow/tx"
	"github.com/xraph/docflow/workflow"
)

// Records are encoded with ids as strings so they stay readable from
// redis-cli and independent of the id package's internals.

type receiptRecord struct {
	TxID        string    `msgpack:"tx_id"`
	Seq         uint64    `msgpack:"seq"`
	Name        string    `msgpack:"name"`
	Caller      string    `msgpack:"caller"`
	Target      string    `msgpack:"target,omitempty"`
	Status      string    `msgpack:"status"`
	Fee         uint64    `msgpack:"fee"`
	Error       string    `msgpack:"error,omitempty"`
	SubmittedAt time.Time `msgpack:"submitted_at"`
	CompletedAt time.Time `msgpack:"completed_at"`
}

func encodeReceipt(r *tx.Receipt) ([]byte, error) {
	return msgpack.Marshal(&receiptRecord{
		TxID:        r.TxID.String(),
		Seq:         r.Seq,
		Name:        r.Name,
		Caller:      r.Caller.String(),
		Target:      r.Target.String(),
		Status:      string(r.Status),
		Fee:         r.Fee,
		Error:       r.Error,
		SubmittedAt: r.SubmittedAt,
		CompletedAt: r.CompletedAt,
	})
}

func decodeReceipt(data []byte) (*tx.Receipt, error) {
	var rec receiptRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("docflow/redis: decode receipt: %w", err)
	}
	r := &tx.Receipt{
		Seq:         rec.Seq,
		Name:        rec.Name,
		Status:      tx.Status(rec.Status),
		Fee:         rec.Fee,
		Error:       rec.Error,
		SubmittedAt: rec.SubmittedAt,
		CompletedAt: rec.CompletedAt,
	}
	if err := parseIDs(
		idField{&r.TxID, rec.TxID},
		idField{&r.Caller, rec.Caller},
		idField{&r.Target, rec.Target},
	); err != nil {
		return nil, err
	}
	return r, nil
}

type eventRecord struct {
	ID        string    `msgpack:"id"`
	Name      string    `msgpack:"name"`
	Seq       uint64    `msgpack:"seq"`
	Address   string    `msgpack:"address"`
	Schema    string    `msgpack:"schema"`
	Mode      uint8     `msgpack:"mode"`
	CreatedAt time.Time `msgpack:"created_at"`
}

func encodeEvent(evt *event.Event) ([]byte, error) {
	return msgpack.Marshal(&eventRecord{
		ID:        evt.ID.String(),
		Name:      evt.Name,
		Seq:       evt.Seq,
		Address:   evt.Address.String(),
		Schema:    evt.Schema.String(),
		Mode:      uint8(evt.Mode),
		CreatedAt: evt.CreatedAt,
	})
}

func decodeEvent(data []byte) (*event.Event, error) {
	var rec eventRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("docflow/redis: decode event: %w", err)
	}
	evt := &event.Event{
		Name:      rec.Name,
		Seq:       rec.Seq,
		Mode:      workflow.Mode(rec.Mode),
		CreatedAt: rec.CreatedAt,
	}
	if err := parseIDs(
		idField{&evt.ID, rec.ID},
		idField{&evt.Address, rec.Address},
		idField{&evt.Schema, rec.Schema},
	); err != nil {
		return nil, err
	}
	return evt, nil
}

type historyRecord struct {
	USN       int       `msgpack:"usn"`
	User      string    `msgpack:"user"`
	Action    uint8     `msgpack:"action"`
	State     uint32    `msgpack:"state"`
	Removed   []uint64  `msgpack:"removed,omitempty"`
	Added     []uint64  `msgpack:"added,omitempty"`
	Content   [][]byte  `msgpack:"content,omitempty"`
	CreatedAt time.Time `msgpack:"created_at"`
}

func encodeHistory(rec *workflow.Record) ([]byte, error) {
	e := rec.Entry
	out := historyRecord{
		USN:       rec.USN,
		User:      e.User.String(),
		Action:    uint8(e.Action),
		State:     uint32(e.State),
		CreatedAt: rec.CreatedAt,
	}
	for _, d := range e.Removed {
		out.Removed = append(out.Removed, uint64(d))
	}
	for _, d := range e.Added {
		out.Added = append(out.Added, uint64(d))
	}
	for _, h := range e.Content {
		out.Content = append(out.Content, append([]byte(nil), h[:]...))
	}
	return msgpack.Marshal(&out)
}

func decodeHistory(wf id.WorkflowID, data []byte) (*workflow.Record, error) {
	var in historyRecord
	if err := msgpack.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("docflow/redis: decode history: %w", err)
	}
	e := workflow.HistoryEntry{
		Action: schema.Right(in.Action),
		State:  schema.State(in.State),
	}
	if err := parseIDs(idField{&e.User, in.User}); err != nil {
		return nil, err
	}
	for _, d := range in.Removed {
		e.Removed = append(e.Removed, workflow.DocID(d))
	}
	for _, d := range in.Added {
		e.Added = append(e.Added, workflow.DocID(d))
	}
	for _, b := range in.Content {
		var h workflow.Hash
		if len(b) != len(h) {
			return nil, fmt.Errorf("docflow/redis: decode history: hash of %d bytes", len(b))
		}
		copy(h[:], b)
		e.Content = append(e.Content, h)
	}
	return &workflow.Record{Workflow: wf, USN: in.USN, Entry: e, CreatedAt: in.CreatedAt}, nil
}

type idField struct {
	dst *id.ID
	src string
}

func parseIDs(fields ...idField) error {
	for _, f := range fields {
		if err := f.dst.UnmarshalText([]byte(f.src)); err != nil {
			return fmt.Errorf("docflow/redis: parse id %q: %w", f.src, err)
		}
	}
	return nil
}
