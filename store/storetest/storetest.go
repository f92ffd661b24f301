// Package storetest holds the behavioral suite every store backend must
// pass. Backends call Run from their own tests with a fresh store.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/event"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/schema"
	"github.com/xraph/docflow/store"
	"github.com/xraph/docflow/tx"
	"github.com/xraph/docflow/workflow"
)

// Run exercises s against the store contracts. s must be empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()

	t.Run("Receipts", func(t *testing.T) { testReceipts(t, s) })
	t.Run("Events", func(t *testing.T) { testEvents(t, s) })
	t.Run("History", func(t *testing.T) { testHistory(t, s) })
}

var base = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func receipt(seq uint64, caller id.UserID, status tx.Status) *tx.Receipt {
	return &tx.Receipt{
		TxID:        id.NewTxID(),
		Seq:         seq,
		Name:        "doApprove",
		Caller:      caller,
		Target:      id.NewWorkflowID(),
		Status:      status,
		Fee:         21 + seq,
		SubmittedAt: base.Add(time.Duration(seq) * time.Second),
		CompletedAt: base.Add(time.Duration(seq)*time.Second + time.Millisecond),
	}
}

func testReceipts(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice, bob := id.NewUserID(), id.NewUserID()

	// Recorded out of order; listing is by seq.
	r2 := receipt(2, bob, tx.StatusReverted)
	r2.Error = docflow.ErrWrongUSN.Error()
	r1 := receipt(1, alice, tx.StatusCommitted)
	r3 := receipt(3, alice, tx.StatusCommitted)
	for _, r := range []*tx.Receipt{r2, r1, r3} {
		if err := s.RecordReceipt(ctx, r); err != nil {
			t.Fatalf("RecordReceipt: %v", err)
		}
	}

	got, err := s.GetReceipt(ctx, r2.TxID)
	if err != nil {
		t.Fatalf("GetReceipt: %v", err)
	}
	if got.Seq != 2 || got.Status != tx.StatusReverted || got.Fee != 23 || got.Error != r2.Error {
		t.Errorf("GetReceipt = %+v", got)
	}
	if !got.Caller.Equal(bob) || !got.Target.Equal(r2.Target) {
		t.Errorf("ids did not round-trip: %+v", got)
	}

	if _, err := s.GetReceipt(ctx, id.NewTxID()); !errors.Is(err, docflow.ErrReceiptNotFound) {
		t.Errorf("expected ErrReceiptNotFound, got %v", err)
	}

	all, err := s.ListReceipts(ctx, tx.ListOpts{})
	if err != nil {
		t.Fatalf("ListReceipts: %v", err)
	}
	if len(all) != 3 || all[0].Seq != 1 || all[1].Seq != 2 || all[2].Seq != 3 {
		t.Fatalf("ListReceipts order = %v", seqs(all))
	}

	mine, err := s.ListReceipts(ctx, tx.ListOpts{Caller: alice})
	if err != nil {
		t.Fatalf("ListReceipts(caller): %v", err)
	}
	if len(mine) != 2 || mine[0].Seq != 1 || mine[1].Seq != 3 {
		t.Errorf("ListReceipts(caller) = %v", seqs(mine))
	}

	paged, err := s.ListReceipts(ctx, tx.ListOpts{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("ListReceipts(page): %v", err)
	}
	if len(paged) != 1 || paged[0].Seq != 2 {
		t.Errorf("ListReceipts(page) = %v", seqs(paged))
	}
}

func seqs(rs []*tx.Receipt) []uint64 {
	out := make([]uint64, len(rs))
	for i, r := range rs {
		out[i] = r.Seq
	}
	return out
}

func testEvents(t *testing.T, s store.Store) {
	ctx := context.Background()
	schemaID := id.NewSchemaID()

	evts := []*event.Event{
		{Name: event.WorkflowCreated, Seq: 1, Mode: workflow.ModeUninit},
		{Name: event.WorkflowClosed, Seq: 1, Mode: workflow.ModeComplete},
		{Name: event.WorkflowCreated, Seq: 2, Mode: workflow.ModeUninit},
	}
	for i, evt := range evts {
		evt.ID = id.NewEventID()
		evt.Address = id.NewWorkflowID()
		evt.Schema = schemaID
		evt.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := s.PublishEvent(ctx, evt); err != nil {
			t.Fatalf("PublishEvent: %v", err)
		}
	}

	created, err := s.ListEvents(ctx, event.ListOpts{Name: event.WorkflowCreated})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(created) != 2 || created[0].Seq != 1 || created[1].Seq != 2 {
		t.Fatalf("ListEvents(created) = %+v", created)
	}
	all, err := s.ListEvents(ctx, event.ListOpts{Limit: 2})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(all) != 2 || all[1].Name != event.WorkflowClosed || all[1].Mode != workflow.ModeComplete {
		t.Fatalf("ListEvents(limit) = %+v", all)
	}

	got, err := s.SubscribeEvent(ctx, event.WorkflowCreated, time.Second)
	if err != nil {
		t.Fatalf("SubscribeEvent: %v", err)
	}
	if got == nil || !got.ID.Equal(evts[0].ID) {
		t.Fatalf("SubscribeEvent = %+v, want oldest created event", got)
	}
	if !got.Address.Equal(evts[0].Address) || !got.Schema.Equal(schemaID) {
		t.Errorf("ids did not round-trip: %+v", got)
	}

	if err := s.AckEvent(ctx, got.ID); err != nil {
		t.Fatalf("AckEvent: %v", err)
	}
	next, err := s.SubscribeEvent(ctx, event.WorkflowCreated, time.Second)
	if err != nil {
		t.Fatalf("SubscribeEvent: %v", err)
	}
	if next == nil || !next.ID.Equal(evts[2].ID) {
		t.Fatalf("SubscribeEvent after ack = %+v", next)
	}

	if err := s.AckEvent(ctx, id.NewEventID()); !errors.Is(err, docflow.ErrEventNotFound) {
		t.Errorf("expected ErrEventNotFound, got %v", err)
	}

	none, err := s.SubscribeEvent(ctx, "workflow.unknown", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("SubscribeEvent(timeout): %v", err)
	}
	if none != nil {
		t.Errorf("expected nil on timeout, got %+v", none)
	}
}

func testHistory(t *testing.T, s store.Store) {
	ctx := context.Background()
	wf := id.NewWorkflowID()
	user := id.NewUserID()

	var h workflow.Hash
	h[0], h[31] = 0xab, 0x01

	entries := map[int]workflow.HistoryEntry{
		0: {User: user, Action: schema.Init, State: 1, Added: []workflow.DocID{workflow.MakeDocID(7, 1)}, Content: []workflow.Hash{h}},
		1: {User: user, Action: schema.Approve, State: 2},
		2: {User: user, Action: schema.Review, State: 2, Removed: []workflow.DocID{workflow.MakeDocID(7, 1)}},
	}
	for _, usn := range []int{0, 2, 1} {
		rec := &workflow.Record{Workflow: wf, USN: usn, Entry: entries[usn], CreatedAt: base}
		if err := s.AppendHistory(ctx, rec); err != nil {
			t.Fatalf("AppendHistory(%d): %v", usn, err)
		}
	}

	dup := &workflow.Record{Workflow: wf, USN: 1, Entry: entries[1], CreatedAt: base}
	if err := s.AppendHistory(ctx, dup); !errors.Is(err, docflow.ErrHistoryExists) {
		t.Errorf("expected ErrHistoryExists, got %v", err)
	}

	list, err := s.ListHistory(ctx, wf)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("ListHistory len = %d, want 3", len(list))
	}
	for i, rec := range list {
		if rec.USN != i {
			t.Errorf("list[%d].USN = %d", i, rec.USN)
		}
		if rec.Entry.Action != entries[i].Action || rec.Entry.State != entries[i].State {
			t.Errorf("list[%d].Entry = %+v", i, rec.Entry)
		}
	}
	first := list[0].Entry
	if !first.User.Equal(user) || len(first.Added) != 1 || first.Added[0] != workflow.MakeDocID(7, 1) {
		t.Errorf("init entry = %+v", first)
	}
	if len(first.Content) != 1 || first.Content[0] != h {
		t.Errorf("content hash did not round-trip: %+v", first.Content)
	}

	other, err := s.ListHistory(ctx, id.NewWorkflowID())
	if err != nil {
		t.Fatalf("ListHistory(unknown): %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected empty history, got %d", len(other))
	}
}
