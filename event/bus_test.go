package event_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/event"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/registry"
	"github.com/xraph/docflow/store/memory"
	"github.com/xraph/docflow/workflow"
)

func newRegistryEvent(seq uint64, mode workflow.Mode) registry.Event {
	return registry.Event{
		Seq:     seq,
		Address: id.NewWorkflowID(),
		Schema:  id.NewSchemaID(),
		Mode:    mode,
	}
}

func TestBus_PersistsRegistryEvents(t *testing.T) {
	s := memory.New()
	bus := event.NewBus(s)
	ctx := context.Background()

	created := newRegistryEvent(1, workflow.ModeUninit)
	if err := bus.OnWorkflowCreated(ctx, created); err != nil {
		t.Fatalf("OnWorkflowCreated: %v", err)
	}
	closed := newRegistryEvent(1, workflow.ModeAborted)
	if err := bus.OnWorkflowClosed(ctx, closed); err != nil {
		t.Fatalf("OnWorkflowClosed: %v", err)
	}

	list, err := s.ListEvents(ctx, event.ListOpts{})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 events, got %d", len(list))
	}
	if list[0].Name != event.WorkflowCreated || !list[0].Address.Equal(created.Address) {
		t.Errorf("first event = %+v", list[0])
	}
	if list[1].Name != event.WorkflowClosed || list[1].Mode != workflow.ModeAborted {
		t.Errorf("second event = %+v", list[1])
	}
	if list[0].ID.IsNil() || list[0].CreatedAt.IsZero() {
		t.Error("Publish should assign ID and CreatedAt")
	}
}

func TestBus_WaitAndAck(t *testing.T) {
	bus := event.NewBus(memory.New())
	ctx := context.Background()

	if err := bus.OnWorkflowClosed(ctx, newRegistryEvent(3, workflow.ModeComplete)); err != nil {
		t.Fatalf("OnWorkflowClosed: %v", err)
	}

	got, err := bus.Wait(ctx, event.WorkflowClosed, time.Second)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got == nil || got.Seq != 3 {
		t.Fatalf("Wait = %+v", got)
	}
	if err := bus.Ack(ctx, got.ID); err != nil {
		t.Fatalf("Ack: %v", err)
	}

	again, err := bus.Wait(ctx, event.WorkflowClosed, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if again != nil {
		t.Errorf("acked event delivered again: %+v", again)
	}
}

func TestBus_SubscribeFiltersByName(t *testing.T) {
	bus := event.NewBus(nil)
	ctx := context.Background()

	closedOnly := bus.Subscribe(event.WorkflowClosed)
	all := bus.Subscribe()
	defer closedOnly.Close()
	defer all.Close()

	_ = bus.OnWorkflowCreated(ctx, newRegistryEvent(1, workflow.ModeUninit))
	_ = bus.OnWorkflowClosed(ctx, newRegistryEvent(1, workflow.ModeComplete))

	select {
	case evt := <-closedOnly.C():
		if evt.Name != event.WorkflowClosed {
			t.Errorf("filtered subscriber got %q", evt.Name)
		}
	default:
		t.Fatal("expected closed event for filtered subscriber")
	}
	select {
	case evt := <-closedOnly.C():
		t.Errorf("unexpected extra event %+v", evt)
	default:
	}

	if n := len(all.C()); n != 2 {
		t.Errorf("unfiltered subscriber buffered %d events, want 2", n)
	}
}

func TestBus_DropsWhenSubscriberFull(t *testing.T) {
	bus := event.NewBus(nil, event.WithBufferSize(1))
	ctx := context.Background()

	sub := bus.Subscribe()
	defer sub.Close()

	for i := range 3 {
		if err := bus.OnWorkflowCreated(ctx, newRegistryEvent(uint64(i+1), workflow.ModeUninit)); err != nil {
			t.Fatalf("OnWorkflowCreated: %v", err)
		}
	}

	stats := bus.Stats()
	if stats.Published != 3 || stats.Delivered != 1 || stats.Dropped != 2 {
		t.Errorf("Stats = %+v", stats)
	}
	if evt := <-sub.C(); evt.Seq != 1 {
		t.Errorf("buffered event seq = %d, want 1", evt.Seq)
	}
}

func TestBus_ShutdownClosesSubscriptions(t *testing.T) {
	bus := event.NewBus(nil)
	sub := bus.Subscribe()

	if err := bus.OnShutdown(context.Background()); err != nil {
		t.Fatalf("OnShutdown: %v", err)
	}
	if _, ok := <-sub.C(); ok {
		t.Error("expected closed channel after shutdown")
	}
	if bus.Stats().Subscribers != 0 {
		t.Error("expected no subscribers after shutdown")
	}
	sub.Close()
}

func TestBus_WithoutStore(t *testing.T) {
	bus := event.NewBus(nil)
	ctx := context.Background()

	if evt, err := bus.Wait(ctx, event.WorkflowClosed, time.Millisecond); !errors.Is(err, docflow.ErrNoStore) || evt != nil {
		t.Errorf("Wait = %v, %v; want nil, ErrNoStore", evt, err)
	}
	if err := bus.Ack(ctx, id.NewEventID()); !errors.Is(err, docflow.ErrNoStore) {
		t.Errorf("Ack = %v, want ErrNoStore", err)
	}
	// Publishing still reaches subscribers.
	if err := bus.OnWorkflowCreated(ctx, newRegistryEvent(1, workflow.ModeUninit)); err != nil {
		t.Errorf("OnWorkflowCreated: %v", err)
	}
}
