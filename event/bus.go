// Package event turns registry changes into durable, consumable events.
//
// The Bus is an extension: it receives workflow created and closed hooks,
// persists each as an Event in a Store, and fans it out to in-process
// subscribers. Subscribers get a buffered channel; when a subscriber
// falls behind, events for it are dropped and counted rather than
// blocking the call that produced them.
package event

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/ext"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/registry"
)

// Compile-time interface checks.
var (
	_ ext.Extension       = (*Bus)(nil)
	_ ext.WorkflowCreated = (*Bus)(nil)
	_ ext.WorkflowClosed  = (*Bus)(nil)
	_ ext.Shutdown        = (*Bus)(nil)
)

// DefaultBufferSize is the default per-subscriber event buffer.
const DefaultBufferSize = 64

// Option configures a Bus.
type Option func(*Bus)

// WithBufferSize sets the per-subscriber buffer size.
func WithBufferSize(size int) Option {
	return func(b *Bus) { b.bufferSize = size }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

// Subscription receives events published on the bus.
type Subscription struct {
	id    uint64
	names map[string]bool
	ch    chan *Event
	bus   *Bus
}

// C returns the delivery channel. It is closed when the subscription ends.
func (s *Subscription) C() <-chan *Event { return s.ch }

// Close ends the subscription.
func (s *Subscription) Close() { s.bus.unsubscribe(s.id) }

func (s *Subscription) wants(name string) bool {
	return len(s.names) == 0 || s.names[name]
}

// Stats contains bus counters.
type Stats struct {
	Subscribers int   `json:"subscribers"`
	Published   int64 `json:"published"`
	Delivered   int64 `json:"delivered"`
	Dropped     int64 `json:"dropped"`
}

// Bus persists registry events and fans them out to subscribers.
type Bus struct {
	store      Store
	logger     *slog.Logger
	bufferSize int

	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*Subscription

	published atomic.Int64
	delivered atomic.Int64
	dropped   atomic.Int64
}

// NewBus creates an event bus. store may be nil, in which case events are
// only delivered to in-process subscribers.
func NewBus(store Store, opts ...Option) *Bus {
	b := &Bus{
		store:      store,
		logger:     slog.Default(),
		bufferSize: DefaultBufferSize,
		subs:       make(map[uint64]*Subscription),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements ext.Extension.
func (b *Bus) Name() string { return "event-bus" }

// Subscribe registers a subscriber for the given event names. No names
// subscribes to everything.
func (b *Bus) Subscribe(names ...string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:    b.nextID,
		names: make(map[string]bool, len(names)),
		ch:    make(chan *Event, b.bufferSize),
		bus:   b,
	}
	for _, n := range names {
		sub.names[n] = true
	}
	b.subs[sub.id] = sub
	return sub
}

func (b *Bus) unsubscribe(subID uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[subID]; ok {
		delete(b.subs, subID)
		close(sub.ch)
	}
}

// Publish persists evt and delivers it to matching subscribers.
func (b *Bus) Publish(ctx context.Context, evt *Event) error {
	if evt.ID.IsNil() {
		evt.ID = id.NewEventID()
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now().UTC()
	}
	if b.store != nil {
		if err := b.store.PublishEvent(ctx, evt); err != nil {
			return err
		}
	}
	b.published.Add(1)

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		if !sub.wants(evt.Name) {
			continue
		}
		select {
		case sub.ch <- evt:
			b.delivered.Add(1)
		default:
			b.dropped.Add(1)
			b.logger.Warn("event dropped for slow subscriber",
				slog.String("event", evt.Name),
				slog.Uint64("subscriber", sub.id),
			)
		}
	}
	return nil
}

// Wait blocks for the oldest unacked stored event named name. It
// requires a store.
func (b *Bus) Wait(ctx context.Context, name string, timeout time.Duration) (*Event, error) {
	if b.store == nil {
		return nil, docflow.ErrNoStore
	}
	return b.store.SubscribeEvent(ctx, name, timeout)
}

// Ack acknowledges a stored event. It requires a store.
func (b *Bus) Ack(ctx context.Context, eventID id.EventID) error {
	if b.store == nil {
		return docflow.ErrNoStore
	}
	return b.store.AckEvent(ctx, eventID)
}

// Stats returns bus counters.
func (b *Bus) Stats() Stats {
	b.mu.Lock()
	n := len(b.subs)
	b.mu.Unlock()
	return Stats{
		Subscribers: n,
		Published:   b.published.Load(),
		Delivered:   b.delivered.Load(),
		Dropped:     b.dropped.Load(),
	}
}

// Store returns the underlying event store.
func (b *Bus) Store() Store { return b.store }

func fromRegistry(name string, ev registry.Event) *Event {
	return &Event{
		Name:    name,
		Seq:     ev.Seq,
		Address: ev.Address,
		Schema:  ev.Schema,
		Mode:    ev.Mode,
	}
}

// OnWorkflowCreated implements ext.WorkflowCreated.
func (b *Bus) OnWorkflowCreated(ctx context.Context, ev registry.Event) error {
	return b.Publish(ctx, fromRegistry(WorkflowCreated, ev))
}

// OnWorkflowClosed implements ext.WorkflowClosed.
func (b *Bus) OnWorkflowClosed(ctx context.Context, ev registry.Event) error {
	return b.Publish(ctx, fromRegistry(WorkflowClosed, ev))
}

// OnShutdown closes every subscription.
func (b *Bus) OnShutdown(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for subID, sub := range b.subs {
		delete(b.subs, subID)
		close(sub.ch)
	}
	return nil
}
