package event

import (
	"context"
	"time"

	"github.com/xraph/docflow/id"
)

// ListOpts controls pagination for event queries.
type ListOpts struct {
	// Name filters by event name. Empty means all events.
	Name string
	// Limit is the maximum number of events to return. Zero means no limit.
	Limit int
	// Offset is the number of events to skip.
	Offset int
}

// Store defines the persistence contract for events.
type Store interface {
	// PublishEvent persists a new event.
	PublishEvent(ctx context.Context, evt *Event) error

	// SubscribeEvent waits for the oldest unacked event matching name.
	// Blocks until an event is available or the timeout expires.
	// Returns nil if no event is found within the timeout.
	SubscribeEvent(ctx context.Context, name string, timeout time.Duration) (*Event, error)

	// AckEvent marks an event as consumed.
	AckEvent(ctx context.Context, eventID id.EventID) error

	// ListEvents returns events in publish order.
	ListEvents(ctx context.Context, opts ListOpts) ([]*Event, error)
}
