package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/event"
	"github.com/xraph/docflow/id"
)

// PublishEvent persists a new event, indexes it, and adds it to the name's
// stream.
func (s *Store) PublishEvent(ctx context.Context, evt *event.Event) error {
	data, err := encodeEvent(evt)
	if err != nil {
		return fmt.Errorf("docflow/redis: encode event: %w", err)
	}

	eID := evt.ID.String()
	member := goredis.Z{Score: float64(evt.CreatedAt.UnixMicro()), Member: eID}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keys.event(eID), data, 0)
	pipe.ZAdd(ctx, s.keys.events(), member)
	pipe.ZAdd(ctx, s.keys.eventsNamed(evt.Name), member)
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: s.keys.eventStream(evt.Name),
		Values: map[string]interface{}{
			"event_id": eID,
		},
	})
	if evt.Acked {
		pipe.SAdd(ctx, s.keys.ackedEvents(), eID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("docflow/redis: publish event: %w", err)
	}
	return nil
}

// SubscribeEvent waits for the oldest unacked event matching name by
// scanning the name's stream.
func (s *Store) SubscribeEvent(ctx context.Context, name string, timeout time.Duration) (*event.Event, error) {
	stream := s.keys.eventStream(name)
	deadline := time.Now().Add(timeout)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		msgs, err := s.client.XRange(ctx, stream, "-", "+").Result()
		if err != nil {
			return nil, fmt.Errorf("docflow/redis: subscribe xrange: %w", err)
		}

		for _, msg := range msgs {
			eID, ok := msg.Values["event_id"].(string)
			if !ok {
				continue
			}
			evt, getErr := s.loadEvent(ctx, eID)
			if getErr != nil || evt.Acked {
				continue
			}
			return evt, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		sleepCtx(ctx, min(50*time.Millisecond, remaining))
	}
}

// AckEvent acknowledges an event, marking it as consumed.
func (s *Store) AckEvent(ctx context.Context, eventID id.EventID) error {
	eID := eventID.String()

	exists, err := s.client.Exists(ctx, s.keys.event(eID)).Result()
	if err != nil {
		return fmt.Errorf("docflow/redis: ack event exists: %w", err)
	}
	if exists == 0 {
		return docflow.ErrEventNotFound
	}

	if err := s.client.SAdd(ctx, s.keys.ackedEvents(), eID).Err(); err != nil {
		return fmt.Errorf("docflow/redis: ack event: %w", err)
	}
	return nil
}

// ListEvents returns events in publish order.
func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	index := s.keys.events()
	if opts.Name != "" {
		index = s.keys.eventsNamed(opts.Name)
	}

	start, stop := zrangeBounds(opts.Limit, opts.Offset)
	eIDs, err := s.client.ZRange(ctx, index, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("docflow/redis: list events: %w", err)
	}

	result := make([]*event.Event, 0, len(eIDs))
	for _, eID := range eIDs {
		evt, getErr := s.loadEvent(ctx, eID)
		if getErr != nil {
			return nil, getErr
		}
		result = append(result, evt)
	}
	return result, nil
}

func (s *Store) loadEvent(ctx context.Context, eID string) (*event.Event, error) {
	data, err := s.client.Get(ctx, s.keys.event(eID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, docflow.ErrEventNotFound
		}
		return nil, fmt.Errorf("docflow/redis: get event: %w", err)
	}
	evt, err := decodeEvent(data)
	if err != nil {
		return nil, err
	}
	acked, err := s.client.SIsMember(ctx, s.keys.ackedEvents(), eID).Result()
	if err != nil {
		return nil, fmt.Errorf("docflow/redis: event acked: %w", err)
	}
	evt.Acked = acked
	return evt, nil
}

// sleepCtx sleeps for the given duration, or returns early if the context
// is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
