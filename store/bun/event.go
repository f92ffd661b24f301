package bunstore

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/event"
	"github.com/xraph/docflow/id"
)

// PublishEvent persists a new event.
func (s *Store) PublishEvent(ctx context.Context, evt *event.Event) error {
	_, err := s.db.NewInsert().Model(toEventModel(evt)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("docflow/bun: publish event: %w", err)
	}
	return nil
}

// SubscribeEvent waits for the oldest unacked event matching name.
// Uses a polling approach with short intervals since Bun is dialect-agnostic
// and LISTEN/NOTIFY is PostgreSQL-specific.
func (s *Store) SubscribeEvent(ctx context.Context, name string, timeout time.Duration) (*event.Event, error) {
	deadline := time.Now().Add(timeout)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		m := new(eventModel)
		err := s.db.NewSelect().Model(m).
			Where("name = ?", name).
			Where("acked = FALSE").
			Order("created_at ASC", "id ASC").
			Limit(1).
			Scan(ctx)
		if err == nil {
			return fromEventModel(m)
		}
		if !isNoRows(err) {
			return nil, fmt.Errorf("docflow/bun: subscribe event: %w", err)
		}
		if time.Now().After(deadline) {
			return nil, nil
		}
		sleepCtx(ctx, 50*time.Millisecond)
	}
}

// AckEvent acknowledges an event, marking it as consumed.
func (s *Store) AckEvent(ctx context.Context, eventID id.EventID) error {
	res, err := s.db.NewUpdate().
		TableExpr("docflow_events").
		Set("acked = TRUE").
		Where("id = ?", eventID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("docflow/bun: ack event: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		return docflow.ErrEventNotFound
	}
	return nil
}

// ListEvents returns events in publish order.
func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	var models []eventModel
	q := s.db.NewSelect().Model(&models).Order("created_at ASC", "id ASC")
	if opts.Name != "" {
		q = q.Where("name = ?", opts.Name)
	}
	if err := paginate(q, opts.Limit, opts.Offset).Scan(ctx); err != nil {
		return nil, fmt.Errorf("docflow/bun: list events: %w", err)
	}

	result := make([]*event.Event, 0, len(models))
	for i := range models {
		evt, err := fromEventModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, evt)
	}
	return result, nil
}
