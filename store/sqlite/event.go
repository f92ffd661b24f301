package sqlite

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
	_, err := s.sdb.NewInsert(toEventModel(evt)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("docflow/sqlite: publish event: %w", err)
	}
	return nil
}

// SubscribeEvent waits for the oldest unacked event matching name.
// SQLite has no notification channel, so this polls.
func (s *Store) SubscribeEvent(ctx context.Context, name string, timeout time.Duration) (*event.Event, error) {
	deadline := time.Now().Add(timeout)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		m := new(eventModel)
		err := s.sdb.NewSelect(m).
			Where("name = ?", name).
			Where("acked = ?", false).
			OrderExpr("created_at ASC, id ASC").
			Limit(1).
			Scan(ctx)
		if err == nil {
			return fromEventModel(m)
		}
		if !isNoRows(err) {
			return nil, fmt.Errorf("docflow/sqlite: subscribe event: %w", err)
		}
		if time.Now().After(deadline) {
			return nil, nil
		}
		sleepCtx(ctx, 50*time.Millisecond)
	}
}

// AckEvent acknowledges an event, marking it as consumed.
func (s *Store) AckEvent(ctx context.Context, eventID id.EventID) error {
	res, err := s.sdb.NewUpdate((*eventModel)(nil)).
		Set("acked = ?", true).
		Where("id = ?", eventID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("docflow/sqlite: ack event: %w", err)
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
	q := s.sdb.NewSelect(&models)
	if opts.Name != "" {
		q = q.Where("name = ?", opts.Name)
	}
	q = q.OrderExpr("created_at ASC, id ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		if opts.Limit <= 0 {
			q = q.Limit(-1)
		}
		q = q.Offset(opts.Offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("docflow/sqlite: list events: %w", err)
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
