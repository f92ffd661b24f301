package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/event"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/workflow"
)

const eventColumns = `id, name, seq, address, schema_id, mode, acked, created_at`

// PublishEvent persists a new event and notifies listeners via NOTIFY.
func (s *Store) PublishEvent(ctx context.Context, evt *event.Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO docflow_events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		evt.ID.String(), evt.Name, int64(evt.Seq), evt.Address.String(),
		evt.Schema.String(), int16(evt.Mode), evt.Acked, evt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("docflow/postgres: publish event: %w", err)
	}

	_, notifyErr := s.pool.Exec(ctx,
		`SELECT pg_notify('docflow_events', $1)`,
		evt.Name,
	)
	if notifyErr != nil {
		// The event is persisted; subscribers fall back to polling.
		s.logger.Warn("failed to notify event subscribers",
			"event", evt.Name, "error", notifyErr)
	}

	return nil
}

// SubscribeEvent waits for the oldest unacked event matching name,
// polling at short intervals.
func (s *Store) SubscribeEvent(ctx context.Context, name string, timeout time.Duration) (*event.Event, error) {
	deadline := time.Now().Add(timeout)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		row := s.pool.QueryRow(ctx, `
			SELECT `+eventColumns+`
			FROM docflow_events
			WHERE name = $1 AND acked = FALSE
			ORDER BY created_at ASC, id ASC
			LIMIT 1`,
			name,
		)

		evt, err := scanEvent(row)
		if err == nil {
			return evt, nil
		}
		if !isNoRows(err) {
			return nil, fmt.Errorf("docflow/postgres: subscribe event: %w", err)
		}
		if time.Now().After(deadline) {
			return nil, nil
		}
		sleepCtx(ctx, 50*time.Millisecond)
	}
}

// AckEvent acknowledges an event, marking it as consumed.
func (s *Store) AckEvent(ctx context.Context, eventID id.EventID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE docflow_events SET acked = TRUE WHERE id = $1`,
		eventID.String(),
	)
	if err != nil {
		return fmt.Errorf("docflow/postgres: ack event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return docflow.ErrEventNotFound
	}
	return nil
}

// ListEvents returns events in publish order.
func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	limit, offset := limitOffset(opts.Limit, opts.Offset)

	rows, err := s.pool.Query(ctx, `
		SELECT `+eventColumns+` FROM docflow_events
		WHERE ($1 = '' OR name = $1)
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3`,
		opts.Name, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("docflow/postgres: list events: %w", err)
	}
	defer rows.Close()

	var result []*event.Event
	for rows.Next() {
		evt, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("docflow/postgres: scan event: %w", scanErr)
		}
		result = append(result, evt)
	}
	return result, rows.Err()
}

// scanEvent scans a single event row.
func scanEvent(row pgx.Row) (*event.Event, error) {
	var (
		evt  event.Event
		seq  int64
		mode int16
	)
	err := row.Scan(
		&evt.ID, &evt.Name, &seq, &evt.Address,
		&evt.Schema, &mode, &evt.Acked, &evt.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	evt.Seq = uint64(seq)
	evt.Mode = workflow.Mode(mode)
	return &evt, nil
}
