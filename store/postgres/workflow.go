package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/workflow"
)

// AppendHistory archives one history entry.
func (s *Store) AppendHistory(ctx context.Context, rec *workflow.Record) error {
	entry, err := json.Marshal(rec.Entry)
	if err != nil {
		return fmt.Errorf("docflow/postgres: marshal history entry: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO docflow_history (workflow_id, usn, entry, created_at)
		VALUES ($1, $2, $3, $4)`,
		rec.Workflow.String(), rec.USN, entry, rec.CreatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return docflow.ErrHistoryExists
		}
		return fmt.Errorf("docflow/postgres: append history: %w", err)
	}
	return nil
}

// ListHistory returns the archived entries of a workflow ordered by USN.
func (s *Store) ListHistory(ctx context.Context, wf id.WorkflowID) ([]*workflow.Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT usn, entry, created_at FROM docflow_history
		WHERE workflow_id = $1
		ORDER BY usn ASC`,
		wf.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("docflow/postgres: list history: %w", err)
	}
	defer rows.Close()

	var result []*workflow.Record
	for rows.Next() {
		var (
			rec   = workflow.Record{Workflow: wf}
			entry []byte
		)
		if scanErr := rows.Scan(&rec.USN, &entry, &rec.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("docflow/postgres: scan history: %w", scanErr)
		}
		if jsonErr := json.Unmarshal(entry, &rec.Entry); jsonErr != nil {
			return nil, fmt.Errorf("docflow/postgres: unmarshal history entry: %w", jsonErr)
		}
		result = append(result, &rec)
	}
	return result, rows.Err()
}
