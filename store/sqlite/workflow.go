package sqlite

import (
	"context"
	"fmt"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/workflow"
)

// AppendHistory archives one history entry.
func (s *Store) AppendHistory(ctx context.Context, rec *workflow.Record) error {
	m, err := toHistoryModel(rec)
	if err != nil {
		return err
	}
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		if isDuplicateKey(err) {
			return docflow.ErrHistoryExists
		}
		return fmt.Errorf("docflow/sqlite: append history: %w", err)
	}
	return nil
}

// ListHistory returns the archived entries of a workflow ordered by USN.
func (s *Store) ListHistory(ctx context.Context, wf id.WorkflowID) ([]*workflow.Record, error) {
	var models []historyModel
	err := s.sdb.NewSelect(&models).
		Where("workflow_id = ?", wf.String()).
		OrderExpr("usn ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("docflow/sqlite: list history: %w", err)
	}

	result := make([]*workflow.Record, 0, len(models))
	for i := range models {
		rec, err := fromHistoryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, nil
}
