package bunstore

import (
	"context"
	"fmt"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/workflow"
)

// AppendHistory archives one history entry.
func (s *Store) AppendHistory(ctx context.Context, rec *workflow.Record) error {
	_, err := s.db.NewInsert().Model(toHistoryModel(rec)).Exec(ctx)
	if err != nil {
		if isDuplicateKey(err) {
			return docflow.ErrHistoryExists
		}
		return fmt.Errorf("docflow/bun: append history: %w", err)
	}
	return nil
}

// ListHistory returns the archived entries of a workflow ordered by USN.
func (s *Store) ListHistory(ctx context.Context, wf id.WorkflowID) ([]*workflow.Record, error) {
	var models []historyModel
	err := s.db.NewSelect().Model(&models).
		Where("workflow_id = ?", wf.String()).
		Order("usn ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("docflow/bun: list history: %w", err)
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
