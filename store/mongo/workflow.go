package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/workflow"
)

// AppendHistory archives one history entry.
func (s *Store) AppendHistory(ctx context.Context, rec *workflow.Record) error {
	_, err := s.db.Collection(colHistory).InsertOne(ctx, toHistoryModel(rec))
	if err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return docflow.ErrHistoryExists
		}
		return fmt.Errorf("docflow/mongo: append history: %w", err)
	}
	return nil
}

// ListHistory returns the archived entries of a workflow ordered by USN.
func (s *Store) ListHistory(ctx context.Context, wf id.WorkflowID) ([]*workflow.Record, error) {
	cursor, err := s.db.Collection(colHistory).Find(ctx,
		bson.M{"workflow_id": wf.String()},
		options.Find().SetSort(bson.D{{Key: "usn", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("docflow/mongo: list history: %w", err)
	}

	var models []historyModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("docflow/mongo: decode history: %w", err)
	}

	result := make([]*workflow.Record, 0, len(models))
	for i := range models {
		rec, convErr := fromHistoryModel(&models[i])
		if convErr != nil {
			return nil, convErr
		}
		result = append(result, rec)
	}
	return result, nil
}
