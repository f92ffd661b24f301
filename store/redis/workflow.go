package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/workflow"
)

// AppendHistory archives one history entry. HSETNX on the USN field
// rejects a second archive of the same entry.
func (s *Store) AppendHistory(ctx context.Context, rec *workflow.Record) error {
	data, err := encodeHistory(rec)
	if err != nil {
		return fmt.Errorf("docflow/redis: encode history: %w", err)
	}

	ok, err := s.client.HSetNX(ctx, s.keys.history(rec.Workflow.String()), strconv.Itoa(rec.USN), data).Result()
	if err != nil {
		return fmt.Errorf("docflow/redis: append history: %w", err)
	}
	if !ok {
		return docflow.ErrHistoryExists
	}
	return nil
}

// ListHistory returns the archived entries of a workflow ordered by USN.
func (s *Store) ListHistory(ctx context.Context, wf id.WorkflowID) ([]*workflow.Record, error) {
	vals, err := s.client.HGetAll(ctx, s.keys.history(wf.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("docflow/redis: list history: %w", err)
	}

	result := make([]*workflow.Record, 0, len(vals))
	for _, v := range vals {
		rec, decErr := decodeHistory(wf, []byte(v))
		if decErr != nil {
			return nil, decErr
		}
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].USN < result[j].USN })
	return result, nil
}
