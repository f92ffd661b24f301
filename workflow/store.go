package workflow

import (
	"context"
	"time"

	"github.com/xraph/docflow/id"
)

// Record is an archived history entry.
type Record struct {
	Workflow  id.WorkflowID `json:"workflow"`
	USN       int           `json:"usn"`
	Entry     HistoryEntry  `json:"entry"`
	CreatedAt time.Time     `json:"created_at"`
}

// Store archives instance histories outside the engine.
type Store interface {
	// AppendHistory archives one history entry. Archiving the same
	// (workflow, usn) twice returns docflow.ErrHistoryExists.
	AppendHistory(ctx context.Context, rec *Record) error

	// ListHistory returns the archived entries of a workflow ordered by USN.
	ListHistory(ctx context.Context, wf id.WorkflowID) ([]*Record, error)
}
