package engine

import (
	"context"
	"time"

	"github.com/xraph/docflow/ext"
	"github.com/xraph/docflow/workflow"
)

var _ ext.WorkflowTransitioned = (*archiver)(nil)

// archiver copies every committed history entry to a workflow.Store.
type archiver struct {
	store workflow.Store
}

func newArchiver(s workflow.Store) *archiver {
	return &archiver{store: s}
}

func (a *archiver) Name() string { return "history-archive" }

func (a *archiver) OnWorkflowTransitioned(ctx context.Context, w *workflow.Instance, usn int, entry workflow.HistoryEntry) error {
	return a.store.AppendHistory(ctx, &workflow.Record{
		Workflow:  w.Address(),
		USN:       usn,
		Entry:     entry,
		CreatedAt: time.Now().UTC(),
	})
}
