package event

import (
	"time"

	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/workflow"
)

// Event names published by the registry.
const (
	WorkflowCreated = "workflow.created"
	WorkflowClosed  = "workflow.closed"
)

// Event is a persisted registry notification. External consumers wait for
// events by name and acknowledge them once handled.
type Event struct {
	ID        id.EventID    `json:"id"`
	Name      string        `json:"name"`
	Seq       uint64        `json:"seq"`
	Address   id.WorkflowID `json:"address"`
	Schema    id.SchemaID   `json:"schema"`
	Mode      workflow.Mode `json:"mode"`
	Acked     bool          `json:"acked"`
	CreatedAt time.Time     `json:"created_at"`
}
