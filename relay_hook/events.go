package relayhook

import (
	"context"

	"github.com/xraph/relay"
	"github.com/xraph/relay/catalog"
)

// docflow lifecycle event types. Each constant maps to one ext lifecycle
// hook and is used as the event.Event.Type when sending via Relay.
const (
	EventSchemaFinalized      = "docflow.schema.finalized"
	EventWorkflowCreated      = "docflow.workflow.created"
	EventWorkflowTransitioned = "docflow.workflow.transitioned"
	EventWorkflowClosed       = "docflow.workflow.closed"
	EventTxCommitted          = "docflow.tx.committed"
	EventTxReverted           = "docflow.tx.reverted"
)

// AllDefinitions returns webhook definitions for every docflow event type.
// Pass these to relay.RegisterEventType to populate the catalog.
func AllDefinitions() []catalog.WebhookDefinition {
	return []catalog.WebhookDefinition{
		// ── Schema events ───────────────────────────────
		{
			Name:        EventSchemaFinalized,
			Description: "Fired when a state schema is frozen and can no longer change shape.",
			Group:       "schemas",
			Version:     "2026-01-01",
		},
		// ── Workflow events ─────────────────────────────
		{
			Name:        EventWorkflowCreated,
			Description: "Fired when a workflow instance is linked into the registry.",
			Group:       "workflows",
			Version:     "2026-01-01",
		},
		{
			Name:        EventWorkflowTransitioned,
			Description: "Fired after a transition is appended to an instance history.",
			Group:       "workflows",
			Version:     "2026-01-01",
		},
		{
			Name:        EventWorkflowClosed,
			Description: "Fired when an instance reaches complete or aborted and is unlinked.",
			Group:       "workflows",
			Version:     "2026-01-01",
		},
		// ── Ledger events ───────────────────────────────
		{
			Name:        EventTxCommitted,
			Description: "Fired when a ledger call commits.",
			Group:       "ledger",
			Version:     "2026-01-01",
		},
		{
			Name:        EventTxReverted,
			Description: "Fired when a ledger call reverts.",
			Group:       "ledger",
			Version:     "2026-01-01",
		},
	}
}

// RegisterAll registers every docflow webhook event type in the Relay
// catalog. Call this once during application startup before sending events.
func RegisterAll(ctx context.Context, r *relay.Relay) error {
	for _, def := range AllDefinitions() {
		if _, err := r.RegisterEventType(ctx, def); err != nil {
			return err
		}
	}
	return nil
}
