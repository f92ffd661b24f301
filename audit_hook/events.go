package audithook

// Audit event actions. Each constant corresponds to one ext lifecycle hook
// and becomes the Action field of the audit event.
const (
	ActionSchemaDeployed       = "schema.deployed"
	ActionSchemaFinalized      = "schema.finalized"
	ActionRightGranted         = "schema.right_granted"
	ActionRightRevoked         = "schema.right_revoked"
	ActionWorkflowCreated      = "workflow.created"
	ActionWorkflowTransitioned = "workflow.transitioned"
	ActionWorkflowClosed       = "workflow.closed"
	ActionTxCommitted          = "tx.committed"
	ActionTxReverted           = "tx.reverted"
)

// Audit event categories group related actions.
const (
	CategorySchema   = "docflow.schema"
	CategoryWorkflow = "docflow.workflow"
	CategoryTx       = "docflow.tx"
)

// Resource types used as the Resource field in audit events.
const (
	ResourceSchema   = "schema"
	ResourceWorkflow = "workflow"
	ResourceTx       = "tx"
)

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionSchemaDeployed,
		ActionSchemaFinalized,
		ActionRightGranted,
		ActionRightRevoked,
		ActionWorkflowCreated,
		ActionWorkflowTransitioned,
		ActionWorkflowClosed,
		ActionTxCommitted,
		ActionTxReverted,
	}
}
