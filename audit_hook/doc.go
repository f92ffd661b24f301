// Package audithook is a docflow extension that bridges lifecycle events
// to an immutable audit trail backend.
//
// Every schema, workflow and ledger hook emits a structured audit event
// through the [Recorder] interface. Severity is info for normal operations
// and warning for revoked rights, aborted workflows and reverted calls.
// Metadata carries the schema coordinates, USN, right and fee involved.
//
// # Usage
//
//	audithook.New(audithook.RecorderFunc(func(ctx context.Context, evt *audithook.AuditEvent) error {
//	    logger.InfoContext(ctx, evt.Action, "resource_id", evt.ResourceID, "actor", evt.Actor)
//	    return nil
//	}))
//
// # Selective filtering
//
//	audithook.New(recorder,
//	    audithook.WithActions(
//	        audithook.ActionRightRevoked,
//	        audithook.ActionWorkflowClosed,
//	        audithook.ActionTxReverted,
//	    ),
//	)
package audithook
