// Package relayhook bridges docflow lifecycle events to Relay for webhook
// delivery. When registered as an extension, it emits typed webhook events
// (docflow.workflow.created, docflow.workflow.closed, etc.) once the call
// that produced them has committed.
//
// Usage:
//
//	r, _ := relay.New(relay.WithStore(store))
//	relayhook.RegisterAll(ctx, r)
//
//	hook := relayhook.New(r)
//	engine.New(owner, engine.WithExtension(hook))
//
// To restrict which events are emitted:
//
//	hook := relayhook.New(r,
//	    relayhook.WithEvents(
//	        relayhook.EventWorkflowCreated,
//	        relayhook.EventWorkflowClosed,
//	    ),
//	)
package relayhook
