// Package ext defines the extension system for docflow.
//
// Extensions are notified of lifecycle events and can react to them:
// recording metrics, writing audit logs, archiving history. Each lifecycle
// hook is a separate interface so extensions opt in only to the events they
// care about.
//
//	type Counter struct{ n int }
//
//	func (c *Counter) Name() string { return "counter" }
//
//	func (c *Counter) OnWorkflowClosed(_ context.Context, _ registry.Event) error {
//	    c.n++
//	    return nil
//	}
//
// Hook errors are logged at Warn and never fail the call that triggered
// them.
package ext
