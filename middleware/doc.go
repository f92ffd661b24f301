// Package middleware provides composable middleware for ledger calls.
//
// A [Middleware] is a function that wraps the application of one submitted
// call. Middleware are composed into a chain using [Chain] and applied while
// the ledger holds its write lock. They are applied right-to-left: the first
// middleware in the slice is the outermost wrapper.
//
//	// logging → recover → handler
//	chain := middleware.Chain(middleware.Logging(logger), middleware.Recover(logger))
//
// # Built-in Middleware
//
//   - [Logging] logs call name, caller, duration and outcome
//   - [Recover] catches panics and converts them to errors
//   - [Timeout] cancels the call context after the call's Timeout
//   - [Tracing] wraps the call in an OpenTelemetry span
//   - [Metrics] records per-call duration and outcome counters
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, t *tx.Tx, next middleware.Handler) error {
//	        // pre-processing
//	        err := next(ctx)
//	        // post-processing
//	        return err
//	    }
//	}
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting.
package middleware
