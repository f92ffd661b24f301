// Package observability provides OpenTelemetry-based metrics for docflow.
// The MetricsExtension implements lifecycle hooks to record system-wide
// counters for schema finalization, workflow creation, transitions and
// closure, and committed or reverted calls.
//
// For per-call tracing and metrics, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability
