package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/docflow/tx"
)

// meterName is the instrumentation scope name for docflow metrics.
const meterName = "github.com/xraph/docflow"

// Metrics returns middleware that records per-call metrics using the
// global OTel MeterProvider. If no MeterProvider is configured, noop
// instruments are used and this middleware becomes a pass-through.
//
// Instruments:
//   - docflow.call.duration (Float64Histogram): time spent applying the
//     call in seconds, with attributes: tx_name, status ("ok" or "error")
//   - docflow.call.executions (Int64Counter): total calls, with
//     attributes: tx_name, status ("ok" or "error")
func Metrics() Middleware {
	meter := otel.Meter(meterName)
	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics middleware using the provided meter.
func MetricsWithMeter(meter metric.Meter) Middleware {
	duration, dErr := meter.Float64Histogram(
		"docflow.call.duration",
		metric.WithDescription("Duration of ledger calls in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr // noop fallback guaranteed by OTel API contract

	executions, eErr := meter.Int64Counter(
		"docflow.call.executions",
		metric.WithDescription("Total number of ledger calls"),
		metric.WithUnit("{call}"),
	)
	_ = eErr // noop fallback guaranteed by OTel API contract

	return func(ctx context.Context, t *tx.Tx, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}

		attrs := metric.WithAttributes(
			attribute.String("tx_name", t.Name),
			attribute.String("status", status),
		)

		duration.Record(ctx, elapsed, attrs)
		executions.Add(ctx, 1, attrs)

		return err
	}
}
