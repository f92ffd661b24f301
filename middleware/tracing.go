package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/docflow/tx"
)

// tracerName is the instrumentation scope name for docflow tracing.
const tracerName = "github.com/xraph/docflow"

// Tracing returns middleware that wraps each call in an OpenTelemetry span.
// If no TracerProvider is configured globally, the default noop tracer is
// used and this middleware becomes a pass-through.
//
// Span attributes include: docflow.tx.id, docflow.tx.name, docflow.caller,
// docflow.target, docflow.items. On error, the span status is set to
// codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, t *tx.Tx, next Handler) error {
		ctx, span := tracer.Start(ctx, "docflow.call.apply",
			trace.WithAttributes(
				attribute.String("docflow.tx.id", t.ID.String()),
				attribute.String("docflow.tx.name", t.Name),
				attribute.String("docflow.caller", t.Caller.String()),
				attribute.String("docflow.target", t.Target.String()),
				attribute.Int("docflow.items", t.Items),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
