package middleware_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	mw "github.com/xraph/docflow/middleware"
)

func setupTestTracer() (*tracetest.SpanRecorder, trace.Tracer) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return sr, tp.Tracer("test")
}

func TestTracing_SpanAttributes(t *testing.T) {
	sr, tracer := setupTestTracer()
	m := mw.TracingWithTracer(tracer)
	call := newTestTx()

	_ = m(context.Background(), call, func(_ context.Context) error { return nil })

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "docflow.call.apply" {
		t.Errorf("span name = %q, want %q", spans[0].Name(), "docflow.call.apply")
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("expected status Ok, got %v", spans[0].Status().Code)
	}

	expected := map[string]any{
		"docflow.tx.id":   call.ID.String(),
		"docflow.tx.name": "doReview",
		"docflow.caller":  call.Caller.String(),
		"docflow.target":  call.Target.String(),
		"docflow.items":   int64(3),
	}
	attrMap := make(map[string]any)
	for _, a := range spans[0].Attributes() {
		switch a.Value.Type() {
		case attribute.STRING:
			attrMap[string(a.Key)] = a.Value.AsString()
		case attribute.INT64:
			attrMap[string(a.Key)] = a.Value.AsInt64()
		}
	}
	for key, want := range expected {
		if got := attrMap[key]; got != want {
			t.Errorf("attribute %q = %v, want %v", key, got, want)
		}
	}
}

func TestTracing_Error_SetsErrorStatus(t *testing.T) {
	sr, tracer := setupTestTracer()
	m := mw.TracingWithTracer(tracer)

	callErr := errors.New("wrong usn")
	if err := m(context.Background(), newTestTx(), func(_ context.Context) error { return callErr }); !errors.Is(err, callErr) {
		t.Fatalf("expected call error, got %v", err)
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error || spans[0].Status().Description != "wrong usn" {
		t.Errorf("status = %+v", spans[0].Status())
	}
	found := false
	for _, ev := range spans[0].Events() {
		if ev.Name == "exception" {
			found = true
		}
	}
	if !found {
		t.Error("expected 'exception' event to be recorded on span")
	}
}

func TestTracing_PropagatesContext(t *testing.T) {
	sr, tracer := setupTestTracer()
	m := mw.TracingWithTracer(tracer)

	var inner trace.SpanContext
	_ = m(context.Background(), newTestTx(), func(ctx context.Context) error {
		inner = trace.SpanFromContext(ctx).SpanContext()
		return nil
	})

	spans := sr.Ended()
	if !inner.IsValid() || inner.TraceID() != spans[0].SpanContext().TraceID() {
		t.Error("handler did not receive the middleware span context")
	}
}

func TestTracing_DefaultNoopSafe(t *testing.T) {
	called := false
	err := mw.Tracing()(context.Background(), newTestTx(), func(_ context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("err = %v, called = %v", err, called)
	}
}
