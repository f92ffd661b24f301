package observability_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/xraph/docflow/ext"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/observability"
	"github.com/xraph/docflow/registry"
	"github.com/xraph/docflow/schema"
	"github.com/xraph/docflow/tx"
	"github.com/xraph/docflow/workflow"
)

func newTestExtension() (*observability.MetricsExtension, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return observability.NewMetricsExtensionWithMeter(mp.Meter("test")), reader
}

// counterTotals sums every Int64 sum metric by name.
func counterTotals(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	totals := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}
	return totals
}

func newTestEvent(mode workflow.Mode) registry.Event {
	return registry.Event{Seq: 1, Address: id.NewWorkflowID(), Schema: id.NewSchemaID(), Mode: mode}
}

func TestMetricsExtension_Name(t *testing.T) {
	e, _ := newTestExtension()
	if e.Name() != "observability-metrics" {
		t.Errorf("expected name %q, got %q", "observability-metrics", e.Name())
	}
}

func TestMetricsExtension_ClosedByMode(t *testing.T) {
	e, reader := newTestExtension()
	ctx := context.Background()

	_ = e.OnWorkflowClosed(ctx, newTestEvent(workflow.ModeComplete))
	_ = e.OnWorkflowClosed(ctx, newTestEvent(workflow.ModeAborted))
	_ = e.OnWorkflowClosed(ctx, newTestEvent(workflow.ModeAborted))

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	byMode := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "docflow.workflow.closed" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				v, _ := dp.Attributes.Value("mode")
				byMode[v.AsString()] += dp.Value
			}
		}
	}
	if byMode["complete"] != 1 || byMode["aborted"] != 2 {
		t.Errorf("closed by mode = %v", byMode)
	}
}

func TestMetricsExtension_ViaRegistry(t *testing.T) {
	e, reader := newTestExtension()

	reg := ext.NewRegistry(slog.Default())
	reg.Register(e)

	ctx := context.Background()
	owner := id.NewUserID()
	sch := schema.New(owner)
	rec := &tx.Receipt{TxID: id.NewTxID(), Name: "doApprove", Caller: owner}

	reg.EmitSchemaFinalized(ctx, sch)
	reg.EmitWorkflowCreated(ctx, newTestEvent(workflow.ModeUninit))
	reg.EmitWorkflowTransitioned(ctx, nil, 0, workflow.HistoryEntry{User: owner, Action: schema.Init, State: 1})
	reg.EmitWorkflowClosed(ctx, newTestEvent(workflow.ModeComplete))
	reg.EmitTxCommitted(ctx, rec)
	reg.EmitTxReverted(ctx, rec, errors.New("wrong usn"))

	totals := counterTotals(t, reader)
	for _, name := range []string{
		"docflow.schema.finalized",
		"docflow.workflow.created",
		"docflow.workflow.transitions",
		"docflow.workflow.closed",
		"docflow.tx.committed",
		"docflow.tx.reverted",
	} {
		if totals[name] != 1 {
			t.Errorf("%s: want 1, got %d", name, totals[name])
		}
	}
}
