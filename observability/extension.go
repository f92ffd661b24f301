package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/docflow/ext"
	"github.com/xraph/docflow/registry"
	"github.com/xraph/docflow/schema"
	"github.com/xraph/docflow/tx"
	"github.com/xraph/docflow/workflow"
)

// Compile-time interface checks.
var (
	_ ext.Extension            = (*MetricsExtension)(nil)
	_ ext.SchemaFinalized      = (*MetricsExtension)(nil)
	_ ext.WorkflowCreated      = (*MetricsExtension)(nil)
	_ ext.WorkflowTransitioned = (*MetricsExtension)(nil)
	_ ext.WorkflowClosed       = (*MetricsExtension)(nil)
	_ ext.TxCommitted          = (*MetricsExtension)(nil)
	_ ext.TxReverted           = (*MetricsExtension)(nil)
)

const meterName = "github.com/xraph/docflow/observability"

// MetricsExtension records system-wide lifecycle counters. Register it as
// an extension to track workflow throughput and call outcomes.
type MetricsExtension struct {
	SchemaFinalized     metric.Int64Counter
	WorkflowCreated     metric.Int64Counter
	WorkflowClosed      metric.Int64Counter
	WorkflowTransitions metric.Int64Counter
	TxCommitted         metric.Int64Counter
	TxReverted          metric.Int64Counter
}

// NewMetricsExtension creates a MetricsExtension on the global OTel
// MeterProvider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension with the provided meter.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		_ = err // noop fallback guaranteed by OTel API contract
		return c
	}
	return &MetricsExtension{
		SchemaFinalized:     counter("docflow.schema.finalized", "Schemas whose topology was locked"),
		WorkflowCreated:     counter("docflow.workflow.created", "Workflow instances created"),
		WorkflowClosed:      counter("docflow.workflow.closed", "Workflow instances archived"),
		WorkflowTransitions: counter("docflow.workflow.transitions", "Lifecycle calls appended to histories"),
		TxCommitted:         counter("docflow.tx.committed", "Calls applied"),
		TxReverted:          counter("docflow.tx.reverted", "Calls reverted"),
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnSchemaFinalized implements ext.SchemaFinalized.
func (m *MetricsExtension) OnSchemaFinalized(ctx context.Context, _ *schema.Schema) error {
	m.SchemaFinalized.Add(ctx, 1)
	return nil
}

// ── Workflow lifecycle hooks ────────────────────────

// OnWorkflowCreated implements ext.WorkflowCreated.
func (m *MetricsExtension) OnWorkflowCreated(ctx context.Context, _ registry.Event) error {
	m.WorkflowCreated.Add(ctx, 1)
	return nil
}

// OnWorkflowTransitioned implements ext.WorkflowTransitioned.
func (m *MetricsExtension) OnWorkflowTransitioned(ctx context.Context, _ *workflow.Instance, _ int, entry workflow.HistoryEntry) error {
	m.WorkflowTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", entry.Action.String()),
	))
	return nil
}

// OnWorkflowClosed implements ext.WorkflowClosed.
func (m *MetricsExtension) OnWorkflowClosed(ctx context.Context, ev registry.Event) error {
	m.WorkflowClosed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", ev.Mode.String()),
	))
	return nil
}

// ── Ledger hooks ────────────────────────────────────

// OnTxCommitted implements ext.TxCommitted.
func (m *MetricsExtension) OnTxCommitted(ctx context.Context, r *tx.Receipt) error {
	m.TxCommitted.Add(ctx, 1, metric.WithAttributes(attribute.String("tx_name", r.Name)))
	return nil
}

// OnTxReverted implements ext.TxReverted.
func (m *MetricsExtension) OnTxReverted(ctx context.Context, r *tx.Receipt, _ error) error {
	m.TxReverted.Add(ctx, 1, metric.WithAttributes(attribute.String("tx_name", r.Name)))
	return nil
}
