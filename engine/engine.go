// Package engine wires all docflow subsystems together. It creates the
// extension registry, the ledger with its middleware chain, the workflow
// registry and the event bus, and exposes every mutating call as a typed
// method submitted through the ledger.
//
// This package exists to break the import cycle: the ext package imports
// schema, workflow and registry, so none of them can notify extensions
// directly. The engine sits above all subsystem packages and emits every
// hook itself, after the ledger has committed the call that caused it.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/event"
	"github.com/xraph/docflow/ext"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/ledger"
	mw "github.com/xraph/docflow/middleware"
	"github.com/xraph/docflow/observability"
	"github.com/xraph/docflow/registry"
	"github.com/xraph/docflow/schema"
	"github.com/xraph/docflow/store"
	"github.com/xraph/docflow/tx"
	"github.com/xraph/docflow/workflow"
)

// ext.Registry receives the ledger's receipts.
var _ ledger.Emitter = (*ext.Registry)(nil)

const instrumentationName = "github.com/xraph/docflow"

// Engine owns one workflow registry, the schemas deployed next to it and
// the ledger that orders every mutation against them.
type Engine struct {
	config     docflow.Config
	store      store.Store
	extensions *ext.Registry
	ledger     *ledger.Ledger
	registry   *registry.Registry
	bus        *event.Bus
	logger     *slog.Logger

	pending []ext.Extension
	mws     []mw.Middleware

	mu      sync.RWMutex
	schemas map[string]*schema.Schema

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the engine configuration.
func WithConfig(cfg docflow.Config) Option {
	return func(eng *Engine) { eng.config = cfg }
}

// WithStore sets the persistence backend. Receipts are journaled to it,
// registry events are persisted to it and every history entry is
// archived to it. Without a store the engine runs purely in memory.
func WithStore(s store.Store) Option {
	return func(eng *Engine) { eng.store = s }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(eng *Engine) { eng.logger = l }
}

// WithExtension registers an extension with the engine. Extensions are
// notified after the built-in ones, in registration order.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) { eng.pending = append(eng.pending, e) }
}

// WithMiddleware adds middleware to the ledger chain, inside the
// default stack.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) { eng.mws = append(eng.mws, m) }
}

// WithTracerProvider sets a custom OTel TracerProvider for the tracing
// middleware. If not set, the global otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) { eng.tracerProvider = tp }
}

// WithMeterProvider sets a custom OTel MeterProvider for both the metrics
// middleware and the observability extension. If not set, the global
// otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) { eng.meterProvider = mp }
}

// New creates an Engine whose registry has owner as RootAdmin.
func New(owner id.UserID, opts ...Option) (*Engine, error) {
	eng := &Engine{
		config:  docflow.DefaultConfig(),
		logger:  slog.Default(),
		schemas: make(map[string]*schema.Schema),
	}
	for _, opt := range opts {
		opt(eng)
	}
	if err := eng.config.Validate(); err != nil {
		return nil, err
	}

	eng.extensions = ext.NewRegistry(eng.logger)

	// Register the observability metrics extension.
	if eng.meterProvider != nil {
		meter := eng.meterProvider.Meter(instrumentationName + "/observability")
		eng.extensions.Register(observability.NewMetricsExtensionWithMeter(meter))
	} else {
		eng.extensions.Register(observability.NewMetricsExtension())
	}

	var es event.Store
	if eng.store != nil {
		es = eng.store
		eng.extensions.Register(newArchiver(eng.store))
	}
	eng.bus = event.NewBus(es, event.WithLogger(eng.logger))
	eng.extensions.Register(eng.bus)

	for _, e := range eng.pending {
		eng.extensions.Register(e)
	}
	eng.pending = nil

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if eng.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(eng.tracerProvider.Tracer(instrumentationName))
	} else {
		tracingMw = mw.Tracing()
	}

	// Build metrics middleware (custom provider or global).
	var metricsMw mw.Middleware
	if eng.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(eng.meterProvider.Meter(instrumentationName))
	} else {
		metricsMw = mw.Metrics()
	}

	// Default middleware stack: recover → tracing → metrics → logging → timeout.
	defaultMws := []mw.Middleware{
		mw.Recover(eng.logger),
		tracingMw,
		metricsMw,
		mw.Logging(eng.logger),
		mw.Timeout(eng.logger),
	}
	allMws := make([]mw.Middleware, 0, len(defaultMws)+len(eng.mws))
	allMws = append(allMws, defaultMws...)
	allMws = append(allMws, eng.mws...)

	ledgerOpts := []ledger.Option{
		ledger.WithMiddleware(allMws...),
		ledger.WithEmitter(eng.extensions),
		ledger.WithFees(ledger.FeeSchedule{Base: eng.config.BaseFee, PerItem: eng.config.ItemFee}),
		ledger.WithRate(eng.config.SubmitRate, eng.config.SubmitBurst),
		ledger.WithCallTimeout(eng.config.CallTimeout),
		ledger.WithLogger(eng.logger),
	}
	if eng.store != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithJournal(eng.store))
	}
	eng.ledger = ledger.New(ledgerOpts...)

	eng.registry = registry.New(owner, registry.WithLogger(eng.logger))

	eng.logger.Info("docflow engine started",
		slog.String("registry_id", eng.registry.Address().String()),
		slog.String("owner", owner.String()),
		slog.Int("extensions", len(eng.extensions.Extensions())),
	)
	return eng, nil
}

// submit wraps apply in a Tx and runs it through the ledger.
func (eng *Engine) submit(ctx context.Context, name string, caller id.UserID, target id.ID, items int, apply mw.Handler) (*tx.Receipt, error) {
	return eng.ledger.Submit(ctx, tx.New(name, caller, target, items), apply)
}

// ──────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────

// Schema returns the deployed schema at addr.
func (eng *Engine) Schema(addr id.SchemaID) (*schema.Schema, error) {
	eng.mu.RLock()
	defer eng.mu.RUnlock()
	s, ok := eng.schemas[addr.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", docflow.ErrSchemaNotFound, addr)
	}
	return s, nil
}

// Schemas returns the addresses of every deployed schema.
func (eng *Engine) Schemas() []id.SchemaID {
	eng.mu.RLock()
	defer eng.mu.RUnlock()
	out := make([]id.SchemaID, 0, len(eng.schemas))
	for _, s := range eng.schemas {
		out = append(out, s.ID())
	}
	return out
}

// Workflow returns the instance at addr, open or closed.
func (eng *Engine) Workflow(addr id.WorkflowID) (*workflow.Instance, error) {
	return eng.registry.Lookup(addr)
}

// History returns the archived history of the instance at addr. It
// requires a store.
func (eng *Engine) History(ctx context.Context, addr id.WorkflowID) ([]*workflow.Record, error) {
	if eng.store == nil {
		return nil, docflow.ErrNoStore
	}
	return eng.store.ListHistory(ctx, addr)
}

// Receipt returns the journaled receipt of a call. It requires a store.
func (eng *Engine) Receipt(ctx context.Context, txID id.TxID) (*tx.Receipt, error) {
	if eng.store == nil {
		return nil, docflow.ErrNoStore
	}
	return eng.store.GetReceipt(ctx, txID)
}

// SetCallerLimit installs a per-caller submission limit.
func (eng *Engine) SetCallerLimit(cfg ledger.CallerLimit) { eng.ledger.SetCallerLimit(cfg) }

// Config returns the engine configuration.
func (eng *Engine) Config() docflow.Config { return eng.config }

// Registry returns the workflow registry.
func (eng *Engine) Registry() *registry.Registry { return eng.registry }

// Ledger returns the ledger.
func (eng *Engine) Ledger() *ledger.Ledger { return eng.ledger }

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Bus returns the event bus.
func (eng *Engine) Bus() *event.Bus { return eng.bus }

// Store returns the persistence backend, or nil.
func (eng *Engine) Store() store.Store { return eng.store }

// Stop notifies extensions of shutdown and closes the store.
func (eng *Engine) Stop(ctx context.Context) error {
	eng.extensions.EmitShutdown(ctx)

	if eng.store != nil {
		if err := eng.store.Close(); err != nil {
			return fmt.Errorf("docflow: close store: %w", err)
		}
	}
	eng.logger.Info("docflow engine stopped",
		slog.Uint64("seq", eng.ledger.Seq()),
	)
	return nil
}
