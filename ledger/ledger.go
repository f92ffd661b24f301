// Package ledger totally orders every mutating call made against docflow
// components.
//
// Submit admits a call through the rate limiters, takes the global write
// lock, assigns the next sequence number, applies the call through the
// middleware chain, charges its fee and journals the receipt. A call that
// fails is reverted: the component it targeted rejects it before changing
// anything, and the receipt records the failure and the fee charged.
// Reads never go through the ledger.
package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/docflow/middleware"
	"github.com/xraph/docflow/tx"
)

// FeeSchedule prices submitted calls.
type FeeSchedule struct {
	Base    uint64
	PerItem uint64
}

// For returns the fee for t.
func (f FeeSchedule) For(t *tx.Tx) uint64 {
	items := t.Items
	if items < 0 {
		items = 0
	}
	return f.Base + f.PerItem*uint64(items)
}

// Emitter receives receipt notifications. *ext.Registry implements it.
type Emitter interface {
	EmitTxCommitted(ctx context.Context, r *tx.Receipt)
	EmitTxReverted(ctx context.Context, r *tx.Receipt, err error)
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithMiddleware sets the middleware chain applied to every call.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(l *Ledger) { l.chain = middleware.Chain(mws...) }
}

// WithJournal sets the store receipts are journaled to.
func WithJournal(s tx.Store) Option {
	return func(l *Ledger) { l.journal = s }
}

// WithEmitter sets the receipt emitter.
func WithEmitter(e Emitter) Option {
	return func(l *Ledger) { l.emitter = e }
}

// WithFees sets the fee schedule.
func WithFees(f FeeSchedule) Option {
	return func(l *Ledger) { l.fees = f }
}

// WithRate caps submissions across all callers. Callers wait for capacity.
func WithRate(r float64, burst int) Option {
	return func(l *Ledger) { l.limits = newLimits(r, burst) }
}

// WithCallTimeout sets the default per-call timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(l *Ledger) { l.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// Ledger is the single ordered log of mutating calls. It is safe for
// concurrent use; calls are applied one at a time.
type Ledger struct {
	mu      sync.Mutex
	seq     uint64
	limits  *limits
	chain   middleware.Middleware
	journal tx.Store
	emitter Emitter
	fees    FeeSchedule
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		limits: newLimits(0, 0),
		chain:  middleware.Chain(),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetCallerLimit installs or replaces a per-caller rate limit. Calls over
// the limit are rejected with docflow.ErrRateLimited without a receipt.
func (l *Ledger) SetCallerLimit(cfg CallerLimit) {
	l.limits.set(cfg)
}

// Submit applies t. It returns the receipt and the call's own error; the
// receipt is nil only when the call was not admitted.
func (l *Ledger) Submit(ctx context.Context, t *tx.Tx, apply middleware.Handler) (*tx.Receipt, error) {
	if err := l.limits.admit(ctx, t.Caller); err != nil {
		return nil, err
	}
	if t.Timeout == 0 {
		t.Timeout = l.timeout
	}
	submitted := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	callErr := l.chain(ctx, t, apply)

	rec := &tx.Receipt{
		TxID:        t.ID,
		Seq:         l.seq,
		Name:        t.Name,
		Caller:      t.Caller,
		Target:      t.Target,
		Status:      tx.StatusCommitted,
		Fee:         l.fees.For(t),
		SubmittedAt: submitted,
		CompletedAt: l.now(),
	}
	if callErr != nil {
		rec.Status = tx.StatusReverted
		rec.Error = callErr.Error()
	}

	if l.journal != nil {
		if err := l.journal.RecordReceipt(ctx, rec); err != nil {
			l.logger.Error("failed to journal receipt",
				slog.String("tx_id", t.ID.String()),
				slog.Uint64("seq", rec.Seq),
				slog.String("error", err.Error()),
			)
		}
	}
	if l.emitter != nil {
		if callErr != nil {
			l.emitter.EmitTxReverted(ctx, rec, callErr)
		} else {
			l.emitter.EmitTxCommitted(ctx, rec)
		}
	}

	return rec, callErr
}

// Seq returns the sequence number of the last applied call.
func (l *Ledger) Seq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}
