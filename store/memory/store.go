package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/event"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/tx"
	"github.com/xraph/docflow/workflow"
)

// Ensure Store implements store.Store at compile time.
// We can't import store here (import cycle), so we verify each subsystem.
var (
	_ tx.Store       = (*Store)(nil)
	_ event.Store    = (*Store)(nil)
	_ workflow.Store = (*Store)(nil)
)

// Store is a fully in-memory implementation of store.Store.
// Safe for concurrent access. Intended for unit testing and development.
type Store struct {
	mu sync.RWMutex

	receipts   map[string]*tx.Receipt
	receiptSeq []string // tx ids in journal order

	events   map[string]*event.Event
	eventSeq []string // event ids in publish order

	history map[string][]*workflow.Record // key: workflow id, sorted by USN
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		receipts: make(map[string]*tx.Receipt),
		events:   make(map[string]*event.Event),
		history:  make(map[string][]*workflow.Record),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle: Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// page applies offset and limit to n items and returns the bounds.
func page(n, offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	end := n
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return offset, end
}

// ──────────────────────────────────────────────────
// Tx Store
// ──────────────────────────────────────────────────

// RecordReceipt persists a receipt. Recording the same transaction twice
// replaces the earlier receipt in place.
func (m *Store) RecordReceipt(_ context.Context, r *tx.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := r.TxID.String()
	if _, exists := m.receipts[key]; !exists {
		m.receiptSeq = append(m.receiptSeq, key)
	}
	cp := *r
	m.receipts[key] = &cp
	return nil
}

// GetReceipt retrieves a receipt by transaction ID.
func (m *Store) GetReceipt(_ context.Context, txID id.TxID) (*tx.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.receipts[txID.String()]
	if !ok {
		return nil, docflow.ErrReceiptNotFound
	}
	cp := *r
	return &cp, nil
}

// ListReceipts returns receipts ordered by ledger sequence.
func (m *Store) ListReceipts(_ context.Context, opts tx.ListOpts) ([]*tx.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*tx.Receipt, 0, len(m.receiptSeq))
	for _, key := range m.receiptSeq {
		r := m.receipts[key]
		if !opts.Caller.IsNil() && !r.Caller.Equal(opts.Caller) {
			continue
		}
		cp := *r
		matched = append(matched, &cp)
	}
	sort.SliceStable(matched, func(i, k int) bool { return matched[i].Seq < matched[k].Seq })

	lo, hi := page(len(matched), opts.Offset, opts.Limit)
	return matched[lo:hi], nil
}

// ──────────────────────────────────────────────────
// Event Store
// ──────────────────────────────────────────────────

// PublishEvent persists a new event.
func (m *Store) PublishEvent(_ context.Context, evt *event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := evt.ID.String()
	if _, exists := m.events[key]; !exists {
		m.eventSeq = append(m.eventSeq, key)
	}
	cp := *evt
	m.events[key] = &cp
	return nil
}

// SubscribeEvent waits for the oldest unacked event matching name.
// Poll-based: loops with 10ms sleep until an event is available or timeout.
func (m *Store) SubscribeEvent(ctx context.Context, name string, timeout time.Duration) (*event.Event, error) {
	deadline := time.Now().Add(timeout)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if evt := m.oldestUnacked(name); evt != nil {
			return evt, nil
		}
		if time.Now().After(deadline) {
			return nil, nil
		}

		time.Sleep(10 * time.Millisecond)
	}
}

func (m *Store) oldestUnacked(name string) *event.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, key := range m.eventSeq {
		evt := m.events[key]
		if evt.Name == name && !evt.Acked {
			cp := *evt
			return &cp
		}
	}
	return nil
}

// AckEvent acknowledges an event, marking it as consumed.
func (m *Store) AckEvent(_ context.Context, eventID id.EventID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	evt, ok := m.events[eventID.String()]
	if !ok {
		return docflow.ErrEventNotFound
	}
	evt.Acked = true
	return nil
}

// ListEvents returns events in publish order.
func (m *Store) ListEvents(_ context.Context, opts event.ListOpts) ([]*event.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*event.Event, 0, len(m.eventSeq))
	for _, key := range m.eventSeq {
		evt := m.events[key]
		if opts.Name != "" && evt.Name != opts.Name {
			continue
		}
		cp := *evt
		matched = append(matched, &cp)
	}

	lo, hi := page(len(matched), opts.Offset, opts.Limit)
	return matched[lo:hi], nil
}

// ──────────────────────────────────────────────────
// Workflow Store
// ──────────────────────────────────────────────────

// AppendHistory archives one history entry.
func (m *Store) AppendHistory(_ context.Context, rec *workflow.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := rec.Workflow.String()
	list := m.history[key]
	i := sort.Search(len(list), func(i int) bool { return list[i].USN >= rec.USN })
	if i < len(list) && list[i].USN == rec.USN {
		return docflow.ErrHistoryExists
	}

	cp := *rec
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = &cp
	m.history[key] = list
	return nil
}

// ListHistory returns the archived entries of a workflow ordered by USN.
func (m *Store) ListHistory(_ context.Context, wf id.WorkflowID) ([]*workflow.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.history[wf.String()]
	result := make([]*workflow.Record, len(list))
	for i, rec := range list {
		cp := *rec
		result[i] = &cp
	}
	return result, nil
}
