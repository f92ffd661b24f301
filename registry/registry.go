// Package registry tracks workflow instances: it creates them, keeps the
// open ones in a doubly-linked list that supports stable pagination, and
// archives them once they conclude.
//
// Open instances are addressed by sequential ids starting at 1. Id 0 is
// never assigned and terminates the list in both directions. The list is
// an index-based arena, so unlinking is O(1) and a stale cursor is
// detected by checking that its id is still live.
//
// The registry reports nothing by itself. Whoever drives it announces
// created and closed instances, built with EventOf, once the enclosing
// call has committed.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/access"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/workflow"
)

// Event describes a registry change.
type Event struct {
	Seq     uint64        `json:"seq"`
	Address id.WorkflowID `json:"address"`
	Schema  id.SchemaID   `json:"schema"`
	Mode    workflow.Mode `json:"mode"`
}

// EventOf describes inst as it is now. It reads the instance, so it must
// not be called while the instance is mid-call.
func EventOf(inst *workflow.Instance) Event {
	return Event{Seq: inst.Seq(), Address: inst.Address(), Schema: inst.Schema(), Mode: inst.Mode()}
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

type node struct {
	prev, next uint64
	inst       *workflow.Instance
	live       bool
}

// Registry is the workflow registry. Reads are safe alongside a single
// writer.
type Registry struct {
	*access.Control

	addr        id.RegistryID
	mu          sync.RWMutex
	nodes       []node
	first, last uint64
	open        int
	closed      []*workflow.Instance
	byAddr      map[string]*workflow.Instance
	logger      *slog.Logger
}

var _ workflow.Tracker = (*Registry)(nil)

// New creates an empty registry. owner receives RootAdmin.
func New(owner id.UserID, opts ...Option) *Registry {
	r := &Registry{
		Control: access.New(owner),
		addr:    id.NewRegistryID(),
		nodes:   make([]node, 1),
		byAddr:  make(map[string]*workflow.Instance),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Address returns the registry's address.
func (r *Registry) Address() id.RegistryID { return r.addr }

// CreateWorkflow creates an instance bound to sch and appends it to the
// tail of the open list.
func (r *Registry) CreateWorkflow(_ context.Context, caller id.UserID, sch workflow.Authorizer, docTypes []workflow.DocType) (*workflow.Instance, error) {
	if !r.HasRole(access.ContractAdmin, caller) {
		return nil, docflow.ErrUnauthorized
	}

	r.mu.Lock()
	seq := uint64(len(r.nodes))
	inst, err := workflow.New(seq, sch, r, docTypes)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}

	r.nodes = append(r.nodes, node{prev: r.last, inst: inst, live: true})
	if r.last != 0 {
		r.nodes[r.last].next = seq
	} else {
		r.first = seq
	}
	r.last = seq
	r.open++
	r.byAddr[inst.Address().String()] = inst
	r.mu.Unlock()

	r.logger.Debug("workflow created",
		slog.Uint64("seq", seq),
		slog.String("workflow_id", inst.Address().String()),
		slog.String("schema_id", inst.Schema().String()),
	)
	return inst, nil
}

// RemoveWorkflow unlinks a concluded instance from the open list and
// returns it. Instances conclude themselves on signoff and abort, so this
// only succeeds for an instance that is open and already terminal.
func (r *Registry) RemoveWorkflow(ctx context.Context, seq uint64) (*workflow.Instance, error) {
	r.mu.RLock()
	inst, ok := r.liveLocked(seq)
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", docflow.ErrUninitWF, seq)
	}
	if err := r.Conclude(ctx, seq, inst.Mode()); err != nil {
		return nil, err
	}
	return inst, nil
}

// Conclude unlinks instance seq, which has reached mode, and appends it
// to the closed list.
func (r *Registry) Conclude(_ context.Context, seq uint64, mode workflow.Mode) error {
	r.mu.Lock()
	inst, ok := r.liveLocked(seq)
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %d", docflow.ErrUninitWF, seq)
	}
	if !mode.Terminal() {
		r.mu.Unlock()
		return fmt.Errorf("%w: %d is %s", docflow.ErrRunningWF, seq, mode)
	}

	n := &r.nodes[seq]
	if n.prev != 0 {
		r.nodes[n.prev].next = n.next
	} else {
		r.first = n.next
	}
	if n.next != 0 {
		r.nodes[n.next].prev = n.prev
	} else {
		r.last = n.prev
	}
	n.prev, n.next, n.live = 0, 0, false
	r.open--
	r.closed = append(r.closed, inst)
	r.mu.Unlock()

	r.logger.Debug("workflow closed",
		slog.Uint64("seq", seq),
		slog.String("workflow_id", inst.Address().String()),
		slog.String("mode", mode.String()),
	)
	return nil
}

// liveLocked requires r.mu to be held.
func (r *Registry) liveLocked(seq uint64) (*workflow.Instance, bool) {
	if seq == 0 || seq >= uint64(len(r.nodes)) || !r.nodes[seq].live {
		return nil, false
	}
	return r.nodes[seq].inst, true
}

// ReadWF returns the addresses of up to count open instances starting at
// start, and the id to resume from (0 once the tail is reached). start
// must be a live id; a cursor whose instance has since concluded fails
// with docflow.ErrInvalidPos.
func (r *Registry) ReadWF(start uint64, count int) ([]id.WorkflowID, uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.liveLocked(start); !ok {
		return nil, 0, fmt.Errorf("%w: %d", docflow.ErrInvalidPos, start)
	}
	if count <= 0 {
		return nil, start, nil
	}

	out := make([]id.WorkflowID, 0, min(count, r.open))
	cur := start
	for cur != 0 && len(out) < count {
		out = append(out, r.nodes[cur].inst.Address())
		cur = r.nodes[cur].next
	}
	return out, cur, nil
}

// ──────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────

// FirstOpen returns the id at the head of the open list, or 0.
func (r *Registry) FirstOpen() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.first
}

// LastOpen returns the id at the tail of the open list, or 0.
func (r *Registry) LastOpen() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// NextID returns the id the next created instance will receive.
func (r *Registry) NextID() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return uint64(len(r.nodes))
}

// TotalOpen returns the number of open instances.
func (r *Registry) TotalOpen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.open
}

// TotalClosed returns the number of concluded instances.
func (r *Registry) TotalClosed() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.closed)
}

// ClosedAt returns the address of the idx-th concluded instance.
func (r *Registry) ClosedAt(idx int) (id.WorkflowID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx < 0 || idx >= len(r.closed) {
		return id.Nil, fmt.Errorf("docflow/registry: closed index %d out of range [0, %d)", idx, len(r.closed))
	}
	return r.closed[idx].Address(), nil
}

// USN changes whenever an instance is created or concluded.
func (r *Registry) USN() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return uint64(len(r.closed))<<32 | uint64(len(r.nodes))
}

// Lookup returns the instance at addr, open or closed.
func (r *Registry) Lookup(addr id.WorkflowID) (*workflow.Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.byAddr[addr.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", docflow.ErrWorkflowNotFound, addr)
	}
	return inst, nil
}

// Get returns the open instance with id seq.
func (r *Registry) Get(seq uint64) (*workflow.Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.liveLocked(seq)
}

// Open walks the open list from head to tail.
func (r *Registry) Open() []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]uint64, 0, r.open)
	for cur := r.first; cur != 0; cur = r.nodes[cur].next {
		out = append(out, cur)
	}
	return out
}
