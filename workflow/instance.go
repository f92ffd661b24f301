// Package workflow implements workflow instances: one running document
// set bound to a state schema and a fixed list of document-type rules.
//
// An instance moves UNINIT → RUNNING → {COMPLETE, ABORTED} through five
// lifecycle calls. Every call carries the expected USN (the current
// history length) and either succeeds completely or leaves the instance
// untouched. Reaching a terminal mode concludes the instance with its
// registry in the same call.
package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/schema"
)

// Authorizer answers right lookups for an instance. *schema.Schema
// implements it.
type Authorizer interface {
	ID() id.SchemaID
	HasRight(state, target schema.State, user id.UserID, right schema.Right) (bool, error)
}

// Tracker is told when an instance reaches a terminal mode. The registry
// implements it. A Conclude error aborts the lifecycle call.
type Tracker interface {
	Conclude(ctx context.Context, seq uint64, mode Mode) error
}

// Summary is a point-in-time view of an instance.
type Summary struct {
	Address id.WorkflowID `json:"address"`
	Seq     uint64        `json:"seq"`
	Schema  id.SchemaID   `json:"schema"`
	State   schema.State  `json:"state"`
	Mode    Mode          `json:"mode"`
	USN     int           `json:"usn"`
}

// Instance is a workflow instance. Reads are safe alongside a single
// writer.
type Instance struct {
	mu       sync.RWMutex
	addr     id.WorkflowID
	seq      uint64
	schema   Authorizer
	tracker  Tracker
	docTypes []DocType
	docs     docSet
	latest   map[DocID]Hash
	state    schema.State
	mode     Mode
	history  []HistoryEntry
}

// New creates an instance in UNINIT at state 0. seq is the registry id
// the tracker knows the instance by.
func New(seq uint64, sch Authorizer, tracker Tracker, docTypes []DocType) (*Instance, error) {
	if sch == nil {
		return nil, docflow.ErrInvalidSE
	}
	if tracker == nil {
		return nil, docflow.ErrInvalidWFM
	}
	if len(docTypes) == 0 {
		return nil, docflow.ErrEmptyDocSet
	}

	types := make([]DocType, len(docTypes))
	copy(types, docTypes)

	return &Instance{
		addr:     id.NewWorkflowID(),
		seq:      seq,
		schema:   sch,
		tracker:  tracker,
		docTypes: types,
		docs:     newDocSet(len(types)),
		latest:   make(map[DocID]Hash),
	}, nil
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// DoInit leaves state 0 for next with the initial document set.
func (w *Instance) DoInit(_ context.Context, caller id.UserID, usn int, next schema.State, ids []DocID, content []Hash) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkUSN(usn); err != nil {
		return err
	}
	if w.mode != ModeUninit {
		return docflow.ErrNotUninit
	}
	if err := w.checkRight(0, next, caller, schema.Init); err != nil {
		return err
	}
	staged, err := w.stage(nil, ids, content)
	if err != nil {
		return err
	}

	w.commitDocs(staged, ids, content)
	w.history = append(w.history, HistoryEntry{
		User:    caller,
		Action:  schema.Init,
		State:   next,
		Added:   append([]DocID(nil), ids...),
		Content: append([]Hash(nil), content...),
	})
	w.state = next
	w.mode = ModeRunning
	return nil
}

// DoApprove moves the instance to next without touching documents.
func (w *Instance) DoApprove(_ context.Context, caller id.UserID, usn int, next schema.State) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkUSN(usn); err != nil {
		return err
	}
	if err := w.checkRight(w.state, next, caller, schema.Approve); err != nil {
		return err
	}
	if w.mode != ModeRunning {
		return docflow.ErrNotRunning
	}

	w.history = append(w.history, HistoryEntry{User: caller, Action: schema.Approve, State: next})
	w.state = next
	return nil
}

// DoReview edits the document set in place: removals first, then
// additions. Adding an id that is already live replaces its hash.
func (w *Instance) DoReview(_ context.Context, caller id.UserID, usn int, removed, added []DocID, content []Hash) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkUSN(usn); err != nil {
		return err
	}
	if err := w.checkRight(w.state, w.state, caller, schema.Review); err != nil {
		return err
	}
	if w.mode != ModeRunning {
		return docflow.ErrNotRunning
	}
	if len(removed) == 0 && len(added) == 0 {
		return docflow.ErrEmptyReview
	}
	staged, err := w.stage(removed, added, content)
	if err != nil {
		return err
	}

	w.commitDocs(staged, added, content)
	w.history = append(w.history, HistoryEntry{
		User:    caller,
		Action:  schema.Review,
		State:   w.state,
		Removed: append([]DocID(nil), removed...),
		Added:   append([]DocID(nil), added...),
		Content: append([]Hash(nil), content...),
	})
	return nil
}

// DoSignoff completes the instance at next.
func (w *Instance) DoSignoff(ctx context.Context, caller id.UserID, usn int, next schema.State) error {
	return w.conclude(ctx, caller, usn, next, schema.Signoff, ModeComplete)
}

// DoAbort aborts the instance at next.
func (w *Instance) DoAbort(ctx context.Context, caller id.UserID, usn int, next schema.State) error {
	return w.conclude(ctx, caller, usn, next, schema.Abort, ModeAborted)
}

func (w *Instance) conclude(ctx context.Context, caller id.UserID, usn int, next schema.State, right schema.Right, mode Mode) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkUSN(usn); err != nil {
		return err
	}
	if err := w.checkRight(w.state, next, caller, right); err != nil {
		return err
	}
	if w.mode != ModeRunning {
		return docflow.ErrNotRunning
	}

	// Nothing local has changed yet, so a tracker failure needs no undo.
	if err := w.tracker.Conclude(ctx, w.seq, mode); err != nil {
		return fmt.Errorf("docflow/workflow: conclude %d: %w", w.seq, err)
	}

	w.history = append(w.history, HistoryEntry{User: caller, Action: right, State: next})
	w.state = next
	w.mode = mode
	return nil
}

func (w *Instance) checkUSN(usn int) error {
	if usn != len(w.history) {
		return fmt.Errorf("%w: got %d, want %d", docflow.ErrWrongUSN, usn, len(w.history))
	}
	return nil
}

func (w *Instance) checkRight(from, to schema.State, caller id.UserID, right schema.Right) error {
	ok, err := w.schema.HasRight(from, to, caller, right)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w %d", docflow.ErrCannotCross, to)
	}
	return nil
}

// stage applies removals and additions to a copy of the live set and
// checks the cardinality rules against the result.
func (w *Instance) stage(removed, added []DocID, content []Hash) (docSet, error) {
	if len(added) != len(content) {
		return docSet{}, docflow.ErrSkewedInput
	}

	staged := w.docs.clone()
	for _, d := range removed {
		if !staged.remove(d) {
			return docSet{}, fmt.Errorf("%w: %s", docflow.ErrDocNotFound, d)
		}
	}

	seen := make(map[DocID]struct{}, len(added))
	for i, d := range added {
		t := d.Type()
		if int(t) >= len(w.docTypes) {
			return docSet{}, fmt.Errorf("%w: %d", docflow.ErrInvalidDocType, t)
		}
		if content[i].IsZero() {
			return docSet{}, fmt.Errorf("%w: %s", docflow.ErrInvalidDocHash, d)
		}
		if _, dup := seen[d]; dup {
			return docSet{}, fmt.Errorf("%w: %s", docflow.ErrRepeatedDocID, d)
		}
		seen[d] = struct{}{}
		if staged.add(d) && staged.counts[t] > w.docTypes[t].Hi {
			return docSet{}, fmt.Errorf("%w: type %d", docflow.ErrDocTypeLimit, t)
		}
	}

	for t, rule := range w.docTypes {
		n := staged.counts[t]
		if (rule.Required() || n > 0) && (n < rule.Lo || n > rule.Hi) {
			return docSet{}, fmt.Errorf("%w: type %d has %d, want [%d, %d]", docflow.ErrMissingDoc, t, n, rule.Lo, rule.Hi)
		}
	}
	return staged, nil
}

func (w *Instance) commitDocs(staged docSet, added []DocID, content []Hash) {
	w.docs = staged
	for i, d := range added {
		w.latest[d] = content[i]
	}
}

// ──────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────

// Address returns the instance address.
func (w *Instance) Address() id.WorkflowID { return w.addr }

// Seq returns the registry id of the instance.
func (w *Instance) Seq() uint64 { return w.seq }

// Schema returns the address of the governing schema.
func (w *Instance) Schema() id.SchemaID { return w.schema.ID() }

// State returns the current state.
func (w *Instance) State() schema.State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Mode returns the current mode.
func (w *Instance) Mode() Mode {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.mode
}

// TotalDocTypes returns the number of document types.
func (w *Instance) TotalDocTypes() int { return len(w.docTypes) }

// DocTypeInfo returns the rule for docType and its live count.
func (w *Instance) DocTypeInfo(docType uint32) (DocTypeInfo, error) {
	if int(docType) >= len(w.docTypes) {
		return DocTypeInfo{}, fmt.Errorf("%w: %d", docflow.ErrInvalidDocType, docType)
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return DocTypeInfo{DocType: w.docTypes[docType], Count: w.docs.counts[docType]}, nil
}

// TotalHistory returns the history length, which is the next USN.
func (w *Instance) TotalHistory() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.history)
}

// HistoryAt returns the entry recorded at usn.
func (w *Instance) HistoryAt(usn int) (HistoryEntry, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if usn < 0 || usn >= len(w.history) {
		return HistoryEntry{}, fmt.Errorf("workflow: history index %d out of range [0, %d)", usn, len(w.history))
	}
	return w.history[usn].clone(), nil
}

// History returns a copy of the full history.
func (w *Instance) History() []HistoryEntry {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]HistoryEntry, len(w.history))
	for i, e := range w.history {
		out[i] = e.clone()
	}
	return out
}

// LatestHash returns the last hash recorded for doc. Entries survive the
// document's removal; the zero hash means the id was never added.
func (w *Instance) LatestHash(doc DocID) Hash {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.latest[doc]
}

// LiveDocuments returns the materialized live set with latest hashes.
func (w *Instance) LiveDocuments() map[DocID]Hash {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[DocID]Hash, len(w.docs.live))
	for d := range w.docs.live {
		out[d] = w.latest[d]
	}
	return out
}

// Summary returns a consistent snapshot of the instance position.
func (w *Instance) Summary() Summary {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return Summary{
		Address: w.addr,
		Seq:     w.seq,
		Schema:  w.schema.ID(),
		State:   w.state,
		Mode:    w.mode,
		USN:     len(w.history),
	}
}
