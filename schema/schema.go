// Package schema defines the reusable state machine that governs workflow
// instances: states, edges between them, and the users authorized to cross
// each edge.
//
// A Schema is built in two phases. While Building, states may be appended
// but no rights exist. Finalize checks every edge and locks the topology;
// afterwards rights may be granted and revoked but no state may be added.
// All mutations require the ContractAdmin role of the embedded access
// control.
package schema

import (
	"fmt"
	"sync"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/access"
	"github.com/xraph/docflow/id"
)

// Entry is a single (user, right) authorization on an edge.
type Entry struct {
	User  id.UserID `json:"user"`
	Right Right     `json:"right"`
}

type edge struct {
	target  State
	entries []Entry
}

// kind is the right shared by every entry on the edge. Only meaningful
// when the edge has entries.
func (e *edge) kind() Right { return e.entries[0].Right }

func (e *edge) find(user id.UserID, right Right) int {
	for i, en := range e.entries {
		if en.Right == right && en.User.Equal(user) {
			return i
		}
	}
	return -1
}

// Schema is a state schema. Reads are safe alongside a single writer.
type Schema struct {
	*access.Control

	mu        sync.RWMutex
	addr      id.SchemaID
	states    [][]*edge
	finalized bool
	usn       uint64
}

// New creates an empty schema in the Building phase. owner receives
// RootAdmin and must grant ContractAdmin before mutating the schema.
func New(owner id.UserID) *Schema {
	return &Schema{
		Control: access.New(owner),
		addr:    id.NewSchemaID(),
	}
}

// ID returns the schema address.
func (s *Schema) ID() id.SchemaID { return s.addr }

func (s *Schema) authorize(caller id.UserID) error {
	if !s.HasRole(access.ContractAdmin, caller) {
		return docflow.ErrUnauthorized
	}
	return nil
}

// AddState appends a state with the given outgoing edge targets and
// returns its index. Targets may name states that do not exist yet;
// Finalize checks them.
func (s *Schema) AddState(caller id.UserID, targets []State) (State, error) {
	if err := s.authorize(caller); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalized {
		return 0, docflow.ErrFinal
	}

	edges := make([]*edge, len(targets))
	for i, t := range targets {
		edges[i] = &edge{target: t}
	}
	s.states = append(s.states, edges)
	s.usn++
	return State(len(s.states) - 1), nil
}

// Finalize locks the topology. Every edge must target an existing state
// other than state 0.
func (s *Schema) Finalize(caller id.UserID) error {
	if err := s.authorize(caller); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalized {
		return docflow.ErrFinal
	}

	total := State(len(s.states))
	for src, edges := range s.states {
		for i, e := range edges {
			if e.target >= total {
				return fmt.Errorf("%w: state %d edge %d targets %d", docflow.ErrEdgeBroken, src, i, e.target)
			}
			if e.target == 0 {
				return fmt.Errorf("%w: state %d edge %d", docflow.ErrEdgeToZero, src, i)
			}
		}
	}

	s.finalized = true
	s.usn++
	return nil
}

// lookupEdge requires s.mu to be held.
func (s *Schema) lookupEdge(state State, idx int) (*edge, error) {
	if int(state) >= len(s.states) {
		return nil, fmt.Errorf("%w: %d", docflow.ErrStateNotFound, state)
	}
	edges := s.states[state]
	if idx < 0 || idx >= len(edges) {
		return nil, fmt.Errorf("%w: state %d edge %d", docflow.ErrEdgeNotFound, state, idx)
	}
	return edges[idx], nil
}

// kindOf requires s.mu to be held.
func (s *Schema) kindOf(source State, e *edge) EdgeKind {
	return Classify(source, e.target, len(s.states[e.target]))
}

// AddRight grants user the right on edge idx of state. Every entry on an
// edge shares one right; the first grant fixes it until all entries are
// removed. Granting an existing entry is a no-op.
func (s *Schema) AddRight(caller id.UserID, state State, idx int, user id.UserID, right Right) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.finalized {
		return docflow.ErrNotFinal
	}
	if err := s.authorize(caller); err != nil {
		return err
	}
	e, err := s.lookupEdge(state, idx)
	if err != nil {
		return err
	}
	if !right.Valid() || !s.kindOf(state, e).Allows(right) {
		return fmt.Errorf("%w: %s on state %d edge %d", docflow.ErrRightNotAllowed, right, state, idx)
	}
	if len(e.entries) > 0 && e.kind() != right {
		return fmt.Errorf("%w: edge holds %s", docflow.ErrRightChange, e.kind())
	}
	if e.find(user, right) >= 0 {
		return nil
	}

	e.entries = append(e.entries, Entry{User: user, Right: right})
	s.usn++
	return nil
}

// RemoveRight revokes the entry (user, right) from edge idx of state.
func (s *Schema) RemoveRight(caller id.UserID, state State, idx int, user id.UserID, right Right) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.finalized {
		return docflow.ErrNotFinal
	}
	if err := s.authorize(caller); err != nil {
		return err
	}
	e, err := s.lookupEdge(state, idx)
	if err != nil {
		return err
	}
	if !right.Valid() || !s.kindOf(state, e).Allows(right) {
		return fmt.Errorf("%w: %s on state %d edge %d", docflow.ErrRightNotAllowed, right, state, idx)
	}
	pos := e.find(user, right)
	if pos < 0 {
		return docflow.ErrNoSuchRight
	}

	e.entries = append(e.entries[:pos], e.entries[pos+1:]...)
	s.usn++
	return nil
}

// HasRight reports whether some edge from state to target carries the
// entry (user, right).
func (s *Schema) HasRight(state, target State, user id.UserID, right Right) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := State(len(s.states))
	if state >= total {
		return false, fmt.Errorf("%w: %d", docflow.ErrStateNotFound, state)
	}
	if target >= total {
		return false, fmt.Errorf("%w: %d", docflow.ErrStateNotFound, target)
	}
	for _, e := range s.states[state] {
		if e.target == target && e.find(user, right) >= 0 {
			return true, nil
		}
	}
	return false, nil
}

// ──────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────

// TotalStates returns the number of states.
func (s *Schema) TotalStates() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

// TotalEdges returns the number of outgoing edges of state.
func (s *Schema) TotalEdges(state State) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(state) >= len(s.states) {
		return 0, fmt.Errorf("%w: %d", docflow.ErrStateNotFound, state)
	}
	return len(s.states[state]), nil
}

// EdgeTarget returns the target state of edge idx of state.
func (s *Schema) EdgeTarget(state State, idx int) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.lookupEdge(state, idx)
	if err != nil {
		return 0, err
	}
	return e.target, nil
}

// EdgeKind returns the kind of rights edge idx of state may carry.
func (s *Schema) EdgeKind(state State, idx int) (EdgeKind, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.lookupEdge(state, idx)
	if err != nil {
		return 0, err
	}
	if int(e.target) >= len(s.states) {
		return 0, fmt.Errorf("%w: %d", docflow.ErrEdgeBroken, e.target)
	}
	return s.kindOf(state, e), nil
}

// TotalRights returns the number of entries on edge idx of state.
func (s *Schema) TotalRights(state State, idx int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.lookupEdge(state, idx)
	if err != nil {
		return 0, err
	}
	return len(e.entries), nil
}

// RightAt returns entry n of edge idx of state.
func (s *Schema) RightAt(state State, idx, n int) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.lookupEdge(state, idx)
	if err != nil {
		return Entry{}, err
	}
	if n < 0 || n >= len(e.entries) {
		return Entry{}, fmt.Errorf("%w: state %d edge %d entry %d", docflow.ErrNoSuchRight, state, idx, n)
	}
	return e.entries[n], nil
}

// Finalized reports whether the schema is locked.
func (s *Schema) Finalized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.finalized
}

// USN counts successful mutations of states and rights.
func (s *Schema) USN() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usn
}
