// Package access implements the two-tier role registry shared by state
// schemas and the workflow registry.
//
// RootAdmin governs both roles. ContractAdmin authorizes the mutating
// operations of whatever component embeds the Control. Membership of each
// role is an enumerable set.
package access

import (
	"fmt"
	"sync"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/id"
)

// Role names a permission tier.
type Role uint8

const (
	// RootAdmin may grant and revoke every role.
	RootAdmin Role = iota
	// ContractAdmin may mutate the component that owns the Control.
	ContractAdmin
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RootAdmin:
		return "root_admin"
	case ContractAdmin:
		return "contract_admin"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r <= ContractAdmin }

// ParseRole converts a role name back into a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "root_admin":
		return RootAdmin, nil
	case "contract_admin":
		return ContractAdmin, nil
	default:
		return 0, fmt.Errorf("docflow/access: unknown role %q", s)
	}
}

type memberSet struct {
	order []id.UserID
	index map[string]int
}

func newMemberSet() *memberSet {
	return &memberSet{index: make(map[string]int)}
}

func (s *memberSet) has(u id.UserID) bool {
	_, ok := s.index[u.String()]
	return ok
}

func (s *memberSet) add(u id.UserID) bool {
	if s.has(u) {
		return false
	}
	s.index[u.String()] = len(s.order)
	s.order = append(s.order, u)
	return true
}

// remove swaps the last member into the freed slot.
func (s *memberSet) remove(u id.UserID) bool {
	i, ok := s.index[u.String()]
	if !ok {
		return false
	}
	last := len(s.order) - 1
	if i != last {
		moved := s.order[last]
		s.order[i] = moved
		s.index[moved.String()] = i
	}
	s.order = s.order[:last]
	delete(s.index, u.String())
	return true
}

// Control is a role registry. The zero value is not usable; create one
// with New.
type Control struct {
	mu    sync.RWMutex
	roles [2]*memberSet
}

// New returns a Control whose only member is owner, holding RootAdmin.
func New(owner id.UserID) *Control {
	c := &Control{roles: [2]*memberSet{newMemberSet(), newMemberSet()}}
	if !owner.IsNil() {
		c.roles[RootAdmin].add(owner)
	}
	return c
}

// AdminRole returns the role whose members may grant and revoke role.
func (c *Control) AdminRole(Role) Role { return RootAdmin }

// HasRole reports whether user holds role.
func (c *Control) HasRole(role Role, user id.UserID) bool {
	if !role.Valid() {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roles[role].has(user)
}

// Grant adds user to role. The caller must hold the admin role of role.
// Granting a role the user already holds is a no-op.
func (c *Control) Grant(caller id.UserID, role Role, user id.UserID) error {
	if !role.Valid() {
		return fmt.Errorf("docflow/access: grant %s: unknown role", role)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.roles[c.AdminRole(role)].has(caller) {
		return docflow.ErrCantGrant
	}
	c.roles[role].add(user)
	return nil
}

// Revoke removes user from role. The caller must hold the admin role of
// role. Revoking a role the user does not hold is a no-op.
func (c *Control) Revoke(caller id.UserID, role Role, user id.UserID) error {
	if !role.Valid() {
		return fmt.Errorf("docflow/access: revoke %s: unknown role", role)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.roles[c.AdminRole(role)].has(caller) {
		return docflow.ErrCantRevoke
	}
	c.roles[role].remove(user)
	return nil
}

// Renounce removes the caller's own membership of role.
func (c *Control) Renounce(caller id.UserID, role Role, user id.UserID) error {
	if !role.Valid() {
		return fmt.Errorf("docflow/access: renounce %s: unknown role", role)
	}
	if !caller.Equal(user) {
		return docflow.ErrCantRenounce
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roles[role].remove(user)
	return nil
}

// MemberCount returns the number of members holding role.
func (c *Control) MemberCount(role Role) int {
	if !role.Valid() {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.roles[role].order)
}

// MemberAt returns the idx-th member of role. Ordering is unspecified and
// may change when members are removed.
func (c *Control) MemberAt(role Role, idx int) (id.UserID, bool) {
	if !role.Valid() {
		return id.Nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	set := c.roles[role]
	if idx < 0 || idx >= len(set.order) {
		return id.Nil, false
	}
	return set.order[idx], true
}

// Members returns a copy of the members of role.
func (c *Control) Members(role Role) []id.UserID {
	if !role.Valid() {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]id.UserID, len(c.roles[role].order))
	copy(out, c.roles[role].order)
	return out
}
