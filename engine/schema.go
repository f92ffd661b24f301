package engine

import (
	"context"
	"fmt"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/access"
	"github.com/xraph/docflow/ext"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/schema"
	"github.com/xraph/docflow/tx"
)

// ──────────────────────────────────────────────────
// Schema lifecycle
// ──────────────────────────────────────────────────

// DeploySchema creates an empty schema with caller as its RootAdmin.
func (eng *Engine) DeploySchema(ctx context.Context, caller id.UserID) (*schema.Schema, *tx.Receipt, error) {
	s := schema.New(caller)
	rcpt, err := eng.submit(ctx, "deploySchema", caller, s.ID(), 0, func(context.Context) error {
		eng.register(s)
		return nil
	})
	if err != nil {
		return nil, rcpt, err
	}
	eng.extensions.EmitSchemaDeployed(ctx, s)
	return s, rcpt, nil
}

// ApplyDefinition builds and deploys a finalized schema from a YAML
// definition. caller becomes both RootAdmin and ContractAdmin of it. A
// definition that does not parse or build is rejected before submission.
func (eng *Engine) ApplyDefinition(ctx context.Context, caller id.UserID, data []byte) (*schema.Schema, *tx.Receipt, error) {
	def, err := schema.ParseDefinition(data)
	if err != nil {
		return nil, nil, err
	}
	s, err := def.Build(caller)
	if err != nil {
		return nil, nil, err
	}

	items := len(def.States) + len(def.Rights)
	rcpt, err := eng.submit(ctx, "applyDefinition", caller, s.ID(), items, func(context.Context) error {
		eng.register(s)
		return nil
	})
	if err != nil {
		return nil, rcpt, err
	}
	eng.extensions.EmitSchemaDeployed(ctx, s)
	eng.extensions.EmitSchemaFinalized(ctx, s)
	return s, rcpt, nil
}

func (eng *Engine) register(s *schema.Schema) {
	eng.mu.Lock()
	eng.schemas[s.ID().String()] = s
	eng.mu.Unlock()
}

// AddState appends a state whose edges lead to targets.
func (eng *Engine) AddState(ctx context.Context, caller id.UserID, addr id.SchemaID, targets []schema.State) (schema.State, *tx.Receipt, error) {
	s, err := eng.Schema(addr)
	if err != nil {
		return 0, nil, err
	}
	var state schema.State
	rcpt, err := eng.submit(ctx, "addState", caller, addr, len(targets), func(context.Context) error {
		var addErr error
		state, addErr = s.AddState(caller, targets)
		return addErr
	})
	return state, rcpt, err
}

// Finalize locks the topology of the schema at addr.
func (eng *Engine) Finalize(ctx context.Context, caller id.UserID, addr id.SchemaID) (*tx.Receipt, error) {
	s, err := eng.Schema(addr)
	if err != nil {
		return nil, err
	}
	rcpt, err := eng.submit(ctx, "finalize", caller, addr, 0, func(context.Context) error {
		return s.Finalize(caller)
	})
	if err != nil {
		return rcpt, err
	}
	eng.extensions.EmitSchemaFinalized(ctx, s)
	return rcpt, nil
}

// AddRight grants user the given right on edge idx of state.
func (eng *Engine) AddRight(ctx context.Context, caller id.UserID, addr id.SchemaID, state schema.State, idx int, user id.UserID, right schema.Right) (*tx.Receipt, error) {
	return eng.changeRight(ctx, "addRight", caller, addr, ext.RightChange{
		State: state, Edge: idx, User: user, Right: right, Granted: true,
	})
}

// RemoveRight revokes the given right of user on edge idx of state.
func (eng *Engine) RemoveRight(ctx context.Context, caller id.UserID, addr id.SchemaID, state schema.State, idx int, user id.UserID, right schema.Right) (*tx.Receipt, error) {
	return eng.changeRight(ctx, "removeRight", caller, addr, ext.RightChange{
		State: state, Edge: idx, User: user, Right: right,
	})
}

func (eng *Engine) changeRight(ctx context.Context, name string, caller id.UserID, addr id.SchemaID, c ext.RightChange) (*tx.Receipt, error) {
	s, err := eng.Schema(addr)
	if err != nil {
		return nil, err
	}
	rcpt, err := eng.submit(ctx, name, caller, addr, 1, func(context.Context) error {
		if c.Granted {
			return s.AddRight(caller, c.State, c.Edge, c.User, c.Right)
		}
		return s.RemoveRight(caller, c.State, c.Edge, c.User, c.Right)
	})
	if err != nil {
		return rcpt, err
	}
	eng.extensions.EmitRightChanged(ctx, s, c)
	return rcpt, nil
}

// ──────────────────────────────────────────────────
// Roles
// ──────────────────────────────────────────────────

// control resolves target to the access control of the registry or of a
// deployed schema.
func (eng *Engine) control(target id.ID) (*access.Control, error) {
	if target.Equal(eng.registry.Address()) {
		return eng.registry.Control, nil
	}
	if target.Prefix() != id.PrefixSchema {
		return nil, fmt.Errorf("%w: %s has no roles", docflow.ErrSchemaNotFound, target)
	}
	s, err := eng.Schema(target)
	if err != nil {
		return nil, err
	}
	return s.Control, nil
}

// Grant gives user role on target, the registry or a schema address.
func (eng *Engine) Grant(ctx context.Context, caller id.UserID, target id.ID, role access.Role, user id.UserID) (*tx.Receipt, error) {
	c, err := eng.control(target)
	if err != nil {
		return nil, err
	}
	return eng.submit(ctx, "grantRole", caller, target, 0, func(context.Context) error {
		return c.Grant(caller, role, user)
	})
}

// Revoke removes role from user on target.
func (eng *Engine) Revoke(ctx context.Context, caller id.UserID, target id.ID, role access.Role, user id.UserID) (*tx.Receipt, error) {
	c, err := eng.control(target)
	if err != nil {
		return nil, err
	}
	return eng.submit(ctx, "revokeRole", caller, target, 0, func(context.Context) error {
		return c.Revoke(caller, role, user)
	})
}

// Renounce drops role for the caller on target. user must be the caller.
func (eng *Engine) Renounce(ctx context.Context, caller id.UserID, target id.ID, role access.Role, user id.UserID) (*tx.Receipt, error) {
	c, err := eng.control(target)
	if err != nil {
		return nil, err
	}
	return eng.submit(ctx, "renounceRole", caller, target, 0, func(context.Context) error {
		return c.Renounce(caller, role, user)
	})
}
