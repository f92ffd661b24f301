package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/xraph/docflow/access"
	"github.com/xraph/docflow/id"
)

// Definition is a declarative schema: its states in order, then the rights
// to grant once the topology is locked.
//
//	name: purchase-order
//	states:
//	  - name: draft
//	    edges: [1]
//	  - name: review
//	    edges: [1, 2]
//	  - name: done
//	rights:
//	  - {state: 0, edge: 0, user: usr_01h..., right: init}
type Definition struct {
	Name   string     `yaml:"name"`
	States []StateDef `yaml:"states"`
	Rights []RightDef `yaml:"rights"`
}

// StateDef declares one state and the targets of its outgoing edges.
type StateDef struct {
	Name  string  `yaml:"name"`
	Edges []State `yaml:"edges"`
}

// RightDef declares one right entry.
type RightDef struct {
	State State  `yaml:"state"`
	Edge  int    `yaml:"edge"`
	User  string `yaml:"user"`
	Right Right  `yaml:"right"`
}

// UserID parses the declared user.
func (r RightDef) UserID() (id.UserID, error) {
	return id.ParseUserID(r.User)
}

// ParseDefinition decodes a YAML schema definition and validates it.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("docflow/schema: parse definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate builds the definition into a scratch schema so that it is held
// to exactly the checks a live schema applies.
func (d *Definition) Validate() error {
	_, err := d.Build(id.NewUserID())
	return err
}

// Build creates a finalized schema from the definition. owner receives
// both RootAdmin and ContractAdmin.
func (d *Definition) Build(owner id.UserID) (*Schema, error) {
	if len(d.States) == 0 {
		return nil, fmt.Errorf("docflow/schema: definition %q declares no states", d.Name)
	}

	s := New(owner)
	if err := s.Grant(owner, access.ContractAdmin, owner); err != nil {
		return nil, err
	}
	for i, st := range d.States {
		if _, err := s.AddState(owner, st.Edges); err != nil {
			return nil, fmt.Errorf("docflow/schema: definition %q state %d: %w", d.Name, i, err)
		}
	}
	if err := s.Finalize(owner); err != nil {
		return nil, fmt.Errorf("docflow/schema: definition %q: %w", d.Name, err)
	}
	for i, r := range d.Rights {
		user, err := r.UserID()
		if err != nil {
			return nil, fmt.Errorf("docflow/schema: definition %q right %d: %w", d.Name, i, err)
		}
		if err := s.AddRight(owner, r.State, r.Edge, user, r.Right); err != nil {
			return nil, fmt.Errorf("docflow/schema: definition %q right %d: %w", d.Name, i, err)
		}
	}
	return s, nil
}
