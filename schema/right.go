package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// State is the index of a state in a schema. State 0 is the start.
type State uint32

// Right is the kind of authorization carried by a right entry.
type Right uint8

const (
	// Init authorizes leaving state 0.
	Init Right = iota
	// Approve authorizes an ordinary forward transition.
	Approve
	// Review authorizes editing documents without leaving the state.
	Review
	// Signoff authorizes completing the workflow.
	Signoff
	// Abort authorizes aborting the workflow.
	Abort
)

var rightNames = [...]string{"init", "approve", "review", "signoff", "abort"}

// Valid reports whether r is a known right.
func (r Right) Valid() bool { return int(r) < len(rightNames) }

// String returns the lowercase right name.
func (r Right) String() string {
	if !r.Valid() {
		return fmt.Sprintf("right(%d)", uint8(r))
	}
	return rightNames[r]
}

// ParseRight converts a right name into a Right.
func ParseRight(s string) (Right, error) {
	for i, name := range rightNames {
		if name == s {
			return Right(i), nil
		}
	}
	return 0, fmt.Errorf("docflow/schema: unknown right %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (r Right) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("docflow/schema: unknown right %d", uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Right) UnmarshalText(data []byte) error {
	parsed, err := ParseRight(string(data))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *Right) UnmarshalYAML(value *yaml.Node) error {
	return r.UnmarshalText([]byte(value.Value))
}

// EdgeKind is the class of rights an edge may carry, derived from the
// schema topology alone.
type EdgeKind uint8

const (
	// InitOnly edges leave state 0.
	InitOnly EdgeKind = iota + 1
	// ApproveOnly edges connect two distinct non-terminal states.
	ApproveOnly
	// ReviewOnly edges loop back to their source.
	ReviewOnly
	// SignoffOrAbort edges enter a terminal state.
	SignoffOrAbort
)

// String returns the kind name.
func (k EdgeKind) String() string {
	switch k {
	case InitOnly:
		return "init_only"
	case ApproveOnly:
		return "approve_only"
	case ReviewOnly:
		return "review_only"
	case SignoffOrAbort:
		return "signoff_or_abort"
	default:
		return fmt.Sprintf("edge_kind(%d)", uint8(k))
	}
}

// Classify returns the kind of an edge from source to target, where
// targetEdges is the number of outgoing edges of target.
func Classify(source, target State, targetEdges int) EdgeKind {
	switch {
	case source == 0:
		return InitOnly
	case source == target:
		return ReviewOnly
	case targetEdges == 0:
		return SignoffOrAbort
	default:
		return ApproveOnly
	}
}

// Allows reports whether an edge of kind k may carry right r.
func (k EdgeKind) Allows(r Right) bool {
	switch k {
	case InitOnly:
		return r == Init
	case ApproveOnly:
		return r == Approve
	case ReviewOnly:
		return r == Review
	case SignoffOrAbort:
		return r == Signoff || r == Abort
	default:
		return false
	}
}
