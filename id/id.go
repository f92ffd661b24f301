// Package id defines TypeID-based identity types for all docflow entities.
//
// Schemas, workflow instances, registries, users, transactions and events share a single
// ID struct whose prefix identifies the entity type. IDs are K-sortable
// (UUIDv7-based), globally unique, and URL-safe in the format "prefix_suffix".
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefix constants for all docflow entity types.
const (
	PrefixSchema   Prefix = "schema"
	PrefixWorkflow Prefix = "wf"
	PrefixRegistry Prefix = "reg"
	PrefixUser     Prefix = "usr"
	PrefixTx       Prefix = "tx"
	PrefixEvent    Prefix = "evt"
)

// ID is the primary identifier type for all docflow entities.
// It doubles as an address: a schema or workflow instance is reachable
// through its ID, and a user's ID is its caller identity.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID. It is the null schema handle and the null user.
var Nil ID

// New generates a new globally unique ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string (e.g., "wf_01h2xcejqtf2nbrexx3vqjhp41")
// into an ID.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses a TypeID string and validates that its prefix
// matches the expected value.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}

	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}

	return parsed, nil
}

// MustParse is like Parse but panics on error. Use for hardcoded ID values.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}

	return parsed
}

// ──────────────────────────────────────────────────
// Type aliases
// ──────────────────────────────────────────────────

// SchemaID addresses a state schema (prefix: "schema").
type SchemaID = ID

// WorkflowID addresses a workflow instance (prefix: "wf").
type WorkflowID = ID

// RegistryID addresses a workflow registry (prefix: "reg").
type RegistryID = ID

// UserID identifies a caller (prefix: "usr").
type UserID = ID

// TxID identifies a submitted call (prefix: "tx").
type TxID = ID

// EventID identifies a registry event (prefix: "evt").
type EventID = ID

// ──────────────────────────────────────────────────
// Convenience constructors
// ──────────────────────────────────────────────────

// NewSchemaID generates a new unique schema address.
func NewSchemaID() ID { return New(PrefixSchema) }

// NewWorkflowID generates a new unique workflow instance address.
func NewWorkflowID() ID { return New(PrefixWorkflow) }

// NewRegistryID generates a new unique registry address.
func NewRegistryID() ID { return New(PrefixRegistry) }

// NewUserID generates a new unique user identity.
func NewUserID() ID { return New(PrefixUser) }

// NewTxID generates a new unique transaction ID.
func NewTxID() ID { return New(PrefixTx) }

// NewEventID generates a new unique event ID.
func NewEventID() ID { return New(PrefixEvent) }

// ──────────────────────────────────────────────────
// Convenience parsers
// ──────────────────────────────────────────────────

// ParseSchemaID parses a string and validates the "schema" prefix.
func ParseSchemaID(s string) (ID, error) { return ParseWithPrefix(s, PrefixSchema) }

// ParseWorkflowID parses a string and validates the "wf" prefix.
func ParseWorkflowID(s string) (ID, error) { return ParseWithPrefix(s, PrefixWorkflow) }

// ParseRegistryID parses a string and validates the "reg" prefix.
func ParseRegistryID(s string) (ID, error) { return ParseWithPrefix(s, PrefixRegistry) }

// ParseUserID parses a string and validates the "usr" prefix.
func ParseUserID(s string) (ID, error) { return ParseWithPrefix(s, PrefixUser) }

// ParseTxID parses a string and validates the "tx" prefix.
func ParseTxID(s string) (ID, error) { return ParseWithPrefix(s, PrefixTx) }

// ParseEventID parses a string and validates the "evt" prefix.
func ParseEventID(s string) (ID, error) { return ParseWithPrefix(s, PrefixEvent) }

// ──────────────────────────────────────────────────
// ID methods
// ──────────────────────────────────────────────────

// String returns the full TypeID string representation (prefix_suffix).
// Returns an empty string for the Nil ID.
func (i ID) String() string {
	if !i.valid {
		return ""
	}

	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}

	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// Equal reports whether two IDs name the same entity.
func (i ID) Equal(other ID) bool {
	return i.String() == other.String()
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}

	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil

		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*i = parsed

	return nil
}

// Value implements driver.Valuer for database storage.
// Returns nil for the Nil ID so that optional columns store NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}

	return i.inner.String(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (i *ID) Scan(src any) error {
	if src == nil {
		*i = Nil

		return nil
	}

	switch v := src.(type) {
	case string:
		if v == "" {
			*i = Nil

			return nil
		}

		return i.UnmarshalText([]byte(v))
	case []byte:
		if len(v) == 0 {
			*i = Nil

			return nil
		}

		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}
