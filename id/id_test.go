package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/docflow/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"SchemaID", id.NewSchemaID, "schema_"},
		{"WorkflowID", id.NewWorkflowID, "wf_"},
		{"RegistryID", id.NewRegistryID, "reg_"},
		{"UserID", id.NewUserID, "usr_"},
		{"TxID", id.NewTxID, "tx_"},
		{"EventID", id.NewEventID, "evt_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"SchemaID", id.NewSchemaID, id.ParseSchemaID},
		{"WorkflowID", id.NewWorkflowID, id.ParseWorkflowID},
		{"RegistryID", id.NewRegistryID, id.ParseRegistryID},
		{"UserID", id.NewUserID, id.ParseUserID},
		{"TxID", id.NewTxID, id.ParseTxID},
		{"EventID", id.NewEventID, id.ParseEventID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if !parsed.Equal(original) {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		parseFn func(string) (id.ID, error)
	}{
		{"ParseSchemaID rejects wf_", id.NewWorkflowID().String(), id.ParseSchemaID},
		{"ParseWorkflowID rejects usr_", id.NewUserID().String(), id.ParseWorkflowID},
		{"ParseRegistryID rejects wf_", id.NewWorkflowID().String(), id.ParseRegistryID},
		{"ParseUserID rejects tx_", id.NewTxID().String(), id.ParseUserID},
		{"ParseTxID rejects evt_", id.NewEventID().String(), id.ParseTxID},
		{"ParseEventID rejects schema_", id.NewSchemaID().String(), id.ParseEventID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.parseFn(tt.input); err == nil {
				t.Errorf("expected error for cross-type parse of %q, got nil", tt.input)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
	if !i.Equal(id.Nil) {
		t.Error("zero-value ID should equal Nil")
	}
	if i.Equal(id.NewUserID()) {
		t.Error("Nil should not equal a generated ID")
	}
}

func TestMarshalUnmarshalText(t *testing.T) {
	original := id.NewWorkflowID()
	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}

	var restored id.ID
	if err := restored.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if !restored.Equal(original) {
		t.Errorf("mismatch: %q != %q", restored.String(), original.String())
	}

	var nilID id.ID
	data, err = nilID.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText(nil) failed: %v", err)
	}
	var restored2 id.ID
	if err := restored2.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText(nil) failed: %v", err)
	}
	if !restored2.IsNil() {
		t.Error("expected nil after round-trip of nil ID")
	}
}

func TestValueScan(t *testing.T) {
	original := id.NewSchemaID()
	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned id.ID
	if err := scanned.Scan(val); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if !scanned.Equal(original) {
		t.Errorf("mismatch: %q != %q", scanned.String(), original.String())
	}

	nilVal, err := id.Nil.Value()
	if err != nil {
		t.Fatalf("Value(nil) failed: %v", err)
	}
	if nilVal != nil {
		t.Errorf("expected nil driver value, got %v", nilVal)
	}

	var fromNil id.ID
	if err := fromNil.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) failed: %v", err)
	}
	if !fromNil.IsNil() {
		t.Error("expected nil after Scan(nil)")
	}

	if err := fromNil.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}
