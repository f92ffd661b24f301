package schema_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/schema"
)

func TestParseDefinition(t *testing.T) {
	user := id.NewUserID()
	doc := fmt.Sprintf(`
name: purchase-order
states:
  - name: draft
    edges: [1]
  - name: review
    edges: [1, 2]
  - name: done
rights:
  - {state: 0, edge: 0, user: %[1]s, right: init}
  - {state: 1, edge: 0, user: %[1]s, right: review}
  - {state: 1, edge: 1, user: %[1]s, right: signoff}
`, user)

	def, err := schema.ParseDefinition([]byte(doc))
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}
	if def.Name != "purchase-order" {
		t.Errorf("Name = %q", def.Name)
	}
	if len(def.States) != 3 || len(def.Rights) != 3 {
		t.Fatalf("got %d states, %d rights", len(def.States), len(def.Rights))
	}
	if def.Rights[2].Right != schema.Signoff {
		t.Errorf("Rights[2].Right = %v, want signoff", def.Rights[2].Right)
	}

	owner := id.NewUserID()
	s, err := def.Build(owner)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !s.Finalized() {
		t.Fatal("built schema should be finalized")
	}
	ok, err := s.HasRight(1, 2, user, schema.Signoff)
	if err != nil || !ok {
		t.Fatalf("HasRight(1,2,signoff) = %v, %v", ok, err)
	}
}

func TestParseDefinitionRejects(t *testing.T) {
	user := id.NewUserID()
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{
			name: "edge to zero",
			doc:  "states:\n  - edges: [1]\n  - edges: [0]\n",
			want: docflow.ErrEdgeToZero,
		},
		{
			name: "broken edge",
			doc:  "states:\n  - edges: [3]\n",
			want: docflow.ErrEdgeBroken,
		},
		{
			name: "wrong right",
			doc:  fmt.Sprintf("states:\n  - edges: [1]\n  - edges: []\nrights:\n  - {state: 0, edge: 0, user: %s, right: approve}\n", user),
			want: docflow.ErrRightNotAllowed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := schema.ParseDefinition([]byte(tt.doc)); !errors.Is(err, tt.want) {
				t.Fatalf("ParseDefinition = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := schema.ParseDefinition([]byte("states: []\n")); err == nil {
		t.Error("expected error for empty definition")
	}
	if _, err := schema.ParseDefinition([]byte("states:\n  - edges: [1]\n  - {}\nrights:\n  - {state: 0, edge: 0, user: bob, right: init}\n")); err == nil {
		t.Error("expected error for bad user id")
	}
	if _, err := schema.ParseDefinition([]byte("rights:\n  - {right: delegate}\n")); err == nil {
		t.Error("expected error for unknown right name")
	}
}
