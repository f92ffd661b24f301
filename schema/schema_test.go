package schema_test

import (
	"errors"
	"testing"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/access"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/schema"
)

// newAdminSchema returns a schema whose owner also holds ContractAdmin.
func newAdminSchema(t *testing.T) (*schema.Schema, id.UserID) {
	t.Helper()
	owner := id.NewUserID()
	s := schema.New(owner)
	if err := s.Grant(owner, access.ContractAdmin, owner); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	return s, owner
}

// buildSample builds S0→S1→S2→S3, S3→S1|S2|S3|S4|S5 with S4 and S5 terminal.
func buildSample(t *testing.T) (*schema.Schema, id.UserID) {
	t.Helper()
	s, owner := newAdminSchema(t)
	states := [][]schema.State{
		{1},
		{2},
		{3},
		{1, 2, 3, 4, 5},
		{},
		{},
	}
	for i, targets := range states {
		got, err := s.AddState(owner, targets)
		if err != nil {
			t.Fatalf("AddState(%d): %v", i, err)
		}
		if int(got) != i {
			t.Fatalf("AddState index = %d, want %d", got, i)
		}
	}
	if err := s.Finalize(owner); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return s, owner
}

func TestAddStateRequiresContractAdmin(t *testing.T) {
	owner := id.NewUserID()
	s := schema.New(owner)

	// RootAdmin alone is not enough.
	if _, err := s.AddState(owner, []schema.State{1}); !errors.Is(err, docflow.ErrUnauthorized) {
		t.Fatalf("AddState = %v, want ErrUnauthorized", err)
	}
	if err := s.Finalize(owner); !errors.Is(err, docflow.ErrUnauthorized) {
		t.Fatalf("Finalize = %v, want ErrUnauthorized", err)
	}
}

func TestFinalizeChecksEdges(t *testing.T) {
	t.Run("broken", func(t *testing.T) {
		s, owner := newAdminSchema(t)
		if _, err := s.AddState(owner, []schema.State{1}); err != nil {
			t.Fatalf("AddState: %v", err)
		}
		if _, err := s.AddState(owner, []schema.State{5}); err != nil {
			t.Fatalf("AddState: %v", err)
		}
		if err := s.Finalize(owner); !errors.Is(err, docflow.ErrEdgeBroken) {
			t.Fatalf("Finalize = %v, want ErrEdgeBroken", err)
		}
		if s.Finalized() {
			t.Fatal("schema should not be finalized")
		}
	})

	t.Run("to zero", func(t *testing.T) {
		s, owner := newAdminSchema(t)
		if _, err := s.AddState(owner, []schema.State{1}); err != nil {
			t.Fatalf("AddState: %v", err)
		}
		if _, err := s.AddState(owner, []schema.State{0}); err != nil {
			t.Fatalf("AddState: %v", err)
		}
		if err := s.Finalize(owner); !errors.Is(err, docflow.ErrEdgeToZero) {
			t.Fatalf("Finalize = %v, want ErrEdgeToZero", err)
		}
	})

	t.Run("locked", func(t *testing.T) {
		s, owner := buildSample(t)
		if _, err := s.AddState(owner, nil); !errors.Is(err, docflow.ErrFinal) {
			t.Fatalf("AddState after finalize = %v, want ErrFinal", err)
		}
		if err := s.Finalize(owner); !errors.Is(err, docflow.ErrFinal) {
			t.Fatalf("Finalize twice = %v, want ErrFinal", err)
		}
	})
}

func TestAddRightBeforeFinalize(t *testing.T) {
	s, owner := newAdminSchema(t)
	if _, err := s.AddState(owner, []schema.State{1}); err != nil {
		t.Fatalf("AddState: %v", err)
	}
	if err := s.AddRight(owner, 0, 0, owner, schema.Init); !errors.Is(err, docflow.ErrNotFinal) {
		t.Fatalf("AddRight = %v, want ErrNotFinal", err)
	}
}

func TestAddRightKinds(t *testing.T) {
	s, owner := buildSample(t)
	user := id.NewUserID()

	tests := []struct {
		name  string
		state schema.State
		edge  int
		right schema.Right
		want  error
	}{
		{"init on start edge", 0, 0, schema.Init, nil},
		{"approve on start edge", 0, 0, schema.Approve, docflow.ErrRightNotAllowed},
		{"approve forward", 1, 0, schema.Approve, nil},
		{"review on forward edge", 1, 0, schema.Review, docflow.ErrRightNotAllowed},
		{"review self loop", 3, 2, schema.Review, nil},
		{"approve self loop", 3, 2, schema.Approve, docflow.ErrRightNotAllowed},
		{"signoff terminal", 3, 3, schema.Signoff, nil},
		{"abort terminal", 3, 4, schema.Abort, nil},
		{"approve terminal", 3, 4, schema.Approve, docflow.ErrRightNotAllowed},
		{"invalid right", 1, 0, schema.Right(100), docflow.ErrRightNotAllowed},
		{"missing state", 9, 0, schema.Approve, docflow.ErrStateNotFound},
		{"missing edge", 1, 4, schema.Approve, docflow.ErrEdgeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.AddRight(owner, tt.state, tt.edge, user, tt.right)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("AddRight: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("AddRight = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAddRightUnauthorized(t *testing.T) {
	s, _ := buildSample(t)
	stranger := id.NewUserID()
	if err := s.AddRight(stranger, 0, 0, stranger, schema.Init); !errors.Is(err, docflow.ErrUnauthorized) {
		t.Fatalf("AddRight = %v, want ErrUnauthorized", err)
	}
}

func TestTerminalEdgeFirstGrantFixesKind(t *testing.T) {
	s, owner := buildSample(t)
	alice := id.NewUserID()
	bob := id.NewUserID()

	if err := s.AddRight(owner, 3, 3, alice, schema.Abort); err != nil {
		t.Fatalf("AddRight(abort): %v", err)
	}
	if err := s.AddRight(owner, 3, 3, bob, schema.Signoff); !errors.Is(err, docflow.ErrRightChange) {
		t.Fatalf("AddRight(signoff) = %v, want ErrRightChange", err)
	}
	if err := s.AddRight(owner, 3, 3, bob, schema.Abort); err != nil {
		t.Fatalf("AddRight(abort, bob): %v", err)
	}

	// Emptying the edge frees the kind again.
	if err := s.RemoveRight(owner, 3, 3, alice, schema.Abort); err != nil {
		t.Fatalf("RemoveRight: %v", err)
	}
	if err := s.RemoveRight(owner, 3, 3, bob, schema.Abort); err != nil {
		t.Fatalf("RemoveRight: %v", err)
	}
	if err := s.AddRight(owner, 3, 3, bob, schema.Signoff); err != nil {
		t.Fatalf("AddRight(signoff) after emptying: %v", err)
	}
	kind, err := s.EdgeKind(3, 3)
	if err != nil {
		t.Fatalf("EdgeKind: %v", err)
	}
	if kind != schema.SignoffOrAbort {
		t.Errorf("EdgeKind = %v, want %v", kind, schema.SignoffOrAbort)
	}
}

func TestAddRightIdempotent(t *testing.T) {
	s, owner := buildSample(t)
	user := id.NewUserID()

	if err := s.AddRight(owner, 1, 0, user, schema.Approve); err != nil {
		t.Fatalf("AddRight: %v", err)
	}
	before := s.USN()
	if err := s.AddRight(owner, 1, 0, user, schema.Approve); err != nil {
		t.Fatalf("AddRight again: %v", err)
	}
	n, err := s.TotalRights(1, 0)
	if err != nil {
		t.Fatalf("TotalRights: %v", err)
	}
	if n != 1 {
		t.Errorf("TotalRights = %d, want 1", n)
	}
	if s.USN() != before {
		t.Errorf("USN changed on no-op grant: %d -> %d", before, s.USN())
	}
}

func TestRemoveRight(t *testing.T) {
	s, owner := buildSample(t)
	user := id.NewUserID()

	if err := s.RemoveRight(owner, 1, 0, user, schema.Approve); !errors.Is(err, docflow.ErrNoSuchRight) {
		t.Fatalf("RemoveRight absent = %v, want ErrNoSuchRight", err)
	}
	if err := s.AddRight(owner, 1, 0, user, schema.Approve); err != nil {
		t.Fatalf("AddRight: %v", err)
	}
	if err := s.RemoveRight(owner, 1, 0, user, schema.Approve); err != nil {
		t.Fatalf("RemoveRight: %v", err)
	}
	ok, err := s.HasRight(1, 2, user, schema.Approve)
	if err != nil {
		t.Fatalf("HasRight: %v", err)
	}
	if ok {
		t.Error("right should be gone")
	}
}

func TestHasRight(t *testing.T) {
	s, owner := buildSample(t)
	user := id.NewUserID()

	if err := s.AddRight(owner, 0, 0, user, schema.Init); err != nil {
		t.Fatalf("AddRight: %v", err)
	}

	ok, err := s.HasRight(0, 1, user, schema.Init)
	if err != nil || !ok {
		t.Fatalf("HasRight(0,1) = %v, %v; want true", ok, err)
	}
	ok, err = s.HasRight(0, 1, owner, schema.Init)
	if err != nil || ok {
		t.Fatalf("HasRight for other user = %v, %v; want false", ok, err)
	}
	ok, err = s.HasRight(1, 2, user, schema.Init)
	if err != nil || ok {
		t.Fatalf("HasRight on unrelated edge = %v, %v; want false", ok, err)
	}
	if _, err := s.HasRight(0, 15, user, schema.Init); !errors.Is(err, docflow.ErrStateNotFound) {
		t.Fatalf("HasRight target out of range = %v, want ErrStateNotFound", err)
	}
	if _, err := s.HasRight(15, 1, user, schema.Init); !errors.Is(err, docflow.ErrStateNotFound) {
		t.Fatalf("HasRight state out of range = %v, want ErrStateNotFound", err)
	}
}

func TestReads(t *testing.T) {
	s, owner := buildSample(t)
	user := id.NewUserID()

	if got := s.TotalStates(); got != 6 {
		t.Errorf("TotalStates = %d, want 6", got)
	}
	n, err := s.TotalEdges(3)
	if err != nil {
		t.Fatalf("TotalEdges: %v", err)
	}
	if n != 5 {
		t.Errorf("TotalEdges(3) = %d, want 5", n)
	}
	target, err := s.EdgeTarget(3, 4)
	if err != nil {
		t.Fatalf("EdgeTarget: %v", err)
	}
	if target != 5 {
		t.Errorf("EdgeTarget(3,4) = %d, want 5", target)
	}

	if err := s.AddRight(owner, 2, 0, user, schema.Approve); err != nil {
		t.Fatalf("AddRight: %v", err)
	}
	entry, err := s.RightAt(2, 0, 0)
	if err != nil {
		t.Fatalf("RightAt: %v", err)
	}
	if !entry.User.Equal(user) || entry.Right != schema.Approve {
		t.Errorf("RightAt = %+v, want (%s, approve)", entry, user)
	}
	if _, err := s.RightAt(2, 0, 1); err == nil {
		t.Error("expected error for out-of-range entry")
	}
	if _, err := s.TotalEdges(6); !errors.Is(err, docflow.ErrStateNotFound) {
		t.Errorf("TotalEdges(6) = %v, want ErrStateNotFound", err)
	}
}

func TestUSNMonotonic(t *testing.T) {
	s, owner := newAdminSchema(t)
	var last uint64
	step := func(name string, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if s.USN() <= last {
			t.Fatalf("%s: USN %d not above %d", name, s.USN(), last)
		}
		last = s.USN()
	}

	_, err := s.AddState(owner, []schema.State{1})
	step("AddState", err)
	_, err = s.AddState(owner, nil)
	step("AddState", err)
	step("Finalize", s.Finalize(owner))
	step("AddRight", s.AddRight(owner, 0, 0, owner, schema.Init))

	// Failed calls leave USN unchanged.
	_ = s.AddRight(owner, 0, 0, owner, schema.Approve)
	if s.USN() != last {
		t.Errorf("USN moved on failed call: %d -> %d", last, s.USN())
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		source, target schema.State
		targetEdges    int
		want           schema.EdgeKind
	}{
		{0, 1, 1, schema.InitOnly},
		{0, 1, 0, schema.InitOnly},
		{2, 2, 3, schema.ReviewOnly},
		{1, 2, 0, schema.SignoffOrAbort},
		{1, 2, 1, schema.ApproveOnly},
	}
	for _, tt := range tests {
		if got := schema.Classify(tt.source, tt.target, tt.targetEdges); got != tt.want {
			t.Errorf("Classify(%d,%d,%d) = %v, want %v", tt.source, tt.target, tt.targetEdges, got, tt.want)
		}
	}
	if !schema.SignoffOrAbort.Allows(schema.Abort) || schema.SignoffOrAbort.Allows(schema.Review) {
		t.Error("SignoffOrAbort allows the wrong rights")
	}
}

func TestParseRight(t *testing.T) {
	for _, r := range []schema.Right{schema.Init, schema.Approve, schema.Review, schema.Signoff, schema.Abort} {
		got, err := schema.ParseRight(r.String())
		if err != nil {
			t.Fatalf("ParseRight(%q): %v", r, err)
		}
		if got != r {
			t.Errorf("ParseRight(%q) = %v", r, got)
		}
	}
	if _, err := schema.ParseRight("delegate"); err == nil {
		t.Error("expected error for unknown right")
	}
}
