package client_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/access"
	"github.com/xraph/docflow/backoff"
	"github.com/xraph/docflow/client"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/registry"
	"github.com/xraph/docflow/schema"
	"github.com/xraph/docflow/tx"
	"github.com/xraph/docflow/workflow"
)

// ── Test Helpers ──────────────────────────────────────

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	reg    *registry.Registry
	schema *schema.Schema
	owner  id.UserID
	insts  []*workflow.Instance
}

// newFixture builds a registry with n open instances over the schema
// S0→S1→S2, S1→S1, where the owner may init, review and sign off.
func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	ctx := context.Background()
	owner := id.NewUserID()

	reg := registry.New(owner, registry.WithLogger(testLogger()))
	if err := reg.Grant(owner, access.ContractAdmin, owner); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	s := schema.New(owner)
	if err := s.Grant(owner, access.ContractAdmin, owner); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	for _, targets := range [][]schema.State{{1}, {2, 1}, {}} {
		if _, err := s.AddState(owner, targets); err != nil {
			t.Fatalf("AddState: %v", err)
		}
	}
	if err := s.Finalize(owner); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	for _, r := range []struct {
		state schema.State
		edge  int
		right schema.Right
	}{
		{0, 0, schema.Init},
		{1, 0, schema.Signoff},
		{1, 1, schema.Review},
	} {
		if err := s.AddRight(owner, r.state, r.edge, owner, r.right); err != nil {
			t.Fatalf("AddRight: %v", err)
		}
	}

	f := &fixture{reg: reg, schema: s, owner: owner}
	for range n {
		inst, err := reg.CreateWorkflow(ctx, owner, s, []workflow.DocType{{Lo: 0, Hi: 4}})
		if err != nil {
			t.Fatalf("CreateWorkflow: %v", err)
		}
		f.insts = append(f.insts, inst)
	}
	return f
}

// close concludes the instance with registry id seq.
func (f *fixture) close(ctx context.Context, seq uint64) error {
	inst := f.insts[seq-1]
	if err := inst.DoInit(ctx, f.owner, 0, 1, nil, nil); err != nil {
		return err
	}
	return inst.DoSignoff(ctx, f.owner, 1, 2)
}

func hash(b byte) workflow.Hash {
	var h workflow.Hash
	h[0] = b
	h[31] = 0x01
	return h
}

// ── Enumeration ───────────────────────────────────────

func TestEnumerate_AllPageSizes(t *testing.T) {
	f := newFixture(t, 7)

	for size := 1; size <= 8; size++ {
		c := client.New(f.reg, client.WithPageSize(size), client.WithLogger(testLogger()))
		res, err := c.Enumerate(context.Background())
		if err != nil {
			t.Fatalf("Enumerate(size=%d): %v", size, err)
		}
		if res.Backtracks != 0 {
			t.Errorf("size=%d: Backtracks = %d, want 0", size, res.Backtracks)
		}
		if len(res.Addresses) != len(f.insts) {
			t.Fatalf("size=%d: got %d addresses, want %d", size, len(res.Addresses), len(f.insts))
		}
		for i, inst := range f.insts {
			if !res.Addresses[i].Equal(inst.Address()) {
				t.Errorf("size=%d: address %d = %s, want %s", size, i, res.Addresses[i], inst.Address())
			}
		}
	}
}

func TestEnumerate_BacktracksOverConcludedCursor(t *testing.T) {
	f := newFixture(t, 17)

	deleted := false
	hook := func(ctx context.Context, next uint64) error {
		if deleted || next != 10 {
			return nil
		}
		deleted = true
		if err := f.close(ctx, 10); err != nil {
			return err
		}
		return f.close(ctx, 7)
	}

	c := client.New(f.reg,
		client.WithPageSize(3),
		client.WithPageHook(hook),
		client.WithLogger(testLogger()),
	)
	res, err := c.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if res.Backtracks != 2 {
		t.Errorf("Backtracks = %d, want 2", res.Backtracks)
	}

	var want []id.WorkflowID
	for i, inst := range f.insts {
		if seq := i + 1; seq == 7 || seq == 10 {
			continue
		}
		want = append(want, inst.Address())
	}
	if len(res.Addresses) != len(want) {
		t.Fatalf("got %d addresses, want %d", len(res.Addresses), len(want))
	}
	for i := range want {
		if !res.Addresses[i].Equal(want[i]) {
			t.Errorf("address %d = %s, want %s", i, res.Addresses[i], want[i])
		}
	}
}

func TestEnumerate_EverythingClosedMidWalk(t *testing.T) {
	f := newFixture(t, 14)

	hook := func(ctx context.Context, next uint64) error {
		if next != 10 || f.reg.TotalOpen() == 0 {
			return nil
		}
		for seq := f.reg.FirstOpen(); seq != 0; seq = f.reg.FirstOpen() {
			if err := f.close(ctx, seq); err != nil {
				return err
			}
		}
		return nil
	}

	c := client.New(f.reg, client.WithPageSize(3), client.WithPageHook(hook), client.WithLogger(testLogger()))
	res, err := c.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if len(res.Addresses) != 0 || res.Pages != 0 {
		t.Errorf("got %d addresses in %d pages, want none", len(res.Addresses), res.Pages)
	}
	if res.Backtracks != 4 {
		t.Errorf("Backtracks = %d, want 4", res.Backtracks)
	}
}

func TestEnumerate_Empty(t *testing.T) {
	f := newFixture(t, 0)
	res, err := client.New(f.reg).Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if len(res.Addresses) != 0 {
		t.Errorf("got %d addresses, want 0", len(res.Addresses))
	}
}

func TestEnumerate_HookErrorStops(t *testing.T) {
	f := newFixture(t, 3)
	boom := errors.New("boom")
	c := client.New(f.reg, client.WithPageHook(func(context.Context, uint64) error { return boom }))

	if _, err := c.Enumerate(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Enumerate = %v, want boom", err)
	}
}

func TestEnumerate_CanceledContext(t *testing.T) {
	f := newFixture(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.New(f.reg).Enumerate(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Enumerate = %v, want Canceled", err)
	}
}

// ── Resubmission ──────────────────────────────────────

func TestResubmit(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		failWith  error
		wantCalls int
		wantErr   error
	}{
		{"first try", 0, nil, 1, nil},
		{"wins after races", 2, docflow.ErrWrongUSN, 3, nil},
		{"gives up", 10, docflow.ErrWrongUSN, 4, docflow.ErrWrongUSN},
		{"other error not retried", 10, docflow.ErrCannotCross, 1, docflow.ErrCannotCross},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := client.New(nil,
				client.WithRetry(4, backoff.Fixed(0)),
				client.WithLogger(testLogger()),
			)

			calls := 0
			rcpt, err := c.Resubmit(context.Background(), func(_ context.Context, attempt int) (*tx.Receipt, error) {
				calls++
				if attempt != calls {
					t.Errorf("attempt = %d, want %d", attempt, calls)
				}
				if calls <= tt.failures {
					return &tx.Receipt{Status: tx.StatusReverted}, tt.failWith
				}
				return &tx.Receipt{Status: tx.StatusCommitted}, nil
			})

			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if tt.wantErr == nil {
				if err != nil || !rcpt.Committed() {
					t.Fatalf("Resubmit = %+v, %v", rcpt, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Resubmit error = %v, want %v", err, tt.wantErr)
			}
			if rcpt == nil || rcpt.Committed() {
				t.Errorf("expected the last reverted receipt, got %+v", rcpt)
			}
		})
	}
}

func TestResubmit_CanceledWhileWaiting(t *testing.T) {
	c := client.New(nil, client.WithRetry(3, backoff.Fixed(10*time.Second)), client.WithLogger(testLogger()))
	ctx, cancel := context.WithCancel(context.Background())

	_, err := c.Resubmit(ctx, func(context.Context, int) (*tx.Receipt, error) {
		cancel()
		return nil, docflow.ErrWrongUSN
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Resubmit = %v, want Canceled", err)
	}
}

func TestResubmit_PolicyFromConfig(t *testing.T) {
	cfg := docflow.DefaultConfig()
	cfg.ResubmitAttempts = 2
	cfg.ResubmitFloor, cfg.ResubmitCeiling = 0, 0
	c := client.New(nil, client.WithConfig(cfg), client.WithLogger(testLogger()))

	calls := 0
	_, err := c.Resubmit(context.Background(), func(context.Context, int) (*tx.Receipt, error) {
		calls++
		return &tx.Receipt{Status: tx.StatusReverted}, docflow.ErrWrongUSN
	})
	if !errors.Is(err, docflow.ErrWrongUSN) || calls != 2 {
		t.Fatalf("Resubmit = %v after %d calls, want ErrWrongUSN after 2", err, calls)
	}
}

// ── Derived reads ─────────────────────────────────────

func TestParticipants(t *testing.T) {
	f := newFixture(t, 0)
	alice, bob := id.NewUserID(), id.NewUserID()
	if err := f.schema.AddRight(f.owner, 1, 1, alice, schema.Review); err != nil {
		t.Fatalf("AddRight: %v", err)
	}
	if err := f.schema.AddRight(f.owner, 1, 0, bob, schema.Signoff); err != nil {
		t.Fatalf("AddRight: %v", err)
	}
	if err := f.schema.AddRight(f.owner, 0, 0, alice, schema.Init); err != nil {
		t.Fatalf("AddRight: %v", err)
	}

	got, err := client.Participants(f.schema)
	if err != nil {
		t.Fatalf("Participants: %v", err)
	}
	want := []id.UserID{f.owner, alice, bob}
	if len(got) != len(want) {
		t.Fatalf("got %d participants, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("participant %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestLatestDocuments(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	w := f.insts[0]

	a, b, c := workflow.MakeDocID(1, 0), workflow.MakeDocID(2, 0), workflow.MakeDocID(3, 0)
	if err := w.DoInit(ctx, f.owner, 0, 1, []workflow.DocID{a, b}, []workflow.Hash{hash(1), hash(2)}); err != nil {
		t.Fatalf("DoInit: %v", err)
	}
	if err := w.DoReview(ctx, f.owner, 1, []workflow.DocID{a, b}, []workflow.DocID{b, c}, []workflow.Hash{hash(3), hash(4)}); err != nil {
		t.Fatalf("DoReview: %v", err)
	}

	got := client.LatestDocuments(w)
	want := map[workflow.DocID]workflow.Hash{b: hash(3), c: hash(4)}
	if len(got) != len(want) {
		t.Fatalf("got %d live docs, want %d", len(got), len(want))
	}
	for d, h := range want {
		if got[d] != h {
			t.Errorf("doc %s = %s, want %s", d, got[d], h)
		}
	}
	live := w.LiveDocuments()
	for d, h := range got {
		if live[d] != h {
			t.Errorf("replayed doc %s disagrees with instance: %s vs %s", d, h, live[d])
		}
	}
}

func TestLoadSummaries(t *testing.T) {
	f := newFixture(t, 6)
	c := client.New(f.reg, client.WithConcurrency(2))

	addrs := make([]id.WorkflowID, len(f.insts))
	for i, inst := range f.insts {
		addrs[i] = inst.Address()
	}

	sums, err := c.LoadSummaries(context.Background(), addrs)
	if err != nil {
		t.Fatalf("LoadSummaries: %v", err)
	}
	for i, s := range sums {
		if s.Seq != uint64(i+1) || !s.Address.Equal(addrs[i]) {
			t.Errorf("summary %d = seq %d addr %s", i, s.Seq, s.Address)
		}
		if s.Mode != workflow.ModeUninit {
			t.Errorf("summary %d mode = %s, want uninit", i, s.Mode)
		}
	}

	addrs = append(addrs, id.NewWorkflowID())
	if _, err := c.LoadSummaries(context.Background(), addrs); !errors.Is(err, docflow.ErrWorkflowNotFound) {
		t.Fatalf("LoadSummaries(unknown) = %v, want ErrWorkflowNotFound", err)
	}
}
