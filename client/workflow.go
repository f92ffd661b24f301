package client

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/schema"
	"github.com/xraph/docflow/workflow"
)

// Graph is the read surface of a schema needed to walk every right.
// *schema.Schema implements it.
type Graph interface {
	TotalStates() int
	TotalEdges(state schema.State) (int, error)
	TotalRights(state schema.State, idx int) (int, error)
	RightAt(state schema.State, idx, n int) (schema.Entry, error)
}

// Participants returns every user holding at least one right anywhere in
// g, in the order they are first met walking states, edges and entries.
func Participants(g Graph) ([]id.UserID, error) {
	seen := make(map[string]struct{})
	var out []id.UserID

	for s := range g.TotalStates() {
		state := schema.State(s)
		edges, err := g.TotalEdges(state)
		if err != nil {
			return nil, fmt.Errorf("docflow/client: edges of %d: %w", state, err)
		}
		for e := range edges {
			n, err := g.TotalRights(state, e)
			if err != nil {
				return nil, fmt.Errorf("docflow/client: rights of %d/%d: %w", state, e, err)
			}
			for i := range n {
				entry, err := g.RightAt(state, e, i)
				if err != nil {
					return nil, fmt.Errorf("docflow/client: right %d of %d/%d: %w", i, state, e, err)
				}
				key := entry.User.String()
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				out = append(out, entry.User)
			}
		}
	}
	return out, nil
}

// LatestDocuments derives the live document set of w from its history.
func LatestDocuments(w *workflow.Instance) map[workflow.DocID]workflow.Hash {
	return workflow.Replay(w.History())
}

// LoadSummaries looks up each address and returns the summaries in the
// same order. The first failed lookup cancels the rest.
func (c *Client) LoadSummaries(ctx context.Context, addrs []id.WorkflowID) ([]workflow.Summary, error) {
	out := make([]workflow.Summary, len(addrs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, addr := range addrs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			w, err := c.reg.Lookup(addr)
			if err != nil {
				return fmt.Errorf("docflow/client: lookup %s: %w", addr, err)
			}
			out[i] = w.Summary()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
