// Package client provides caller-side helpers for working against a
// docflow registry: enumerating open workflows page by page while other
// callers close them, resubmitting calls that lost a USN race, and
// deriving participants and live documents from public reads.
//
// The engine never retries. Everything that recovers from a race lives
// here.
//
// Usage:
//
//	c := client.New(eng.Registry(), client.WithPageSize(25))
//
//	res, err := c.Enumerate(ctx)
//	summaries, err := c.LoadSummaries(ctx, res.Addresses)
//
//	rcpt, err := c.Resubmit(ctx, func(ctx context.Context, _ int) (*tx.Receipt, error) {
//	    w, _ := eng.Workflow(addr)
//	    return eng.DoApprove(ctx, me, addr, w.TotalHistory(), next)
//	})
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/backoff"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/workflow"
)

// Registry is the read surface of a workflow registry the client walks.
// *registry.Registry implements it.
type Registry interface {
	FirstOpen() uint64
	ReadWF(start uint64, count int) ([]id.WorkflowID, uint64, error)
	Lookup(addr id.WorkflowID) (*workflow.Instance, error)
}

// Client runs multi-call read and retry protocols against a registry.
type Client struct {
	reg         Registry
	pageSize    int
	concurrency int
	maxAttempts int
	backoff     backoff.Strategy
	onPage      func(ctx context.Context, next uint64) error
	logger      *slog.Logger
}

// New creates a Client over reg.
func New(reg Registry, opts ...Option) *Client {
	c := &Client{
		reg:         reg,
		concurrency: 8,
		logger:      slog.Default(),
	}
	WithConfig(docflow.DefaultConfig())(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enumeration is the outcome of a full walk of the open list.
type Enumeration struct {
	// Addresses lists the open instances in creation order.
	Addresses []id.WorkflowID `json:"addresses"`

	// Pages counts the pages kept in the result.
	Pages int `json:"pages"`

	// Backtracks counts stale cursors that forced a re-read.
	Backtracks int `json:"backtracks"`
}

// page is a successfully read page together with the cursor it was read
// from, so that a later stale cursor can back up to it.
type page struct {
	from  uint64
	addrs []id.WorkflowID
}

// Enumerate walks the open list from its head in pages of the configured
// size. When a cursor goes stale because its instance concluded between
// pages, Enumerate discards the last kept page and re-reads from that
// page's start. With no kept pages it restarts from the current head.
func (c *Client) Enumerate(ctx context.Context) (*Enumeration, error) {
	var (
		stack      []page
		backtracks int
	)

	next := c.reg.FirstOpen()
	for next != 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.onPage != nil {
			if err := c.onPage(ctx, next); err != nil {
				return nil, fmt.Errorf("docflow/client: page hook: %w", err)
			}
		}

		addrs, after, err := c.reg.ReadWF(next, c.pageSize)
		if err != nil {
			if !errors.Is(err, docflow.ErrInvalidPos) {
				return nil, fmt.Errorf("docflow/client: read page at %d: %w", next, err)
			}
			backtracks++
			c.logger.Debug("enumeration cursor went stale",
				slog.Uint64("cursor", next),
				slog.Int("kept_pages", len(stack)),
			)
			if len(stack) == 0 {
				next = c.reg.FirstOpen()
				continue
			}
			next = stack[len(stack)-1].from
			stack = stack[:len(stack)-1]
			continue
		}

		stack = append(stack, page{from: next, addrs: addrs})
		next = after
	}

	out := &Enumeration{Pages: len(stack), Backtracks: backtracks}
	for _, p := range stack {
		out.Addresses = append(out.Addresses, p.addrs...)
	}
	return out, nil
}
