// Package tx describes calls submitted to the ledger and the receipts
// they produce.
package tx

import (
	"time"

	"github.com/xraph/docflow/id"
)

// Tx describes one mutating call: which operation, who calls it, and on
// which schema, registry or workflow instance.
type Tx struct {
	ID     id.TxID   `json:"id"`
	Name   string    `json:"name"`
	Caller id.UserID `json:"caller"`
	Target id.ID     `json:"target,omitempty"`

	// Items counts the variable-size arguments (doc ids, edge targets)
	// the call carries. The fee schedule charges per item.
	Items int `json:"items"`

	// Timeout bounds the call when non-zero.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// New creates a Tx with a fresh ID.
func New(name string, caller id.UserID, target id.ID, items int) *Tx {
	return &Tx{
		ID:     id.NewTxID(),
		Name:   name,
		Caller: caller,
		Target: target,
		Items:  items,
	}
}

// Status is the outcome of a submitted call.
type Status string

const (
	// StatusCommitted means the call was applied.
	StatusCommitted Status = "committed"
	// StatusReverted means the call failed and left no trace but its fee.
	StatusReverted Status = "reverted"
)

// Receipt is the result of a submitted call.
type Receipt struct {
	TxID        id.TxID   `json:"tx_id"`
	Seq         uint64    `json:"seq"`
	Name        string    `json:"name"`
	Caller      id.UserID `json:"caller"`
	Target      id.ID     `json:"target,omitempty"`
	Status      Status    `json:"status"`
	Fee         uint64    `json:"fee"`
	Error       string    `json:"error,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Committed reports whether the call was applied.
func (r *Receipt) Committed() bool { return r.Status == StatusCommitted }
