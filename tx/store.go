package tx

import (
	"context"

	"github.com/xraph/docflow/id"
)

// ListOpts controls pagination for receipt queries.
type ListOpts struct {
	// Caller filters by caller. Nil means all callers.
	Caller id.UserID
	// Limit is the maximum number of receipts to return. Zero means no limit.
	Limit int
	// Offset is the number of receipts to skip.
	Offset int
}

// Store journals receipts.
type Store interface {
	// RecordReceipt persists a receipt.
	RecordReceipt(ctx context.Context, r *Receipt) error

	// GetReceipt retrieves a receipt by transaction ID.
	GetReceipt(ctx context.Context, txID id.TxID) (*Receipt, error)

	// ListReceipts returns receipts ordered by ledger sequence.
	ListReceipts(ctx context.Context, opts ListOpts) ([]*Receipt, error)
}
