package sqlite

import (
	"context"
	"fmt"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/tx"
)

// RecordReceipt persists a receipt, overwriting an earlier one for the
// same transaction.
func (s *Store) RecordReceipt(ctx context.Context, r *tx.Receipt) error {
	_, err := s.sdb.NewInsert(toReceiptModel(r)).
		OnConflict("(tx_id) DO UPDATE").
		Set("seq = EXCLUDED.seq").
		Set("status = EXCLUDED.status").
		Set("fee = EXCLUDED.fee").
		Set("error = EXCLUDED.error").
		Set("completed_at = EXCLUDED.completed_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("docflow/sqlite: record receipt: %w", err)
	}
	return nil
}

// GetReceipt retrieves a receipt by transaction ID.
func (s *Store) GetReceipt(ctx context.Context, txID id.TxID) (*tx.Receipt, error) {
	m := new(receiptModel)
	err := s.sdb.NewSelect(m).
		Where("tx_id = ?", txID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, docflow.ErrReceiptNotFound
		}
		return nil, fmt.Errorf("docflow/sqlite: get receipt: %w", err)
	}
	return fromReceiptModel(m)
}

// ListReceipts returns receipts ordered by ledger sequence.
func (s *Store) ListReceipts(ctx context.Context, opts tx.ListOpts) ([]*tx.Receipt, error) {
	var models []receiptModel
	q := s.sdb.NewSelect(&models)
	if !opts.Caller.IsNil() {
		q = q.Where("caller = ?", opts.Caller.String())
	}
	q = q.OrderExpr("seq ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		// SQLite only accepts OFFSET after a LIMIT.
		if opts.Limit <= 0 {
			q = q.Limit(-1)
		}
		q = q.Offset(opts.Offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("docflow/sqlite: list receipts: %w", err)
	}

	result := make([]*tx.Receipt, 0, len(models))
	for i := range models {
		r, err := fromReceiptModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, nil
}
