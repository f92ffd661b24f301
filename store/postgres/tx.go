package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/tx"
)

const receiptColumns = `tx_id, seq, name, caller, target, status, fee, error, submitted_at, completed_at`

// RecordReceipt persists a receipt. Recording the same transaction twice
// overwrites the earlier row.
func (s *Store) RecordReceipt(ctx context.Context, r *tx.Receipt) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO docflow_receipts (`+receiptColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (tx_id) DO UPDATE SET
			seq = EXCLUDED.seq, status = EXCLUDED.status, fee = EXCLUDED.fee,
			error = EXCLUDED.error, completed_at = EXCLUDED.completed_at`,
		r.TxID.String(), int64(r.Seq), r.Name, r.Caller.String(), r.Target,
		string(r.Status), int64(r.Fee), r.Error, r.SubmittedAt, r.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("docflow/postgres: record receipt: %w", err)
	}
	return nil
}

// GetReceipt retrieves a receipt by transaction ID.
func (s *Store) GetReceipt(ctx context.Context, txID id.TxID) (*tx.Receipt, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+receiptColumns+` FROM docflow_receipts WHERE tx_id = $1`,
		txID.String(),
	)
	r, err := scanReceipt(row)
	if err != nil {
		if isNoRows(err) {
			return nil, docflow.ErrReceiptNotFound
		}
		return nil, fmt.Errorf("docflow/postgres: get receipt: %w", err)
	}
	return r, nil
}

// ListReceipts returns receipts ordered by ledger sequence.
func (s *Store) ListReceipts(ctx context.Context, opts tx.ListOpts) ([]*tx.Receipt, error) {
	limit, offset := limitOffset(opts.Limit, opts.Offset)

	var caller *string
	if !opts.Caller.IsNil() {
		c := opts.Caller.String()
		caller = &c
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+receiptColumns+` FROM docflow_receipts
		WHERE ($1::TEXT IS NULL OR caller = $1)
		ORDER BY seq ASC
		LIMIT $2 OFFSET $3`,
		caller, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("docflow/postgres: list receipts: %w", err)
	}
	defer rows.Close()

	var result []*tx.Receipt
	for rows.Next() {
		r, scanErr := scanReceipt(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("docflow/postgres: scan receipt: %w", scanErr)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func scanReceipt(row pgx.Row) (*tx.Receipt, error) {
	var (
		r      tx.Receipt
		seq    int64
		fee    int64
		status string
	)
	err := row.Scan(
		&r.TxID, &seq, &r.Name, &r.Caller, &r.Target,
		&status, &fee, &r.Error, &r.SubmittedAt, &r.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Seq = uint64(seq)
	r.Fee = uint64(fee)
	r.Status = tx.Status(status)
	return &r, nil
}
