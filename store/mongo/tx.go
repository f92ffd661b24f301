package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/tx"
)

// RecordReceipt persists a receipt, replacing an earlier one for the same
// transaction.
func (s *Store) RecordReceipt(ctx context.Context, r *tx.Receipt) error {
	m := toReceiptModel(r)
	_, err := s.db.Collection(colReceipts).ReplaceOne(ctx,
		bson.M{"_id": m.TxID}, m,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("docflow/mongo: record receipt: %w", err)
	}
	return nil
}

// GetReceipt retrieves a receipt by transaction ID.
func (s *Store) GetReceipt(ctx context.Context, txID id.TxID) (*tx.Receipt, error) {
	var m receiptModel
	err := s.db.Collection(colReceipts).FindOne(ctx, bson.M{"_id": txID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, docflow.ErrReceiptNotFound
		}
		return nil, fmt.Errorf("docflow/mongo: get receipt: %w", err)
	}
	return fromReceiptModel(&m)
}

// ListReceipts returns receipts ordered by ledger sequence.
func (s *Store) ListReceipts(ctx context.Context, opts tx.ListOpts) ([]*tx.Receipt, error) {
	filter := bson.M{}
	if !opts.Caller.IsNil() {
		filter["caller"] = opts.Caller.String()
	}

	cursor, err := s.db.Collection(colReceipts).Find(ctx, filter,
		findPage(bson.D{{Key: "seq", Value: 1}}, opts.Limit, opts.Offset))
	if err != nil {
		return nil, fmt.Errorf("docflow/mongo: list receipts: %w", err)
	}

	var models []receiptModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("docflow/mongo: decode receipts: %w", err)
	}

	result := make([]*tx.Receipt, 0, len(models))
	for i := range models {
		r, convErr := fromReceiptModel(&models[i])
		if convErr != nil {
			return nil, convErr
		}
		result = append(result, r)
	}
	return result, nil
}
