package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/tx"
)

// RecordReceipt persists a receipt and indexes it by sequence and caller.
func (s *Store) RecordReceipt(ctx context.Context, r *tx.Receipt) error {
	data, err := encodeReceipt(r)
	if err != nil {
		return fmt.Errorf("docflow/redis: encode receipt: %w", err)
	}

	txID := r.TxID.String()
	member := goredis.Z{Score: float64(r.Seq), Member: txID}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keys.receipt(txID), data, 0)
	pipe.ZAdd(ctx, s.keys.receipts(), member)
	pipe.ZAdd(ctx, s.keys.callerReceipts(r.Caller.String()), member)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("docflow/redis: record receipt: %w", err)
	}
	return nil
}

// GetReceipt retrieves a receipt by transaction ID.
func (s *Store) GetReceipt(ctx context.Context, txID id.TxID) (*tx.Receipt, error) {
	data, err := s.client.Get(ctx, s.keys.receipt(txID.String())).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, docflow.ErrReceiptNotFound
		}
		return nil, fmt.Errorf("docflow/redis: get receipt: %w", err)
	}
	return decodeReceipt(data)
}

// ListReceipts returns receipts ordered by ledger sequence.
func (s *Store) ListReceipts(ctx context.Context, opts tx.ListOpts) ([]*tx.Receipt, error) {
	index := s.keys.receipts()
	if !opts.Caller.IsNil() {
		index = s.keys.callerReceipts(opts.Caller.String())
	}

	start, stop := zrangeBounds(opts.Limit, opts.Offset)
	txIDs, err := s.client.ZRange(ctx, index, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("docflow/redis: list receipts: %w", err)
	}
	if len(txIDs) == 0 {
		return nil, nil
	}

	keys := make([]string, len(txIDs))
	for i, txID := range txIDs {
		keys[i] = s.keys.receipt(txID)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("docflow/redis: list receipts mget: %w", err)
	}

	result := make([]*tx.Receipt, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		r, decErr := decodeReceipt([]byte(str))
		if decErr != nil {
			return nil, decErr
		}
		result = append(result, r)
	}
	return result, nil
}

// zrangeBounds converts limit and offset into inclusive ZRANGE indexes.
func zrangeBounds(limit, offset int) (int64, int64) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		return int64(offset), -1
	}
	return int64(offset), int64(offset + limit - 1)
}
