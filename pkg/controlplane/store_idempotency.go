package controlplane

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GetIdempotencyRecordQ returns the stored record for key, or ErrNotFound.
func (s *Store) GetIdempotencyRecordQ(ctx context.Context, q querier, key string) (IdempotencyRecord, error) {
	row := q.QueryRow(ctx, `SELECT key, response, created_at FROM idempotency_records WHERE key = $1`, key)
	var rec IdempotencyRecord
	if err := row.Scan(&rec.Key, &rec.Response, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return IdempotencyRecord{}, ErrNotFound
		}
		return IdempotencyRecord{}, fmt.Errorf("loading idempotency record: %w", err)
	}
	return rec, nil
}

// PutIdempotencyRecordQ inserts a record if absent (insert-if-absent on the
// primary key, per 's idempotency-section model). Returns false if a row
// for key already existed (in which case no write occurred).
func (s *Store) PutIdempotencyRecordQ(ctx context.Context, q querier, key string, response any) (bool, error) {
	body, err := json.Marshal(response)
	if err != nil {
		return false, fmt.Errorf("marshaling idempotency response: %w", err)
	}
	tag, err := q.Exec(ctx, `INSERT INTO idempotency_records (key, response) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING`, key, body)
	if err != nil {
		return false, fmt.Errorf("inserting idempotency record: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
