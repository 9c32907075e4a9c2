package controlplane

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, letting store
// methods run against either a transaction or the bare pool.
type querier interface {
	Exec(ctx context.Context, sql string, args...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args...any) pgx.Row
}

// WithSerializableTx runs fn inside a SERIALIZABLE transaction, committing on
// success and rolling back on any error. Every wallet-section operation
// (authorize, settle, top-up, trial grant) uses this to satisfy I2/I3.
func (s *Store) WithSerializableTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
