package controlplane

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations for the control plane domain,
// backed by a single Postgres schema (no per-tenant schema isolation —
// rows are scoped by org_id/project_id foreign keys).
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// DB exposes the pool for callers (e.g. readiness checks) that need a raw
// ping without going through the Store's domain methods.
func (s *Store) DB() *pgxpool.Pool { return s.pool }
