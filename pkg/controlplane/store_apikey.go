package controlplane

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const apiKeyColumns = `id, instance_id, name, prefix, hash, last_used_at, expires_at, is_active, created_at`

func scanAPIKey(row pgx.Row) (APIKey, error) {
	var k APIKey
	if err := row.Scan(&k.ID, &k.InstanceID, &k.Name, &k.Prefix, &k.Hash, &k.LastUsedAt, &k.ExpiresAt, &k.IsActive, &k.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return APIKey{}, ErrNotFound
		}
		return APIKey{}, fmt.Errorf("loading api key: %w", err)
	}
	return k, nil
}

// CreateAPIKeyQ inserts a new API key.
func (s *Store) CreateAPIKeyQ(ctx context.Context, q querier, instanceID uuid.UUID, name, prefix, hash string, expiresAt pgtype.Timestamptz) (APIKey, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO api_keys (instance_id, name, prefix, hash, expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, true)
		RETURNING `+apiKeyColumns, instanceID, name, prefix, hash, expiresAt)
	return scanAPIKey(row)
}

// FindActiveAPIKeyByPrefixQ returns active, non-expired keys sharing a
// prefix — validation then confirms the hash also matches.
func (s *Store) FindActiveAPIKeyByPrefixQ(ctx context.Context, q querier, prefix string) ([]APIKey, error) {
	rows, err := q.Query(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE prefix = $1 AND is_active = true`, prefix)
	if err != nil {
		return nil, fmt.Errorf("looking up api keys by prefix: %w", err)
	}
	defer rows.Close()
	var out []APIKey
	for rows.Next() {
		var k APIKey
		if err := rows.Scan(&k.ID, &k.InstanceID, &k.Name, &k.Prefix, &k.Hash, &k.LastUsedAt, &k.ExpiresAt, &k.IsActive, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning api key: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// TouchAPIKeyQ updates last_used_at to now.
func (s *Store) TouchAPIKeyQ(ctx context.Context, q querier, id uuid.UUID) error {
	_, err := q.Exec(ctx, `UPDATE api_keys SET last_used_at = $1 WHERE id = $2`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("touching api key: %w", err)
	}
	return nil
}

// RevokeAPIKeyQ deactivates an API key.
func (s *Store) RevokeAPIKeyQ(ctx context.Context, q querier, id uuid.UUID) error {
	tag, err := q.Exec(ctx, `UPDATE api_keys SET is_active = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("revoking api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAPIKeysByInstanceQ lists API keys for an instance.
func (s *Store) ListAPIKeysByInstanceQ(ctx context.Context, q querier, instanceID uuid.UUID) ([]APIKey, error) {
	rows, err := q.Query(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE instance_id = $1 ORDER BY created_at DESC`, instanceID)
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}
	defer rows.Close()
	var out []APIKey
	for rows.Next() {
		var k APIKey
		if err := rows.Scan(&k.ID, &k.InstanceID, &k.Name, &k.Prefix, &k.Hash, &k.LastUsedAt, &k.ExpiresAt, &k.IsActive, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning api key: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
