package controlplane

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const bindingColumns = `id, org_id, project_id, connector_id, connector_type, display_name, secret_path, config, status, created_at`

func scanBinding(row pgx.Row) (ConnectorBinding, error) {
	var b ConnectorBinding
	if err := row.Scan(&b.ID, &b.OrgID, &b.ProjectID, &b.ConnectorID, &b.ConnectorType, &b.DisplayName, &b.SecretPath, &b.Config, &b.Status, &b.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ConnectorBinding{}, ErrNotFound
		}
		return ConnectorBinding{}, fmt.Errorf("loading connector binding: %w", err)
	}
	return b, nil
}

// CreateBindingQ inserts a connector binding.
func (s *Store) CreateBindingQ(ctx context.Context, q querier, b ConnectorBinding) (ConnectorBinding, error) {
	if b.Config == nil {
		b.Config = map[string]any{}
	}
	row := q.QueryRow(ctx, `
		INSERT INTO connector_bindings (org_id, project_id, connector_id, connector_type, display_name, secret_path, config, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+bindingColumns,
		b.OrgID, b.ProjectID, b.ConnectorID, b.ConnectorType, b.DisplayName, b.SecretPath, b.Config, b.Status)
	return scanBinding(row)
}

// GetBindingQ returns a connector binding by id.
func (s *Store) GetBindingQ(ctx context.Context, q querier, id uuid.UUID) (ConnectorBinding, error) {
	row := q.QueryRow(ctx, `SELECT `+bindingColumns+` FROM connector_bindings WHERE id = $1`, id)
	return scanBinding(row)
}

// ListBindingsQ lists connector bindings for a project.
func (s *Store) ListBindingsQ(ctx context.Context, q querier, projectID uuid.UUID) ([]ConnectorBinding, error) {
	rows, err := q.Query(ctx, `SELECT `+bindingColumns+` FROM connector_bindings WHERE project_id = $1 ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing connector bindings: %w", err)
	}
	defer rows.Close()
	var out []ConnectorBinding
	for rows.Next() {
		b, err := scanBindingRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning connector binding: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBindingRow(rows pgx.Rows) (ConnectorBinding, error) {
	var b ConnectorBinding
	err := rows.Scan(&b.ID, &b.OrgID, &b.ProjectID, &b.ConnectorID, &b.ConnectorType, &b.DisplayName, &b.SecretPath, &b.Config, &b.Status, &b.CreatedAt)
	return b, err
}

// RevokeBindingQ sets a binding's status to REVOKED.
func (s *Store) RevokeBindingQ(ctx context.Context, q querier, id uuid.UUID) error {
	tag, err := q.Exec(ctx, `UPDATE connector_bindings SET status = 'REVOKED' WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("revoking connector binding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
