package controlplane

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const instanceColumns = `id, offering_version_id, org_id, project_id, plan_id, name, state, overrides, effective_config, idempotency_key, created_at, updated_at`

func scanInstance(row pgx.Row) (Instance, error) {
	var i Instance
	if err := row.Scan(&i.ID, &i.OfferingVersionID, &i.OrgID, &i.ProjectID, &i.PlanID, &i.Name, &i.State, &i.Overrides, &i.EffectiveConfig, &i.IdempotencyKey, &i.CreatedAt, &i.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Instance{}, ErrNotFound
		}
		return Instance{}, fmt.Errorf("loading instance: %w", err)
	}
	return i, nil
}

// GetInstanceByIdempotencyKeyQ returns the instance created for key, if any.
func (s *Store) GetInstanceByIdempotencyKeyQ(ctx context.Context, q querier, key string) (Instance, error) {
	row := q.QueryRow(ctx, `SELECT `+instanceColumns+` FROM instances WHERE idempotency_key = $1`, key)
	return scanInstance(row)
}

// GetInstanceQ returns an instance by id.
func (s *Store) GetInstanceQ(ctx context.Context, q querier, id uuid.UUID) (Instance, error) {
	row := q.QueryRow(ctx, `SELECT `+instanceColumns+` FROM instances WHERE id = $1`, id)
	return scanInstance(row)
}

// CreateInstanceQ inserts an instance with effective_config already merged
// per I8 (see effective_config.go's MergeEffectiveConfig).
func (s *Store) CreateInstanceQ(ctx context.Context, q querier, i Instance) (Instance, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO instances (offering_version_id, org_id, project_id, plan_id, name, state, overrides, effective_config, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+instanceColumns,
		i.OfferingVersionID, i.OrgID, i.ProjectID, i.PlanID, i.Name, i.State, i.Overrides, i.EffectiveConfig, i.IdempotencyKey,
	)
	return scanInstance(row)
}

// SetInstanceStateQ transitions an instance's state.
func (s *Store) SetInstanceStateQ(ctx context.Context, q querier, id uuid.UUID, state string) (Instance, error) {
	row := q.QueryRow(ctx, `UPDATE instances SET state = $1, updated_at = now() WHERE id = $2 RETURNING `+instanceColumns, state, id)
	return scanInstance(row)
}

// ListInstancesByOrgQ lists instances belonging to an organization.
func (s *Store) ListInstancesByOrgQ(ctx context.Context, q querier, orgID uuid.UUID, limit, offset int) ([]Instance, error) {
	rows, err := q.Query(ctx, `SELECT `+instanceColumns+` FROM instances WHERE org_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, orgID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing instances: %w", err)
	}
	defer rows.Close()
	var out []Instance
	for rows.Next() {
		i, err := scanInstanceFromRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func scanInstanceFromRows(rows pgx.Rows) (Instance, error) {
	var i Instance
	if err := rows.Scan(&i.ID, &i.OfferingVersionID, &i.OrgID, &i.ProjectID, &i.PlanID, &i.Name, &i.State, &i.Overrides, &i.EffectiveConfig, &i.IdempotencyKey, &i.CreatedAt, &i.UpdatedAt); err != nil {
		return Instance{}, fmt.Errorf("scanning instance: %w", err)
	}
	return i, nil
}
