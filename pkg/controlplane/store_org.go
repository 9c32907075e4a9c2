package controlplane

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetOrgByOwnerQ returns the organization owned by ownerID via an OWNER
// membership, or ErrNotFound.
func (s *Store) GetOrgByOwnerQ(ctx context.Context, q querier, ownerID string) (Organization, error) {
	row := q.QueryRow(ctx, `
		SELECT o.id, o.name, o.slug, o.owner_id, o.created_at, o.updated_at
		FROM organizations o
		JOIN memberships m ON m.org_id = o.id
		WHERE m.user_id = $1 AND m.role = 'OWNER'
		LIMIT 1`, ownerID)
	return scanOrganization(row)
}

func scanOrganization(row pgx.Row) (Organization, error) {
	var o Organization
	if err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.OwnerID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Organization{}, ErrNotFound
		}
		return Organization{}, fmt.Errorf("loading organization: %w", err)
	}
	return o, nil
}

// GetOrgQ returns an organization by id.
func (s *Store) GetOrgQ(ctx context.Context, q querier, id uuid.UUID) (Organization, error) {
	row := q.QueryRow(ctx, `SELECT id, name, slug, owner_id, created_at, updated_at FROM organizations WHERE id = $1`, id)
	return scanOrganization(row)
}

// CreateOrgQ inserts a new organization.
func (s *Store) CreateOrgQ(ctx context.Context, q querier, name, slug string, ownerID *string) (Organization, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO organizations (name, slug, owner_id)
		VALUES ($1, $2, $3)
		RETURNING id, name, slug, owner_id, created_at, updated_at`, name, slug, ownerID)
	return scanOrganization(row)
}

// CreateProjectQ inserts a new project.
func (s *Store) CreateProjectQ(ctx context.Context, q querier, orgID uuid.UUID, name, slug string, isDefault bool) (Project, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO projects (org_id, name, slug, is_default)
		VALUES ($1, $2, $3, $4)
		RETURNING id, org_id, name, slug, is_default, created_at`, orgID, name, slug, isDefault)
	var p Project
	if err := row.Scan(&p.ID, &p.OrgID, &p.Name, &p.Slug, &p.IsDefault, &p.CreatedAt); err != nil {
		return Project{}, fmt.Errorf("creating project: %w", err)
	}
	return p, nil
}

// GetDefaultProjectQ returns the default (or else first) project of an org.
func (s *Store) GetDefaultProjectQ(ctx context.Context, q querier, orgID uuid.UUID) (Project, error) {
	row := q.QueryRow(ctx, `
		SELECT id, org_id, name, slug, is_default, created_at FROM projects
		WHERE org_id = $1 ORDER BY is_default DESC, created_at ASC LIMIT 1`, orgID)
	var p Project
	if err := row.Scan(&p.ID, &p.OrgID, &p.Name, &p.Slug, &p.IsDefault, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, ErrNotFound
		}
		return Project{}, fmt.Errorf("loading default project: %w", err)
	}
	return p, nil
}

// CreateMembershipQ inserts a membership row.
func (s *Store) CreateMembershipQ(ctx context.Context, q querier, orgID uuid.UUID, userID, role string) (Membership, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO memberships (org_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, org_id, user_id, role, teams, created_at`, orgID, userID, role)
	var m Membership
	if err := row.Scan(&m.ID, &m.OrgID, &m.UserID, &m.Role, &m.Teams, &m.CreatedAt); err != nil {
		return Membership{}, fmt.Errorf("creating membership: %w", err)
	}
	return m, nil
}

// GetMembershipQ returns the membership of userID in orgID, or ErrNotFound.
func (s *Store) GetMembershipQ(ctx context.Context, q querier, orgID uuid.UUID, userID string) (Membership, error) {
	row := q.QueryRow(ctx, `SELECT id, org_id, user_id, role, teams, created_at FROM memberships WHERE org_id = $1 AND user_id = $2`, orgID, userID)
	var m Membership
	if err := row.Scan(&m.ID, &m.OrgID, &m.UserID, &m.Role, &m.Teams, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Membership{}, ErrNotFound
		}
		return Membership{}, fmt.Errorf("loading membership: %w", err)
	}
	return m, nil
}

// ListOrgsForUserQ returns every organization userID is a member of.
func (s *Store) ListOrgsForUserQ(ctx context.Context, q querier, userID string) ([]Organization, error) {
	rows, err := q.Query(ctx, `
		SELECT o.id, o.name, o.slug, o.owner_id, o.created_at, o.updated_at
		FROM organizations o JOIN memberships m ON m.org_id = o.id
		WHERE m.user_id = $1 ORDER BY o.created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing organizations for user: %w", err)
	}
	defer rows.Close()

	var out []Organization
	for rows.Next() {
		var o Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.Slug, &o.OwnerID, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning organization: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
