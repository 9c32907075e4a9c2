package controlplane

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetOfferingBySlugQ returns an offering by its globally-unique slug.
func (s *Store) GetOfferingBySlugQ(ctx context.Context, q querier, slug string) (Offering, error) {
	row := q.QueryRow(ctx, `SELECT id, name, slug, category, status, commerce_product_id, created_at, updated_at FROM offerings WHERE slug = $1`, slug)
	return scanOffering(row)
}

// GetOfferingByCommerceProductQ returns an offering by its commerce product id.
func (s *Store) GetOfferingByCommerceProductQ(ctx context.Context, q querier, commerceProductID string) (Offering, error) {
	row := q.QueryRow(ctx, `SELECT id, name, slug, category, status, commerce_product_id, created_at, updated_at FROM offerings WHERE commerce_product_id = $1`, commerceProductID)
	return scanOffering(row)
}

// FindOfferingByNameContainsQ fuzzy-matches an offering by a case-insensitive
// substring of its name. Fragile by design (spec Open Question); retained
// as a last-resort fallback in the provisioning resolution order.
func (s *Store) FindOfferingByNameContainsQ(ctx context.Context, q querier, namePart string) (Offering, error) {
	row := q.QueryRow(ctx, `SELECT id, name, slug, category, status, commerce_product_id, created_at, updated_at FROM offerings WHERE name ILIKE '%' || $1 || '%' ORDER BY created_at ASC LIMIT 1`, namePart)
	return scanOffering(row)
}

// GetOfferingQ returns an offering by id.
func (s *Store) GetOfferingQ(ctx context.Context, q querier, id uuid.UUID) (Offering, error) {
	row := q.QueryRow(ctx, `SELECT id, name, slug, category, status, commerce_product_id, created_at, updated_at FROM offerings WHERE id = $1`, id)
	return scanOffering(row)
}

func scanOffering(row pgx.Row) (Offering, error) {
	var o Offering
	if err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.Category, &o.Status, &o.CommerceProductID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Offering{}, ErrNotFound
		}
		return Offering{}, fmt.Errorf("loading offering: %w", err)
	}
	return o, nil
}

// ListPublishedOfferingsQ returns all offerings visible to unauthenticated callers.
func (s *Store) ListPublishedOfferingsQ(ctx context.Context, q querier, limit, offset int) ([]Offering, error) {
	rows, err := q.Query(ctx, `SELECT id, name, slug, category, status, commerce_product_id, created_at, updated_at FROM offerings WHERE status = 'PUBLISHED' ORDER BY created_at ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing published offerings: %w", err)
	}
	defer rows.Close()
	var out []Offering
	for rows.Next() {
		var o Offering
		if err := rows.Scan(&o.ID, &o.Name, &o.Slug, &o.Category, &o.Status, &o.CommerceProductID, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning offering: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CreateOfferingQ inserts a new DRAFT offering.
func (s *Store) CreateOfferingQ(ctx context.Context, q querier, name, slug, category string, commerceProductID *string) (Offering, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO offerings (name, slug, category, status, commerce_product_id)
		VALUES ($1, $2, $3, 'DRAFT', $4)
		RETURNING id, name, slug, category, status, commerce_product_id, created_at, updated_at`, name, slug, category, commerceProductID)
	return scanOffering(row)
}

// NewestVersionQ returns the most recently created version of an offering.
func (s *Store) NewestVersionQ(ctx context.Context, q querier, offeringID uuid.UUID) (OfferingVersion, error) {
	row := q.QueryRow(ctx, `
		SELECT id, offering_id, version_label, artifact_ref, artifact_sha, capabilities, defaults, status, created_at
		FROM offering_versions WHERE offering_id = $1 ORDER BY created_at DESC LIMIT 1`, offeringID)
	return scanOfferingVersion(row)
}

func scanOfferingVersion(row pgx.Row) (OfferingVersion, error) {
	var v OfferingVersion
	if err := row.Scan(&v.ID, &v.OfferingID, &v.VersionLabel, &v.ArtifactRef, &v.ArtifactSHA, &v.Capabilities, &v.Defaults, &v.Status, &v.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return OfferingVersion{}, ErrNotFound
		}
		return OfferingVersion{}, fmt.Errorf("loading offering version: %w", err)
	}
	return v, nil
}

// ListOfferingVersionsQ returns all versions of an offering, newest first.
func (s *Store) ListOfferingVersionsQ(ctx context.Context, q querier, offeringID uuid.UUID) ([]OfferingVersion, error) {
	rows, err := q.Query(ctx, `
		SELECT id, offering_id, version_label, artifact_ref, artifact_sha, capabilities, defaults, status, created_at
		FROM offering_versions WHERE offering_id = $1 ORDER BY created_at DESC`, offeringID)
	if err != nil {
		return nil, fmt.Errorf("listing offering versions: %w", err)
	}
	defer rows.Close()
	var out []OfferingVersion
	for rows.Next() {
		var v OfferingVersion
		if err := rows.Scan(&v.ID, &v.OfferingID, &v.VersionLabel, &v.ArtifactRef, &v.ArtifactSHA, &v.Capabilities, &v.Defaults, &v.Status, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning offering version: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// CreateOfferingVersionQ inserts a new version. Fails with a unique
// violation if (offering_id, version_label) already exists.
func (s *Store) CreateOfferingVersionQ(ctx context.Context, q querier, offeringID uuid.UUID, label, artifactRef, artifactSHA string, capabilities []string, defaults map[string]any) (OfferingVersion, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO offering_versions (offering_id, version_label, artifact_ref, artifact_sha, capabilities, defaults, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'DRAFT')
		RETURNING id, offering_id, version_label, artifact_ref, artifact_sha, capabilities, defaults, status, created_at`,
		offeringID, label, artifactRef, artifactSHA, capabilities, defaults)
	return scanOfferingVersion(row)
}

// GetPlanByCommerceVariantQ returns a plan by its commerce variant id within an offering.
func (s *Store) GetPlanByCommerceVariantQ(ctx context.Context, q querier, offeringID uuid.UUID, variantID string) (Plan, error) {
	row := q.QueryRow(ctx, `
		SELECT id, offering_id, name, slug, billing_period, price_credits, included_credits, limits, is_default, is_trial, commerce_variant_id
		FROM plans WHERE offering_id = $1 AND commerce_variant_id = $2`, offeringID, variantID)
	return scanPlan(row)
}

// CheapestPlanQ returns the lowest-price_credits plan for an offering.
func (s *Store) CheapestPlanQ(ctx context.Context, q querier, offeringID uuid.UUID) (Plan, error) {
	row := q.QueryRow(ctx, `
		SELECT id, offering_id, name, slug, billing_period, price_credits, included_credits, limits, is_default, is_trial, commerce_variant_id
		FROM plans WHERE offering_id = $1 ORDER BY price_credits ASC LIMIT 1`, offeringID)
	return scanPlan(row)
}

// ListPlansQ returns all plans of an offering, cheapest first.
func (s *Store) ListPlansQ(ctx context.Context, q querier, offeringID uuid.UUID) ([]Plan, error) {
	rows, err := q.Query(ctx, `
		SELECT id, offering_id, name, slug, billing_period, price_credits, included_credits, limits, is_default, is_trial, commerce_variant_id
		FROM plans WHERE offering_id = $1 ORDER BY price_credits ASC`, offeringID)
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}
	defer rows.Close()
	var out []Plan
	for rows.Next() {
		var p Plan
		if err := rows.Scan(&p.ID, &p.OfferingID, &p.Name, &p.Slug, &p.BillingPeriod, &p.PriceCredits, &p.IncludedCredits, &p.Limits, &p.IsDefault, &p.IsTrial, &p.CommerceVariantID); err != nil {
			return nil, fmt.Errorf("scanning plan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPlanQ returns a plan by id.
func (s *Store) GetPlanQ(ctx context.Context, q querier, id uuid.UUID) (Plan, error) {
	row := q.QueryRow(ctx, `
		SELECT id, offering_id, name, slug, billing_period, price_credits, included_credits, limits, is_default, is_trial, commerce_variant_id
		FROM plans WHERE id = $1`, id)
	return scanPlan(row)
}

func scanPlan(row pgx.Row) (Plan, error) {
	var p Plan
	if err := row.Scan(&p.ID, &p.OfferingID, &p.Name, &p.Slug, &p.BillingPeriod, &p.PriceCredits, &p.IncludedCredits, &p.Limits, &p.IsDefault, &p.IsTrial, &p.CommerceVariantID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Plan{}, ErrNotFound
		}
		return Plan{}, fmt.Errorf("loading plan: %w", err)
	}
	return p, nil
}

// CreatePlanQ inserts a new plan.
func (s *Store) CreatePlanQ(ctx context.Context, q querier, p Plan) (Plan, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO plans (offering_id, name, slug, billing_period, price_credits, included_credits, limits, is_default, is_trial, commerce_variant_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, offering_id, name, slug, billing_period, price_credits, included_credits, limits, is_default, is_trial, commerce_variant_id`,
		p.OfferingID, p.Name, p.Slug, p.BillingPeriod, p.PriceCredits, p.IncludedCredits, p.Limits, p.IsDefault, p.IsTrial, p.CommerceVariantID)
	return scanPlan(row)
}
