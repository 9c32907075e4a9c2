package controlplane

import (
	"context"

	"github.com/google/uuid"
)

// ListPublishedOfferings returns offerings visible to unauthenticated callers.
func (s *Service) ListPublishedOfferings(ctx context.Context, limit, offset int) ([]Offering, error) {
	return s.store.ListPublishedOfferingsQ(ctx, s.store.pool, limit, offset)
}

// GetOffering returns an offering by id.
func (s *Service) GetOffering(ctx context.Context, id uuid.UUID) (Offering, error) {
	return s.store.GetOfferingQ(ctx, s.store.pool, id)
}

// CreateOffering creates a new DRAFT offering.
func (s *Service) CreateOffering(ctx context.Context, name, category string, commerceProductID *string) (Offering, error) {
	return s.store.CreateOfferingQ(ctx, s.store.pool, name, Slugify(name), category, commerceProductID)
}

// ListOfferingVersions returns every version of an offering, newest first.
func (s *Service) ListOfferingVersions(ctx context.Context, offeringID uuid.UUID) ([]OfferingVersion, error) {
	return s.store.ListOfferingVersionsQ(ctx, s.store.pool, offeringID)
}

// CreateOfferingVersion adds an immutable version to an offering (I6).
func (s *Service) CreateOfferingVersion(ctx context.Context, offeringID uuid.UUID, label, artifactRef, artifactSHA string, capabilities []string, defaults map[string]any) (OfferingVersion, error) {
	return s.store.CreateOfferingVersionQ(ctx, s.store.pool, offeringID, label, artifactRef, artifactSHA, capabilities, defaults)
}

// ListPlans returns every plan of an offering, cheapest first.
func (s *Service) ListPlans(ctx context.Context, offeringID uuid.UUID) ([]Plan, error) {
	return s.store.ListPlansQ(ctx, s.store.pool, offeringID)
}

// CreatePlan adds a plan to an offering.
func (s *Service) CreatePlan(ctx context.Context, p Plan) (Plan, error) {
	p.Slug = Slugify(p.Name)
	return s.store.CreatePlanQ(ctx, s.store.pool, p)
}

// GetInstance returns an instance by id.
func (s *Service) GetInstance(ctx context.Context, id uuid.UUID) (Instance, error) {
	return s.store.GetInstanceQ(ctx, s.store.pool, id)
}

// ListInstancesForOrg lists instances belonging to an organization.
func (s *Service) ListInstancesForOrg(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]Instance, error) {
	return s.store.ListInstancesByOrgQ(ctx, s.store.pool, orgID, limit, offset)
}

// SetInstanceState transitions an instance's state (operator action).
func (s *Service) SetInstanceState(ctx context.Context, id uuid.UUID, state string) (Instance, error) {
	return s.store.SetInstanceStateQ(ctx, s.store.pool, id, state)
}

// ListAPIKeys lists API keys for an instance.
func (s *Service) ListAPIKeys(ctx context.Context, instanceID uuid.UUID) ([]APIKey, error) {
	return s.store.ListAPIKeysByInstanceQ(ctx, s.store.pool, instanceID)
}

// RevokeAPIKey deactivates an API key.
func (s *Service) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	return s.store.RevokeAPIKeyQ(ctx, s.store.pool, id)
}

// GetWallet returns a wallet by id (read-only, outside a transaction).
func (s *Service) GetWallet(ctx context.Context, id uuid.UUID) (Wallet, error) {
	row := s.store.pool.QueryRow(ctx, `SELECT id, org_id, balance, currency FROM wallets WHERE id = $1`, id)
	var w Wallet
	if err := row.Scan(&w.ID, &w.OrgID, &w.Balance, &w.Currency); err != nil {
		return Wallet{}, translateNoRows(err)
	}
	return w, nil
}

// GetWalletByOrg returns the wallet for an organization (read-only).
func (s *Service) GetWalletByOrg(ctx context.Context, orgID uuid.UUID) (Wallet, error) {
	row := s.store.pool.QueryRow(ctx, `SELECT id, org_id, balance, currency FROM wallets WHERE org_id = $1`, orgID)
	var w Wallet
	if err := row.Scan(&w.ID, &w.OrgID, &w.Balance, &w.Currency); err != nil {
		return Wallet{}, translateNoRows(err)
	}
	return w, nil
}

// ListLedger returns ledger entries for a wallet, newest first.
func (s *Service) ListLedger(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]LedgerEntry, error) {
	return s.store.ListLedgerQ(ctx, s.store.pool, walletID, limit, offset)
}

// ListOrgsForUser returns every organization userID is a member of.
func (s *Service) ListOrgsForUser(ctx context.Context, userID string) ([]Organization, error) {
	return s.store.ListOrgsForUserQ(ctx, s.store.pool, userID)
}

// GetOrg returns an organization by id.
func (s *Service) GetOrg(ctx context.Context, id uuid.UUID) (Organization, error) {
	return s.store.GetOrgQ(ctx, s.store.pool, id)
}

// CreateProject adds a non-default project to an organization.
func (s *Service) CreateProject(ctx context.Context, orgID uuid.UUID, name string) (Project, error) {
	return s.store.CreateProjectQ(ctx, s.store.pool, orgID, name, Slugify(name), false)
}

// AddMember adds userID to orgID with the given role.
func (s *Service) AddMember(ctx context.Context, orgID uuid.UUID, userID, role string) (Membership, error) {
	return s.store.CreateMembershipQ(ctx, s.store.pool, orgID, userID, role)
}
