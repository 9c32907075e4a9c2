package controlplane

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Digitlify-Inc/cmp-platform/internal/httpserver"
)

// Workspace bundles the organization, its default project, and its wallet —
// the unit resolved or created together by every workspace entry point:
// personal login, commerce customer, and authenticated trial.
type Workspace struct {
	Org          Organization
	Project      Project
	Wallet       Wallet
	TrialGranted bool
}

// ResolveOrCreatePersonalWorkspace implements the personal-login entry point
// (POST /orgs/auto): get-or-create a workspace owned by userID, funding a
// fresh wallet with TrialCredits.
func (s *Service) ResolveOrCreatePersonalWorkspace(ctx context.Context, userID, username string) (Workspace, error) {
	return s.resolveOrCreateWorkspace(ctx, userID, username+"'s Workspace", true)
}

// ResolveOrCreateWorkspaceForCustomer resolves or creates a workspace keyed
// by the commerce customer's email, used by provisioning/add-credits.
func (s *Service) ResolveOrCreateWorkspaceForCustomer(ctx context.Context, email string) (Workspace, error) {
	return s.resolveOrCreateWorkspace(ctx, email, LocalPart(email)+"'s Workspace", true)
}

// ResolveOrCreateWorkspaceForUser implements the authenticated-trial entry
// point: same shape, but the wallet starts at zero — TrialStart grants
// trial credits separately, only once, when the balance is exactly zero.
func (s *Service) ResolveOrCreateWorkspaceForUser(ctx context.Context, userID, email string) (Workspace, error) {
	return s.resolveOrCreateWorkspace(ctx, userID, LocalPart(email)+"'s Workspace", false)
}

func (s *Service) resolveOrCreateWorkspace(ctx context.Context, ownerID, orgName string, fundTrial bool) (Workspace, error) {
	var ws Workspace
	err := s.store.WithSerializableTx(ctx, func(tx pgx.Tx) error {
		org, err := s.store.GetOrgByOwnerQ(ctx, tx, ownerID)
		if err == nil {
			project, perr := s.store.GetDefaultProjectQ(ctx, tx, org.ID)
			if perr != nil {
				return httpserver.NewError(httpserver.KindInternal, "loading default project", perr)
			}
			wallet, werr := s.store.GetWalletByOrgQ(ctx, tx, org.ID)
			if werr != nil {
				return httpserver.NewError(httpserver.KindInternal, "loading wallet", werr)
			}
			ws = Workspace{Org: org, Project: project, Wallet: wallet, TrialGranted: false}
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return httpserver.NewError(httpserver.KindInternal, "resolving organization", err)
		}

		slug := Slugify(orgName)
		owner := ownerID
		org, err = s.store.CreateOrgQ(ctx, tx, orgName, slug, &owner)
		if err != nil {
			return httpserver.NewError(httpserver.KindInternal, "creating organization", err)
		}

		project, err := s.store.CreateProjectQ(ctx, tx, org.ID, "Default", "default", true)
		if err != nil {
			return httpserver.NewError(httpserver.KindInternal, "creating default project", err)
		}

		var startBalance int64
		if fundTrial {
			startBalance = s.TrialCredits
		}
		wallet, err := s.store.CreateWalletQ(ctx, tx, org.ID, startBalance)
		if err != nil {
			return httpserver.NewError(httpserver.KindInternal, "creating wallet", err)
		}

		if _, err := s.store.CreateMembershipQ(ctx, tx, org.ID, ownerID, RoleOwner); err != nil {
			return httpserver.NewError(httpserver.KindInternal, "creating owner membership", err)
		}

		if fundTrial && startBalance > 0 {
			if _, err := s.store.insertLedgerEntryQ(ctx, tx, wallet.ID, startBalance, EntryTrialGrant, "workspace:"+org.ID.String(), nil, map[string]any{"reason": "new workspace"}); err != nil {
				return httpserver.NewError(httpserver.KindInternal, "recording trial grant", err)
			}
		}

		ws = Workspace{Org: org, Project: project, Wallet: wallet, TrialGranted: fundTrial && startBalance > 0}
		return nil
	})
	if err != nil {
		return Workspace{}, err
	}
	return ws, nil
}

// UserRole returns the caller's role in an organization, or "" if not a member.
func (s *Service) UserRole(ctx context.Context, orgID uuid.UUID, userID string) (string, error) {
	m, err := s.store.GetMembershipQ(ctx, s.store.pool, orgID, userID)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return m.Role, nil
}

// CanAccess reports whether userID has any membership in orgID.
func (s *Service) CanAccess(ctx context.Context, orgID uuid.UUID, userID string) (bool, error) {
	role, err := s.UserRole(ctx, orgID, userID)
	return role != "", err
}

// IsAdmin reports whether userID is an OWNER or ADMIN of orgID.
func (s *Service) IsAdmin(ctx context.Context, orgID uuid.UUID, userID string) (bool, error) {
	role, err := s.UserRole(ctx, orgID, userID)
	return role == RoleOwner || role == RoleAdmin, err
}
