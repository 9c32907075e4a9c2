package controlplane

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Digitlify-Inc/cmp-platform/internal/httpserver"
)

// ProvisionRequest is the input to ProvisionInstance, carried by the
// Provisioner from a commerce order-paid event.
type ProvisionRequest struct {
	OrderID    string
	UserEmail  string
	OfferingID string // slug, commerce product id, or free-text product name — resolved in order
	PlanID     string // commerce variant id
	Metadata   map[string]any
}

// ProvisionResult is returned by ProvisionInstance and replayed verbatim on
// idempotent retries.
type ProvisionResult struct {
	InstanceID uuid.UUID `json:"instance_id"`
	APIKey     string    `json:"api_key"`
	Status     string    `json:"status"`
}

// ProvisionInstance resolves or creates a workspace, instance, and API key
// for a commerce order, keyed on provision:{order_id}:{offering_id} so a
// retried commerce event never double-provisions.
func (s *Service) ProvisionInstance(ctx context.Context, req ProvisionRequest) (ProvisionResult, error) {
	key := fmt.Sprintf("provision:%s:%s", req.OrderID, req.OfferingID)

	if existing, err := s.store.GetIdempotencyRecordQ(ctx, s.store.pool, key); err == nil {
		var result ProvisionResult
		if jerr := json.Unmarshal(existing.Response, &result); jerr != nil {
			return ProvisionResult{}, httpserver.NewError(httpserver.KindInternal, "decoding prior provisioning result", jerr)
		}
		return result, nil
	} else if !errors.Is(err, ErrNotFound) {
		return ProvisionResult{}, httpserver.NewError(httpserver.KindInternal, "checking idempotency record", err)
	}

	ws, err := s.ResolveOrCreateWorkspaceForCustomer(ctx, req.UserEmail)
	if err != nil {
		return ProvisionResult{}, err
	}

	offering, err := s.resolveOffering(ctx, req.OfferingID, req.Metadata)
	if err != nil {
		return ProvisionResult{}, err
	}

	version, err := s.store.NewestVersionQ(ctx, s.store.pool, offering.ID)
	if err != nil {
		return ProvisionResult{}, httpserver.NewError(httpserver.KindNotFound, "no offering version available", err)
	}

	plan, err := s.resolvePlan(ctx, offering.ID, req.PlanID)
	if err != nil {
		return ProvisionResult{}, err
	}

	var result ProvisionResult
	err = s.store.WithSerializableTx(ctx, func(tx pgx.Tx) error {
		effectiveConfig := MergeEffectiveConfig(version.Defaults, plan.Limits, nil)

		instance, err := s.store.CreateInstanceQ(ctx, tx, Instance{
			OfferingVersionID: version.ID,
			OrgID:             ws.Org.ID,
			ProjectID:         ws.Project.ID,
			PlanID:            plan.ID,
			Name:              offering.Name,
			State:             InstanceActive,
			Overrides:         map[string]any{},
			EffectiveConfig:   effectiveConfig,
			IdempotencyKey:    textOf(key),
		})
		if err != nil {
			return httpserver.NewError(httpserver.KindInternal, "creating instance", err)
		}

		generated, err := s.GenerateAPIKey(ctx, instance.ID, fmt.Sprintf("Default Key — Order %s", req.OrderID))
		if err != nil {
			return httpserver.NewError(httpserver.KindInternal, "creating default api key", err)
		}

		result = ProvisionResult{InstanceID: instance.ID, APIKey: generated.RawKey, Status: "active"}
		return nil
	})
	if err != nil {
		return ProvisionResult{}, err
	}

	if _, err := s.store.PutIdempotencyRecordQ(ctx, s.store.pool, key, result); err != nil {
		return ProvisionResult{}, httpserver.NewError(httpserver.KindInternal, "recording idempotency row", err)
	}
	return result, nil
}

func (s *Service) resolveOffering(ctx context.Context, offeringIDOrSlug string, metadata map[string]any) (Offering, error) {
	if slug, ok := stringField(metadata, "cp_offering_id"); ok {
		if o, err := s.store.GetOfferingBySlugQ(ctx, s.store.pool, slug); err == nil {
			return o, nil
		}
	}
	if o, err := s.store.GetOfferingByCommerceProductQ(ctx, s.store.pool, offeringIDOrSlug); err == nil {
		return o, nil
	}
	if productName, ok := stringField(metadata, "product_name"); ok {
		if o, err := s.store.FindOfferingByNameContainsQ(ctx, s.store.pool, productName); err == nil {
			return o, nil
		}
	}
	return Offering{}, httpserver.NewError(httpserver.KindNotFound, "no offering matched the provisioning request", ErrNotFound)
}

func (s *Service) resolvePlan(ctx context.Context, offeringID uuid.UUID, commerceVariantID string) (Plan, error) {
	if commerceVariantID != "" {
		if p, err := s.store.GetPlanByCommerceVariantQ(ctx, s.store.pool, offeringID, commerceVariantID); err == nil {
			return p, nil
		}
	}
	p, err := s.store.CheapestPlanQ(ctx, s.store.pool, offeringID)
	if err != nil {
		return Plan{}, httpserver.NewError(httpserver.KindNotFound, "no plan available for offering", err)
	}
	return p, nil
}

func stringField(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok && str != ""
}

// AddCreditsRequest is the input to AddCredits.
type AddCreditsRequest struct {
	OrderID      string
	UserEmail    string
	CreditAmount int64
}

// AddCreditsResult is returned by AddCredits and replayed verbatim on
// idempotent retries.
type AddCreditsResult struct {
	WalletID     uuid.UUID `json:"wallet_id"`
	CreditsAdded int64     `json:"credits_added"`
	NewBalance   int64     `json:"new_balance"`
}

// AddCredits tops up a workspace wallet for a commerce order, keyed on
// credits:{order_id}, resolving the workspace exactly as ProvisionInstance
// does before delegating the actual credit to the independently-callable
// WalletTopUp.
func (s *Service) AddCredits(ctx context.Context, req AddCreditsRequest) (AddCreditsResult, error) {
	key := fmt.Sprintf("credits:%s", req.OrderID)

	if existing, err := s.store.GetIdempotencyRecordQ(ctx, s.store.pool, key); err == nil {
		var result AddCreditsResult
		if jerr := json.Unmarshal(existing.Response, &result); jerr != nil {
			return AddCreditsResult{}, httpserver.NewError(httpserver.KindInternal, "decoding prior add-credits result", jerr)
		}
		return result, nil
	} else if !errors.Is(err, ErrNotFound) {
		return AddCreditsResult{}, httpserver.NewError(httpserver.KindInternal, "checking idempotency record", err)
	}

	ws, err := s.ResolveOrCreateWorkspaceForCustomer(ctx, req.UserEmail)
	if err != nil {
		return AddCreditsResult{}, err
	}

	newBalance, _, err := s.WalletTopUp(ctx, ws.Wallet.ID, req.CreditAmount, key, EntryTopup, map[string]any{"source": "commerce", "order_id": req.OrderID})
	if err != nil {
		return AddCreditsResult{}, err
	}

	result := AddCreditsResult{WalletID: ws.Wallet.ID, CreditsAdded: req.CreditAmount, NewBalance: newBalance}
	if _, err := s.store.PutIdempotencyRecordQ(ctx, s.store.pool, key, result); err != nil {
		return AddCreditsResult{}, httpserver.NewError(httpserver.KindInternal, "recording idempotency row", err)
	}
	return result, nil
}

// TrialResult is the output of TrialStart.
type TrialResult struct {
	InstanceID   uuid.UUID
	TrialGranted bool
	Balance      int64
}

// TrialStart resolves or creates the user's workspace, matches the offering
// by slug (exact, then contains-name), provisions an instance keyed
// trial:{user_id}:{offering_id}, and grants TRIAL_CREDITS only when the
// wallet balance is exactly zero.
func (s *Service) TrialStart(ctx context.Context, userID, email, productSlug string) (TrialResult, error) {
	ws, err := s.ResolveOrCreateWorkspaceForUser(ctx, userID, email)
	if err != nil {
		return TrialResult{}, err
	}

	offering, err := s.store.GetOfferingBySlugQ(ctx, s.store.pool, productSlug)
	if errors.Is(err, ErrNotFound) {
		offering, err = s.store.FindOfferingByNameContainsQ(ctx, s.store.pool, productSlug)
	}
	if err != nil {
		return TrialResult{}, httpserver.NewError(httpserver.KindNotFound, "no offering matched trial product", err)
	}

	version, err := s.store.NewestVersionQ(ctx, s.store.pool, offering.ID)
	if err != nil {
		return TrialResult{}, httpserver.NewError(httpserver.KindNotFound, "no offering version available", err)
	}
	plan, err := s.store.CheapestPlanQ(ctx, s.store.pool, offering.ID)
	if err != nil {
		return TrialResult{}, httpserver.NewError(httpserver.KindNotFound, "no plan available for offering", err)
	}

	instanceKey := fmt.Sprintf("trial:%s:%s", userID, offering.ID)

	var result TrialResult
	err = s.store.WithSerializableTx(ctx, func(tx pgx.Tx) error {
		instance, err := s.store.GetInstanceByIdempotencyKeyQ(ctx, tx, instanceKey)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return httpserver.NewError(httpserver.KindInternal, "checking prior trial instance", err)
		}
		if err == nil {
			result.InstanceID = instance.ID
		} else {
			effectiveConfig := MergeEffectiveConfig(version.Defaults, plan.Limits, nil)
			instance, err = s.store.CreateInstanceQ(ctx, tx, Instance{
				OfferingVersionID: version.ID,
				OrgID:             ws.Org.ID,
				ProjectID:         ws.Project.ID,
				PlanID:            plan.ID,
				Name:              offering.Name,
				State:             InstanceActive,
				Overrides:         map[string]any{},
				EffectiveConfig:   effectiveConfig,
				IdempotencyKey:    textOf(instanceKey),
			})
			if err != nil {
				return httpserver.NewError(httpserver.KindInternal, "creating trial instance", err)
			}
			result.InstanceID = instance.ID
		}

		wallet, err := s.store.GetWalletByIDQ(ctx, tx, ws.Wallet.ID)
		if err != nil {
			return httpserver.NewError(httpserver.KindInternal, "loading wallet", err)
		}
		result.Balance = wallet.Balance
		if wallet.Balance == 0 {
			newBalance, err := s.store.TopUpQ(ctx, tx, wallet.ID, s.TrialCredits, EntryTrialGrant, fmt.Sprintf("trial:%s", result.InstanceID), map[string]any{"reason": "trial start"})
			if err != nil {
				return httpserver.NewError(httpserver.KindInternal, "granting trial credits", err)
			}
			result.Balance = newBalance
			result.TrialGranted = true
		}
		return nil
	})
	if err != nil {
		return TrialResult{}, err
	}
	return result, nil
}
