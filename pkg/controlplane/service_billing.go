package controlplane

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Digitlify-Inc/cmp-platform/internal/httpserver"
	"github.com/Digitlify-Inc/cmp-platform/internal/telemetry"
)

// AuthorizeResult is the output of Authorize.
type AuthorizeResult struct {
	Allowed       bool
	ReservationID uuid.UUID
	Budget        int64
	Balance       int64
}

// Authorize checks wallet balance and opens a reservation. The availability
// check and the reservation write happen inside a single SERIALIZABLE
// transaction scoped to the instance's wallet, which is what makes
// concurrent authorize calls on the same wallet resolve deterministically
// ("Authorize race").
func (s *Service) Authorize(ctx context.Context, instanceID uuid.UUID, requestedBudget int64) (AuthorizeResult, error) {
	budget := requestedBudget
	if budget <= 0 {
		budget = s.DefaultRunBudget
	}

	var result AuthorizeResult
	err := s.store.WithSerializableTx(ctx, func(tx pgx.Tx) error {
		inst, err := s.store.GetInstanceQ(ctx, tx, instanceID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return httpserver.NewError(httpserver.KindNotFound, "instance not found", err)
			}
			return httpserver.NewError(httpserver.KindInternal, "loading instance", err)
		}

		wallet, err := s.store.GetWalletByOrgQ(ctx, tx, inst.OrgID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return httpserver.NewError(httpserver.KindNotFound, "wallet not found", err)
			}
			return httpserver.NewError(httpserver.KindInternal, "loading wallet", err)
		}

		pending, err := s.store.PendingReservedQ(ctx, tx, wallet.ID)
		if err != nil {
			return httpserver.NewError(httpserver.KindInternal, "summing pending reservations", err)
		}

		available := wallet.Balance - pending
		result.Balance = wallet.Balance

		if available < budget {
			r, err := s.store.CreateReservationQ(ctx, tx, wallet.ID, instanceID, 0, ReservationCancelled)
			if err != nil {
				return httpserver.NewError(httpserver.KindInternal, "recording cancelled reservation", err)
			}
			result.Allowed = false
			result.ReservationID = r.ID
			result.Budget = 0
			return nil
		}

		r, err := s.store.CreateReservationQ(ctx, tx, wallet.ID, instanceID, budget, ReservationPending)
		if err != nil {
			return httpserver.NewError(httpserver.KindInternal, "creating reservation", err)
		}
		result.Allowed = true
		result.ReservationID = r.ID
		result.Budget = budget
		return nil
	})
	if err != nil {
		return AuthorizeResult{}, err
	}
	outcome := "denied"
	if result.Allowed {
		outcome = "allowed"
	}
	telemetry.ReservationsCreatedTotal.WithLabelValues(outcome).Inc()
	return result, nil
}

// SettleResult is the output of Settle.
type SettleResult struct {
	Debited       int64
	Balance       int64
	LedgerEntryID uuid.UUID
	Status        string
}

// Settle debits a reservation for actual usage and closes it out, including
// the idempotent-replay shortcut for a reservation that was already settled.
func (s *Service) Settle(ctx context.Context, reservationID, instanceID uuid.UUID, usage Usage) (SettleResult, error) {
	var result SettleResult
	var outcome string
	err := s.store.WithSerializableTx(ctx, func(tx pgx.Tx) error {
		r, err := s.store.GetReservationQ(ctx, tx, reservationID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return httpserver.NewError(httpserver.KindNotFound, "reservation not found", err)
			}
			return httpserver.NewError(httpserver.KindInternal, "loading reservation", err)
		}

		if r.Status != ReservationPending {
			wallet, err := s.store.GetWalletByIDQ(ctx, tx, r.WalletID)
			if err != nil {
				return httpserver.NewError(httpserver.KindInternal, "loading wallet", err)
			}
			entry, err := s.store.LedgerEntryForReservationQ(ctx, tx, reservationID)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return httpserver.NewError(httpserver.KindInternal, "loading prior settlement", err)
			}
			result = SettleResult{Debited: 0, Balance: wallet.Balance, LedgerEntryID: entry.ID, Status: "settled"}
			outcome = "replayed"
			return nil
		}

		debited := Price(usage)
		if debited > r.Amount {
			debited = r.Amount
		}

		entry, newBalance, err := s.store.SettleReservationQ(ctx, tx, r, debited, usageToMap(usage))
		if err != nil {
			return httpserver.NewError(httpserver.KindInternal, "settling reservation", err)
		}

		result = SettleResult{Debited: debited, Balance: newBalance, LedgerEntryID: entry.ID, Status: "settled"}
		outcome = "settled"
		return nil
	})
	if err != nil {
		return SettleResult{}, err
	}
	telemetry.SettlementsTotal.WithLabelValues(outcome).Inc()
	return result, nil
}

func usageToMap(u Usage) map[string]any {
	return map[string]any{
		"llm_tokens_in":  u.LLMTokensIn,
		"llm_tokens_out": u.LLMTokensOut,
		"tool_calls":     u.ToolCalls,
		"requests":       u.Requests,
		"rag_queries":    u.RAGQueries,
	}
}

// WalletTopUp implements the independently-callable wallet_topup primitive,
// idempotent on idempotencyKey alone: a ledger entry whose
// reference_id already equals the key means this top-up already applied.
func (s *Service) WalletTopUp(ctx context.Context, walletID uuid.UUID, credits int64, idempotencyKey string, entryType string, extraMetadata map[string]any) (newBalance int64, applied bool, err error) {
	txErr := s.store.WithSerializableTx(ctx, func(tx pgx.Tx) error {
		wallet, err := s.store.GetWalletByIDQ(ctx, tx, walletID)
		if err != nil {
			return httpserver.NewError(httpserver.KindInternal, "loading wallet", err)
		}

		existing, err := s.store.LedgerEntryByReferenceQ(ctx, tx, walletID, idempotencyKey)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return httpserver.NewError(httpserver.KindInternal, "checking prior top-up", err)
		}
		if err == nil {
			newBalance = wallet.Balance
			_ = existing
			applied = false
			return nil
		}

		bal, err := s.store.TopUpQ(ctx, tx, walletID, credits, entryType, idempotencyKey, extraMetadata)
		if err != nil {
			return httpserver.NewError(httpserver.KindInternal, fmt.Sprintf("crediting wallet %s", walletID), err)
		}
		newBalance = bal
		applied = true
		return nil
	})
	if txErr != nil {
		return 0, false, txErr
	}
	return newBalance, applied, nil
}
