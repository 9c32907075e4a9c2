package controlplane

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Digitlify-Inc/cmp-platform/internal/httpserver"
)

type authorizeRequest struct {
	InstanceID      uuid.UUID `json:"instance_id" validate:"required"`
	RequestedBudget int64     `json:"requested_budget"`
}

func (h *Handler) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	var req authorizeRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	result, err := h.svc.Authorize(r.Context(), req.InstanceID, req.RequestedBudget)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, result)
}

type settleRequest struct {
	ReservationID uuid.UUID `json:"reservation_id" validate:"required"`
	InstanceID    uuid.UUID `json:"instance_id" validate:"required"`
	Usage         Usage     `json:"usage"`
}

func (h *Handler) handleSettle(w http.ResponseWriter, r *http.Request) {
	var req settleRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	result, err := h.svc.Settle(r.Context(), req.ReservationID, req.InstanceID, req.Usage)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, result)
}

func (h *Handler) handleWalletMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.callerOr401(w, r)
	if !ok {
		return
	}
	orgs, err := h.svc.ListOrgsForUser(r.Context(), caller.UserID)
	if err != nil || len(orgs) == 0 {
		h.respondErr(w, r, httpserver.NewError(httpserver.KindNotFound, "no workspace for caller", err))
		return
	}
	wallet, err := h.svc.GetWalletByOrg(r.Context(), orgs[0].ID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, wallet)
}

func (h *Handler) handleWalletMeLedger(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.callerOr401(w, r)
	if !ok {
		return
	}
	orgs, err := h.svc.ListOrgsForUser(r.Context(), caller.UserID)
	if err != nil || len(orgs) == 0 {
		h.respondErr(w, r, httpserver.NewError(httpserver.KindNotFound, "no workspace for caller", err))
		return
	}
	wallet, err := h.svc.GetWalletByOrg(r.Context(), orgs[0].ID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	params, perr := httpserver.ParseOffsetParams(r)
	if perr != nil {
		httpserver.RespondError(w, http.StatusBadRequest, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindValidation), perr.Error())
		return
	}
	entries, err := h.svc.ListLedger(r.Context(), wallet.ID, params.PageSize, params.Offset)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"items": entries})
}

func (h *Handler) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindValidation), "invalid wallet id")
		return
	}
	wallet, err := h.svc.GetWallet(r.Context(), id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, wallet)
}

type topUpRequest struct {
	Credits        int64  `json:"credits" validate:"required,gt=0"`
	IdempotencyKey string `json:"idempotency_key" validate:"required"`
}

// handleWalletTopUp implements the "mutating wallet top-ups require OWNER or
// ADMIN" access check.
func (h *Handler) handleWalletTopUp(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindValidation), "invalid wallet id")
		return
	}
	caller, ok := h.callerOr401(w, r)
	if !ok {
		return
	}
	wallet, err := h.svc.GetWallet(r.Context(), id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	isAdmin, err := h.svc.IsAdmin(r.Context(), wallet.OrgID, caller.UserID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if !isAdmin {
		httpserver.RespondError(w, http.StatusForbidden, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindForbidden), "wallet top-ups require OWNER or ADMIN membership")
		return
	}

	var req topUpRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	newBalance, applied, err := h.svc.WalletTopUp(r.Context(), id, req.Credits, req.IdempotencyKey, EntryTopup, map[string]any{"source": "manual"})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"new_balance": newBalance, "applied": applied})
}
