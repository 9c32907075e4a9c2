package controlplane

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Digitlify-Inc/cmp-platform/internal/httpserver"
)

func (h *Handler) handleGetInstance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindValidation), "invalid instance id")
		return
	}
	caller, ok := h.callerOr401(w, r)
	if !ok {
		return
	}
	instance, err := h.svc.GetInstance(r.Context(), id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if allowed, err := h.svc.CanAccess(r.Context(), instance.OrgID, caller.UserID); err != nil {
		h.respondErr(w, r, err)
		return
	} else if !allowed {
		httpserver.RespondError(w, http.StatusForbidden, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindForbidden), "caller has no membership in the instance's organization")
		return
	}
	httpserver.Respond(w, http.StatusOK, instance)
}

// handleGetEntitlements surfaces the instance's merged effective_config
// (I8), the read-only view downstream services consult for limits.
func (h *Handler) handleGetEntitlements(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindValidation), "invalid instance id")
		return
	}
	caller, ok := h.callerOr401(w, r)
	if !ok {
		return
	}
	instance, err := h.svc.GetInstance(r.Context(), id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if allowed, err := h.svc.CanAccess(r.Context(), instance.OrgID, caller.UserID); err != nil {
		h.respondErr(w, r, err)
		return
	} else if !allowed {
		httpserver.RespondError(w, http.StatusForbidden, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindForbidden), "caller has no membership in the instance's organization")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{
		"instance_id":      instance.ID,
		"state":            instance.State,
		"effective_config": instance.EffectiveConfig,
	})
}

func (h *Handler) handleListAPIKeys(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindValidation), "invalid instance id")
		return
	}
	keys, err := h.svc.ListAPIKeys(r.Context(), id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"items": keys})
}

type createAPIKeyRequest struct {
	Name string `json:"name" validate:"required"`
}

// handleCreateAPIKey mints a new key and surfaces the raw secret exactly
// once.
func (h *Handler) handleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindValidation), "invalid instance id")
		return
	}
	var req createAPIKeyRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	generated, err := h.svc.GenerateAPIKey(r.Context(), id, req.Name)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusCreated, map[string]any{
		"api_key": generated.Row,
		"raw_key": generated.RawKey,
	})
}

func (h *Handler) handleRevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	keyID, err := uuid.Parse(chi.URLParam(r, "key_id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindValidation), "invalid key id")
		return
	}
	if err := h.svc.RevokeAPIKey(r.Context(), keyID); err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"revoked": true})
}

type trialStartRequest struct {
	ProductSlug string `json:"product_slug" validate:"required"`
}

func (h *Handler) handleTrialStart(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.callerOr401(w, r)
	if !ok {
		return
	}
	var req trialStartRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	result, err := h.svc.TrialStart(r.Context(), caller.UserID, caller.Email, req.ProductSlug)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, result)
}
