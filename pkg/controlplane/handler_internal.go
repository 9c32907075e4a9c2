package controlplane

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Digitlify-Inc/cmp-platform/internal/httpserver"
)

type introspectAPIKeyRequest struct {
	APIKey string `json:"api_key" validate:"required"`
}

type introspectAPIKeyResponse struct {
	Valid      bool   `json:"valid"`
	InstanceID string `json:"instance_id,omitempty"`
	OrgID      string `json:"org_id,omitempty"`
	ProjectID  string `json:"project_id,omitempty"`
}

// handleIntrospectAPIKey backs the Gateway's API-key authentication scheme:
// it trades a raw key for the API-key context the Gateway needs
// (instance_id, org_id) without ever handing the hash or prefix back.
func (h *Handler) handleIntrospectAPIKey(w http.ResponseWriter, r *http.Request) {
	var req introspectAPIKeyRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	instance, err := h.svc.ValidateAPIKey(r.Context(), req.APIKey)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if instance == nil {
		httpserver.Respond(w, http.StatusOK, introspectAPIKeyResponse{Valid: false})
		return
	}
	httpserver.Respond(w, http.StatusOK, introspectAPIKeyResponse{
		Valid:      true,
		InstanceID: instance.ID.String(),
		OrgID:      instance.OrgID.String(),
		ProjectID:  instance.ProjectID.String(),
	})
}

// handleGetInstanceInternal is the Gateway's own instance lookup, used to
// resolve widget branding configuration without requiring an OIDC caller
// identity (the Gateway itself authenticates the end user or API key).
func (h *Handler) handleGetInstanceInternal(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindValidation), "invalid instance id")
		return
	}
	instance, err := h.svc.GetInstance(r.Context(), id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, instance)
}

// handleGetBindingInternal is the Connector Gateway's own binding lookup
// ; unlike handleReadBindingCredentials it never touches the
// secret store, so it carries no credential material to mask.
func (h *Handler) handleGetBindingInternal(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindValidation), "invalid binding id")
		return
	}
	binding, err := h.svc.GetBinding(r.Context(), id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, binding)
}
