package controlplane

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Digitlify-Inc/cmp-platform/internal/httpserver"
)

type createBindingRequest struct {
	OrgID         uuid.UUID      `json:"org_id" validate:"required"`
	ProjectID     uuid.UUID      `json:"project_id" validate:"required"`
	ConnectorID   string         `json:"connector_id" validate:"required"`
	ConnectorType string         `json:"connector_type" validate:"omitempty,oneof=http mcp oauth2"`
	DisplayName   string         `json:"display_name" validate:"required"`
	Config        map[string]any `json:"config"`
	Credentials   map[string]any `json:"credentials"`
}

func (h *Handler) handleCreateBinding(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.callerOr401(w, r)
	if !ok {
		return
	}
	var req createBindingRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	if isAdmin, err := h.svc.IsAdmin(r.Context(), req.OrgID, caller.UserID); err != nil {
		h.respondErr(w, r, err)
		return
	} else if !isAdmin {
		httpserver.RespondError(w, http.StatusForbidden, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindForbidden), "creating connector bindings requires OWNER or ADMIN membership")
		return
	}
	binding, err := h.svc.CreateBinding(r.Context(), CreateBindingRequest{
		OrgID:         req.OrgID,
		ProjectID:     req.ProjectID,
		ConnectorID:   req.ConnectorID,
		ConnectorType: req.ConnectorType,
		DisplayName:   req.DisplayName,
		Config:        req.Config,
		Credentials:   req.Credentials,
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusCreated, binding)
}

func (h *Handler) handleListBindings(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(r.URL.Query().Get("project_id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindValidation), "invalid or missing project_id")
		return
	}
	bindings, err := h.svc.ListBindings(r.Context(), projectID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"items": bindings})
}

func (h *Handler) handleRevokeBinding(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindValidation), "invalid binding id")
		return
	}
	if err := h.svc.RevokeBinding(r.Context(), id); err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"revoked": true})
}

func (h *Handler) handleReadBindingCredentials(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindValidation), "invalid binding id")
		return
	}
	masked, err := h.svc.ReadMaskedCredentials(r.Context(), id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, masked)
}
