package controlplane

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Digitlify-Inc/cmp-platform/internal/httpserver"
)

// handleOrgAuto is the personal-login workspace entry point :
// get-or-create an organization owned by the caller.
func (h *Handler) handleOrgAuto(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.callerOr401(w, r)
	if !ok {
		return
	}
	username := caller.Email
	ws, err := h.svc.ResolveOrCreatePersonalWorkspace(r.Context(), caller.UserID, username)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, ws)
}

func (h *Handler) handleListOrgs(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.callerOr401(w, r)
	if !ok {
		return
	}
	orgs, err := h.svc.ListOrgsForUser(r.Context(), caller.UserID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"items": orgs})
}

func (h *Handler) handleGetOrg(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindValidation), "invalid org id")
		return
	}
	caller, ok := h.callerOr401(w, r)
	if !ok {
		return
	}
	if allowed, err := h.svc.CanAccess(r.Context(), id, caller.UserID); err != nil {
		h.respondErr(w, r, err)
		return
	} else if !allowed {
		httpserver.RespondError(w, http.StatusForbidden, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindForbidden), "caller has no membership in this organization")
		return
	}
	org, err := h.svc.GetOrg(r.Context(), id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, org)
}

type createProjectRequest struct {
	Name string `json:"name" validate:"required"`
}

func (h *Handler) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindValidation), "invalid org id")
		return
	}
	caller, ok := h.callerOr401(w, r)
	if !ok {
		return
	}
	if isAdmin, err := h.svc.IsAdmin(r.Context(), orgID, caller.UserID); err != nil {
		h.respondErr(w, r, err)
		return
	} else if !isAdmin {
		httpserver.RespondError(w, http.StatusForbidden, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindForbidden), "creating projects requires OWNER or ADMIN membership")
		return
	}
	var req createProjectRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	project, err := h.svc.CreateProject(r.Context(), orgID, req.Name)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusCreated, project)
}

type addMemberRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"required,oneof=OWNER ADMIN MEMBER VIEWER"`
}

func (h *Handler) handleAddMember(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindValidation), "invalid org id")
		return
	}
	caller, ok := h.callerOr401(w, r)
	if !ok {
		return
	}
	if isAdmin, err := h.svc.IsAdmin(r.Context(), orgID, caller.UserID); err != nil {
		h.respondErr(w, r, err)
		return
	} else if !isAdmin {
		httpserver.RespondError(w, http.StatusForbidden, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindForbidden), "adding members requires OWNER or ADMIN membership")
		return
	}
	var req addMemberRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	membership, err := h.svc.AddMember(r.Context(), orgID, req.UserID, req.Role)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusCreated, membership)
}
