package controlplane

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Digitlify-Inc/cmp-platform/internal/httpserver"
)

func (h *Handler) handleListOfferings(w http.ResponseWriter, r *http.Request) {
	params, err := httpserver.ParseOffsetParams(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindValidation), err.Error())
		return
	}
	offerings, err := h.svc.ListPublishedOfferings(r.Context(), params.PageSize, params.Offset)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"items": offerings})
}

type createOfferingRequest struct {
	Name              string  `json:"name" validate:"required"`
	Category          string  `json:"category" validate:"required"`
	CommerceProductID *string `json:"commerce_product_id"`
}

func (h *Handler) handleCreateOffering(w http.ResponseWriter, r *http.Request) {
	var req createOfferingRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	offering, err := h.svc.CreateOffering(r.Context(), req.Name, req.Category, req.CommerceProductID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusCreated, offering)
}

func (h *Handler) handleGetOffering(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindValidation), "invalid offering id")
		return
	}
	offering, err := h.svc.GetOffering(r.Context(), id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, offering)
}

func (h *Handler) handleListOfferingVersions(w http.ResponseWriter, r *http.Request) {
	offeringID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindValidation), "invalid offering id")
		return
	}
	versions, err := h.svc.ListOfferingVersions(r.Context(), offeringID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"items": versions})
}

type createOfferingVersionRequest struct {
	Label        string         `json:"version_label" validate:"required"`
	ArtifactRef  string         `json:"artifact_ref" validate:"required"`
	ArtifactSHA  string         `json:"artifact_sha256" validate:"required"`
	Capabilities []string       `json:"capabilities"`
	Defaults     map[string]any `json:"defaults"`
}

// handleCreateOfferingVersion adds an immutable version (I6): once
// published, its ArtifactRef/ArtifactSHA can never change.
func (h *Handler) handleCreateOfferingVersion(w http.ResponseWriter, r *http.Request) {
	offeringID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindValidation), "invalid offering id")
		return
	}
	var req createOfferingVersionRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	version, err := h.svc.CreateOfferingVersion(r.Context(), offeringID, req.Label, req.ArtifactRef, req.ArtifactSHA, req.Capabilities, req.Defaults)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusCreated, version)
}

func (h *Handler) handleListPlans(w http.ResponseWriter, r *http.Request) {
	offeringID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindValidation), "invalid offering id")
		return
	}
	plans, err := h.svc.ListPlans(r.Context(), offeringID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"items": plans})
}

type createPlanRequest struct {
	Name              string         `json:"name" validate:"required"`
	BillingPeriod     string         `json:"billing_period" validate:"required,oneof=MONTHLY YEARLY ONE_TIME USAGE"`
	PriceCredits      int64          `json:"price_credits"`
	IncludedCredits   int64          `json:"included_credits"`
	Limits            map[string]any `json:"limits"`
	IsDefault         bool           `json:"is_default"`
	IsTrial           bool           `json:"is_trial"`
	CommerceVariantID *string        `json:"commerce_variant_id"`
}

func (h *Handler) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	offeringID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindValidation), "invalid offering id")
		return
	}
	var req createPlanRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	plan, err := h.svc.CreatePlan(r.Context(), Plan{
		OfferingID:        offeringID,
		Name:              req.Name,
		BillingPeriod:     req.BillingPeriod,
		PriceCredits:      req.PriceCredits,
		IncludedCredits:   req.IncludedCredits,
		Limits:            req.Limits,
		IsDefault:         req.IsDefault,
		IsTrial:           req.IsTrial,
		CommerceVariantID: req.CommerceVariantID,
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusCreated, plan)
}
