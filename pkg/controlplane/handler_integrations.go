package controlplane

import (
	"net/http"

	"github.com/Digitlify-Inc/cmp-platform/internal/httpserver"
)

type commerceProvisionRequest struct {
	OrderID    string         `json:"order_id" validate:"required"`
	UserEmail  string         `json:"user_email" validate:"required,email"`
	OfferingID string         `json:"offering_id" validate:"required"`
	PlanID     string         `json:"plan_id"`
	Metadata   map[string]any `json:"metadata"`
}

func (h *Handler) handleCommerceProvision(w http.ResponseWriter, r *http.Request) {
	var req commerceProvisionRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	result, err := h.svc.ProvisionInstance(r.Context(), ProvisionRequest{
		OrderID:    req.OrderID,
		UserEmail:  req.UserEmail,
		OfferingID: req.OfferingID,
		PlanID:     req.PlanID,
		Metadata:   req.Metadata,
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, result)
}

type commerceAddCreditsRequest struct {
	OrderID      string `json:"order_id" validate:"required"`
	UserEmail    string `json:"user_email" validate:"required,email"`
	CreditAmount int64  `json:"credit_amount" validate:"required,gt=0"`
}

func (h *Handler) handleCommerceAddCredits(w http.ResponseWriter, r *http.Request) {
	var req commerceAddCreditsRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	result, err := h.svc.AddCredits(r.Context(), AddCreditsRequest{
		OrderID:      req.OrderID,
		UserEmail:    req.UserEmail,
		CreditAmount: req.CreditAmount,
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, result)
}

type orderPaidLineItem struct {
	OfferingID string `json:"offering_id" validate:"required"`
	PlanID     string `json:"plan_id"`
	Kind       string `json:"kind" validate:"required,oneof=subscription credits"`
	Credits    int64  `json:"credits"`
}

type orderPaidRequest struct {
	OrderID   string              `json:"order_id" validate:"required"`
	UserEmail string              `json:"user_email" validate:"required,email"`
	LineItems []orderPaidLineItem `json:"line_items" validate:"required,min=1,dive"`
}

// handleOrderPaid is the normalized commerce webhook intake: each line
// item resolves to either a provisioning call or a credit grant,
// keyed for idempotency the same way ProvisionInstance/AddCredits already
// are. A partial failure reports which lines succeeded so the caller (the
// Provisioner, or a direct integration) can decide whether to retry.
func (h *Handler) handleOrderPaid(w http.ResponseWriter, r *http.Request) {
	var req orderPaidRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	results := make([]map[string]any, 0, len(req.LineItems))
	for _, line := range req.LineItems {
		switch line.Kind {
		case "credits":
			result, err := h.svc.AddCredits(r.Context(), AddCreditsRequest{
				OrderID:      req.OrderID,
				UserEmail:    req.UserEmail,
				CreditAmount: line.Credits,
			})
			if err != nil {
				results = append(results, map[string]any{"kind": "credits", "offering_id": line.OfferingID, "error": err.Error()})
				continue
			}
			results = append(results, map[string]any{"kind": "credits", "result": result})
		default:
			result, err := h.svc.ProvisionInstance(r.Context(), ProvisionRequest{
				OrderID:    req.OrderID,
				UserEmail:  req.UserEmail,
				OfferingID: line.OfferingID,
				PlanID:     line.PlanID,
			})
			if err != nil {
				results = append(results, map[string]any{"kind": "subscription", "offering_id": line.OfferingID, "error": err.Error()})
				continue
			}
			results = append(results, map[string]any{"kind": "subscription", "result": result})
		}
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"order_id": req.OrderID, "line_items": results})
}
