package provisioner

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/Digitlify-Inc/cmp-platform/internal/cpclient"
	"github.com/Digitlify-Inc/cmp-platform/internal/httpserver"
	"github.com/Digitlify-Inc/cmp-platform/internal/telemetry"
)

// Handler exposes the Provisioner's HTTP surface.
type Handler struct {
	log           *slog.Logger
	cp            *cpclient.Client
	idempotency   *IdempotencyStore
	webhookSecret string
}

// NewHandler constructs a Handler.
func NewHandler(log *slog.Logger, cp *cpclient.Client, idempotency *IdempotencyStore, webhookSecret string) *Handler {
	return &Handler{log: log, cp: cp, idempotency: idempotency, webhookSecret: webhookSecret}
}

// orderLine is one line item of a normalized order-paid event.
type orderLine struct {
	SKU         string `json:"sku"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	VariantID   string `json:"variant_id"`
	Quantity    int64  `json:"quantity"`
}

// orderPaidPayload is the normalized order-paid event body.
type orderPaidPayload struct {
	OrderID   string      `json:"order_id"`
	UserEmail string      `json:"user_email"`
	Lines     []orderLine `json:"lines"`
}

type lineOutcome struct {
	Type       string `json:"type"`
	ProductID  string `json:"product_id,omitempty"`
	InstanceID string `json:"instance_id,omitempty"`
	APIKeyHint string `json:"api_key_prefix,omitempty"`
	Credits    int64  `json:"credits,omitempty"`
	Error      string `json:"error,omitempty"`
}

// HandleOrderPaid implements POST /webhooks/saleor/order-paid.
func (h *Handler) HandleOrderPaid(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindValidation), "reading request body")
		return
	}

	signature := r.Header.Get("X-Saleor-Signature")
	if h.webhookSecret == "" {
		h.log.Warn("webhook secret not configured, skipping signature verification")
	}
	if !VerifySignature(body, signature, h.webhookSecret) {
		httpserver.RespondError(w, http.StatusUnauthorized, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindUnauthenticated), "invalid webhook signature")
		return
	}

	var payload orderPaidPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindValidation), "invalid payload")
		return
	}

	isNew, err := h.idempotency.CheckAndSet(r.Context(), "order_paid", payload.OrderID)
	if err != nil {
		httpserver.RespondError(w, http.StatusInternalServerError, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindInternal), "checking idempotency")
		return
	}
	if !isNew {
		h.log.Info("order already processed, skipping", "order_id", payload.OrderID)
		httpserver.Respond(w, http.StatusOK, map[string]any{"status": "already_processed", "order_id": payload.OrderID})
		return
	}

	outcomes := make([]lineOutcome, 0, len(payload.Lines))
	for _, line := range payload.Lines {
		if credits, ok := classifyLine(line.SKU); ok {
			total := credits * line.Quantity
			result, err := h.cp.AddCredits(r.Context(), payload.OrderID, payload.UserEmail, total)
			if err != nil {
				h.log.Error("add-credits failed", "error", err, "order_id", payload.OrderID, "sku", line.SKU)
				telemetry.ProvisioningOutcomesTotal.WithLabelValues("add_credits", "error").Inc()
				outcomes = append(outcomes, lineOutcome{Type: "error", ProductID: line.ProductID, Error: err.Error()})
				continue
			}
			telemetry.ProvisioningOutcomesTotal.WithLabelValues("add_credits", "success").Inc()
			outcomes = append(outcomes, lineOutcome{Type: "credits", Credits: total, ProductID: line.ProductID})
			_ = result
			continue
		}

		result, err := h.cp.ProvisionInstance(r.Context(), payload.OrderID, payload.UserEmail, line.ProductID, line.VariantID, map[string]any{
			"product_name": line.ProductName,
		})
		if err != nil {
			h.log.Error("provision-instance failed", "error", err, "order_id", payload.OrderID, "product_id", line.ProductID)
			telemetry.ProvisioningOutcomesTotal.WithLabelValues("provision_instance", "error").Inc()
			outcomes = append(outcomes, lineOutcome{Type: "error", ProductID: line.ProductID, Error: err.Error()})
			continue
		}
		telemetry.ProvisioningOutcomesTotal.WithLabelValues("provision_instance", "success").Inc()
		instanceID, _ := result["instance_id"].(string)
		outcomes = append(outcomes, lineOutcome{Type: "instance", ProductID: line.ProductID, InstanceID: instanceID})
	}

	httpserver.Respond(w, http.StatusOK, map[string]any{
		"status":   "processed",
		"order_id": payload.OrderID,
		"results":  outcomes,
	})
}
