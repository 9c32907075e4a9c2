package connectorgateway

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Digitlify-Inc/cmp-platform/internal/cpclient"
	"github.com/Digitlify-Inc/cmp-platform/internal/httpserver"
	"github.com/Digitlify-Inc/cmp-platform/internal/telemetry"
)

// SecretGetter is the narrow contract this service needs from the secret
// store — it only ever reads (writes and revocation are the Control
// Plane's job).
type SecretGetter interface {
	Get(ctx context.Context, path string) (map[string]any, error)
}

// Handler exposes the Connector Gateway's HTTP surface.
type Handler struct {
	log            *slog.Logger
	cp             *cpclient.Client
	secrets        SecretGetter
	limiter        *RateLimiter
	defaultTimeout time.Duration
}

// NewHandler constructs a Handler.
func NewHandler(log *slog.Logger, cp *cpclient.Client, secrets SecretGetter, limiter *RateLimiter, defaultTimeout time.Duration) *Handler {
	return &Handler{log: log, cp: cp, secrets: secrets, limiter: limiter, defaultTimeout: defaultTimeout}
}

type executeRequest struct {
	InstanceID uuid.UUID      `json:"instance_id" validate:"required"`
	OrgID      uuid.UUID      `json:"org_id" validate:"required"`
	ProjectID  uuid.UUID      `json:"project_id" validate:"required"`
	BindingID  uuid.UUID      `json:"binding_id" validate:"required"`
	ToolName   string         `json:"tool_name" validate:"required"`
	ToolInput  map[string]any `json:"tool_input"`
	RequestID  string         `json:"request_id"`
	TimeoutSec int            `json:"timeout"`
}

// HandleExecute implements POST /connectors/execute.
func (h *Handler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	log := h.log.With("instance_id", req.InstanceID, "binding_id", req.BindingID, "tool_name", req.ToolName, "request_id", req.RequestID)

	allowed, err := h.limiter.Allow(r.Context(), req.BindingID.String())
	if err != nil {
		log.Error("rate limit check failed", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindInternal), "checking rate limit")
		return
	}
	if !allowed {
		httpserver.RespondError(w, http.StatusTooManyRequests, httpserver.RequestIDFromContext(r.Context()), "rate_limited", "connector call rate limit exceeded")
		return
	}

	binding, err := h.cp.GetBinding(r.Context(), req.BindingID)
	if err != nil {
		status, code := classifyUpstreamError(err)
		log.Error("failed to load connector binding", "error", err)
		httpserver.RespondError(w, status, httpserver.RequestIDFromContext(r.Context()), code, "failed to load connector binding")
		return
	}
	if binding.Status != "ACTIVE" {
		httpserver.RespondError(w, http.StatusForbidden, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindForbidden), "connector binding is disabled")
		return
	}

	secrets, err := h.secrets.Get(r.Context(), binding.SecretPath)
	if err != nil {
		log.Error("failed to read connector secrets", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindInternal), "failed to retrieve connector secrets")
		return
	}
	if len(secrets) == 0 {
		log.Error("connector secrets empty")
		httpserver.RespondError(w, http.StatusInternalServerError, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindInternal), "failed to retrieve connector secrets")
		return
	}

	timeout := h.defaultTimeout
	if req.TimeoutSec > 0 {
		timeout = time.Duration(req.TimeoutSec) * time.Second
	}

	executor := NewExecutor(binding.ConnectorType, binding.Config, secrets, timeout)
	result := executor.Execute(req.ToolName, req.ToolInput)

	telemetry.ConnectorDispatchDuration.WithLabelValues(binding.ConnectorType, strconv.FormatBool(result.Success)).
		Observe(float64(result.ExecutionTimeMS) / 1000)

	log.Info("tool call executed", "success", result.Success, "execution_time_ms", result.ExecutionTimeMS)
	httpserver.Respond(w, http.StatusOK, result)
}

// HandleValidateBinding implements GET /connectors/bindings/{id}/validate.
func (h *Handler) HandleValidateBinding(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindValidation), "invalid binding id")
		return
	}

	binding, err := h.cp.GetBinding(r.Context(), id)
	if err != nil {
		httpserver.Respond(w, http.StatusOK, map[string]any{
			"binding_id": id,
			"valid":      false,
			"error":      err.Error(),
		})
		return
	}

	secrets, err := h.secrets.Get(r.Context(), binding.SecretPath)
	secretsValid := err == nil && len(secrets) > 0

	httpserver.Respond(w, http.StatusOK, map[string]any{
		"binding_id":         id,
		"valid":              binding.Status == "ACTIVE" && secretsValid,
		"enabled":            binding.Status == "ACTIVE",
		"secrets_configured": secretsValid,
		"connector_type":     binding.ConnectorType,
	})
}

// classifyUpstreamError turns cpclient's plain errors into an HTTP status
// and taxonomy code (404 not found, 403 disabled is handled
// separately once the binding loads, 502 on any other transport failure).
func classifyUpstreamError(err error) (int, string) {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "returned 404"):
		return http.StatusNotFound, string(httpserver.KindNotFound)
	default:
		return http.StatusBadGateway, string(httpserver.KindUpstream)
	}
}
