package gateway

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/Digitlify-Inc/cmp-platform/internal/cpclient"
	"github.com/Digitlify-Inc/cmp-platform/internal/httpserver"
	"github.com/Digitlify-Inc/cmp-platform/pkg/engineclient"
)

// Handler exposes the Gateway's HTTP surface.
type Handler struct {
	log            *slog.Logger
	auth           *Authenticator
	cp             *cpclient.Client
	engine         engineclient.Engine
	widget         *WidgetSessions
	allowedOrigins []string
}

// NewHandler constructs a Handler.
func NewHandler(log *slog.Logger, auth *Authenticator, cp *cpclient.Client, engine engineclient.Engine, widget *WidgetSessions, allowedOrigins []string) *Handler {
	return &Handler{log: log, auth: auth, cp: cp, engine: engine, widget: widget, allowedOrigins: allowedOrigins}
}

type runRequest struct {
	InstanceID uuid.UUID      `json:"instance_id" validate:"required"`
	Input      map[string]any `json:"input"`
	Metadata   map[string]any `json:"metadata"`
}

type runResponse struct {
	RunID   uuid.UUID      `json:"run_id"`
	Output  map[string]any `json:"output"`
	Usage   cpclient.Usage `json:"usage"`
	Billing billingBlock   `json:"billing"`
}

type billingBlock struct {
	Debited int64 `json:"debited"`
	Balance int64 `json:"balance"`
}

// HandleRun implements POST /v1/runs.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	caller, err := h.auth.Authenticate(r.Context(), r, req.InstanceID)
	if err != nil {
		httpserver.RespondError(w, http.StatusUnauthorized, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindUnauthenticated), "authentication failed")
		return
	}
	instanceID := caller.InstanceID
	if instanceID == (uuid.UUID{}) {
		instanceID = req.InstanceID
	}

	authz, err := h.cp.Authorize(r.Context(), instanceID, 0)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadGateway, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindUpstream), "authorizing run")
		return
	}
	if !authz.Allowed {
		httpserver.RespondError(w, http.StatusPaymentRequired, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindInsufficientCredits), "insufficient credits")
		return
	}

	result, engineErr := h.engine.Invoke(r.Context(), engineclient.InvokeRequest{
		InstanceID: instanceID,
		Input:      req.Input,
		Metadata:   req.Metadata,
	})
	if engineErr != nil {
		// Release the hold; the run never happened, so usage is empty.
		if _, settleErr := h.cp.Settle(r.Context(), authz.ReservationID, instanceID, cpclient.Usage{}); settleErr != nil {
			h.log.Error("releasing reservation after engine failure", "error", settleErr, "reservation_id", authz.ReservationID)
		}
		httpserver.RespondError(w, http.StatusBadGateway, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindUpstream), "executing run")
		return
	}

	usage := cpclient.Usage(result.Usage)
	settle, settleErr := h.cp.Settle(r.Context(), authz.ReservationID, instanceID, usage)
	if settleErr != nil {
		// The run succeeded and cannot be retracted; surface the output with
		// debited=0 and the pre-authorize balance rather than fail the caller.
		h.log.Error("settling run", "error", settleErr, "reservation_id", authz.ReservationID)
		httpserver.Respond(w, http.StatusOK, runResponse{
			RunID:  uuid.New(),
			Output: result.Output,
			Usage:  usage,
			Billing: billingBlock{
				Debited: 0,
				Balance: authz.Balance,
			},
		})
		return
	}

	httpserver.Respond(w, http.StatusOK, runResponse{
		RunID:  uuid.New(),
		Output: result.Output,
		Usage:  usage,
		Billing: billingBlock{
			Debited: settle.Debited,
			Balance: settle.Balance,
		},
	})
}

type widgetSessionInitRequest struct {
	InstanceID uuid.UUID `json:"instance_id" validate:"required"`
	Origin     string    `json:"origin" validate:"required"`
}

type widgetSessionInitResponse struct {
	Token    string         `json:"token"`
	Branding map[string]any `json:"branding"`
}

// HandleWidgetSessionInit implements POST /v1/widget/session:init.
func (h *Handler) HandleWidgetSessionInit(w http.ResponseWriter, r *http.Request) {
	var req widgetSessionInitRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	token, err := h.widget.Init(r.Context(), req.InstanceID, req.Origin, h.allowedOrigins)
	if err != nil {
		httpserver.RespondError(w, http.StatusUnauthorized, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindUnauthenticated), err.Error())
		return
	}

	instance, err := h.cp.GetInstance(r.Context(), req.InstanceID)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadGateway, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindUpstream), "loading instance")
		return
	}

	branding, _ := instance.EffectiveConfig["branding"].(map[string]any)
	httpserver.Respond(w, http.StatusOK, widgetSessionInitResponse{Token: token, Branding: branding})
}
