package controlplane

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Digitlify-Inc/cmp-platform/internal/httpserver"
	"github.com/Digitlify-Inc/cmp-platform/internal/identity"
)

// Handler exposes the Control Plane's HTTP surface over a Service.
type Handler struct {
	log *slog.Logger
	svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(log *slog.Logger, svc *Service) *Handler {
	return &Handler{log: log, svc: svc}
}

// MountOpen mounts the service-to-service routes that carry no OIDC
// authentication: authorize/settle and the commerce/webhook intake.
func (h *Handler) MountOpen(r chi.Router) {
	r.Post("/billing/authorize", h.handleAuthorize)
	r.Post("/billing/settle", h.handleSettle)
	r.Post("/integrations/saleor/order-paid", h.handleOrderPaid)
	r.Post("/integrations/commerce/provision", h.handleCommerceProvision)
	r.Post("/integrations/commerce/add-credits", h.handleCommerceAddCredits)
	r.Post("/internal/apikeys/introspect", h.handleIntrospectAPIKey)
	r.Get("/internal/connectors/bindings/{id}", h.handleGetBindingInternal)
	r.Get("/internal/instances/{id}", h.handleGetInstanceInternal)
}

// MountAuthenticated mounts the routes that require an OIDC bearer identity.
// Callers should wrap r with identity.RequireOIDC before calling this.
func (h *Handler) MountAuthenticated(r chi.Router) {
	r.Route("/offerings", func(r chi.Router) {
		r.Get("/", h.handleListOfferings)
		r.Post("/", h.handleCreateOffering)
		r.Get("/{id}", h.handleGetOffering)
		r.Get("/{id}/versions", h.handleListOfferingVersions)
		r.Post("/{id}/versions", h.handleCreateOfferingVersion)
		r.Get("/{id}/plans", h.handleListPlans)
		r.Post("/{id}/plans", h.handleCreatePlan)
	})

	r.Post("/instances", h.handleCreateInstanceNotSupported)
	r.Get("/instances/{id}", h.handleGetInstance)
	r.Get("/instances/{id}/entitlements", h.handleGetEntitlements)
	r.Get("/instances/{id}/api_keys", h.handleListAPIKeys)
	r.Post("/instances/{id}/api_keys", h.handleCreateAPIKey)
	r.Post("/instances/{id}/api_keys/{key_id}/revoke", h.handleRevokeAPIKey)
	r.Post("/instances/trial", h.handleTrialStart)

	r.Get("/wallets/me", h.handleWalletMe)
	r.Get("/wallets/me/ledger", h.handleWalletMeLedger)
	r.Get("/wallets/{id}", h.handleGetWallet)
	r.Post("/wallets/{id}/topups", h.handleWalletTopUp)

	r.Post("/orgs/auto", h.handleOrgAuto)
	r.Get("/orgs", h.handleListOrgs)
	r.Get("/orgs/{id}", h.handleGetOrg)
	r.Post("/orgs/{id}/projects", h.handleCreateProject)
	r.Post("/orgs/{id}/members", h.handleAddMember)

	r.Route("/connectors/bindings", func(r chi.Router) {
		r.Post("/", h.handleCreateBinding)
		r.Get("/", h.handleListBindings)
		r.Post("/{id}/revoke", h.handleRevokeBinding)
		r.Get("/{id}/credentials", h.handleReadBindingCredentials)
	})
}

func (h *Handler) callerOr401(w http.ResponseWriter, r *http.Request) (identity.Caller, bool) {
	caller, ok := identity.FromContext(r.Context())
	if !ok {
		httpserver.RespondError(w, http.StatusUnauthorized, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindUnauthenticated), "missing authenticated caller")
		return identity.Caller{}, false
	}
	return caller, true
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	httpserver.RespondClassified(w, httpserver.RequestIDFromContext(r.Context()), err)
}

// handleCreateInstanceNotSupported documents that direct instance creation
// is intentionally only reachable through provisioning/trial flows; there
// is no freestanding "create instance" entry point.
func (h *Handler) handleCreateInstanceNotSupported(w http.ResponseWriter, r *http.Request) {
	httpserver.RespondError(w, http.StatusNotFound, httpserver.RequestIDFromContext(r.Context()), string(httpserver.KindNotFound), "instances are created via provisioning or trial start, not directly")
}
