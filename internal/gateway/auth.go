// Package gateway implements the Gateway service's run-execution surface:
// dual authentication, authorize/invoke/settle, and the widget session
// endpoint.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Digitlify-Inc/cmp-platform/internal/cpclient"
	"github.com/Digitlify-Inc/cmp-platform/internal/identity"
)

// CallerContext is the authenticated identity a run executes under,
// produced by either the API-key or the OIDC bearer scheme.
type CallerContext struct {
	InstanceID uuid.UUID
	OrgID      uuid.UUID
	ViaAPIKey  bool
}

// Authenticator tries the API-key scheme first, then OIDC bearer, per the
// order. Neither present nor both invalid yields an error.
type Authenticator struct {
	cp       *cpclient.Client
	oidcAuth *identity.OIDCAuthenticator
}

// NewAuthenticator builds an Authenticator.
func NewAuthenticator(cp *cpclient.Client, oidcAuth *identity.OIDCAuthenticator) *Authenticator {
	return &Authenticator{cp: cp, oidcAuth: oidcAuth}
}

// Authenticate tries the API-key scheme, then OIDC bearer. The caller still
// needs an instance_id to authorize against for the OIDC scheme; the run
// request body supplies it, and the handler is responsible for reconciling
// it with the caller's organization membership if that check is added
// later (out of scope for v1).
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request, requestedInstanceID uuid.UUID) (CallerContext, error) {
	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		result, err := a.cp.IntrospectAPIKey(ctx, apiKey)
		if err != nil {
			return CallerContext{}, fmt.Errorf("introspecting api key: %w", err)
		}
		if !result.Valid {
			return CallerContext{}, fmt.Errorf("invalid api key")
		}
		instanceID, err := uuid.Parse(result.InstanceID)
		if err != nil {
			return CallerContext{}, fmt.Errorf("parsing instance id from introspection: %w", err)
		}
		orgID, err := uuid.Parse(result.OrgID)
		if err != nil {
			return CallerContext{}, fmt.Errorf("parsing org id from introspection: %w", err)
		}
		return CallerContext{InstanceID: instanceID, OrgID: orgID, ViaAPIKey: true}, nil
	}

	authHeader := r.Header.Get("Authorization")
	if strings.TrimSpace(authHeader) != "" && a.oidcAuth != nil {
		claims, err := a.oidcAuth.Authenticate(ctx, authHeader)
		if err != nil {
			return CallerContext{}, fmt.Errorf("validating bearer token: %w", err)
		}
		_ = claims
		return CallerContext{InstanceID: requestedInstanceID}, nil
	}

	return CallerContext{}, fmt.Errorf("no valid authentication scheme presented")
}
