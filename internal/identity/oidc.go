// Package identity authenticates HTTP callers against the configured OIDC
// issuer, for every service that accepts a bearer token (Control Plane's
// authenticated routes, Gateway's dual auth).
package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Claims are the JWT claims extracted from a verified bearer token.
type Claims struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
}

// OIDCAuthenticator validates bearer JWTs issued by one issuer for one audience.
type OIDCAuthenticator struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCAuthenticator performs OIDC discovery against issuerURL and builds a
// verifier that accepts tokens for audience.
func NewOIDCAuthenticator(ctx context.Context, issuerURL, audience string) (*OIDCAuthenticator, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("discovering OIDC provider %s: %w", issuerURL, err)
	}
	return &OIDCAuthenticator{verifier: provider.Verifier(&oidc.Config{ClientID: audience})}, nil
}

// Authenticate validates an "Authorization: Bearer <jwt>" header value and
// returns the caller's claims.
func (a *OIDCAuthenticator) Authenticate(ctx context.Context, authHeader string) (Claims, error) {
	token := strings.TrimPrefix(authHeader, "Bearer ")
	token = strings.TrimPrefix(token, "bearer ")
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, fmt.Errorf("empty bearer token")
	}

	idToken, err := a.verifier.Verify(ctx, token)
	if err != nil {
		return Claims{}, fmt.Errorf("verifying token: %w", err)
	}

	var claims Claims
	if err := idToken.Claims(&claims); err != nil {
		return Claims{}, fmt.Errorf("extracting claims: %w", err)
	}
	if claims.Subject == "" {
		return Claims{}, fmt.Errorf("token missing sub claim")
	}
	return claims, nil
}
