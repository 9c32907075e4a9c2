package identity

import (
	"context"
	"net/http"

	"github.com/Digitlify-Inc/cmp-platform/internal/httpserver"
)

type contextKey int

const callerKey contextKey = iota

// Caller is the authenticated user attached to a request's context.
type Caller struct {
	UserID string
	Email  string
}

// NewContext returns a copy of ctx carrying caller.
func NewContext(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// FromContext returns the caller attached to ctx, or false if none.
func FromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerKey).(Caller)
	return caller, ok
}

// RequireOIDC authenticates every request with a bearer token against auth,
// rejecting with 401 on failure. Routes mounted behind it require an
// authenticated caller; open service-to-service routes do not use this
// middleware at all.
func RequireOIDC(auth *OIDCAuthenticator, requestIDOf func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := auth.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				httpserver.RespondError(w, http.StatusUnauthorized, requestIDOf(r), string(httpserver.KindUnauthenticated), "missing or invalid bearer token")
				return
			}
			ctx := NewContext(r.Context(), Caller{UserID: claims.Subject, Email: claims.Email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
