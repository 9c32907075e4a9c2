package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Digitlify-Inc/cmp-platform/internal/cpclient"
)

func TestAuthenticate_APIKeyScheme(t *testing.T) {
	instanceID := uuid.New()
	orgID := uuid.New()

	cpSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["api_key"] != "cmp_sk_good" {
			json.NewEncoder(w).Encode(cpclient.IntrospectAPIKeyResult{Valid: false})
			return
		}
		json.NewEncoder(w).Encode(cpclient.IntrospectAPIKeyResult{
			Valid:      true,
			InstanceID: instanceID.String(),
			OrgID:      orgID.String(),
		})
	}))
	defer cpSrv.Close()

	cp := cpclient.New(cpSrv.URL, 2*time.Second)
	a := NewAuthenticator(cp, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/runs", nil)
	req.Header.Set("X-API-Key", "cmp_sk_good")

	caller, err := a.Authenticate(t.Context(), req, uuid.UUID{})
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !caller.ViaAPIKey || caller.InstanceID != instanceID || caller.OrgID != orgID {
		t.Errorf("Authenticate() = %+v, want instance=%s org=%s via api key", caller, instanceID, orgID)
	}
}

func TestAuthenticate_APIKeyInvalid(t *testing.T) {
	cpSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(cpclient.IntrospectAPIKeyResult{Valid: false})
	}))
	defer cpSrv.Close()

	cp := cpclient.New(cpSrv.URL, 2*time.Second)
	a := NewAuthenticator(cp, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/runs", nil)
	req.Header.Set("X-API-Key", "cmp_sk_bad")

	if _, err := a.Authenticate(t.Context(), req, uuid.UUID{}); err == nil {
		t.Error("expected an error for an invalid api key")
	}
}

func TestAuthenticate_NoSchemePresented(t *testing.T) {
	cp := cpclient.New("http://unused.invalid", time.Second)
	a := NewAuthenticator(cp, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/runs", nil)
	if _, err := a.Authenticate(t.Context(), req, uuid.UUID{}); err == nil {
		t.Error("expected an error when neither scheme is presented")
	}
}

func TestAuthenticate_BearerWithoutConfiguredOIDCFallsThrough(t *testing.T) {
	cp := cpclient.New("http://unused.invalid", time.Second)
	a := NewAuthenticator(cp, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/runs", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	if _, err := a.Authenticate(t.Context(), req, uuid.UUID{}); err == nil {
		t.Error("expected an error when OIDC is not configured")
	}
}
