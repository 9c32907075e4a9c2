package cpclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestAuthorize_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/billing/authorize" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(AuthorizeResult{Allowed: true, Balance: 42})
	}))
	defer srv.Close()

	c := New(srv.URL, 2*time.Second)
	got, err := c.Authorize(t.Context(), uuid.New(), 10)
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	if !got.Allowed || got.Balance != 42 {
		t.Errorf("Authorize() = %+v, want Allowed=true Balance=42", got)
	}
}

func TestDoWithRetry_RetriesOn5xxThenSucceeds(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(AuthorizeResult{Allowed: true, Balance: 7})
	}))
	defer srv.Close()

	c := New(srv.URL, 2*time.Second)
	got, err := c.Authorize(t.Context(), uuid.New(), 1)
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	if got.Balance != 7 {
		t.Errorf("Balance = %d, want 7", got.Balance)
	}
	if attempts < 3 {
		t.Errorf("attempts = %d, want at least 3 (should retry past transient 5xx)", attempts)
	}
}

func TestDoWithRetry_DoesNotRetry4xx(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"code":"insufficient_credits","message":"no balance","traceId":"x"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 2*time.Second)
	_, err := c.Authorize(t.Context(), uuid.New(), 1)
	if err == nil {
		t.Fatal("expected an error from a 402 response")
	}
	if !strings.Contains(err.Error(), "402") {
		t.Errorf("error = %v, want it to mention status 402", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want exactly 1 (4xx must not retry)", attempts)
	}
}

func TestIntrospectAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["api_key"] != "cmp_sk_test" {
			t.Fatalf("unexpected api_key in request: %q", body["api_key"])
		}
		json.NewEncoder(w).Encode(IntrospectAPIKeyResult{Valid: true, InstanceID: "inst-1"})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	got, err := c.IntrospectAPIKey(t.Context(), "cmp_sk_test")
	if err != nil {
		t.Fatalf("IntrospectAPIKey() error = %v", err)
	}
	if !got.Valid || got.InstanceID != "inst-1" {
		t.Errorf("IntrospectAPIKey() = %+v", got)
	}
}
