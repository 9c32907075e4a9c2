package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Digitlify-Inc/cmp-platform/internal/cpclient"
	"github.com/Digitlify-Inc/cmp-platform/pkg/engineclient"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeEngine struct {
	result engineclient.InvokeResult
	err    error
}

func (f *fakeEngine) Invoke(ctx context.Context, req engineclient.InvokeRequest) (engineclient.InvokeResult, error) {
	return f.result, f.err
}

func newRunRequest(t *testing.T, instanceID uuid.UUID) *http.Request {
	t.Helper()
	body, _ := json.Marshal(runRequest{InstanceID: instanceID, Input: map[string]any{"prompt": "hi"}})
	req := httptest.NewRequest(http.MethodPost, "/v1/runs", bytes.NewReader(body))
	req.Header.Set("X-API-Key", "cmp_sk_good")
	return req
}

func newTestHandler(t *testing.T, cpHandler http.HandlerFunc, engine engineclient.Engine) *Handler {
	t.Helper()
	cpSrv := httptest.NewServer(cpHandler)
	t.Cleanup(cpSrv.Close)

	cp := cpclient.New(cpSrv.URL, 2*time.Second)
	auth := NewAuthenticator(cp, nil)
	widget := NewWidgetSessions(newTestRedis(t))
	return NewHandler(discardLogger(), auth, cp, engine, widget, []string{"https://widget.example.com"})
}

func TestHandleRun_SuccessSettles(t *testing.T) {
	instanceID := uuid.New()
	reservationID := uuid.New()

	cpHandlerFunc := func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/internal/apikeys/introspect":
			json.NewEncoder(w).Encode(cpclient.IntrospectAPIKeyResult{Valid: true, InstanceID: instanceID.String(), OrgID: uuid.New().String()})
		case "/billing/authorize":
			json.NewEncoder(w).Encode(cpclient.AuthorizeResult{Allowed: true, ReservationID: reservationID, Balance: 1000})
		case "/billing/settle":
			json.NewEncoder(w).Encode(cpclient.SettleResult{Debited: 12, Balance: 988, Status: "settled"})
		default: 
			t.Fatalf("unexpected call to %s", r.URL.Path)
		}
	}

	engine := &fakeEngine{result: engineclient.InvokeResult{Output: map[string]any{"answer": "42"}}}
	h := newTestHandler(t, cpHandlerFunc, engine)

	req := newRunRequest(t, instanceID)
	w := httptest.NewRecorder()
	h.HandleRun(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp runResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Billing.Debited != 12 || resp.Billing.Balance != 988 {
		t.Errorf("billing = %+v, want debited=12 balance=988", resp.Billing)
	}
}

func TestHandleRun_InsufficientCredits(t *testing.T) {
	instanceID := uuid.New()

	cpHandlerFunc := func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/internal/apikeys/introspect":
			json.NewEncoder(w).Encode(cpclient.IntrospectAPIKeyResult{Valid: true, InstanceID: instanceID.String(), OrgID: uuid.New().String()})
		case "/billing/authorize":
			json.NewEncoder(w).Encode(cpclient.AuthorizeResult{Allowed: false, Balance: 0})
		default: 
			t.Fatalf("unexpected call to %s", r.URL.Path)
		}
	}

	h := newTestHandler(t, cpHandlerFunc, &fakeEngine{})

	req := newRunRequest(t, instanceID)
	w := httptest.NewRecorder()
	h.HandleRun(w, req)

	if w.Code != http.StatusPaymentRequired {
		t.Errorf("status = %d, want %d", w.Code, http.StatusPaymentRequired)
	}
}

func TestHandleRun_EngineFailureReleasesReservation(t *testing.T) {
	instanceID := uuid.New()
	reservationID := uuid.New()
	settleCalled := false

	cpHandlerFunc := func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/internal/apikeys/introspect":
			json.NewEncoder(w).Encode(cpclient.IntrospectAPIKeyResult{Valid: true, InstanceID: instanceID.String(), OrgID: uuid.New().String()})
		case "/billing/authorize":
			json.NewEncoder(w).Encode(cpclient.AuthorizeResult{Allowed: true, ReservationID: reservationID, Balance: 500})
		case "/billing/settle":
			settleCalled = true
			json.NewEncoder(w).Encode(cpclient.SettleResult{Status: "settled"})
		default: 
			t.Fatalf("unexpected call to %s", r.URL.Path)
		}
	}

	engine := &fakeEngine{err: fmt.Errorf("engine exploded")}
	h := newTestHandler(t, cpHandlerFunc, engine)

	req := newRunRequest(t, instanceID)
	w := httptest.NewRecorder()
	h.HandleRun(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}
	if !settleCalled {
		t.Error("expected the reservation to be released via settle after an engine failure")
	}
}

func TestHandleWidgetSessionInit(t *testing.T) {
	instanceID := uuid.New()

	cpHandlerFunc := func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case fmt.Sprintf("/internal/instances/%s", instanceID):
			json.NewEncoder(w).Encode(cpclient.Instance{
				ID:              instanceID,
				EffectiveConfig: map[string]any{"branding": map[string]any{"logo_url": "https://example.com/logo.png"}},
			})
		default: 
			t.Fatalf("unexpected call to %s", r.URL.Path)
		}
	}

	h := newTestHandler(t, cpHandlerFunc, &fakeEngine{})

	body, _ := json.Marshal(widgetSessionInitRequest{InstanceID: instanceID, Origin: "https://widget.example.com"})
	req := httptest.NewRequest(http.MethodPost, "/v1/widget/session:init", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleWidgetSessionInit(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp widgetSessionInitResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a non-empty widget session token")
	}
	if resp.Branding["logo_url"] != "https://example.com/logo.png" {
		t.Errorf("branding = %+v", resp.Branding)
	}
}

func TestHandleWidgetSessionInit_RejectsUnlistedOrigin(t *testing.T) {
	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("control plane should not be called when origin is rejected")
	}, &fakeEngine{})

	body, _ := json.Marshal(widgetSessionInitRequest{InstanceID: uuid.New(), Origin: "https://evil.example.com"})
	req := httptest.NewRequest(http.MethodPost, "/v1/widget/session:init", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleWidgetSessionInit(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
