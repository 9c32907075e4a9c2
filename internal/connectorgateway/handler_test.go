package connectorgateway

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

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Digitlify-Inc/cmp-platform/internal/cpclient"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSecretGetter struct {
	secrets map[string]any
	err     error
}

func (f *fakeSecretGetter) Get(ctx context.Context, path string) (map[string]any, error) {
	return f.secrets, f.err
}

func newTestHandler(t *testing.T, binding cpclient.Binding, bindingErr bool, secrets *fakeSecretGetter) (*Handler, *httptest.Server) {
	t.Helper()
	cpSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bindingErr {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(binding)
	}))
	t.Cleanup(cpSrv.Close)

	cp := cpclient.New(cpSrv.URL, 2*time.Second)
	limiter := NewRateLimiter(newTestRedis(t), 100)
	h := NewHandler(discardLogger(), cp, secrets, limiter, 5*time.Second)
	return h, cpSrv
}

func TestHandleExecute_Success(t *testing.T) {
	toolSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer toolSrv.Close()

	bindingID := uuid.New()
	binding := cpclient.Binding{
		ID:            bindingID,
		ConnectorType: "http",
		Status:        "ACTIVE",
		SecretPath:    "connectors/acme",
		Config: map[string]any{
			"base_url": toolSrv.URL,
			"tools":    map[string]any{"ping": map[string]any{"method": "GET", "path": "/ping"}},
		},
	}
	h, _ := newTestHandler(t, binding, false, &fakeSecretGetter{secrets: map[string]any{"api_key": "tok"}})

	body, _ := json.Marshal(executeRequest{
		InstanceID: uuid.New(),
		OrgID:      uuid.New(),
		ProjectID:  uuid.New(),
		BindingID:  bindingID,
		ToolName:   "ping",
	})
	req := httptest.NewRequest(http.MethodPost, "/connectors/execute", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleExecute(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var result ToolCallResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !result.Success {
		t.Errorf("expected success, got error %q", result.Error)
	}
}

func TestHandleExecute_DisabledBindingForbidden(t *testing.T) {
	bindingID := uuid.New()
	binding := cpclient.Binding{ID: bindingID, ConnectorType: "http", Status: "REVOKED", SecretPath: "connectors/acme"}
	h, _ := newTestHandler(t, binding, false, &fakeSecretGetter{secrets: map[string]any{"api_key": "tok"}})

	body, _ := json.Marshal(executeRequest{
		InstanceID: uuid.New(), OrgID: uuid.New(), ProjectID: uuid.New(),
		BindingID:  bindingID, ToolName: "ping",
	})
	req := httptest.NewRequest(http.MethodPost, "/connectors/execute", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleExecute(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestHandleExecute_BindingNotFound(t *testing.T) {
	bindingID := uuid.New()
	h, _ := newTestHandler(t, cpclient.Binding{}, true, &fakeSecretGetter{})

	body, _ := json.Marshal(executeRequest{
		InstanceID: uuid.New(), OrgID: uuid.New(), ProjectID: uuid.New(),
		BindingID:  bindingID, ToolName: "ping",
	})
	req := httptest.NewRequest(http.MethodPost, "/connectors/execute", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleExecute(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHandleExecute_RateLimited(t *testing.T) {
	bindingID := uuid.New()
	binding := cpclient.Binding{ID: bindingID, ConnectorType: "http", Status: "ACTIVE", SecretPath: "connectors/acme"}

	cpSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(binding)
	}))
	defer cpSrv.Close()

	cp := cpclient.New(cpSrv.URL, 2*time.Second)
	limiter := NewRateLimiter(newTestRedis(t), 1)
	h := NewHandler(discardLogger(), cp, &fakeSecretGetter{secrets: map[string]any{"api_key": "tok"}}, limiter, 5*time.Second)

	newReq := func() *http.Request {
		body, _ := json.Marshal(executeRequest{
			InstanceID: uuid.New(), OrgID: uuid.New(), ProjectID: uuid.New(),
			BindingID:  bindingID, ToolName: "ping",
		})
		return httptest.NewRequest(http.MethodPost, "/connectors/execute", bytes.NewReader(body))
	}

	w1 := httptest.NewRecorder()
	h.HandleExecute(w1, newReq())
	w2 := httptest.NewRecorder()
	h.HandleExecute(w2, newReq())

	if w2.Code != http.StatusTooManyRequests {
		t.Errorf("second call status = %d, want %d", w2.Code, http.StatusTooManyRequests)
	}
}

func TestHandleExecute_EmptySecretsFails(t *testing.T) {
	bindingID := uuid.New()
	binding := cpclient.Binding{ID: bindingID, ConnectorType: "http", Status: "ACTIVE", SecretPath: "connectors/acme"}
	h, _ := newTestHandler(t, binding, false, &fakeSecretGetter{secrets: map[string]any{}})

	body, _ := json.Marshal(executeRequest{
		InstanceID: uuid.New(), OrgID: uuid.New(), ProjectID: uuid.New(),
		BindingID:  bindingID, ToolName: "ping",
	})
	req := httptest.NewRequest(http.MethodPost, "/connectors/execute", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleExecute(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func chiRequestWithID(method, path, id string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestHandleValidateBinding_Valid(t *testing.T) {
	bindingID := uuid.New()
	binding := cpclient.Binding{ID: bindingID, ConnectorType: "http", Status: "ACTIVE", SecretPath: "connectors/acme"}
	h, _ := newTestHandler(t, binding, false, &fakeSecretGetter{secrets: map[string]any{"api_key": "tok"}})

	req := chiRequestWithID(http.MethodGet, fmt.Sprintf("/connectors/bindings/%s/validate", bindingID), bindingID.String())
	w := httptest.NewRecorder()
	h.HandleValidateBinding(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["valid"] != true {
		t.Errorf("resp = %+v, want valid=true", resp)
	}
}

func TestHandleValidateBinding_MissingSecretsIsInvalid(t *testing.T) {
	bindingID := uuid.New()
	binding := cpclient.Binding{ID: bindingID, ConnectorType: "http", Status: "ACTIVE", SecretPath: "connectors/acme"}
	h, _ := newTestHandler(t, binding, false, &fakeSecretGetter{secrets: map[string]any{}})

	req := chiRequestWithID(http.MethodGet, fmt.Sprintf("/connectors/bindings/%s/validate", bindingID), bindingID.String())
	w := httptest.NewRecorder()
	h.HandleValidateBinding(w, req)

	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["valid"] != false || resp["secrets_configured"] != false {
		t.Errorf("resp = %+v, want valid=false secrets_configured=false", resp)
	}
}

func TestHandleValidateBinding_InvalidID(t *testing.T) {
	cp := cpclient.New("http://unused.invalid", time.Second)
	limiter := NewRateLimiter(newTestRedis(t), 100)
	h := NewHandler(discardLogger(), cp, &fakeSecretGetter{}, limiter, 5*time.Second)

	req := chiRequestWithID(http.MethodGet, "/connectors/bindings/not-a-uuid/validate", "not-a-uuid")
	w := httptest.NewRecorder()
	h.HandleValidateBinding(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
