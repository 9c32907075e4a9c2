package connectorgateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestApplyAuthHeader(t *testing.T) {
	tests := []struct {
		name string
		secrets map[string]any
		want map[string]string
	}{
		{"no api key leaves headers untouched", map[string]any{}, map[string]string{}},
		{"default header and prefix", map[string]any{"api_key": "secret123"}, map[string]string{"Authorization": "Bearer secret123"}},
		{"custom header, no prefix", map[string]any{"api_key": "secret123", "auth_header": "X-Api-Key", "auth_prefix": ""}, map[string]string{"X-Api-Key": "secret123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			applyAuthHeader(headers, tt.secrets)
			if len(headers) != len(tt.want) {
				t.Fatalf("headers = %+v, want %+v", headers, tt.want)
			}
			for k, v := range tt.want {
				if headers[k] != v {
					t.Errorf("headers[%q] = %q, want %q", k, headers[k], v)
				}
			}
		})
	}
}

func TestStringField(t *testing.T) {
	m := map[string]any{"name": "gopher", "count": 5}
	if got := stringField(m, "name", "fallback"); got != "gopher" {
		t.Errorf("stringField(name) = %q, want gopher", got)
	}
	if got := stringField(m, "missing", "fallback"); got != "fallback" {
		t.Errorf("stringField(missing) = %q, want fallback", got)
	}
	if got := stringField(m, "count", "fallback"); got != "fallback" {
		t.Errorf("stringField(count) = %q, want fallback (wrong type must not match)", got)
	}
}

func TestExecute_HTTPConnector(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]any{"echo": body["query"]})
	}))
	defer srv.Close()

	config := map[string]any{
		"base_url": srv.URL,
		"tools": map[string]any{
			"search": map[string]any{"method": "POST", "path": "/search"},
		},
	}
	secrets := map[string]any{"api_key": "tok-123"}

	e := NewExecutor("http", config, secrets, 5*time.Second)
	result := e.Execute("search", map[string]any{"query": "widgets"})

	if !result.Success {
		t.Fatalf("Execute() failed: %s", result.Error)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization header = %q, want Bearer tok-123", gotAuth)
	}
	decoded, ok := result.Result.(map[string]any)
	if !ok || decoded["echo"] != "widgets" {
		t.Errorf("result = %+v, want echo=widgets", result.Result)
	}
}

func TestExecute_HTTPConnector_UnconfiguredToolFails(t *testing.T) {
	e := NewExecutor("http", map[string]any{"base_url": "http://unused.invalid"}, nil, time.Second)
	result := e.Execute("nonexistent", nil)
	if result.Success {
		t.Error("expected failure for an unconfigured tool")
	}
}

func TestExecute_HTTPConnector_UpstreamErrorBecomesFailureEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	config := map[string]any{
		"base_url": srv.URL,
		"tools":    map[string]any{"search": map[string]any{"method": "GET", "path": "/search"}},
	}
	e := NewExecutor("http", config, nil, 5*time.Second)
	result := e.Execute("search", nil)

	if result.Success {
		t.Error("expected success=false on a 500 from the connector")
	}
	if result.Error == "" {
		t.Error("expected a non-empty error message")
	}
}

func TestExecute_MCPConnector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["method"] != "tools/call" {
			t.Fatalf("unexpected jsonrpc method %v", body["method"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{"content": "mcp says hi"},
		})
	}))
	defer srv.Close()

	e := NewExecutor("mcp", map[string]any{"server_url": srv.URL}, nil, 5*time.Second)
	result := e.Execute("greet", map[string]any{"name": "gopher"})

	if !result.Success {
		t.Fatalf("Execute() failed: %s", result.Error)
	}
	if result.Result != "mcp says hi" {
		t.Errorf("result = %v, want %q", result.Result, "mcp says hi")
	}
}

func TestExecute_MCPConnector_ErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "tool not found"}})
	}))
	defer srv.Close()

	e := NewExecutor("mcp", map[string]any{"server_url": srv.URL}, nil, 5*time.Second)
	result := e.Execute("unknown", nil)

	if result.Success {
		t.Error("expected success=false when the mcp response carries an error field")
	}
}

func TestExecute_OAuth2Connector(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("grant_type") != "client_credentials" {
			t.Fatalf("unexpected grant_type %q", r.Form.Get("grant_type"))
		}
		json.NewEncoder(w).Encode(map[string]any{"access_token": "at-abc"})
	})
	var gotAuth string
	mux.HandleFunc("/resource", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	config := map[string]any{
		"base_url":  srv.URL,
		"token_url": srv.URL + "/oauth/token",
		"tools": map[string]any{
			"fetch": map[string]any{"method": "POST", "path": "/resource"},
		},
	}
	secrets := map[string]any{"client_id": "cid", "client_secret": "csecret"}

	e := NewExecutor("oauth2", config, secrets, 5*time.Second)
	result := e.Execute("fetch", nil)

	if !result.Success {
		t.Fatalf("Execute() failed: %s", result.Error)
	}
	if gotAuth != "Bearer at-abc" {
		t.Errorf("Authorization header = %q, want Bearer at-abc", gotAuth)
	}
}

func TestExecute_UnsupportedConnectorType(t *testing.T) {
	e := NewExecutor("carrier-pigeon", nil, nil, time.Second)
	result := e.Execute("anything", nil)
	if result.Success {
		t.Error("expected failure for an unsupported connector type")
	}
}
