// Package engineclient is the Gateway's invocation contract for the flow
// execution engine. The engine itself is out of scope (Non-goals); this
// package models only the boundary: request shape, response shape, and the
// interface the Gateway codes against so tests can substitute a fake.
package engineclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Usage is the run-time usage counters an engine invocation reports back,
// which the Gateway forwards verbatim to Control Plane's settle.
type Usage struct {
	LLMTokensIn  int64 `json:"llm_tokens_in"`
	LLMTokensOut int64 `json:"llm_tokens_out"`
	ToolCalls    int64 `json:"tool_calls"`
	Requests     int64 `json:"requests"`
	RAGQueries   int64 `json:"rag_queries"`
}

// InvokeRequest is sent to the engine for a single run.
type InvokeRequest struct {
	InstanceID uuid.UUID      `json:"instance_id"`
	Input      map[string]any `json:"input"`
	Metadata   map[string]any `json:"metadata"`
}

// InvokeResult is the engine's response to a successful invocation.
type InvokeResult struct {
	Output map[string]any `json:"output"`
	Usage  Usage          `json:"usage"`
}

// Engine is the interface the Gateway codes against; a process boundary
// constructed interface per the system's "global singletons for clients"
// guidance, so tests substitute a fake engine.
type Engine interface {
	Invoke(ctx context.Context, req InvokeRequest) (InvokeResult, error)
}

// HTTPEngine invokes an execution engine reachable over HTTP at a single
// fixed endpoint, POSTing InvokeRequest and decoding InvokeResult.
type HTTPEngine struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPEngine builds an HTTPEngine against endpoint with the given
// per-call timeout ("a service-specific larger value for engine
// invocations").
func NewHTTPEngine(endpoint string, timeout time.Duration) *HTTPEngine {
	return &HTTPEngine{endpoint: endpoint, httpClient: &http.Client{Timeout: timeout}}
}

// Invoke calls the engine synchronously.
func (e *HTTPEngine) Invoke(ctx context.Context, req InvokeRequest) (InvokeResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return InvokeResult{}, fmt.Errorf("marshaling engine request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return InvokeResult{}, fmt.Errorf("building engine request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return InvokeResult{}, fmt.Errorf("invoking engine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return InvokeResult{}, fmt.Errorf("engine returned status %d", resp.StatusCode)
	}

	var out InvokeResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return InvokeResult{}, fmt.Errorf("decoding engine response: %w", err)
	}
	return out, nil
}
