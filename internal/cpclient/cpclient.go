// Package cpclient is the narrow HTTP client the Gateway, Provisioner, and
// Connector Gateway use to call the Control Plane's service-to-service
// routes. It never talks to Postgres or Vault directly — every side effect
// goes through Control Plane, which is the sole writer of the domain store.
package cpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
)

// Client calls the Control Plane over HTTP with bounded retries on
// transient failures (exponential backoff with jitter, bounded retries).
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries uint
}

// New builds a Client against baseURL (e.g. "http://control-plane:8080"),
// with the given per-call timeout.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: 5,
	}
}

// Usage mirrors pkg/controlplane.Usage on the wire.
type Usage struct {
	LLMTokensIn  int64 `json:"llm_tokens_in"`
	LLMTokensOut int64 `json:"llm_tokens_out"`
	ToolCalls    int64 `json:"tool_calls"`
	Requests     int64 `json:"requests"`
	RAGQueries   int64 `json:"rag_queries"`
}

// AuthorizeResult mirrors pkg/controlplane.AuthorizeResult on the wire.
type AuthorizeResult struct {
	Allowed       bool      `json:"Allowed"`
	ReservationID uuid.UUID `json:"ReservationID"`
	Budget        int64     `json:"Budget"`
	Balance       int64     `json:"Balance"`
}

// SettleResult mirrors pkg/controlplane.SettleResult on the wire.
type SettleResult struct {
	Debited       int64     `json:"Debited"`
	Balance       int64     `json:"Balance"`
	LedgerEntryID uuid.UUID `json:"LedgerEntryID"`
	Status        string    `json:"Status"`
}

// Authorize calls POST /billing/authorize.
func (c *Client) Authorize(ctx context.Context, instanceID uuid.UUID, requestedBudget int64) (AuthorizeResult, error) {
	var out AuthorizeResult
	err := c.postJSON(ctx, "/billing/authorize", map[string]any{
		"instance_id":      instanceID,
		"requested_budget": requestedBudget,
	}, &out)
	return out, err
}

// Settle calls POST /billing/settle.
func (c *Client) Settle(ctx context.Context, reservationID, instanceID uuid.UUID, usage Usage) (SettleResult, error) {
	var out SettleResult
	err := c.postJSON(ctx, "/billing/settle", map[string]any{
		"reservation_id": reservationID,
		"instance_id":    instanceID,
		"usage":          usage,
	}, &out)
	return out, err
}

// IntrospectAPIKeyResult mirrors the Control Plane's introspection response.
type IntrospectAPIKeyResult struct {
	Valid      bool   `json:"valid"`
	InstanceID string `json:"instance_id"`
	OrgID      string `json:"org_id"`
	ProjectID  string `json:"project_id"`
}

// IntrospectAPIKey calls POST /internal/apikeys/introspect, backing the
// Gateway's "X-API-Key" authentication scheme.
func (c *Client) IntrospectAPIKey(ctx context.Context, rawKey string) (IntrospectAPIKeyResult, error) {
	var out IntrospectAPIKeyResult
	err := c.postJSON(ctx, "/internal/apikeys/introspect", map[string]any{"api_key": rawKey}, &out)
	return out, err
}

// Binding mirrors pkg/controlplane.ConnectorBinding on the wire.
type Binding struct {
	ID            uuid.UUID      `json:"ID"`
	OrgID         uuid.UUID      `json:"OrgID"`
	ProjectID     uuid.UUID      `json:"ProjectID"`
	ConnectorID   string         `json:"ConnectorID"`
	ConnectorType string         `json:"ConnectorType"`
	DisplayName   string         `json:"DisplayName"`
	SecretPath    string         `json:"SecretPath"`
	Config        map[string]any `json:"Config"`
	Status        string         `json:"Status"`
}

// GetBinding calls GET /internal/connectors/bindings/{id}, backing the
// Connector Gateway's binding load.
func (c *Client) GetBinding(ctx context.Context, id uuid.UUID) (Binding, error) {
	var out Binding
	err := c.getJSON(ctx, fmt.Sprintf("/internal/connectors/bindings/%s", id), &out)
	return out, err
}

// Instance mirrors pkg/controlplane.Instance on the wire (the subset the
// Gateway needs for widget branding).
type Instance struct {
	ID              uuid.UUID      `json:"ID"`
	OrgID           uuid.UUID      `json:"OrgID"`
	ProjectID       uuid.UUID      `json:"ProjectID"`
	State           string         `json:"State"`
	EffectiveConfig map[string]any `json:"EffectiveConfig"`
}

// GetInstance calls GET /internal/instances/{id}.
func (c *Client) GetInstance(ctx context.Context, id uuid.UUID) (Instance, error) {
	var out Instance
	err := c.getJSON(ctx, fmt.Sprintf("/internal/instances/%s", id), &out)
	return out, err
}

// ProvisionInstance calls POST /integrations/commerce/provision.
func (c *Client) ProvisionInstance(ctx context.Context, orderID, userEmail, offeringID, planID string, metadata map[string]any) (map[string]any, error) {
	var out map[string]any
	err := c.postJSON(ctx, "/integrations/commerce/provision", map[string]any{
		"order_id":    orderID,
		"user_email":  userEmail,
		"offering_id": offeringID,
		"plan_id":     planID,
		"metadata":    metadata,
	}, &out)
	return out, err
}

// AddCredits calls POST /integrations/commerce/add-credits.
func (c *Client) AddCredits(ctx context.Context, orderID, userEmail string, creditAmount int64) (map[string]any, error) {
	var out map[string]any
	err := c.postJSON(ctx, "/integrations/commerce/add-credits", map[string]any{
		"order_id":      orderID,
		"user_email":    userEmail,
		"credit_amount": creditAmount,
	}, &out)
	return out, err
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	return c.doWithRetry(ctx, http.MethodPost, path, payload, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.doWithRetry(ctx, http.MethodGet, path, nil, out)
}

// doWithRetry retries transient failures (network errors, 5xx) with
// exponential backoff and jitter, up to maxRetries. 4xx responses are
// not retried — they are the Control Plane's considered answer.
func (c *Client) doWithRetry(ctx context.Context, method, path string, payload []byte, out any) error {
	operation := func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("building request: %w", err))
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("calling control plane %s: %w", path, err)
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			return nil, fmt.Errorf("control plane %s returned %d", path, resp.StatusCode)
		}
		return resp, nil
	}

	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.maxRetries),
	)
	if err != nil {
		return fmt.Errorf("control plane request failed after retries: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("control plane %s returned %d: %s", path, resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
