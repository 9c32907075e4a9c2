// Package connectorgateway dispatches outbound tool calls to external APIs
// on behalf of a connector binding, injecting secrets fetched from the
// secret store and never letting them reach a response or log line.
package connectorgateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ToolCallResult is the execution envelope returned for every tool call,
// successful or not.
type ToolCallResult struct {
	Success         bool   `json:"success"`
	Result          any    `json:"result,omitempty"`
	Error           string `json:"error,omitempty"`
	ExecutionTimeMS int64  `json:"execution_time_ms"`
}

// Executor dispatches a tool call through one of the supported connector
// types: http, mcp, oauth2.
type Executor struct {
	connectorType string
	config        map[string]any
	secrets       map[string]any
	httpClient    *http.Client
}

// NewExecutor builds an Executor bound to one binding's type, config, and
// secrets, with the given per-call timeout.
func NewExecutor(connectorType string, config, secrets map[string]any, timeout time.Duration) *Executor {
	return &Executor{
		connectorType: connectorType,
		config:        config,
		secrets:       secrets,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

// Execute dispatches a tool call and always returns a result — the caller
// only returns a non-200 for transport-layer or policy failures; a failed
// tool call at the connector itself becomes a {success: false} envelope.
func (e *Executor) Execute(toolName string, toolInput map[string]any) ToolCallResult {
	start := time.Now()

	var (
		result any
		err    error
	)
	switch e.connectorType {
	case "http":
		result, err = e.executeHTTP(toolName, toolInput)
	case "mcp":
		result, err = e.executeMCP(toolName, toolInput)
	case "oauth2":
		result, err = e.executeOAuth2(toolName, toolInput)
	default:
		err = fmt.Errorf("unsupported connector type: %s", e.connectorType)
	}

	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return ToolCallResult{Success: false, Error: err.Error(), ExecutionTimeMS: elapsed}
	}
	return ToolCallResult{Success: true, Result: result, ExecutionTimeMS: elapsed}
}

func (e *Executor) toolConfig(toolName string) (map[string]any, bool) {
	tools, _ := e.config["tools"].(map[string]any)
	tool, ok := tools[toolName].(map[string]any)
	return tool, ok
}

func stringField(m map[string]any, key, def string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return def
}

func (e *Executor) executeHTTP(toolName string, toolInput map[string]any) (any, error) {
	baseURL := stringField(e.config, "base_url", "")
	toolCfg, ok := e.toolConfig(toolName)
	if !ok {
		return nil, fmt.Errorf("tool not configured: %s", toolName)
	}

	method := strings.ToUpper(stringField(toolCfg, "method", "POST"))
	path := stringField(toolCfg, "path", "")
	headers := map[string]string{}
	if h, ok := toolCfg["headers"].(map[string]any); ok {
		for k, v := range h {
			headers[k] = fmt.Sprintf("%v", v)
		}
	}

	applyAuthHeader(headers, e.secrets)

	return e.dispatchHTTP(method, baseURL+path, headers, toolInput)
}

// applyAuthHeader sets the outbound auth header from secrets: {api_key,
// auth_header (default "Authorization"), auth_prefix (default "Bearer")}.
func applyAuthHeader(headers map[string]string, secrets map[string]any) {
	apiKey := stringField(secrets, "api_key", "")
	if apiKey == "" {
		return
	}
	authHeader := stringField(secrets, "auth_header", "Authorization")
	authPrefix := stringField(secrets, "auth_prefix", "Bearer")
	if authPrefix != "" {
		headers[authHeader] = authPrefix + " " + apiKey
	} else {
		headers[authHeader] = apiKey
	}
}

func (e *Executor) dispatchHTTP(method, rawURL string, headers map[string]string, toolInput map[string]any) (any, error) {
	var (
		req *http.Request
		err error
	)

	switch method {
	case http.MethodGet:
		u, perr := url.Parse(rawURL)
		if perr != nil {
			return nil, fmt.Errorf("parsing url: %w", perr)
		}
		q := u.Query()
		for k, v := range toolInput {
			q.Set(k, fmt.Sprintf("%v", v))
		}
		u.RawQuery = q.Encode()
		req, err = http.NewRequest(http.MethodGet, u.String(), nil)
	case http.MethodDelete:
		req, err = http.NewRequest(http.MethodDelete, rawURL, nil)
	case http.MethodPost, http.MethodPut:
		body, merr := json.Marshal(toolInput)
		if merr != nil {
			return nil, fmt.Errorf("marshaling tool input: %w", merr)
		}
		req, err = http.NewRequest(method, rawURL, bytes.NewReader(body))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	default:
		return nil, fmt.Errorf("unsupported http method: %s", method)
	}
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling connector: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("connector returned %d", resp.StatusCode)
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return string(body), nil
	}
	return decoded, nil
}

func (e *Executor) executeMCP(toolName string, toolInput map[string]any) (any, error) {
	serverURL := stringField(e.config, "server_url", "")
	if serverURL == "" {
		return nil, fmt.Errorf("mcp server url not configured")
	}

	requestBody := map[string]any{
		"jsonrpc": "2.0",
		"method":  "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": toolInput,
		},
		"id": 1,
	}
	payload, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling mcp request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, serverURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building mcp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey := stringField(e.secrets, "api_key", ""); apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling mcp server: %w", err)
	}
	defer resp.Body.Close()

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding mcp response: %w", err)
	}
	if mcpErr, ok := data["error"]; ok {
		return nil, fmt.Errorf("mcp error: %v", mcpErr)
	}

	result, _ := data["result"].(map[string]any)
	return result["content"], nil
}

func (e *Executor) executeOAuth2(toolName string, toolInput map[string]any) (any, error) {
	accessToken, err := e.oauth2Token()
	if err != nil {
		return nil, err
	}

	baseURL := stringField(e.config, "base_url", "")
	toolCfg, ok := e.toolConfig(toolName)
	if !ok {
		return nil, fmt.Errorf("tool not configured: %s", toolName)
	}

	method := strings.ToUpper(stringField(toolCfg, "method", "POST"))
	path := stringField(toolCfg, "path", "")
	headers := map[string]string{"Authorization": "Bearer " + accessToken}
	if h, ok := toolCfg["headers"].(map[string]any); ok {
		for k, v := range h {
			headers[k] = fmt.Sprintf("%v", v)
		}
	}

	return e.dispatchHTTP(method, baseURL+path, headers, toolInput)
}

// oauth2Token obtains an access token: refresh_token grant if a
// refresh_token secret is present, else client_credentials. No caching —
// every call refreshes.
func (e *Executor) oauth2Token() (string, error) {
	tokenURL := stringField(e.config, "token_url", "")
	clientID := stringField(e.secrets, "client_id", "")
	clientSecret := stringField(e.secrets, "client_secret", "")
	refreshToken := stringField(e.secrets, "refresh_token", "")

	if tokenURL == "" || clientID == "" || clientSecret == "" {
		return "", fmt.Errorf("oauth2 credentials not properly configured")
	}

	form := url.Values{}
	if refreshToken != "" {
		form.Set("grant_type", "refresh_token")
		form.Set("refresh_token", refreshToken)
	} else {
		form.Set("grant_type", "client_credentials")
	}
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)

	req, err := http.NewRequest(http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting oauth2 token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}

	var data struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if data.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}
	return data.AccessToken, nil
}
