package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPClient represents an HTTP connection to lampd
type HTTPClient struct {
	logger  *slog.Logger
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTP creates a new HTTP client. The token is only needed for
// mutating requests when the daemon has api.token set.
func NewHTTP(logger *slog.Logger, baseURL string, token string) *HTTPClient {
	// Ensure baseURL doesn't have trailing slash
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &HTTPClient{
		logger:  logger,
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// request performs an HTTP request and decodes the JSON response
func (c *HTTPClient) request(method, path string, body any, resp any) error {
	target := c.baseURL + path
	c.logger.Debug("HTTP request", "method", method, "url", target)

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, target, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	httpResp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("HTTP request failed", "error", err)
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		c.logger.Error("HTTP error response", "status", httpResp.StatusCode, "body", string(respBody))
		return fmt.Errorf("HTTP error %d: %s", httpResp.StatusCode, string(respBody))
	}

	if resp != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, resp); err != nil {
			c.logger.Error("Failed to decode response", "error", err, "body", string(respBody))
			return fmt.Errorf("failed to decode response: %w", err)
		}
		c.logger.Debug("Received response", "response", resp)
	}

	return nil
}

func (c *HTTPClient) getObject(path string) (map[string]any, error) {
	var resp map[string]any
	if err := c.request(http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *HTTPClient) getList(path string) ([]map[string]any, error) {
	var resp []map[string]any
	if err := c.request(http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	// Ensure we return an empty slice instead of nil
	if resp == nil {
		return []map[string]any{}, nil
	}
	return resp, nil
}

// Health returns the daemon's health status.
func (c *HTTPClient) Health() (map[string]any, error) {
	return c.getObject("/api/v1/health")
}

// Version returns the running daemon's version information.
func (c *HTTPClient) Version() (map[string]any, error) {
	return c.getObject("/api/v1/version")
}

// Status returns this lamp's identity, colours and local state.
func (c *HTTPClient) Status() (map[string]any, error) {
	return c.getObject("/api/v1/status")
}

// ListLamps returns the peer lamps the daemon knows about.
func (c *HTTPClient) ListLamps(visibleOnly bool) ([]map[string]any, error) {
	path := "/api/v1/lamps"
	if visibleOnly {
		path += "?visible=true"
	}
	return c.getList(path)
}

// GetLamp returns one peer lamp
func (c *HTTPClient) GetLamp(id string) (map[string]any, error) {
	return c.getObject("/api/v1/lamps/" + url.PathEscape(id))
}

// ListAttributes returns the attributes this lamp announces
func (c *HTTPClient) ListAttributes() ([]map[string]any, error) {
	return c.getList("/api/v1/attributes")
}

// Announce sets one of this lamp's attributes from a hex value or a colour.
func (c *HTTPClient) Announce(code, value, color string) (map[string]any, error) {
	body := map[string]any{"code": code}
	if value != "" {
		body["value"] = value
	}
	if color != "" {
		body["color"] = color
	}
	var resp map[string]any
	if err := c.request(http.MethodPost, "/api/v1/attributes", body, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ListMessages returns the live broadcast messages
func (c *HTTPClient) ListMessages() ([]map[string]any, error) {
	return c.getList("/api/v1/messages")
}

// Broadcast starts a broadcast message. A ttl of 0 uses the daemon default.
func (c *HTTPClient) Broadcast(code, payload, color string, ttl int) (map[string]any, error) {
	body := map[string]any{"code": code}
	if payload != "" {
		body["payload"] = payload
	}
	if color != "" {
		body["color"] = color
	}
	if ttl > 0 {
		body["ttl"] = ttl
	}
	var resp map[string]any
	if err := c.request(http.MethodPost, "/api/v1/broadcasts", body, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ListFilters returns the global log level and the active log filters.
func (c *HTTPClient) ListFilters() (map[string]any, error) {
	return c.getObject("/api/v1/logging/filters")
}

// SetFilters replaces the daemon's log filters.
func (c *HTTPClient) SetFilters(filters []map[string]any) (map[string]any, error) {
	var resp map[string]any
	if err := c.request(http.MethodPut, "/api/v1/logging/filters", map[string]any{"filters": filters}, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// SetLogLevel changes the daemon's global log level.
func (c *HTTPClient) SetLogLevel(level string) (string, error) {
	var resp struct {
		Level string `json:"level"`
	}
	if err := c.request(http.MethodPut, "/api/v1/logging/level", map[string]any{"level": level}, &resp); err != nil {
		return "", err
	}
	return resp.Level, nil
}
