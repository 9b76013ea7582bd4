// Package client talks to a running lampd, either over its Unix socket or
// over the HTTP API.
package client

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/Lamprichauns/lamp-os/internal/config"
)

var dial = net.Dial

// ClientInterface defines the methods for interacting with lampd.
// Both the socket Client and HTTPClient implement it, so lampctl commands
// and the MCP bridge work against either transport.
type ClientInterface interface {
	Status() (map[string]any, error)
	Version() (map[string]any, error)
	ListLamps(visibleOnly bool) ([]map[string]any, error)
	GetLamp(id string) (map[string]any, error)
	ListAttributes() ([]map[string]any, error)
	Announce(code, value, color string) (map[string]any, error)
	ListMessages() ([]map[string]any, error)
	Broadcast(code, payload, color string, ttl int) (map[string]any, error)
	SetLogLevel(level string) (string, error)
	ListFilters() (map[string]any, error)
	SetFilters(filters []map[string]any) (map[string]any, error)
}

var (
	_ ClientInterface = (*Client)(nil)
	_ ClientInterface = (*HTTPClient)(nil)
)

// Client represents a connection to lampd over its Unix socket.
type Client struct {
	logger  *slog.Logger
	socket  string
	timeout time.Duration
}

// New creates a new client. An empty socket selects the default runtime path.
func New(logger *slog.Logger, socket string) *Client {
	if socket == "" {
		socket = config.GetRuntimeSocketPath()
		logger.Debug("Using default socket path", "socket", socket)
	} else {
		logger.Debug("Using provided socket path", "socket", socket)
	}

	return &Client{
		logger:  logger,
		socket:  socket,
		timeout: 10 * time.Second,
	}
}

// Socket returns the socket path the client dials.
func (c *Client) Socket() string {
	return c.socket
}

// request sends one action to lampd and returns the decoded response.
func (c *Client) request(action string, data map[string]any) (map[string]any, error) {
	c.logger.Debug("Connecting to socket", "socket", c.socket)
	conn, err := dial("unix", c.socket)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to socket: %w", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(c.timeout))

	req := map[string]any{"action": action}
	if data != nil {
		req["data"] = data
	}
	c.logger.Debug("Sending request", "request", req)
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var resp map[string]any
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	c.logger.Debug("Received response", "response", resp)

	if msg, ok := resp["error"].(string); ok {
		return nil, fmt.Errorf("server error: %s", msg)
	}
	return resp, nil
}

// Ping checks that lampd is answering.
func (c *Client) Ping() error {
	_, err := c.request("ping", nil)
	return err
}

// Status returns this lamp's identity, colours and local state.
func (c *Client) Status() (map[string]any, error) {
	resp, err := c.request("status", nil)
	if err != nil {
		return nil, err
	}
	return mapField(resp, "lamp")
}

// Version returns the running daemon's version information.
func (c *Client) Version() (map[string]any, error) {
	resp, err := c.request("version", nil)
	if err != nil {
		return nil, err
	}
	return mapField(resp, "version")
}

// ListLamps returns the peer lamps lampd knows about.
func (c *Client) ListLamps(visibleOnly bool) ([]map[string]any, error) {
	resp, err := c.request("list_lamps", map[string]any{"visible": visibleOnly})
	if err != nil {
		return nil, err
	}
	return listField(resp, "lamps")
}

// GetLamp returns one peer lamp.
func (c *Client) GetLamp(id string) (map[string]any, error) {
	resp, err := c.request("get_lamp", map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	return mapField(resp, "lamp")
}

// ListAttributes returns the attributes this lamp announces.
func (c *Client) ListAttributes() ([]map[string]any, error) {
	resp, err := c.request("list_attributes", nil)
	if err != nil {
		return nil, err
	}
	return listField(resp, "attributes")
}

// Announce sets one of this lamp's attributes from a hex value or a colour.
func (c *Client) Announce(code, value, color string) (map[string]any, error) {
	resp, err := c.request("announce", map[string]any{"code": code, "value": value, "color": color})
	if err != nil {
		return nil, err
	}
	return mapField(resp, "attribute")
}

// ListMessages returns the live broadcast messages.
func (c *Client) ListMessages() ([]map[string]any, error) {
	resp, err := c.request("list_messages", nil)
	if err != nil {
		return nil, err
	}
	return listField(resp, "messages")
}

// Broadcast starts a broadcast message. A ttl of 0 uses the daemon default.
func (c *Client) Broadcast(code, payload, color string, ttl int) (map[string]any, error) {
	resp, err := c.request("broadcast", map[string]any{"code": code, "payload": payload, "color": color, "ttl": ttl})
	if err != nil {
		return nil, err
	}
	return mapField(resp, "message")
}

// SetLogLevel changes the daemon's global log level.
func (c *Client) SetLogLevel(level string) (string, error) {
	resp, err := c.request("set_level", map[string]any{"level": level})
	if err != nil {
		return "", err
	}
	applied, _ := resp["level"].(string)
	return applied, nil
}

// ListFilters returns the global log level and the active log filters.
func (c *Client) ListFilters() (map[string]any, error) {
	resp, err := c.request("list_filters", nil)
	if err != nil {
		return nil, err
	}
	delete(resp, "status")
	return resp, nil
}

// SetFilters replaces the daemon's log filters.
func (c *Client) SetFilters(filters []map[string]any) (map[string]any, error) {
	list := make([]any, len(filters))
	for i, f := range filters {
		list[i] = f
	}
	resp, err := c.request("set_filters", map[string]any{"filters": list})
	if err != nil {
		return nil, err
	}
	delete(resp, "status")
	return resp, nil
}

func mapField(resp map[string]any, key string) (map[string]any, error) {
	m, ok := resp[key].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("response has no %q object", key)
	}
	return m, nil
}

func listField(resp map[string]any, key string) ([]map[string]any, error) {
	raw, ok := resp[key].([]any)
	if !ok {
		if resp[key] == nil {
			return []map[string]any{}, nil
		}
		return nil, fmt.Errorf("response has no %q list", key)
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, nil
}
