package commands

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/pterm/pterm"

	"github.com/Lamprichauns/lamp-os/pkg/client"
)

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

var testNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

// mockClient implements client.ClientInterface with canned data and
// records the writes it receives.
type mockClient struct {
	err error

	announced   []string
	broadcasts  []string
	broadcastTT int
	level       string
	filters     []map[string]any
	visibleOnly bool
}

var _ client.ClientInterface = (*mockClient)(nil)

var errDaemon = errors.New("daemon unavailable")

func (m *mockClient) Status() (map[string]any, error) {
	if m.err != nil {
		return nil, m.err
	}
	return map[string]any{
		"name":          "willow",
		"magic":         float64(0x4c),
		"version":       float64(1),
		"base_color":    "#0000ff00",
		"shade_color":   "#000000ff",
		"current_base":  "#ff000000",
		"current_shade": "#000000ff",
		"lamps":         float64(2),
		"visible":       float64(1),
		"attributes": []any{
			map[string]any{"code": "0x01", "name": "NAME", "value": "77696c6c6f77", "text": "willow"},
		},
		"messages": []any{
			map[string]any{"code": "0x52", "name": "BASE_OVERRIDE", "ttl": float64(7), "payload": "ff000000"},
		},
	}, nil
}

func (m *mockClient) Version() (map[string]any, error) {
	if m.err != nil {
		return nil, m.err
	}
	return map[string]any{"version": "1.2.3", "commit": "abc", "build_date": "today"}, nil
}

func (m *mockClient) ListLamps(visibleOnly bool) ([]map[string]any, error) {
	m.visibleOnly = visibleOnly
	if m.err != nil {
		return nil, m.err
	}
	return []map[string]any{m.lamp("0a0b0c0d0e0f")}, nil
}

func (m *mockClient) GetLamp(id string) (map[string]any, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.lamp(id), nil
}

func (m *mockClient) lamp(id string) map[string]any {
	return map[string]any{
		"id":         id,
		"name":       "birch",
		"rssi":       float64(-61),
		"visible":    true,
		"arrived":    true,
		"first_seen": testNow.Add(-time.Minute).Format(time.RFC3339Nano),
		"last_seen":  testNow.Add(-2 * time.Second).Format(time.RFC3339Nano),
		"attributes": []any{
			map[string]any{"code": "0x01", "name": "NAME", "value": "6269726368", "text": "birch"},
		},
	}
}

func (m *mockClient) ListAttributes() ([]map[string]any, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []map[string]any{{"code": "0x01", "name": "NAME", "value": "77696c6c6f77", "text": "willow"}}, nil
}

func (m *mockClient) Announce(code, value, color string) (map[string]any, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.announced = append(m.announced, code, value, color)
	return map[string]any{"code": "0x02", "name": code, "value": "ff000000", "text": color}, nil
}

func (m *mockClient) ListMessages() ([]map[string]any, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []map[string]any{}, nil
}

func (m *mockClient) Broadcast(code, payload, color string, ttl int) (map[string]any, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.broadcasts = append(m.broadcasts, code, payload, color)
	m.broadcastTT = ttl
	return map[string]any{"code": "0x52", "name": code, "ttl": float64(8), "payload": "ff000000"}, nil
}

func (m *mockClient) SetLogLevel(level string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.level = level
	return level, nil
}

func (m *mockClient) ListFilters() (map[string]any, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.filterState(), nil
}

func (m *mockClient) SetFilters(filters []map[string]any) (map[string]any, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.filters = filters
	return m.filterState(), nil
}

func (m *mockClient) filterState() map[string]any {
	list := make([]any, 0, len(m.filters))
	for _, f := range m.filters {
		list = append(list, f)
	}
	return map[string]any{"level": "info", "filters": list}
}

// runCommand executes lampctl with args against c and returns its output
// with colors stripped.
func runCommand(t *testing.T, c client.ClientInterface, args ...string) (string, error) {
	t.Helper()

	oldPrintColor := pterm.PrintColor
	pterm.PrintColor = false
	oldNow := now
	now = func() time.Time { return testNow }
	t.Cleanup(func() {
		pterm.PrintColor = oldPrintColor
		now = oldNow
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	root := NewRootCommand(logger, "test", "c0ffee", "2026-01-01")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	ctx := context.WithValue(root.Context(), ClientContextKey, c)
	err := root.ExecuteContext(ctx)
	return ansiRegex.ReplaceAllString(out.String(), ""), err
}
