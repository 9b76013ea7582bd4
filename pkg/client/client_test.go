package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockConn struct {
	readBuf  *bytes.Buffer
	writeBuf *bytes.Buffer
	closed   bool
}

func (m *mockConn) Read(b []byte) (int, error)         { return m.readBuf.Read(b) }
func (m *mockConn) Write(b []byte) (int, error)        { return m.writeBuf.Write(b) }
func (m *mockConn) Close() error                       { m.closed = true; return nil }
func (m *mockConn) LocalAddr() net.Addr                { return nil }
func (m *mockConn) RemoteAddr() net.Addr               { return nil }
func (m *mockConn) SetDeadline(t time.Time) error      { return nil }
func (m *mockConn) SetReadDeadline(t time.Time) error  { return nil }
func (m *mockConn) SetWriteDeadline(t time.Time) error { return nil }

func mockDialer(conn *mockConn) func(network, address string) (net.Conn, error) {
	return func(network, address string) (net.Conn, error) {
		return conn, nil
	}
}

// withResponse installs a dialer whose connection answers with resp and
// returns the connection so the test can inspect what was sent.
func withResponse(t *testing.T, resp map[string]any) *mockConn {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, json.NewEncoder(buf).Encode(resp))
	conn := &mockConn{readBuf: buf, writeBuf: &bytes.Buffer{}}
	oldDial := dial
	dial = mockDialer(conn)
	t.Cleanup(func() { dial = oldDial })
	return conn
}

// sentRequest decodes the request the client wrote to conn.
func sentRequest(t *testing.T, conn *mockConn) map[string]any {
	t.Helper()
	var req map[string]any
	require.NoError(t, json.NewDecoder(conn.writeBuf).Decode(&req))
	return req
}

func TestClient_New_DefaultSocket(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	c := New(testLogger(), "")
	assert.NotEmpty(t, c.Socket())
	assert.Contains(t, c.Socket(), "lampd.sock")

	c = New(testLogger(), "/tmp/custom.sock")
	assert.Equal(t, "/tmp/custom.sock", c.Socket())
}

func TestClient_AllMethods(t *testing.T) {
	c := New(testLogger(), "/tmp/fake.sock")

	t.Run("Ping", func(t *testing.T) {
		conn := withResponse(t, map[string]any{"status": "ok", "message": "pong"})
		require.NoError(t, c.Ping())
		req := sentRequest(t, conn)
		assert.Equal(t, "ping", req["action"])
		assert.NotContains(t, req, "data")
		assert.True(t, conn.closed)
	})

	t.Run("Status", func(t *testing.T) {
		withResponse(t, map[string]any{"status": "ok", "lamp": map[string]any{"name": "porch", "magic": 42069}})
		status, err := c.Status()
		require.NoError(t, err)
		assert.Equal(t, "porch", status["name"])
	})

	t.Run("Version", func(t *testing.T) {
		withResponse(t, map[string]any{"status": "ok", "version": map[string]any{"version": "1.0.0"}})
		v, err := c.Version()
		require.NoError(t, err)
		assert.Equal(t, "1.0.0", v["version"])
	})

	t.Run("ListLamps", func(t *testing.T) {
		conn := withResponse(t, map[string]any{"status": "ok", "lamps": []any{
			map[string]any{"id": "a0b1c2d3e4f5", "name": "porch"},
			map[string]any{"id": "a0b1c2d3e4f6", "name": "garden"},
		}})
		lamps, err := c.ListLamps(true)
		require.NoError(t, err)
		assert.Len(t, lamps, 2)
		req := sentRequest(t, conn)
		assert.Equal(t, "list_lamps", req["action"])
		assert.Equal(t, map[string]any{"visible": true}, req["data"])
	})

	t.Run("ListLamps_None", func(t *testing.T) {
		withResponse(t, map[string]any{"status": "ok", "lamps": nil})
		lamps, err := c.ListLamps(false)
		require.NoError(t, err)
		assert.NotNil(t, lamps)
		assert.Empty(t, lamps)
	})

	t.Run("GetLamp", func(t *testing.T) {
		conn := withResponse(t, map[string]any{"status": "ok", "lamp": map[string]any{"id": "a0b1c2d3e4f5"}})
		l, err := c.GetLamp("a0:b1:c2:d3:e4:f5")
		require.NoError(t, err)
		assert.Equal(t, "a0b1c2d3e4f5", l["id"])
		req := sentRequest(t, conn)
		assert.Equal(t, map[string]any{"id": "a0:b1:c2:d3:e4:f5"}, req["data"])
	})

	t.Run("ListAttributes", func(t *testing.T) {
		withResponse(t, map[string]any{"status": "ok", "attributes": []any{
			map[string]any{"code": float64(0), "name": "VERSION"},
		}})
		attrs, err := c.ListAttributes()
		require.NoError(t, err)
		require.Len(t, attrs, 1)
		assert.Equal(t, "VERSION", attrs[0]["name"])
	})

	t.Run("Announce", func(t *testing.T) {
		conn := withResponse(t, map[string]any{"status": "ok", "attribute": map[string]any{"name": "BASE_COLOR"}})
		attr, err := c.Announce("BASE_COLOR", "", "#ff8800")
		require.NoError(t, err)
		assert.Equal(t, "BASE_COLOR", attr["name"])
		req := sentRequest(t, conn)
		assert.Equal(t, "announce", req["action"])
		assert.Equal(t, map[string]any{"code": "BASE_COLOR", "value": "", "color": "#ff8800"}, req["data"])
	})

	t.Run("ListMessages", func(t *testing.T) {
		withResponse(t, map[string]any{"status": "ok", "messages": []any{}})
		msgs, err := c.ListMessages()
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("Broadcast", func(t *testing.T) {
		conn := withResponse(t, map[string]any{"status": "ok", "message": map[string]any{"ttl": float64(8)}})
		msg, err := c.Broadcast("SHADE_OVERRIDE", "", "#00ff00", 8)
		require.NoError(t, err)
		assert.Equal(t, float64(8), msg["ttl"])
		req := sentRequest(t, conn)
		data := req["data"].(map[string]any)
		assert.Equal(t, float64(8), data["ttl"])
		assert.Equal(t, "SHADE_OVERRIDE", data["code"])
	})

	t.Run("SetLogLevel", func(t *testing.T) {
		withResponse(t, map[string]any{"status": "ok", "level": "debug"})
		level, err := c.SetLogLevel("debug")
		require.NoError(t, err)
		assert.Equal(t, "debug", level)
	})

	t.Run("ListFilters", func(t *testing.T) {
		withResponse(t, map[string]any{"status": "ok", "level": "info", "filters": []any{}})
		state, err := c.ListFilters()
		require.NoError(t, err)
		assert.Equal(t, "info", state["level"])
	})

	t.Run("SetFilters", func(t *testing.T) {
		conn := withResponse(t, map[string]any{"status": "ok", "level": "info", "filters": []any{}})
		_, err := c.SetFilters([]map[string]any{{"type": "component", "pattern": "gossip", "level": "debug", "enabled": true}})
		require.NoError(t, err)
		req := sentRequest(t, conn)
		data := req["data"].(map[string]any)
		assert.Len(t, data["filters"], 1)
	})
}

func TestClient_ServerError(t *testing.T) {
	c := New(testLogger(), "/tmp/fake.sock")
	withResponse(t, map[string]any{"error": "get_lamp failed: lamp 000000000001: resource not found"})

	_, err := c.GetLamp("000000000001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server error")
	assert.Contains(t, err.Error(), "resource not found")
}

func TestClient_MissingField(t *testing.T) {
	c := New(testLogger(), "/tmp/fake.sock")
	withResponse(t, map[string]any{"status": "ok"})

	_, err := c.Status()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"lamp"`)
}

func TestClient_DialError(t *testing.T) {
	c := New(testLogger(), "/tmp/fake.sock")
	oldDial := dial
	dial = func(network, address string) (net.Conn, error) {
		return nil, errors.New("connection refused")
	}
	defer func() { dial = oldDial }()

	err := c.Ping()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to socket")
}

func TestClient_DecodeError(t *testing.T) {
	c := New(testLogger(), "/tmp/fake.sock")
	conn := &mockConn{readBuf: bytes.NewBufferString("not json\n"), writeBuf: &bytes.Buffer{}}
	oldDial := dial
	dial = mockDialer(conn)
	defer func() { dial = oldDial }()

	_, err := c.ListAttributes()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
}
