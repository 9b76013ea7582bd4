package mw

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}

// --- TokenAuth tests ---

func TestTokenAuth_ValidBearerToken(t *testing.T) {
	handler := TokenAuth(testLogger(), "s3cret")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/broadcasts", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestTokenAuth_ValidHeader(t *testing.T) {
	handler := TokenAuth(testLogger(), "s3cret")(okHandler())

	req := httptest.NewRequest(http.MethodPut, "/api/v1/logging/level", nil)
	req.Header.Set(TokenHeader, "s3cret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenAuth_MissingToken(t *testing.T) {
	handler := TokenAuth(testLogger(), "s3cret")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/attributes", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "required")
}

func TestTokenAuth_WrongToken(t *testing.T) {
	handler := TokenAuth(testLogger(), "s3cret")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/attributes", nil)
	req.Header.Set("Authorization", "Bearer guess")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid")
}

func TestTokenAuth_ReadsAreOpen(t *testing.T) {
	handler := TokenAuth(testLogger(), "s3cret")(okHandler())

	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		req := httptest.NewRequest(method, "/api/v1/lamps", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, method)
	}
}

func TestTokenAuth_EmptyTokenDisables(t *testing.T) {
	handler := TokenAuth(testLogger(), "")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/broadcasts", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, RequestToken(req))

	req.Header.Set(TokenHeader, "header")
	assert.Equal(t, "header", RequestToken(req))

	req.Header.Set("Authorization", "Bearer bearer")
	assert.Equal(t, "bearer", RequestToken(req))
}

// --- RateLimitByIP tests ---

func TestRateLimitByIP_Disabled(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 0})(okHandler())

	for range 10 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimitByIP_Limits(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 2})(okHandler())

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes[i] = rec.Code
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "60", rec.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestDefaultRateLimitConfig(t *testing.T) {
	assert.Equal(t, 120, DefaultRateLimitConfig().RequestsPerMinute)
}

// --- RequestLogging tests ---

func TestRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	handler := RequestLogging(logger)(failing)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	out := buf.String()
	assert.Contains(t, out, "HTTP Request Received")
	assert.Contains(t, out, "level=WARN msg=\"HTTP Response Sent\"")
	assert.Contains(t, out, "status=500")
	assert.Contains(t, out, "component=http")
}
