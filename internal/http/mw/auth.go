package mw

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// TokenHeader is the alternative to an Authorization: Bearer header.
const TokenHeader = "X-Lamp-Token"

// TokenAuth returns a Chi middleware that requires token on every request
// that can change lamp state. Safe methods pass through, so the read API
// and the event stream stay open. An empty token disables the check.
//
// The Huma security annotations in routes/ remain for OpenAPI documentation only.
func TokenAuth(logger *slog.Logger, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			got := RequestToken(r)
			if got == "" {
				logger.Warn("API token missing",
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, "Unauthorized: API token required", http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				logger.Warn("Invalid API token used",
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, "Unauthorized: invalid API token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestToken extracts the token from the Authorization: Bearer header,
// falling back to TokenHeader.
func RequestToken(r *http.Request) string {
	if key, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return key
	}
	return r.Header.Get(TokenHeader)
}
