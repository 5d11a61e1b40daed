package http

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// AuthMiddleware guards an endpoint with a static header credential compared
// in constant time. An empty expected value disables the check entirely.
func AuthMiddleware(headerName, expected string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if expected == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(headerName)
			if subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
				writeJSONError(w, "unauthorized", http.StatusUnauthorized, logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
