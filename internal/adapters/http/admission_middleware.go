package http

import (
	"log/slog"
	"net/http"

	"golang.org/x/sync/semaphore"
)

// NewAdmissionMiddleware caps the number of concurrently running payment
// handlers. Excess requests are turned away with 429 before any engine work.
func NewAdmissionMiddleware(limit int64, logger *slog.Logger) func(http.Handler) http.Handler {
	sem := semaphore.NewWeighted(limit)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !sem.TryAcquire(1) {
				writeJSONError(w, "too many concurrent requests", http.StatusTooManyRequests, logger)
				return
			}
			defer sem.Release(1)
			next.ServeHTTP(w, r)
		})
	}
}
