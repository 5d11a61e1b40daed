package observability

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const loggerKey = contextKey("logger")

// SetupLogger builds the process logger: readable text in development, JSON
// everywhere else. Every record carries the service and environment so the
// two upstream processors' logs can be told apart from the router's in a
// shared sink.
func SetupLogger(env string) *slog.Logger {
	var handler slog.Handler
	switch env {
	case "development", "dev":
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	default:
		handler = slog.NewJSONHandler(os.Stdout, nil)
	}
	return slog.New(handler).With("service", "payment-router", "env", env)
}

// NewLoggerMiddleware derives a request-scoped logger carrying the request id
// assigned by the router, so an engine warning lines up with its access-log
// entry. Handlers and the engine retrieve it with LoggerFrom.
func NewLoggerMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := logger
			if reqID := middleware.GetReqID(r.Context()); reqID != "" {
				reqLogger = logger.With("request_id", reqID)
			}
			ctx := context.WithValue(r.Context(), loggerKey, reqLogger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggerFrom returns the request-scoped logger, or the default one outside a
// request.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
