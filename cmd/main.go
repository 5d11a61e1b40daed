package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httphandler "payment-router/internal/adapters/http"
	"payment-router/internal/adapters/upstream"
	"payment-router/internal/app"
	"payment-router/internal/breaker"
	"payment-router/internal/config"
	"payment-router/internal/core/domain"
	"payment-router/internal/idempotency"
	"payment-router/internal/ledger"
	"payment-router/internal/observability"
)

const breakerWindowSize = 50

func main() {
	// --- 1. Configuration and Logging ---
	fallbackLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fallbackLogger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg.App.Env)
	logger.Info("Application starting", "env", cfg.App.Env, "port", cfg.Server.Port,
		"config", cfg.Redacted())

	// --- 2. Tracing (optional) ---
	if cfg.Otel.Endpoint != "" {
		shutdownTracer, err := observability.InitTracer(cfg.Otel.Endpoint, "payment-router")
		if err != nil {
			logger.Error("Failed to initialize tracing", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Warn("Failed to shutdown tracer", "error", err)
			}
		}()
	}

	// --- 3. Engine wiring ---
	clientA := upstream.New(domain.UpstreamDefault, cfg.Upstreams.AURL, cfg.Upstreams.PayPath, cfg.RequestTimeout())
	clientB := upstream.New(domain.UpstreamFallback, cfg.Upstreams.BURL, cfg.Upstreams.PayPath, cfg.RequestTimeout())

	breakerA := breaker.New(breakerWindowSize, cfg.Breaker.MinSamples, cfg.Breaker.FailRate, cfg.BreakerOpenFor(),
		breaker.WithStateChange(func(open bool) {
			logger.Warn("breaker state changed", "upstream", domain.UpstreamDefault, "open", open)
			observability.SetBreakerOpen(string(domain.UpstreamDefault), open)
		}))
	breakerB := breaker.New(breakerWindowSize, cfg.Breaker.MinSamples, cfg.Breaker.FailRate, cfg.BreakerOpenFor(),
		breaker.WithStateChange(func(open bool) {
			logger.Warn("breaker state changed", "upstream", domain.UpstreamFallback, "open", open)
			observability.SetBreakerOpen(string(domain.UpstreamFallback), open)
		}))

	auditLedger := ledger.New()
	idemStore := idempotency.New(cfg.Cache.Capacity, cfg.CacheTTL())

	engine := app.NewEngine(clientA, clientB, breakerA, breakerB, auditLedger, idemStore,
		cfg.RequestTimeout(), cfg.HedgeDelay())
	paymentHandler := httphandler.NewPaymentHandler(engine, auditLedger, cfg.RequestTimeout(), logger)

	// --- 4. HTTP Router ---
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		observability.NewLoggerMiddleware(logger),
		observability.NewMetricsMiddleware("payment-router"),
	)
	if cfg.Otel.Endpoint != "" {
		r.Use(observability.NewTracingMiddleware("payment-router"))
	}

	// Payment path: auth first, then the admission gate, so shed requests
	// never hold a concurrency permit.
	r.Group(func(r chi.Router) {
		r.Use(
			httphandler.AuthMiddleware(cfg.Auth.HeaderName, cfg.Auth.HeaderValue, logger),
			httphandler.NewAdmissionMiddleware(int64(cfg.Engine.ConcurrencyLimit), logger),
		)
		r.Post("/payments", paymentHandler.HandleSubmitPayment)
	})

	r.Get("/payments-summary", paymentHandler.HandleSummary)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(map[string]string{
			"status":  "healthy",
			"service": "payment-router",
		}); err != nil {
			logger.Error("Failed to write health response", "error", err)
		}
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// --- 5. HTTP Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Server exited properly")
}
