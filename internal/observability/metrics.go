package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"service", "method", "path", "code"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)

	paymentsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_processed_total",
			Help: "Payments confirmed by an upstream, by winning upstream.",
		},
		[]string{"upstream"},
	)
	paymentsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_failed_total",
			Help: "Payments that exhausted their attempts, by reason.",
		},
		[]string{"reason"},
	)
	paymentLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "payment_dispatch_duration_seconds",
			Help: "End-to-end dispatch latency, idempotency hits excluded.",
			// Sub-100ms regime; default buckets are too coarse.
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5},
		},
	)
	hedgesLaunched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_hedges_launched_total",
			Help: "Secondary attempts launched after the hedge delay.",
		},
	)
	hedgeWins = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_hedge_wins_total",
			Help: "Payments won by the hedged (secondary) attempt.",
		},
	)
	idempotencyHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "idempotency_cache_hits_total",
			Help: "Requests answered from the idempotency cache or joined to an in-flight attempt.",
		},
	)
	breakerOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_open",
			Help: "1 while the upstream's breaker is open.",
		},
		[]string{"upstream"},
	)
)

// NewMetricsMiddleware creates HTTP middleware for collecting Prometheus metrics.
func NewMetricsMiddleware(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				duration := time.Since(start)
				path := r.URL.Path

				httpRequestDuration.WithLabelValues(serviceName, r.Method, path).Observe(duration.Seconds())
				httpRequestsTotal.WithLabelValues(serviceName, r.Method, path, strconv.Itoa(ww.Status())).Inc()
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func RecordPaymentProcessed(upstream string, d time.Duration) {
	paymentsProcessed.WithLabelValues(upstream).Inc()
	paymentLatency.Observe(d.Seconds())
}

func RecordPaymentFailed(reason string, d time.Duration) {
	paymentsFailed.WithLabelValues(reason).Inc()
	paymentLatency.Observe(d.Seconds())
}

func RecordHedgeLaunched() { hedgesLaunched.Inc() }

func RecordHedgeWin() { hedgeWins.Inc() }

func RecordIdempotencyHit() { idempotencyHits.Inc() }

// SetBreakerOpen drives the per-upstream breaker gauge.
func SetBreakerOpen(upstream string, open bool) {
	v := 0.0
	if open {
		v = 1.0
	}
	breakerOpen.WithLabelValues(upstream).Set(v)
}
