package ports

import (
	"context"

	"payment-router/internal/core/domain"
)

// UpstreamClient is an outgoing port: one HTTP attempt against one processor.
// Retry policy does not live here; the dispatcher owns it.
type UpstreamClient interface {
	Name() domain.Upstream
	Send(ctx context.Context, req domain.PaymentRequest) domain.AttemptResult
}

// CircuitBreaker gates traffic to one upstream.
type CircuitBreaker interface {
	Allow() bool
	Record(success bool)
	Open() bool
}

// AuditLedger tallies confirmed successes per upstream.
type AuditLedger interface {
	Credit(up domain.Upstream, cents int64)
	Snapshot(up domain.Upstream) domain.UpstreamTotals
}

// PaymentService is the incoming port the HTTP layer talks to.
type PaymentService interface {
	Process(ctx context.Context, req domain.PaymentRequest) (domain.Upstream, error)
}
