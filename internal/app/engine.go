// Package app holds the request-path engine: the idempotency gate, the
// upstream selector, and the hedged dispatcher, glued to the breakers, the
// ledger, and the upstream clients.
package app

import (
	"context"
	"errors"
	"time"

	"payment-router/internal/core/domain"
	"payment-router/internal/core/ports"
	"payment-router/internal/idempotency"
	"payment-router/internal/observability"
)

type engine struct {
	clients    map[domain.Upstream]ports.UpstreamClient
	breakers   map[domain.Upstream]ports.CircuitBreaker
	ledger     ports.AuditLedger
	cache      *idempotency.Store
	timeout    time.Duration
	hedgeDelay time.Duration
}

// NewEngine wires the engine together. timeout is both the per-attempt and
// the overall dispatch deadline; hedgeDelay must be below it.
func NewEngine(
	defaultClient, fallbackClient ports.UpstreamClient,
	defaultBreaker, fallbackBreaker ports.CircuitBreaker,
	ledger ports.AuditLedger,
	cache *idempotency.Store,
	timeout, hedgeDelay time.Duration,
) ports.PaymentService {
	return &engine{
		clients: map[domain.Upstream]ports.UpstreamClient{
			domain.UpstreamDefault:  defaultClient,
			domain.UpstreamFallback: fallbackClient,
		},
		breakers: map[domain.Upstream]ports.CircuitBreaker{
			domain.UpstreamDefault:  defaultBreaker,
			domain.UpstreamFallback: fallbackBreaker,
		},
		ledger:     ledger,
		cache:      cache,
		timeout:    timeout,
		hedgeDelay: hedgeDelay,
	}
}

// Process runs one payment through the gate: idempotency first, then a hedged
// dispatch, then exactly one ledger credit for the winning upstream. Concurrent
// duplicates observe the same outcome as the attempt they joined; a later
// duplicate within the cache TTL gets the cached outcome of a success, while a
// failed outcome is not retained and a later duplicate starts a fresh attempt.
func (e *engine) Process(ctx context.Context, req domain.PaymentRequest) (domain.Upstream, error) {
	slot := e.cache.BeginOrJoin(req.CorrelationID)
	switch slot.Kind {
	case idempotency.Completed:
		observability.RecordIdempotencyHit()
		out := slot.Outcome()
		return out.Upstream, out.Err
	case idempotency.Joined:
		observability.RecordIdempotencyHit()
		select {
		case <-slot.Done():
			out := slot.Outcome()
			return out.Upstream, out.Err
		case <-ctx.Done():
			return "", domain.ErrUpstreamsUnavailable
		}
	}

	start := time.Now()
	up, err := e.dispatch(ctx, req)
	if err == nil {
		// The credit is final even if the caller has already disconnected:
		// the payment was processed upstream and must be reported.
		e.ledger.Credit(up, req.AmountCents)
		observability.RecordPaymentProcessed(string(up), time.Since(start))
	} else {
		observability.RecordPaymentFailed(reasonLabel(err), time.Since(start))
		observability.LoggerFrom(ctx).Warn("payment dispatch failed",
			"correlation_id", req.CorrelationID, "error", err)
	}
	e.cache.Complete(slot, domain.Outcome{Upstream: up, Err: err})
	return up, err
}

// dispatch sends the request to the selected primary and, when the primary
// has not resolved by the hedge delay, races a secondary against it. First
// 2xx wins and cancels the other attempt. Both attempts always feed their
// breakers unless they were aborted by the winner's cancellation.
func (e *engine) dispatch(parent context.Context, req domain.PaymentRequest) (domain.Upstream, error) {
	r, ok := selectRoute(e.breakers[domain.UpstreamDefault], e.breakers[domain.UpstreamFallback])
	if !ok {
		return "", domain.ErrUpstreamsUnavailable
	}

	ctx, cancel := context.WithTimeout(parent, e.timeout)
	defer cancel()

	results := make(chan domain.AttemptResult, 2)
	attempt := func(up domain.Upstream) {
		go func() {
			res := e.clients[up].Send(ctx, req)
			if !res.Aborted {
				e.breakers[up].Record(res.Success)
			}
			results <- res
		}()
	}

	attempt(r.Primary)
	launched := 1

	var hedgeC <-chan time.Time
	if r.HasSecondary {
		timer := time.NewTimer(e.hedgeDelay)
		defer timer.Stop()
		hedgeC = timer.C
	}

	failures := 0
	rejected := false
	for {
		select {
		case res := <-results:
			if res.Success {
				if res.Upstream != r.Primary {
					observability.RecordHedgeWin()
				}
				return res.Upstream, nil
			}
			failures++
			if res.Rejected {
				rejected = true
			}
			if failures == launched {
				// Nothing left in flight. A primary that resolved before
				// the hedge delay is final, whatever its outcome: the
				// secondary is never launched after the fact. Sustained
				// primary failures shift traffic through the breaker.
				if rejected {
					return "", domain.ErrUpstreamRejected
				}
				return "", domain.ErrUpstreamsUnavailable
			}
		case <-hedgeC:
			hedgeC = nil
			if e.breakers[r.Secondary].Allow() {
				observability.RecordHedgeLaunched()
				attempt(r.Secondary)
				launched++
			}
		case <-ctx.Done():
			return "", domain.ErrUpstreamsUnavailable
		}
	}
}

func reasonLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrUpstreamRejected):
		return "upstream_rejected"
	case errors.Is(err, domain.ErrUpstreamsUnavailable):
		return "upstreams_unavailable"
	default:
		return "internal"
	}
}
