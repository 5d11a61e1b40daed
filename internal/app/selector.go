package app

import (
	"payment-router/internal/core/domain"
	"payment-router/internal/core/ports"
)

// route is a dispatch plan: the primary attempt, plus an optional hedge
// target.
type route struct {
	Primary      domain.Upstream
	Secondary    domain.Upstream
	HasSecondary bool
}

// selectRoute picks the primary among the two upstreams from live breaker
// state. The default processor wins every tie because its fee is lower; the
// hedge, not the selector, covers transient slowness.
//
//	A allowed, B allowed -> primary A, secondary B
//	A allowed, B open    -> primary A, no secondary
//	A open,    B allowed -> primary B, no secondary
//	A open,    B open    -> no dispatch
//
// Allow is consulted rather than a passive state read so that the first
// request after an open window doubles as the breaker's probe.
func selectRoute(a, b ports.CircuitBreaker) (route, bool) {
	aAllowed := a.Allow()
	bAllowed := b.Allow()

	switch {
	case aAllowed && bAllowed:
		return route{
			Primary:      domain.UpstreamDefault,
			Secondary:    domain.UpstreamFallback,
			HasSecondary: true,
		}, true
	case aAllowed:
		return route{Primary: domain.UpstreamDefault}, true
	case bAllowed:
		return route{Primary: domain.UpstreamFallback}, true
	default:
		return route{}, false
	}
}
