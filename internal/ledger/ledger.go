// Package ledger keeps the per-upstream success tally behind the audit
// endpoint. Counts and sums only ever grow; a snapshot never shows a count
// without its matching sum.
package ledger

import (
	"sync"

	"payment-router/internal/core/domain"
)

type tally struct {
	mu    sync.Mutex
	count int64
	cents int64
}

// Ledger is process-lifetime and in-memory. Restarts start from zero;
// durability is the upstream processors' concern.
type Ledger struct {
	def tally
	fb  tally
}

func New() *Ledger {
	return &Ledger{}
}

// Credit records one confirmed success. Called exactly once per inbound
// request that resolves successfully, with the winning upstream.
func (l *Ledger) Credit(up domain.Upstream, cents int64) {
	t := l.tallyFor(up)
	t.mu.Lock()
	t.count++
	t.cents += cents
	t.mu.Unlock()
}

// Snapshot returns a consistent (count, sum) pair for one upstream. The two
// upstreams are read independently; consistency across them is not promised.
func (l *Ledger) Snapshot(up domain.Upstream) domain.UpstreamTotals {
	t := l.tallyFor(up)
	t.mu.Lock()
	defer t.mu.Unlock()
	return domain.UpstreamTotals{TotalRequests: t.count, TotalCents: t.cents}
}

func (l *Ledger) tallyFor(up domain.Upstream) *tally {
	if up == domain.UpstreamFallback {
		return &l.fb
	}
	return &l.def
}
