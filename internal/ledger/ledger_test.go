package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"payment-router/internal/core/domain"
)

func TestLedger_CreditAndSnapshot(t *testing.T) {
	l := New()

	l.Credit(domain.UpstreamDefault, 1000)
	l.Credit(domain.UpstreamDefault, 500)
	l.Credit(domain.UpstreamFallback, 100)

	def := l.Snapshot(domain.UpstreamDefault)
	assert.Equal(t, int64(2), def.TotalRequests)
	assert.Equal(t, int64(1500), def.TotalCents)

	fb := l.Snapshot(domain.UpstreamFallback)
	assert.Equal(t, int64(1), fb.TotalRequests)
	assert.Equal(t, int64(100), fb.TotalCents)
}

func TestLedger_ZeroValue(t *testing.T) {
	l := New()

	def := l.Snapshot(domain.UpstreamDefault)
	assert.Zero(t, def.TotalRequests)
	assert.Zero(t, def.TotalCents)
}

func TestLedger_ConcurrentCreditsNeverTear(t *testing.T) {
	l := New()

	const writers = 16
	const perWriter = 500
	const amount = int64(250)

	stop := make(chan struct{})
	var readers sync.WaitGroup

	// Readers continuously check the count/sum pairing while writers credit.
	for i := 0; i < 4; i++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := l.Snapshot(domain.UpstreamDefault)
				assert.Equal(t, snap.TotalRequests*amount, snap.TotalCents,
					"snapshot must never show a torn pair")
			}
		}()
	}

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				l.Credit(domain.UpstreamDefault, amount)
			}
		}()
	}
	wg.Wait()
	close(stop)
	readers.Wait()

	snap := l.Snapshot(domain.UpstreamDefault)
	assert.Equal(t, int64(writers*perWriter), snap.TotalRequests)
	assert.Equal(t, int64(writers*perWriter)*amount, snap.TotalCents)
}
