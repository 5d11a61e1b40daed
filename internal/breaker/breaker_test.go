package breaker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker_StaysClosedBelowMinSamples(t *testing.T) {
	b := New(50, 20, 0.3, time.Second)

	// 19 failures is one short of the minimum sample count.
	for i := 0; i < 19; i++ {
		b.Record(false)
	}

	assert.False(t, b.Open())
	assert.True(t, b.Allow())
}

func TestBreaker_TripsAtThreshold(t *testing.T) {
	b := New(50, 20, 0.3, time.Minute)

	// 14 successes + 6 failures = 20 samples, rate exactly 0.3. Trip uses >=.
	for i := 0; i < 14; i++ {
		b.Record(true)
	}
	for i := 0; i < 5; i++ {
		b.Record(false)
	}
	assert.False(t, b.Open(), "5/19 failures must not trip")

	b.Record(false)
	assert.True(t, b.Open())
	assert.False(t, b.Allow())
}

func TestBreaker_ConsecutiveFailuresTrip(t *testing.T) {
	b := New(50, 20, 0.3, time.Minute)

	for i := 0; i < 20; i++ {
		b.Record(false)
	}

	assert.True(t, b.Open())
	assert.False(t, b.Allow())
	assert.Equal(t, "open", b.State())
}

func TestBreaker_StaysOpenForConfiguredDuration(t *testing.T) {
	b := New(50, 20, 1.0, 80*time.Millisecond)

	for i := 0; i < 20; i++ {
		b.Record(false)
	}
	require.True(t, b.Open())

	// Still inside the open window: further samples must not close it.
	b.Record(true)
	assert.False(t, b.Allow())

	time.Sleep(100 * time.Millisecond)
	assert.True(t, b.Allow(), "open duration elapsed, probe admitted")
	assert.False(t, b.Open())
}

func TestBreaker_ProbeStartsFreshWindow(t *testing.T) {
	b := New(50, 20, 0.3, 30*time.Millisecond)

	for i := 0; i < 20; i++ {
		b.Record(false)
	}
	require.True(t, b.Open())

	time.Sleep(50 * time.Millisecond)
	require.True(t, b.Allow())

	// The probe failing is only 1 sample of the new window; no re-trip yet.
	b.Record(false)
	assert.False(t, b.Open())
	assert.True(t, b.Allow())
}

func TestBreaker_StateChangeCallback(t *testing.T) {
	var mu sync.Mutex
	var transitions []bool
	b := New(50, 20, 1.0, 20*time.Millisecond, WithStateChange(func(open bool) {
		mu.Lock()
		transitions = append(transitions, open)
		mu.Unlock()
	}))

	for i := 0; i < 20; i++ {
		b.Record(false)
	}
	time.Sleep(40 * time.Millisecond)
	b.Allow()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, transitions, 2)
	assert.True(t, transitions[0])
	assert.False(t, transitions[1])
}

func TestBreaker_RollingWindowForgets(t *testing.T) {
	b := New(20, 20, 0.5, time.Minute)

	// Record failures short of tripping, then push successes
	// through so old failures rotate out.
	for i := 0; i < 9; i++ {
		b.Record(false)
	}
	for i := 0; i < 40; i++ {
		b.Record(true)
	}

	assert.False(t, b.Open(), "stale failures must have rotated out of the window")
}

func TestBreaker_ConcurrentRecords(t *testing.T) {
	b := New(50, 20, 0.3, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Record(false)
			}
		}()
	}
	wg.Wait()

	assert.True(t, b.Open(), "800 concurrent failures must trip the breaker")
}
