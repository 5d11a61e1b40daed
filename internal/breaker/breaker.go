// Package breaker implements the per-upstream circuit breaker: a rolling
// window of recent outcomes, a trip threshold, and a fixed open duration.
// There is no half-open state. The first Allow after the open window elapses
// closes the breaker over a fresh window, and that probe's outcome becomes the
// new window's first sample.
package breaker

import (
	"sync/atomic"
	"time"
)

const (
	sampleNone    int32 = 0
	sampleSuccess int32 = 1
	sampleFailure int32 = 2
)

// Breaker is safe for concurrent use without locks. Counts are approximate
// under contention, but a trip is monotone: once opened, Allow stays false
// until the open duration has fully elapsed.
type Breaker struct {
	minSamples int64
	failRate   float64
	openFor    time.Duration
	onChange   func(open bool)

	window []atomic.Int32
	pos    atomic.Int64
	fails  atomic.Int64
	total  atomic.Int64
	// unix nanos of the trip; 0 means closed
	openedAt atomic.Int64
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithStateChange registers a callback invoked on every closed<->open
// transition, e.g. to drive a metrics gauge.
func WithStateChange(fn func(open bool)) Option {
	return func(b *Breaker) { b.onChange = fn }
}

// New creates a breaker. windowSize bounds how many recent outcomes are
// retained; minSamples observations are required before the failure rate is
// evaluated at all.
func New(windowSize, minSamples int, failRate float64, openFor time.Duration, opts ...Option) *Breaker {
	if windowSize < minSamples {
		windowSize = minSamples
	}
	b := &Breaker{
		minSamples: int64(minSamples),
		failRate:   failRate,
		openFor:    openFor,
		window:     make([]atomic.Int32, windowSize),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Allow reports whether a request may be dispatched. When the open duration
// has elapsed it transitions the breaker back to closed with a reset window;
// the caller's request is the probe.
func (b *Breaker) Allow() bool {
	opened := b.openedAt.Load()
	if opened == 0 {
		return true
	}
	if time.Now().UnixNano()-opened < int64(b.openFor) {
		return false
	}
	// Open window elapsed. Exactly one caller performs the close.
	if b.openedAt.CompareAndSwap(opened, 0) {
		b.reset()
		if b.onChange != nil {
			b.onChange(false)
		}
	}
	return true
}

// Record feeds one attempt outcome into the rolling window and trips the
// breaker when the failure fraction reaches the threshold.
func (b *Breaker) Record(success bool) {
	v := sampleFailure
	if success {
		v = sampleSuccess
	}

	i := b.pos.Add(1) - 1
	old := b.window[int(i)%len(b.window)].Swap(v)
	switch old {
	case sampleNone:
		b.total.Add(1)
	case sampleFailure:
		b.fails.Add(-1)
	}
	if v == sampleFailure {
		b.fails.Add(1)
	}

	t := b.total.Load()
	if t < b.minSamples {
		return
	}
	f := b.fails.Load()
	if float64(f)/float64(t) >= b.failRate {
		if b.openedAt.CompareAndSwap(0, time.Now().UnixNano()) {
			b.reset()
			if b.onChange != nil {
				b.onChange(true)
			}
		}
	}
}

// Open reports the current state without side effects.
func (b *Breaker) Open() bool {
	opened := b.openedAt.Load()
	return opened != 0 && time.Now().UnixNano()-opened < int64(b.openFor)
}

// State returns "open" or "closed" for diagnostics.
func (b *Breaker) State() string {
	if b.Open() {
		return "open"
	}
	return "closed"
}

func (b *Breaker) reset() {
	for i := range b.window {
		b.window[i].Store(sampleNone)
	}
	b.pos.Store(0)
	b.fails.Store(0)
	b.total.Store(0)
}
