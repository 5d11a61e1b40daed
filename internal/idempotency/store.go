// Package idempotency provides the correlation-id gate: the first request for
// an id becomes the writer, concurrent duplicates join as waiters, and
// near-duplicates arriving after completion get the cached outcome. The store
// is sharded so the hot path never funnels through one lock, bounded by an LRU
// per shard, and entries expire after a TTL.
package idempotency

import (
	"container/list"
	"hash/fnv"
	"sync"
	"time"

	"payment-router/internal/core/domain"
)

const shardCount = 256 // power of two

// Kind tells the caller what role it got for a correlation id.
type Kind int

const (
	// Fresh: the caller owns the attempt and must call Complete.
	Fresh Kind = iota
	// Joined: another request is in flight; wait on Done then read Outcome.
	Joined
	// Completed: a terminal outcome is cached.
	Completed
)

type entry struct {
	key      string
	done     chan struct{}
	outcome  domain.Outcome
	terminal bool
	expires  time.Time
	elem     *list.Element
}

// Slot is the caller's handle on an idempotency entry.
type Slot struct {
	Kind Kind
	e    *entry
}

// Done is closed when the in-flight attempt resolves. Only meaningful for
// Joined slots.
func (s Slot) Done() <-chan struct{} { return s.e.done }

// Outcome is valid for Completed slots, and for Joined slots after Done is
// closed.
func (s Slot) Outcome() domain.Outcome { return s.e.outcome }

type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
	// LRU order, front = most recently used. In-flight entries are pinned.
	lru   *list.List
	limit int
}

// Store is the sharded idempotency map.
type Store struct {
	shards [shardCount]shard
	ttl    time.Duration
}

// New creates a store holding up to capacity entries with the given TTL.
func New(capacity int, ttl time.Duration) *Store {
	perShard := capacity / shardCount
	if perShard < 1 {
		perShard = 1
	}
	s := &Store{ttl: ttl}
	for i := range s.shards {
		s.shards[i].entries = make(map[string]*entry)
		s.shards[i].lru = list.New()
		s.shards[i].limit = perShard
	}
	return s
}

// BeginOrJoin atomically resolves the caller's role for id: insert an
// in-flight marker (Fresh), attach to an existing one (Joined), or return the
// cached terminal outcome (Completed). Expired entries count as absent.
func (s *Store) BeginOrJoin(id string) Slot {
	sh := s.shardFor(id)
	now := time.Now()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if e, ok := sh.entries[id]; ok {
		if e.terminal && now.After(e.expires) {
			sh.remove(e)
		} else if e.terminal {
			sh.lru.MoveToFront(e.elem)
			return Slot{Kind: Completed, e: e}
		} else {
			return Slot{Kind: Joined, e: e}
		}
	}

	e := &entry{
		key:     id,
		done:    make(chan struct{}),
		expires: now.Add(s.ttl),
	}
	e.elem = sh.lru.PushFront(e)
	sh.entries[id] = e
	sh.evictLocked()
	return Slot{Kind: Fresh, e: e}
}

// Complete transitions a Fresh slot to its terminal outcome and wakes all
// waiters. Successful outcomes are retained until the TTL so near-duplicates
// are answered from cache; failures are published to current waiters but then
// dropped, so a later retry with the same correlation id starts fresh.
func (s *Store) Complete(slot Slot, out domain.Outcome) {
	if slot.Kind != Fresh {
		return
	}
	e := slot.e
	sh := s.shardFor(e.key)

	sh.mu.Lock()
	e.outcome = out
	e.terminal = true
	if out.Err != nil {
		sh.remove(e)
	}
	sh.mu.Unlock()

	close(e.done)
}

// Len reports the number of live entries, for diagnostics.
func (s *Store) Len() int {
	n := 0
	for i := range s.shards {
		s.shards[i].mu.Lock()
		n += len(s.shards[i].entries)
		s.shards[i].mu.Unlock()
	}
	return n
}

func (s *Store) shardFor(id string) *shard {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &s.shards[h.Sum32()&(shardCount-1)]
}

// evictLocked drops the oldest terminal entries while the shard is over its
// limit. In-flight entries are never evicted; their waiters hold references.
func (sh *shard) evictLocked() {
	for len(sh.entries) > sh.limit {
		evicted := false
		for el := sh.lru.Back(); el != nil; el = el.Prev() {
			e := el.Value.(*entry)
			if e.terminal {
				sh.remove(e)
				evicted = true
				break
			}
		}
		if !evicted {
			return
		}
	}
}

func (sh *shard) remove(e *entry) {
	delete(sh.entries, e.key)
	sh.lru.Remove(e.elem)
}
