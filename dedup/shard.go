package dedup

import (
	"sync"

	"github.com/quotefast/resilience/internal/util"
)

// shard is an independent partition of the cache with its own lock, map,
// and an intrusive doubly linked list in creation order (head newest,
// tail oldest). Check-and-insert in acquire is a single critical section;
// that atomicity is what makes the single-flight guarantee hold under
// preemptive goroutine scheduling.
type shard[V any] struct {
	// ---- guarded by mu ----
	mu   sync.Mutex
	m    map[string]*entry[V]
	head *entry[V] // newest
	tail *entry[V] // oldest
	len  int       // number of resident entries
	cap  int       // per-shard entry capacity

	opt Options

	// ---- hot counters (separate cache lines to avoid false sharing) ----
	_       util.CacheLinePad
	hits    util.PaddedAtomicUint64
	misses  util.PaddedAtomicUint64
	evicts  util.PaddedAtomicUint64
	created util.PaddedAtomicUint64
}

func newShard[V any](capacity int, opt Options) *shard[V] {
	return &shard[V]{
		m:   make(map[string]*entry[V], capacity),
		cap: capacity,
		opt: opt,
	}
}

// acquire is the atomic check-and-insert at the heart of the cache.
// If a live entry exists for key, it attaches the caller (created=false).
// Otherwise it admits a fresh in-flight entry, sweeping expired entries
// and, as a last resort, evicting the oldest live entry to stay within
// capacity. now and exp are absolute UnixNano values.
func (s *shard[V]) acquire(key string, now, exp int64) (e *entry[V], created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.m[key]; ok {
		if cur.exp == 0 || now <= cur.exp {
			cur.attaches.Add(1)
			s.hits.Add(1)
			s.opt.Metrics.Hit()
			return cur, false
		}
		// Expired entry, in-flight or resolved: a still-running leader
		// keeps serving callers already attached, but new callers must
		// start fresh.
		s.evictLocked(cur, EvictTTL)
	}

	s.misses.Add(1)
	s.opt.Metrics.Miss()

	if s.len >= s.cap {
		s.sweepLocked(now)
		if s.len >= s.cap && s.tail != nil {
			s.evictLocked(s.tail, EvictCapacity)
		}
	}

	e = &entry[V]{key: key, done: make(chan struct{}), exp: exp, createdAt: now}
	s.m[key] = e
	s.pushFront(e)
	s.created.Add(1)
	return e, true
}

// settle finalizes a leader's entry after the work returned.
// A failed entry is removed so the failure is never cached. The identity
// check guards against the entry having been cleared or evicted while the
// work ran; the leader must not touch a newer entry for the same key.
func (s *shard[V]) settle(e *entry[V], failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.m[e.key] != e {
		return
	}
	if failed {
		s.evictLocked(e, EvictFailure)
	}
}

// removeKey deletes one entry if present. Returns true if anything was removed.
func (s *shard[V]) removeKey(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[key]
	if !ok {
		return false
	}
	s.evictLocked(e, EvictManual)
	return true
}

// clear drops all entries unconditionally.
func (s *shard[V]) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.tail != nil {
		s.evictLocked(s.tail, EvictManual)
	}
}

// sweep removes every expired entry; called by the janitor.
func (s *shard[V]) sweep(now int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)
}

// Len returns the number of resident entries in this shard.
func (s *shard[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.len
}

// -------------------- internals (mu held) --------------------

// sweepLocked walks the whole list: per-call TTL overrides mean expiry
// order does not follow creation order.
func (s *shard[V]) sweepLocked(now int64) {
	for e := s.tail; e != nil; {
		newer := e.prev
		if e.exp != 0 && now > e.exp {
			s.evictLocked(e, EvictTTL)
		}
		e = newer
	}
}

// evictLocked removes the entry, updates counters, and calls OnEvict.
func (s *shard[V]) evictLocked(e *entry[V], reason EvictReason) {
	s.unlink(e)
	delete(s.m, e.key)
	s.evicts.Add(1)
	s.opt.Metrics.Evict(reason)
	if cb := s.opt.OnEvict; cb != nil {
		// Called under the shard lock; keep callbacks lightweight.
		cb(e.key, reason)
	}
}

// pushFront inserts e at the newest end in O(1).
func (s *shard[V]) pushFront(e *entry[V]) {
	e.prev = nil
	e.next = s.head
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
	s.len++
}

// unlink removes e from the list and updates counters in O(1).
func (s *shard[V]) unlink(e *entry[V]) {
	if e.prev != nil {
		e.prev.next = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	if s.head == e {
		s.head = e.next
	}
	if s.tail == e {
		s.tail = e.prev
	}
	e.prev, e.next = nil, nil
	s.len--
}
