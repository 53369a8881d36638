package dedup

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/quotefast/resilience/internal/util"
)

// Work is the deduplicated unit of work. Exactly one caller per live key
// runs it; everyone else shares its result.
type Work[V any] func(ctx context.Context) (V, error)

// Outcome is the structured result of one Execute call.
type Outcome[V any] struct {
	// Value is meaningful only when Err is nil.
	Value V

	// Err is the work's error, propagated verbatim to the leader and every
	// attached caller, or ctx.Err() if this caller's wait was cancelled.
	Err error

	// Duplicate reports that this caller attached to an existing entry
	// instead of triggering new work.
	Duplicate bool

	// FromCache mirrors Duplicate: whether the shared work had already
	// finished or was still running is deliberately not distinguished.
	FromCache bool

	// Attached is the entry's attach count as observed by this caller.
	Attached int
}

// Cache coalesces executions by string key. Construct with New; the zero
// value is not usable.
type Cache[V any] struct {
	shards []*shard[V]
	opt    Options
	ttl    time.Duration

	closed atomic.Bool
	stop   chan struct{}
}

// New constructs a Cache with the provided Options, applying defaults for
// zero fields. Negative TTL or MaxEntries are programming errors and panic.
// Unless CleanupInterval is negative, a background janitor goroutine is
// started; call Close to stop it.
func New[V any](opt Options) *Cache[V] {
	if opt.TTL < 0 {
		panic("dedup: TTL must be >= 0")
	}
	if opt.MaxEntries < 0 {
		panic("dedup: MaxEntries must be >= 0")
	}
	if opt.TTL == 0 {
		opt.TTL = DefaultTTL
	}
	if opt.MaxEntries == 0 {
		opt.MaxEntries = DefaultMaxEntries
	}
	if opt.CleanupInterval == 0 {
		opt.CleanupInterval = DefaultCleanupInterval
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}

	sh := opt.Shards
	if sh <= 0 {
		sh = util.ReasonableShardCount()
	} else {
		sh = int(util.NextPow2(uint64(sh)))
	}
	// Capacity splits by floor so the global bound is never exceeded;
	// halve the shard count until every shard holds at least one entry.
	for sh > 1 && opt.MaxEntries/sh < 1 {
		sh /= 2
	}

	c := &Cache[V]{
		shards: make([]*shard[V], sh),
		opt:    opt,
		ttl:    opt.TTL,
		stop:   make(chan struct{}),
	}
	for i := range c.shards {
		c.shards[i] = newShard[V](opt.MaxEntries/sh, opt)
	}

	if opt.CleanupInterval > 0 {
		go c.janitor(opt.CleanupInterval)
	}
	return c
}

// Execute runs work under the cache's default TTL. See ExecuteTTL.
func (c *Cache[V]) Execute(ctx context.Context, key string, work Work[V]) Outcome[V] {
	return c.ExecuteTTL(ctx, key, c.ttl, work)
}

// ExecuteTTL coalesces concurrent and repeat executions of work by key.
// If a live entry exists the caller attaches to it and work is not
// invoked; otherwise this caller becomes the leader, runs work, and the
// result is shared until ttl elapses. A non-positive ttl uses the cache
// default. Work failures are returned in the outcome and never cached.
func (c *Cache[V]) ExecuteTTL(ctx context.Context, key string, ttl time.Duration, work Work[V]) Outcome[V] {
	if c.closed.Load() {
		// Degraded mode after Close: no coalescing, plain call.
		v, err := work(ctx)
		return Outcome[V]{Value: v, Err: err}
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	now := c.now()
	e, created := c.shardFor(key).acquire(key, now, now+int64(ttl))

	if !created {
		select {
		case <-e.done:
			return Outcome[V]{
				Value:     e.val,
				Err:       e.err,
				Duplicate: true,
				FromCache: true,
				Attached:  int(e.attaches.Load()),
			}
		case <-ctx.Done():
			// Only this caller's wait ends; the leader keeps running.
			return Outcome[V]{Err: ctx.Err(), Duplicate: true, FromCache: true}
		}
	}

	v, err := work(ctx)

	// Publish before closing done; settle first so a failed entry is gone
	// from the map before any attached caller observes the error.
	e.val, e.err = v, err
	c.shardFor(key).settle(e, err != nil)
	close(e.done)

	return Outcome[V]{Value: v, Err: err, Attached: int(e.attaches.Load())}
}

// ExecuteValue is Execute with the outcome unwrapped to (value, error).
func (c *Cache[V]) ExecuteValue(ctx context.Context, key string, work Work[V]) (V, error) {
	o := c.Execute(ctx, key, work)
	return o.Value, o.Err
}

// ClearKey drops one entry if present; returns whether anything was
// removed. In-flight work is not cancelled; its leader and already
// attached callers still receive the result, which is simply not cached.
func (c *Cache[V]) ClearKey(key string) bool {
	return c.shardFor(key).removeKey(key)
}

// Clear drops all entries unconditionally.
func (c *Cache[V]) Clear() {
	for _, s := range c.shards {
		s.clear()
	}
	c.opt.Metrics.Size(0)
}

// Len returns the total number of resident entries across all shards.
func (c *Cache[V]) Len() int {
	total := 0
	for _, s := range c.shards {
		total += s.Len()
	}
	return total
}

// Close stops the janitor and marks the cache closed. Subsequent Execute
// calls run their work directly without coalescing or caching.
func (c *Cache[V]) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		close(c.stop)
	}
	return nil
}

// janitor periodically sweeps expired entries regardless of cache size.
func (c *Cache[V]) janitor(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-t.C:
			now := c.now()
			total := 0
			for _, s := range c.shards {
				s.sweep(now)
				total += s.Len()
			}
			c.opt.Metrics.Size(total)
		}
	}
}

// shardFor picks a shard by hashing the key; the shard count is a power
// of two, so ShardIndex takes the mask fast path.
func (c *Cache[V]) shardFor(key string) *shard[V] {
	return c.shards[util.ShardIndex(util.Fnv64a(key), len(c.shards))]
}

func (c *Cache[V]) now() int64 {
	if c.opt.Clock != nil {
		return c.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}
