package dedup

import "time"

// Defaults applied by New when the corresponding Options field is zero.
const (
	DefaultTTL             = 5 * time.Minute
	DefaultMaxEntries      = 1000
	DefaultCleanupInterval = 60 * time.Second
)

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictTTL — expired (lazy on lookup, janitor, or pre-insert sweep).
	EvictTTL EvictReason = iota
	// EvictCapacity — oldest live entry removed to admit a new one.
	EvictCapacity
	// EvictFailure — work failed; failures are never cached.
	EvictFailure
	// EvictManual — removed by Clear or ClearKey.
	EvictManual
)

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// Options configures the cache behavior. Zero values are safe;
// sane defaults are applied in New():
//   - TTL <= 0             => DefaultTTL
//   - MaxEntries <= 0      => DefaultMaxEntries
//   - CleanupInterval == 0 => DefaultCleanupInterval (negative disables the janitor)
//   - Shards <= 0          => auto (rounded to a power of two)
//   - nil Metrics          => NoopMetrics
//   - nil Clock            => time.Now()
type Options struct {
	// TTL bounds how long an entry (in-flight or completed) may be shared.
	// Production deployments typically keep this >= 1s.
	TTL time.Duration

	// MaxEntries is the hard cap on resident entries across all shards.
	// Production deployments typically keep this >= 100.
	MaxEntries int

	// CleanupInterval is the period of the background expiry sweep.
	// A negative value disables the janitor entirely; expiry then relies
	// on lazy eviction and the pre-insert sweep (tests).
	CleanupInterval time.Duration

	// Shards defines the number of shards. If 0, an automatic value is
	// chosen (≈ 2*GOMAXPROCS), rounded to a power of two and clamped so
	// every shard holds at least one entry.
	Shards int

	// OnEvict is called for every eviction under the shard lock;
	// keep callbacks lightweight.
	OnEvict func(key string, reason EvictReason)

	// Metrics receives Hit/Miss/Evict/Size signals.
	Metrics Metrics

	// Clock allows overriding the time source (tests). Nil => time.Now().
	Clock Clock
}
