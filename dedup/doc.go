// Package dedup coalesces concurrent and rapid-repeat executions of the
// same logical request into a single in-flight call, caching the completed
// result for a TTL window.
//
// Design
//
//   - Single-flight: the first caller for a key becomes the leader and runs
//     the work; every other caller with the same key attaches to the shared
//     entry and waits for its published result. Publication happens-before
//     the entry's done channel is closed, so attached callers always
//     observe the final value or error.
//
//   - Concurrency: the cache is split into shards, each protected by a
//     Mutex. Check-and-insert is a single critical section, so two
//     near-simultaneous first-callers can never both run the work — a hard
//     requirement under preemptive goroutine scheduling.
//
//   - Storage: each shard keeps a map[string]*entry for lookups and an
//     intrusive doubly linked list in creation order (head newest, tail
//     oldest). All operations are O(1) expected.
//
//   - TTL: every entry carries an absolute deadline. Expiration is lazy on
//     lookup, enforced again by a periodic janitor sweep, and once more by
//     a synchronous sweep when an insert would exceed capacity.
//
//   - Bounded size: if a shard is still full of live entries after the
//     synchronous sweep, the oldest live entry (the creation-order tail)
//     is evicted. The entry count therefore never exceeds the configured
//     maximum.
//
//   - Failures: a rejected work removes its entry before the error is
//     published. Failures are never cached; the next call with the same
//     key starts fresh, while every caller already attached observes the
//     same error.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size signals.
//     By default NoopMetrics is used; plug a Prometheus adapter to export
//     metrics.
//
// Basic usage
//
//	c := dedup.New[[]Rate](dedup.Options{TTL: 5 * time.Minute})
//	defer c.Close()
//
//	out := c.Execute(ctx, dedup.Key("rates", "CA", 25, "fixed", 500000, 50000),
//	    func(ctx context.Context) ([]Rate, error) {
//	        return provider.FetchRates(ctx)
//	    })
//	if out.Err == nil {
//	    _ = out.Value // shared across all coalesced callers
//	}
//
// Composing with retry
//
// Wrap the retrying executor inside the deduplicated slot, never outside:
// all coalesced callers then share the benefit of the retries.
//
//	ex := retry.New[[]Rate](retry.Options{Policy: retry.Standard})
//	out := c.Execute(ctx, key, func(ctx context.Context) ([]Rate, error) {
//	    return ex.ExecuteValue(ctx, provider.FetchRates)
//	})
//
// Cancellation
//
// An attached caller's ctx cancels only that caller's wait; the leader's
// work keeps running and its result remains available to everyone else.
// ClearKey removes an entry but does not cancel in-flight work.
//
// Thread-safety
//
// All methods on Cache are safe for concurrent use by multiple goroutines.
package dedup
