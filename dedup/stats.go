package dedup

// Statistics is a read-only snapshot of the cache's counters.
// Counters are read without a global lock, so values may be mutually
// inconsistent by a few operations under concurrent load.
type Statistics struct {
	// Entries is the current number of resident entries.
	Entries int
	// MaxEntries is the configured hard cap.
	MaxEntries int

	// Hits counts callers that attached to a live entry.
	Hits uint64
	// Misses counts callers that started new work.
	Misses uint64
	// Evictions counts removals for any reason.
	Evictions uint64

	// HitRate is Hits / (Hits + Misses); 0 when there were no calls.
	HitRate float64
	// AvgAttach is the average number of attached callers per created
	// entry; 0 when nothing was created yet.
	AvgAttach float64
}

// Stats aggregates counters across all shards.
func (c *Cache[V]) Stats() Statistics {
	st := Statistics{MaxEntries: c.opt.MaxEntries}
	var created uint64
	for _, s := range c.shards {
		st.Entries += s.Len()
		st.Hits += s.hits.Load()
		st.Misses += s.misses.Load()
		st.Evictions += s.evicts.Load()
		created += s.created.Load()
	}
	if calls := st.Hits + st.Misses; calls > 0 {
		st.HitRate = float64(st.Hits) / float64(calls)
	}
	if created > 0 {
		st.AvgAttach = float64(st.Hits) / float64(created)
	}
	return st
}
