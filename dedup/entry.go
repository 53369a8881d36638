package dedup

import "sync/atomic"

// entry is an intrusive doubly linked list element owned by a shard.
// It is the shared single-flight slot for one key: the leader publishes
// val/err and then closes done; attached callers read them only after
// <-done, which gives the required happens-before edge.
//
// An entry moves absent → in-flight → resolved → evicted and never
// reverts. List position is fixed at creation (head newest, tail oldest);
// attaches do not promote, so the tail is always the oldest entry.
type entry[V any] struct {
	key string

	// done is closed exactly once, after val/err are set and after a
	// failed entry has been removed from the shard map.
	done chan struct{}
	val  V
	err  error

	// Intrusive list links, guarded by the shard lock.
	prev *entry[V]
	next *entry[V]

	// Absolute expiration deadline in UnixNano. Applies while in-flight
	// too: an expired in-flight entry no longer accepts attachers.
	exp int64

	// Creation time in UnixNano; ordering key for capacity eviction.
	createdAt int64

	// attaches counts callers that joined this entry instead of starting
	// their own execution.
	attaches atomic.Int64
}
