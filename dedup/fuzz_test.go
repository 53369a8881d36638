//go:build go1.18

package dedup

import (
	"context"
	"strings"
	"testing"
	"time"
)

// Fuzz Execute/ClearKey semantics under arbitrary key inputs.
// Guards against panics and ensures core invariants hold.
// NOTE: We cap key lengths to avoid pathological memory usage during
// fuzzing (this does not weaken the invariants we check).
func FuzzExecute_ArbitraryKeys(f *testing.F) {
	// Seed corpus: empty, ASCII, business-shaped, Unicode, long strings.
	f.Add("")
	f.Add("k")
	f.Add("rates:CA:25:fixed:500000:50000")
	f.Add("αβγ")
	f.Add("emoji🙂")
	f.Add(strings.Repeat("x", 1024))

	f.Fuzz(func(t *testing.T, k string) {
		// Cap lengths to keep memory bounded during fuzzing.
		const limit = 1 << 12 // 4096
		if len(k) > limit {
			k = k[:limit]
		}

		c := New[string](Options{
			TTL:             time.Minute,
			MaxEntries:      16,
			Shards:          1,
			CleanupInterval: -1,
		})
		t.Cleanup(func() { _ = c.Close() })

		// First execute is a miss and returns the work's value.
		out := c.Execute(context.Background(), k, func(context.Context) (string, error) {
			return "v:" + k, nil
		})
		if out.Duplicate || out.Err != nil || out.Value != "v:"+k {
			t.Fatalf("first execute: %+v", out)
		}

		// Second execute must attach, not re-run the work.
		out = c.Execute(context.Background(), k, func(context.Context) (string, error) {
			t.Fatal("cached call must not invoke work")
			return "", nil
		})
		if !out.Duplicate || out.Value != "v:"+k {
			t.Fatalf("second execute: %+v", out)
		}

		// ClearKey removes exactly once.
		if !c.ClearKey(k) {
			t.Fatal("ClearKey must report removal")
		}
		if c.ClearKey(k) {
			t.Fatal("second ClearKey must be a no-op")
		}

		// Digest stability.
		if HashKey(k) != HashKey(k) {
			t.Fatal("HashKey must be deterministic")
		}
	})
}
