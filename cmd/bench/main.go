// Command bench runs a synthetic coalescing workload against the cache
// and exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/quotefast/resilience/dedup"
	pmet "github.com/quotefast/resilience/metrics/prom"
	"github.com/quotefast/resilience/retry"
)

var errSynthetic = errors.New("synthetic upstream failure")

func main() {
	// ---- Flags ----
	var (
		ttl        = flag.Duration("ttl", 5*time.Second, "entry TTL")
		maxEntries = flag.Int("max", 100_000, "cache capacity (entries)")
		shards     = flag.Int("shards", 0, "number of shards (0=auto)")

		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")

		keys     = flag.Int("keys", 100_000, "keyspace size")
		zipfS    = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV    = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed     = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		workLat  = flag.Duration("work", 2*time.Millisecond, "simulated upstream latency")
		failPct  = flag.Int("fail", 5, "upstream failure percentage [0..100]")
		attempts = flag.Int("attempts", 3, "retry attempts inside the deduplicated slot")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	flag.Parse()

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	cacheMetrics := pmet.NewCache(nil, "resilience", "bench_dedup", nil)
	retryMetrics := pmet.NewRetry(nil, "resilience", "bench_retry", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("metrics: serving at %s", *metricsAddr)
		log.Println(http.ListenAndServe(*metricsAddr, nil))
	}()

	// ---- Build cache and executor ----
	c := dedup.New[string](dedup.Options{
		TTL:        *ttl,
		MaxEntries: *maxEntries,
		Shards:     *shards,
		Metrics:    cacheMetrics,
	})
	defer func() { _ = c.Close() }()

	ex := retry.New[string](retry.Options{
		Policy: retry.Policy{
			MaxAttempts: *attempts,
			BaseDelay:   100 * time.Millisecond,
			MaxDelay:    1 * time.Second,
		},
		Metrics: retryMetrics,
	})

	// ---- Snapshot flags for goroutines ----
	keysMax := uint64(*keys - 1)
	seedBase := *seed
	zipfSVal := *zipfS
	zipfVVal := *zipfV
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}
	latency := *workLat
	failPctVal := *failPct

	// ---- Load generation ----
	var total, dedupHits, upstream, failures uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	var g errgroup.Group
	for w := 0; w < workersN; w++ {
		id := w
		g.Go(func() error {
			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(seedBase + int64(id)*9973))
			localZipf := rand.NewZipf(localR, zipfSVal, zipfVVal, keysMax)

			for {
				select {
				case <-ctx.Done():
					return nil
				default:
				}

				atomic.AddUint64(&total, 1)
				key := "rates:" + strconv.FormatUint(localZipf.Uint64(), 10)

				out := c.Execute(context.Background(), key, func(wctx context.Context) (string, error) {
					return ex.ExecuteValue(wctx, func(context.Context) (string, error) {
						atomic.AddUint64(&upstream, 1)
						time.Sleep(latency)
						if int(localR.Int31n(100)) < failPctVal {
							return "", errSynthetic
						}
						return "v:" + key, nil
					})
				})
				if out.Duplicate {
					atomic.AddUint64(&dedupHits, 1)
				}
				if out.Err != nil {
					atomic.AddUint64(&failures, 1)
				}
			}
		})
	}
	_ = g.Wait()
	elapsed := time.Since(start)

	// ---- Report ----
	st := c.Stats()
	tot := atomic.LoadUint64(&total)
	fmt.Printf("duration: %v  calls: %d (%.0f/s)\n", elapsed.Round(time.Millisecond), tot, float64(tot)/elapsed.Seconds())
	fmt.Printf("coalesced: %d (%.1f%%)  upstream calls: %d  failed outcomes: %d\n",
		atomic.LoadUint64(&dedupHits), 100*float64(atomic.LoadUint64(&dedupHits))/float64(tot),
		atomic.LoadUint64(&upstream), atomic.LoadUint64(&failures))
	fmt.Printf("cache: entries=%d/%d hitRate=%.2f avgAttach=%.2f evictions=%d\n",
		st.Entries, st.MaxEntries, st.HitRate, st.AvgAttach, st.Evictions)
}
