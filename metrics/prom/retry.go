package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/quotefast/resilience/retry"
)

// RetryAdapter implements retry.Metrics and exports Prometheus counters
// plus a backoff-delay histogram.
type RetryAdapter struct {
	attempts  prometheus.Counter
	retries   prometheus.Counter
	successes prometheus.Counter
	failures  prometheus.Counter
	backoff   prometheus.Histogram
}

// NewRetry constructs a Prometheus metrics adapter for a retry.Executor.
// Arguments mirror NewCache.
func NewRetry(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *RetryAdapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &RetryAdapter{
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "attempts_total",
			Help:        "Work invocations, first attempts included",
			ConstLabels: constLabels,
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "retries_total",
			Help:        "Backoff sleeps before another attempt",
			ConstLabels: constLabels,
		}),
		successes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "successes_total",
			Help:        "Executions that eventually succeeded",
			ConstLabels: constLabels,
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "failures_total",
			Help:        "Executions that exhausted attempts or stopped on a non-retryable error",
			ConstLabels: constLabels,
		}),
		backoff: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "backoff_seconds",
			Help:        "Computed backoff delays",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms .. ~200s
		}),
	}
	reg.MustRegister(a.attempts, a.retries, a.successes, a.failures, a.backoff)
	return a
}

// Attempt increments the attempts counter.
func (a *RetryAdapter) Attempt() { a.attempts.Inc() }

// Retry increments the retries counter and observes the backoff delay.
func (a *RetryAdapter) Retry(delay time.Duration) {
	a.retries.Inc()
	a.backoff.Observe(delay.Seconds())
}

// Success increments the successes counter.
func (a *RetryAdapter) Success(attempts int) { a.successes.Inc() }

// Failure increments the failures counter.
func (a *RetryAdapter) Failure(attempts int) { a.failures.Inc() }

// Compile-time check: ensure RetryAdapter implements retry.Metrics.
var _ retry.Metrics = (*RetryAdapter)(nil)
