package retry

import "time"

// Metrics exposes executor-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	// Attempt is called before every invocation of the work.
	Attempt()
	// Retry is called with the computed backoff before each sleep.
	Retry(delay time.Duration)
	// Success is called once per Execute that succeeds.
	Success(attempts int)
	// Failure is called once per Execute that exhausts its attempts,
	// stops on a non-retryable error, or is cancelled mid-backoff.
	Failure(attempts int)
}

// NoopMetrics is a drop-in Metrics implementation that does nothing.
// It is safe for concurrent use and intended as the default when
// no observability backend is configured.
type NoopMetrics struct{}

func (NoopMetrics) Attempt()             {}
func (NoopMetrics) Retry(time.Duration)  {}
func (NoopMetrics) Success(attempts int) {}
func (NoopMetrics) Failure(attempts int) {}

// Ensure NoopMetrics implements the Metrics interface at compile time.
var _ Metrics = NoopMetrics{}
