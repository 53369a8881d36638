package retry

import (
	"context"
	"time"
)

// Work is the retried unit of work. It must honor ctx cancellation itself
// if the underlying call can block; the executor only checks ctx between
// attempts (during the backoff sleep).
type Work[T any] func(ctx context.Context) (T, error)

// Outcome is the structured result of one Execute call.
type Outcome[T any] struct {
	// Value is meaningful only when Err is nil.
	Value T

	// Err is the last error observed (not the first), or ctx.Err() if the
	// call was cancelled during a backoff sleep. Nil on success.
	Err error

	// Attempts is the number of times the work ran, 1..MaxAttempts.
	Attempts int

	// Elapsed is wall-clock time from the first attempt to the final
	// resolution, including backoff sleeps.
	Elapsed time.Duration
}

// Succeeded reports whether the work eventually returned without error.
func (o Outcome[T]) Succeeded() bool { return o.Err == nil }

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// Options configures an Executor. Zero values are safe; sane defaults are
// applied in New():
//   - zero Policy  => package defaults (3 attempts, 1s base, 30s cap, x2)
//   - nil Metrics  => NoopMetrics
//   - nil Clock    => time.Now()
//   - nil Sleep    => timer-based sleep honoring ctx
type Options struct {
	// Policy is the executor's default policy; per-call overrides merge
	// onto it in ExecuteWith.
	Policy Policy

	// Metrics receives attempt/retry/success/failure signals.
	Metrics Metrics

	// Clock overrides the time source used for Outcome.Elapsed (tests).
	Clock Clock

	// Sleep overrides the backoff wait (tests). It must return a non-nil
	// error only when ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Executor runs work of type T under a retry policy.
// It holds configuration only; concurrent Execute calls do not interact.
type Executor[T any] struct {
	pol Policy
	opt Options
}

// New constructs an Executor. Out-of-range policy values are programming
// errors and panic here rather than surfacing at call time.
func New[T any](opt Options) *Executor[T] {
	if err := opt.Policy.Validate(); err != nil {
		panic(err.Error())
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Sleep == nil {
		opt.Sleep = sleepCtx
	}
	return &Executor[T]{pol: opt.Policy.withDefaults(), opt: opt}
}

// Execute runs work under the executor's policy and reports an Outcome.
// Work failures never escape as a return error; the outcome carries them.
func (e *Executor[T]) Execute(ctx context.Context, work Work[T]) Outcome[T] {
	return e.run(ctx, e.pol, work)
}

// ExecuteWith runs work under the executor's policy with the non-zero
// fields of override applied on top. Out-of-range override values panic,
// same as New.
func (e *Executor[T]) ExecuteWith(ctx context.Context, override Policy, work Work[T]) Outcome[T] {
	if err := override.Validate(); err != nil {
		panic(err.Error())
	}
	return e.run(ctx, merge(e.pol, override), work)
}

// ExecuteValue is Execute with the outcome unwrapped: it returns the value
// on success and the last error on exhaustion or a predicate stop.
func (e *Executor[T]) ExecuteValue(ctx context.Context, work Work[T]) (T, error) {
	o := e.Execute(ctx, work)
	return o.Value, o.Err
}

// ExecuteWithFallback runs work under the executor's policy; if all
// attempts fail, it invokes fallback once and returns its result instead.
func (e *Executor[T]) ExecuteWithFallback(ctx context.Context, work, fallback Work[T]) (T, error) {
	if o := e.Execute(ctx, work); o.Succeeded() {
		return o.Value, nil
	}
	return fallback(ctx)
}

// run is the attempt loop. The policy is fully defaulted by the callers.
func (e *Executor[T]) run(ctx context.Context, p Policy, work Work[T]) Outcome[T] {
	start := e.now()

	for attempt := 1; ; attempt++ {
		e.opt.Metrics.Attempt()

		v, err := work(ctx)
		if err == nil {
			e.opt.Metrics.Success(attempt)
			return Outcome[T]{Value: v, Attempts: attempt, Elapsed: e.since(start)}
		}

		// The predicate sees every failure, the last one included.
		if p.RetryIf != nil && !p.RetryIf(err) {
			e.opt.Metrics.Failure(attempt)
			return Outcome[T]{Err: err, Attempts: attempt, Elapsed: e.since(start)}
		}
		if attempt == p.MaxAttempts {
			e.opt.Metrics.Failure(attempt)
			return Outcome[T]{Err: err, Attempts: attempt, Elapsed: e.since(start)}
		}

		d := p.delay(attempt)
		e.opt.Metrics.Retry(d)
		if serr := e.opt.Sleep(ctx, d); serr != nil {
			e.opt.Metrics.Failure(attempt)
			return Outcome[T]{Err: serr, Attempts: attempt, Elapsed: e.since(start)}
		}
	}
}

func (e *Executor[T]) now() int64 {
	if e.opt.Clock != nil {
		return e.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}

func (e *Executor[T]) since(start int64) time.Duration {
	return time.Duration(e.now() - start)
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
