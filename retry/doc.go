// Package retry executes a unit of work with bounded exponential backoff.
//
// Design
//
//   - Policy: an immutable value object describing attempt cap, backoff
//     curve, jitter, and an optional retryability predicate. The zero value
//     is usable; defaults are applied in New. Invalid explicit values
//     (e.g. MaxAttempts < 0) panic at construction, never at call time.
//
//   - Outcome: Execute reports a structured Outcome instead of only an
//     error. The outcome carries the final value or the last error
//     observed, the number of attempts used, and the wall-clock elapsed
//     time. ExecuteValue unwraps the outcome for callers that prefer the
//     plain (T, error) shape.
//
//   - Backoff: delay for attempt n is min(BaseDelay * Multiplier^(n-1),
//     MaxDelay), optionally perturbed by a uniform ±10% jitter and clamped
//     to [0, MaxDelay]. Jitter avoids synchronized retry storms when many
//     callers fail at once.
//
//   - Predicate: Policy.RetryIf, when set, is consulted on every failure.
//     A false result stops immediately without consuming the remaining
//     attempts; validation-style errors are never worth retrying.
//
//   - Concurrency: an Executor holds no mutable state besides its
//     configuration. Independent Execute calls never interact and may run
//     concurrently.
//
// Basic usage
//
//	ex := retry.New[string](retry.Options{Policy: retry.Standard})
//	out := ex.Execute(ctx, func(ctx context.Context) (string, error) {
//	    return client.FetchRates(ctx)
//	})
//	if out.Succeeded() {
//	    _ = out.Value
//	}
//
// With a predicate and per-call override
//
//	out := ex.ExecuteWith(ctx, retry.Policy{
//	    MaxAttempts: 5,
//	    RetryIf:     func(err error) bool { return !errors.Is(err, ErrBadInput) },
//	}, work)
//
// Composing with deduplication
//
// When the same remote call may be issued by many concurrent callers, wrap
// the retrying work inside dedup.Cache.Execute so that all coalesced
// callers share one retried execution. Retrying outside the deduplicated
// slot would duplicate the work per caller.
package retry
