package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

type fakeClock struct{ t int64 }

func (f *fakeClock) NowUnixNano() int64  { return f.t }
func (f *fakeClock) add(d time.Duration) { f.t += int64(d) }

// sleepRecorder replaces the backoff sleep so tests run instantly and can
// assert the exact delays the executor computed.
type sleepRecorder struct {
	delays []time.Duration
	clk    *fakeClock
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	if r.clk != nil {
		r.clk.add(d)
	}
	return nil
}

func newTestExecutor(p Policy) (*Executor[string], *sleepRecorder, *fakeClock) {
	clk := &fakeClock{}
	rec := &sleepRecorder{clk: clk}
	ex := New[string](Options{Policy: p, Clock: clk, Sleep: rec.sleep})
	return ex, rec, clk
}

// An always-failing work runs exactly MaxAttempts times and the outcome
// carries the last error.
func TestExecute_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	ex, rec, _ := newTestExecutor(Policy{MaxAttempts: 4, NoJitter: true})

	calls := 0
	out := ex.Execute(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", errBoom
	})

	if out.Succeeded() {
		t.Fatal("must not succeed")
	}
	if calls != 4 || out.Attempts != 4 {
		t.Fatalf("want 4 attempts, got calls=%d attempts=%d", calls, out.Attempts)
	}
	if !errors.Is(out.Err, errBoom) {
		t.Fatalf("want errBoom, got %v", out.Err)
	}
	if len(rec.delays) != 3 {
		t.Fatalf("want 3 backoff sleeps, got %d", len(rec.delays))
	}
}

// Work failing twice then succeeding reports attempts=3 and the exact
// exponential delays (jitter disabled).
func TestExecute_SucceedsAfterFailures(t *testing.T) {
	t.Parallel()

	ex, rec, _ := newTestExecutor(Policy{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    1 * time.Second,
		Multiplier:  2,
		NoJitter:    true,
	})

	calls := 0
	out := ex.Execute(context.Background(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errBoom
		}
		return "ok", nil
	})

	if !out.Succeeded() || out.Value != "ok" {
		t.Fatalf("want ok, got %+v", out)
	}
	if out.Attempts != 3 {
		t.Fatalf("want attempts=3, got %d", out.Attempts)
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if len(rec.delays) != len(want) {
		t.Fatalf("want %d delays, got %v", len(want), rec.delays)
	}
	for i := range want {
		if rec.delays[i] != want[i] {
			t.Fatalf("delay %d: want %v, got %v", i, want[i], rec.delays[i])
		}
	}
	// Elapsed covers the backoff sleeps (fake clock advances in the recorder).
	if out.Elapsed < 300*time.Millisecond {
		t.Fatalf("elapsed must cover the sleeps, got %v", out.Elapsed)
	}
}

// A predicate that rejects the error stops after the first attempt even
// though more attempts remain.
func TestExecute_PredicateStopsImmediately(t *testing.T) {
	t.Parallel()

	ex, rec, _ := newTestExecutor(Policy{
		MaxAttempts: 5,
		RetryIf:     func(error) bool { return false },
	})

	calls := 0
	out := ex.Execute(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", errBoom
	})

	if calls != 1 || out.Attempts != 1 {
		t.Fatalf("want single attempt, got calls=%d attempts=%d", calls, out.Attempts)
	}
	if len(rec.delays) != 0 {
		t.Fatalf("must not sleep, got %v", rec.delays)
	}
}

// The predicate is consulted on every failure, the final one included.
func TestExecute_PredicateSeesEveryFailure(t *testing.T) {
	t.Parallel()

	checked := 0
	ex, _, _ := newTestExecutor(Policy{
		MaxAttempts: 3,
		NoJitter:    true,
		RetryIf: func(err error) bool {
			checked++
			return true
		},
	})

	ex.Execute(context.Background(), func(context.Context) (string, error) {
		return "", errBoom
	})
	if checked != 3 {
		t.Fatalf("predicate must run on all 3 failures, got %d", checked)
	}
}

// MaxAttempts=1 means a single attempt and no sleeping.
func TestExecute_SingleAttempt(t *testing.T) {
	t.Parallel()

	ex, rec, _ := newTestExecutor(Policy{MaxAttempts: 1})
	out := ex.Execute(context.Background(), func(context.Context) (string, error) {
		return "", errBoom
	})
	if out.Attempts != 1 || len(rec.delays) != 0 {
		t.Fatalf("want 1 attempt 0 sleeps, got %d/%d", out.Attempts, len(rec.delays))
	}
}

// Multiplier=1 with jitter off produces a constant delay.
func TestExecute_ConstantDelay(t *testing.T) {
	t.Parallel()

	ex, rec, _ := newTestExecutor(Policy{
		MaxAttempts: 4,
		BaseDelay:   200 * time.Millisecond,
		Multiplier:  1,
		NoJitter:    true,
	})
	ex.Execute(context.Background(), func(context.Context) (string, error) {
		return "", errBoom
	})
	for i, d := range rec.delays {
		if d != 200*time.Millisecond {
			t.Fatalf("delay %d: want 200ms, got %v", i, d)
		}
	}
}

// The computed delay saturates at MaxDelay for any attempt, including
// counts that would overflow integer math.
func TestDelay_CapsAtMaxDelay(t *testing.T) {
	t.Parallel()

	p := Policy{BaseDelay: time.Second, MaxDelay: 5 * time.Second, Multiplier: 2, NoJitter: true}.withDefaults()
	for _, attempt := range []int{3, 10, 64, 1000, 1 << 20} {
		if d := p.delay(attempt); d != 5*time.Second {
			t.Fatalf("attempt %d: want cap 5s, got %v", attempt, d)
		}
	}
}

// With jitter enabled every delay stays within ±10% of the ideal value
// and never above MaxDelay or below zero.
func TestDelay_JitterBounds(t *testing.T) {
	t.Parallel()

	p := Policy{BaseDelay: time.Second, MaxDelay: 30 * time.Second, Multiplier: 2}.withDefaults()
	for i := 0; i < 1000; i++ {
		d := p.delay(2) // ideal 2s
		lo, hi := 1800*time.Millisecond, 2200*time.Millisecond
		if d < lo || d > hi {
			t.Fatalf("jittered delay %v outside [%v, %v]", d, lo, hi)
		}
	}
	// At the cap, jitter must not push past MaxDelay.
	for i := 0; i < 1000; i++ {
		if d := p.delay(100); d > p.MaxDelay {
			t.Fatalf("delay %v exceeds MaxDelay", d)
		}
	}
}

// ExecuteValue unwraps the outcome into the conventional (T, error) pair.
func TestExecuteValue(t *testing.T) {
	t.Parallel()

	ex, _, _ := newTestExecutor(Policy{MaxAttempts: 2, NoJitter: true})

	v, err := ex.ExecuteValue(context.Background(), func(context.Context) (string, error) {
		return "v", nil
	})
	if err != nil || v != "v" {
		t.Fatalf("want v/nil, got %q/%v", v, err)
	}

	_, err = ex.ExecuteValue(context.Background(), func(context.Context) (string, error) {
		return "", errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("want errBoom, got %v", err)
	}
}

// The fallback runs only on exhaustion.
func TestExecuteWithFallback(t *testing.T) {
	t.Parallel()

	ex, _, _ := newTestExecutor(Policy{MaxAttempts: 2, NoJitter: true})

	fallbacks := 0
	fb := func(context.Context) (string, error) {
		fallbacks++
		return "fallback", nil
	}

	v, err := ex.ExecuteWithFallback(context.Background(),
		func(context.Context) (string, error) { return "primary", nil }, fb)
	if err != nil || v != "primary" || fallbacks != 0 {
		t.Fatalf("fallback must not run on success: %q/%v/%d", v, err, fallbacks)
	}

	v, err = ex.ExecuteWithFallback(context.Background(),
		func(context.Context) (string, error) { return "", errBoom }, fb)
	if err != nil || v != "fallback" || fallbacks != 1 {
		t.Fatalf("fallback must run once on exhaustion: %q/%v/%d", v, err, fallbacks)
	}
}

// Per-call overrides replace only the fields they set.
func TestExecuteWith_Override(t *testing.T) {
	t.Parallel()

	ex, rec, _ := newTestExecutor(Policy{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
		NoJitter:    true,
	})

	calls := 0
	out := ex.ExecuteWith(context.Background(), Policy{MaxAttempts: 2},
		func(context.Context) (string, error) {
			calls++
			return "", errBoom
		})

	if calls != 2 || out.Attempts != 2 {
		t.Fatalf("override must cap attempts at 2, got %d", calls)
	}
	// BaseDelay inherited from the executor policy.
	if len(rec.delays) != 1 || rec.delays[0] != 100*time.Millisecond {
		t.Fatalf("want inherited 100ms delay, got %v", rec.delays)
	}
}

// Invalid policy values are programming errors and panic at construction.
func TestNew_PanicsOnInvalidPolicy(t *testing.T) {
	t.Parallel()

	for _, p := range []Policy{
		{MaxAttempts: -1},
		{BaseDelay: time.Millisecond},
		{MaxDelay: 10 * time.Millisecond},
		{Multiplier: 0.5},
	} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("New must panic for %+v", p)
				}
			}()
			New[int](Options{Policy: p})
		}()
	}
}

// All presets are valid policies.
func TestPresets_Valid(t *testing.T) {
	t.Parallel()

	for _, p := range []Policy{Fast, Standard, Slow, Aggressive} {
		if err := p.Validate(); err != nil {
			t.Fatalf("preset invalid: %v", err)
		}
	}
}

// Cancelling the context during a backoff sleep ends the call with
// ctx.Err() and the attempts used so far.
func TestExecute_CancelDuringBackoff(t *testing.T) {
	t.Parallel()

	// Real sleep here: the cancellation path lives inside sleepCtx.
	ex := New[string](Options{Policy: Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		NoJitter:    true,
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	calls := 0
	out := ex.Execute(ctx, func(context.Context) (string, error) {
		calls++
		return "", errBoom
	})

	if !errors.Is(out.Err, context.DeadlineExceeded) {
		t.Fatalf("want deadline error, got %v", out.Err)
	}
	if calls != 1 || out.Attempts != 1 {
		t.Fatalf("want 1 attempt before cancellation, got %d", calls)
	}
}
