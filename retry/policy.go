package retry

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Defaults applied by New when the corresponding Policy field is zero.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 1 * time.Second
	DefaultMaxDelay    = 30 * time.Second
	DefaultMultiplier  = 2.0
)

// Lower bounds for explicitly set values.
const (
	minBaseDelay = 100 * time.Millisecond
	minMaxDelay  = 1 * time.Second
)

// Policy describes how an Executor retries failing work.
// The zero value is usable; zero fields take the package defaults.
// A Policy holds no mutable state and may be shared freely.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first.
	// 1 means no retries. 0 => DefaultMaxAttempts.
	MaxAttempts int

	// BaseDelay is the delay before the second attempt.
	// Explicit values must be >= 100ms. 0 => DefaultBaseDelay.
	BaseDelay time.Duration

	// MaxDelay is a hard ceiling on any computed delay.
	// Explicit values must be >= 1s. 0 => DefaultMaxDelay.
	MaxDelay time.Duration

	// Multiplier is the exponential growth factor between attempts.
	// Explicit values must be >= 1. 0 => DefaultMultiplier.
	Multiplier float64

	// NoJitter disables the ±10% randomization of each delay.
	// The zero value keeps jitter enabled.
	NoJitter bool

	// RetryIf, when non-nil, is consulted on every failure.
	// Returning false stops retrying immediately; the outcome carries
	// that error and the attempts used so far.
	RetryIf func(error) bool
}

// Predefined policies. These are conventional defaults, not enforced
// anywhere; callers may start from one and adjust fields.
var (
	// Fast suits quick in-process or LAN calls.
	Fast = Policy{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: 1 * time.Second}

	// Standard is the general-purpose default for remote calls.
	Standard = Policy{MaxAttempts: 3, BaseDelay: 1 * time.Second, MaxDelay: 10 * time.Second}

	// Slow suits expensive upstreams that need room to recover.
	Slow = Policy{MaxAttempts: 5, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second}

	// Aggressive hammers flaky-but-cheap upstreams with a gentler curve.
	Aggressive = Policy{MaxAttempts: 10, BaseDelay: 500 * time.Millisecond, MaxDelay: 5 * time.Second, Multiplier: 1.5}
)

// Validate reports whether explicitly set fields are within bounds.
// Zero fields are fine (defaults apply); only out-of-range explicit
// values are rejected.
func (p Policy) Validate() error {
	if p.MaxAttempts < 0 {
		return fmt.Errorf("retry: MaxAttempts must be >= 1, got %d", p.MaxAttempts)
	}
	if p.BaseDelay != 0 && p.BaseDelay < minBaseDelay {
		return fmt.Errorf("retry: BaseDelay must be >= %v, got %v", minBaseDelay, p.BaseDelay)
	}
	if p.MaxDelay != 0 && p.MaxDelay < minMaxDelay {
		return fmt.Errorf("retry: MaxDelay must be >= %v, got %v", minMaxDelay, p.MaxDelay)
	}
	if p.Multiplier != 0 && p.Multiplier < 1 {
		return fmt.Errorf("retry: Multiplier must be >= 1, got %v", p.Multiplier)
	}
	return nil
}

// withDefaults returns a copy with zero fields replaced by defaults.
func (p Policy) withDefaults() Policy {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay == 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay == 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.Multiplier == 0 {
		p.Multiplier = DefaultMultiplier
	}
	return p
}

// merge overlays the non-zero fields of o onto base.
// NoJitter merges as a plain bool: true in the override wins, false inherits.
func merge(base, o Policy) Policy {
	if o.MaxAttempts != 0 {
		base.MaxAttempts = o.MaxAttempts
	}
	if o.BaseDelay != 0 {
		base.BaseDelay = o.BaseDelay
	}
	if o.MaxDelay != 0 {
		base.MaxDelay = o.MaxDelay
	}
	if o.Multiplier != 0 {
		base.Multiplier = o.Multiplier
	}
	if o.NoJitter {
		base.NoJitter = true
	}
	if o.RetryIf != nil {
		base.RetryIf = o.RetryIf
	}
	return base
}

// delay computes the backoff before attempt+1 (attempt is 1-based).
// The exponent is evaluated in float64 so huge attempt counts saturate at
// MaxDelay instead of overflowing. Jitter is a uniform ±10% perturbation;
// the result is clamped to [0, MaxDelay].
//
// Expects a policy that already went through withDefaults.
func (p Policy) delay(attempt int) time.Duration {
	f := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	ceil := float64(p.MaxDelay)
	if f > ceil || math.IsInf(f, 1) || math.IsNaN(f) {
		f = ceil
	}
	if !p.NoJitter {
		// rand's top-level functions are safe for concurrent use.
		f *= 0.9 + 0.2*rand.Float64()
		if f > ceil {
			f = ceil
		}
	}
	if f < 0 {
		f = 0
	}
	return time.Duration(f)
}
