package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/hiddenpath/relay/core"
)

// JitterStrategy selects how randomness is applied to backoff delays.
type JitterStrategy int

const (
	// JitterFull draws the delay uniformly from [0, delay].
	JitterFull JitterStrategy = iota
	// JitterEqual draws the delay uniformly from [delay/2, delay].
	JitterEqual
	// JitterNone applies the computed delay as-is.
	JitterNone
)

// RetryPolicy decides whether and when a classified failure is retried.
// Retries happen only for retryable kinds; the delay for attempt n is
// clamp(base * multiplier^(n-1), min, max) with jitter, and a
// provider-supplied retry-after hint overrides the computed delay.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial attempt.
	// Default: 3.
	MaxRetries int

	// BaseDelay seeds the exponential backoff. Default: 200ms.
	BaseDelay time.Duration

	// MinDelay floors each computed delay. Default: BaseDelay.
	MinDelay time.Duration

	// MaxDelay caps each computed delay. Default: 30s.
	MaxDelay time.Duration

	// Multiplier grows the delay per attempt. Default: 2.0.
	Multiplier float64

	// Jitter is the randomization strategy. Default: JitterFull.
	Jitter JitterStrategy

	// OnRetry, when set, is called before each backoff wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// NewRetryPolicy applies defaults to a policy.
func NewRetryPolicy(p RetryPolicy) *RetryPolicy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	} else if p.MaxRetries == 0 {
		p.MaxRetries = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 200 * time.Millisecond
	}
	if p.MinDelay <= 0 {
		p.MinDelay = p.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	if p.Multiplier <= 0 {
		p.Multiplier = 2.0
	}
	return &p
}

// ShouldRetry reports whether attempt number attempt (1-based) may be
// followed by another, given the classified error.
func (p *RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if attempt > p.MaxRetries {
		return false
	}
	return core.KindOf(err).Retryable()
}

// Delay computes the wait before retrying after attempt number attempt
// (1-based). A retry-after hint carried by the error overrides the
// backoff computation.
func (p *RetryPolicy) Delay(attempt int, err error) time.Duration {
	if hint := core.RetryAfterHint(err); hint > 0 {
		return hint
	}

	delay := p.backoff(attempt)
	switch p.Jitter {
	case JitterFull:
		delay = time.Duration(rand.Int64N(int64(delay) + 1))
	case JitterEqual:
		half := delay / 2
		delay = half + time.Duration(rand.Int64N(int64(half)+1))
	}
	return delay
}

// backoff is the pre-jitter delay: clamp(base * multiplier^(n-1), min,
// max). Monotonically non-decreasing in the attempt number.
func (p *RetryPolicy) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1)))
	if d < p.MinDelay || d < 0 {
		d = p.MinDelay
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Wait sleeps for the given delay, aborting immediately on cancellation.
func (p *RetryPolicy) Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
