package resilience

import (
	"errors"

	"github.com/hiddenpath/relay/core"
)

// Preflight runs the admission gates in a fixed order (rate limiter,
// circuit breaker, backpressure availability) before an attempt is made.
// Any gate may be nil, in which case it always admits.
type Preflight struct {
	limiter      *RateLimiter
	adaptive     *AdaptiveRateLimiter
	breaker      *CircuitBreaker
	backpressure *Backpressure

	// failFast stops at the first gate rejection; otherwise all
	// applicable rejections are collected into one error.
	failFast bool
}

// PreflightOption configures a Preflight.
type PreflightOption func(*Preflight)

// WithPreflightRateLimiter gates on a token bucket.
func WithPreflightRateLimiter(rl *RateLimiter) PreflightOption {
	return func(p *Preflight) { p.limiter = rl }
}

// WithPreflightAdaptiveRateLimiter gates on an adaptive bucket and
// feeds call outcomes back into its rate adjustment.
func WithPreflightAdaptiveRateLimiter(a *AdaptiveRateLimiter) PreflightOption {
	return func(p *Preflight) {
		p.adaptive = a
		p.limiter = a.RateLimiter
	}
}

// WithPreflightCircuitBreaker gates on a circuit breaker.
func WithPreflightCircuitBreaker(cb *CircuitBreaker) PreflightOption {
	return func(p *Preflight) { p.breaker = cb }
}

// WithPreflightBackpressure includes a concurrency controller in checks
// and snapshots. The permit itself is acquired by the caller, not here.
func WithPreflightBackpressure(b *Backpressure) PreflightOption {
	return func(p *Preflight) { p.backpressure = b }
}

// WithPreflightFailFast makes Check short-circuit on the first gate
// rejection instead of collecting all of them.
func WithPreflightFailFast() PreflightOption {
	return func(p *Preflight) { p.failFast = true }
}

// NewPreflight creates a checker over the configured gates.
func NewPreflight(opts ...PreflightOption) *Preflight {
	p := &Preflight{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Check runs the gates in order: rate limiter, circuit breaker,
// backpressure availability. Fail-fast mode returns the first
// rejection; otherwise every rejection is joined into one error.
func (p *Preflight) Check() error {
	var errs []error

	if p.limiter != nil && !p.limiter.Allow() {
		if p.failFast {
			return ErrRateLimited
		}
		errs = append(errs, ErrRateLimited)
	}

	if p.breaker != nil {
		if err := p.breaker.Allow(); err != nil {
			if p.failFast {
				return err
			}
			errs = append(errs, err)
		}
	}

	if p.backpressure != nil {
		m := p.backpressure.Metrics()
		if m.MaxConcurrent > 0 && m.Current >= m.MaxConcurrent {
			if p.failFast {
				return ErrBackpressureFull
			}
			errs = append(errs, ErrBackpressureFull)
		}
	}

	return errors.Join(errs...)
}

// OnSuccess reports a successful attempt back into breaker and limiter
// state.
func (p *Preflight) OnSuccess() {
	if p.breaker != nil {
		p.breaker.OnSuccess()
	}
	if p.adaptive != nil {
		p.adaptive.OnSuccess()
	}
}

// OnFailure reports a failed attempt. Provider-reported rate limiting
// additionally shrinks an adaptive limiter's refill rate.
func (p *Preflight) OnFailure(err error) {
	if p.breaker != nil {
		p.breaker.OnFailure()
	}
	if p.adaptive != nil && kindOfGate(err) == core.KindRateLimited {
		p.adaptive.OnRateLimited()
	}
}

// Signals returns a read-only snapshot of all configured gates without
// mutating any of them.
func (p *Preflight) Signals() SignalsSnapshot {
	return snapshot(p.limiter, p.breaker, p.backpressure)
}
