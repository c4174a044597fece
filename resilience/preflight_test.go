package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hiddenpath/relay/core"
)

func TestPreflightNoGatesAdmits(t *testing.T) {
	p := NewPreflight()
	if err := p.Check(); err != nil {
		t.Errorf("Check() with no gates = %v, want nil", err)
	}
}

func TestPreflightFailFastGateOrder(t *testing.T) {
	// Both the limiter and the breaker would reject; fail-fast must
	// surface the limiter first.
	rl := NewRateLimiter(RateLimiterConfig{MaxTokens: 1, RefillRate: 0.001})
	rl.Allow()

	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, Cooldown: time.Minute})
	cb.OnFailure()

	p := NewPreflight(
		WithPreflightRateLimiter(rl),
		WithPreflightCircuitBreaker(cb),
		WithPreflightFailFast(),
	)

	err := p.Check()
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("Check() = %v, want ErrRateLimited first", err)
	}
	if errors.Is(err, ErrCircuitOpen) {
		t.Error("fail-fast Check() carried the circuit rejection too")
	}
}

func TestPreflightCollectsAllRejections(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{MaxTokens: 1, RefillRate: 0.001})
	rl.Allow()

	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, Cooldown: time.Minute})
	cb.OnFailure()

	b := NewBackpressure(BackpressureConfig{MaxConcurrent: 1})
	if err := b.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() = %v", err)
	}
	defer b.Release()

	p := NewPreflight(
		WithPreflightRateLimiter(rl),
		WithPreflightCircuitBreaker(cb),
		WithPreflightBackpressure(b),
	)

	err := p.Check()
	if !errors.Is(err, ErrRateLimited) || !errors.Is(err, ErrCircuitOpen) || !errors.Is(err, ErrBackpressureFull) {
		t.Errorf("Check() = %v, want all three rejections joined", err)
	}
}

func TestPreflightBackpressureProbeDoesNotAcquire(t *testing.T) {
	b := NewBackpressure(BackpressureConfig{MaxConcurrent: 2})
	p := NewPreflight(WithPreflightBackpressure(b))

	for i := 0; i < 5; i++ {
		if err := p.Check(); err != nil {
			t.Fatalf("Check() #%d = %v", i, err)
		}
	}
	if cur := b.Metrics().Current; cur != 0 {
		t.Errorf("Current = %d after probes, want 0 permits held", cur)
	}
}

func TestPreflightFeedsBreaker(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, Cooldown: time.Minute})
	p := NewPreflight(WithPreflightCircuitBreaker(cb))

	p.OnFailure(&core.ProviderError{Kind: core.KindServerError})
	p.OnFailure(&core.ProviderError{Kind: core.KindServerError})

	if cb.State() != StateOpen {
		t.Fatalf("State() = %v after reported failures, want open", cb.State())
	}
	if err := p.Check(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Check() = %v, want ErrCircuitOpen", err)
	}
}

func TestPreflightFeedsAdaptiveLimiter(t *testing.T) {
	a := NewAdaptiveRateLimiter(
		RateLimiterConfig{MaxTokens: 10, RefillRate: 100},
		AdaptiveConfig{ShrinkFactor: 0.5, MinRate: 10, RestoreAfter: 2},
	)
	p := NewPreflight(WithPreflightAdaptiveRateLimiter(a))

	// Only provider-reported rate limiting shrinks the refill rate.
	p.OnFailure(&core.ProviderError{Kind: core.KindServerError})
	if got := a.Rate(); got != 100 {
		t.Fatalf("Rate() = %v after server error, want unchanged 100", got)
	}

	p.OnFailure(&core.ProviderError{Kind: core.KindRateLimited})
	if got := a.Rate(); got != 50 {
		t.Fatalf("Rate() = %v after rate-limited failure, want 50", got)
	}

	p.OnSuccess()
	p.OnSuccess()
	if got := a.Rate(); got != 100 {
		t.Errorf("Rate() = %v after success window, want restored 100", got)
	}
}

func TestPreflightSignalsReadOnly(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{MaxTokens: 4, RefillRate: 0.001})
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 5, Cooldown: time.Minute})
	b := NewBackpressure(BackpressureConfig{MaxConcurrent: 2})

	p := NewPreflight(
		WithPreflightRateLimiter(rl),
		WithPreflightCircuitBreaker(cb),
		WithPreflightBackpressure(b),
	)

	s1 := p.Signals()
	s2 := p.Signals()

	if !s1.Healthy {
		t.Error("Healthy = false for idle gates")
	}
	if s1.HealthScore != 1 {
		t.Errorf("HealthScore = %v, want 1 for idle gates", s1.HealthScore)
	}
	if s1.RateLimiter.Tokens != s2.RateLimiter.Tokens {
		t.Errorf("snapshot consumed tokens: %v then %v", s1.RateLimiter.Tokens, s2.RateLimiter.Tokens)
	}
	if s1.RateLimiter.MaxTokens != 4 {
		t.Errorf("MaxTokens = %v, want 4", s1.RateLimiter.MaxTokens)
	}
	if s1.Circuit.State != StateClosed {
		t.Errorf("Circuit.State = %v, want closed", s1.Circuit.State)
	}
}

func TestPreflightSignalsDegraded(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, Cooldown: time.Minute})
	cb.OnFailure()

	p := NewPreflight(WithPreflightCircuitBreaker(cb))

	s := p.Signals()
	if s.Healthy {
		t.Error("Healthy = true with an open circuit")
	}
	if s.HealthScore != 0 {
		t.Errorf("HealthScore = %v, want 0 with only an open circuit", s.HealthScore)
	}
}
