package resilience

import (
	"sync"
	"time"
)

// RateLimiterConfig configures the token bucket.
type RateLimiterConfig struct {
	// MaxTokens is the bucket capacity. Default: 10.
	MaxTokens float64

	// RefillRate is the continuous refill in tokens per second.
	// Default: 10.
	RefillRate float64
}

// RateLimiter is a token bucket with lazy refill: tokens are replenished
// at admission-check time from the elapsed wall clock, never by a
// background timer.
type RateLimiter struct {
	config RateLimiterConfig

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time

	// effectiveRate, when positive, overrides the configured refill
	// rate. Set only by the adaptive variant.
	effectiveRate float64
}

// NewRateLimiter creates a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.MaxTokens <= 0 {
		config.MaxTokens = 10
	}
	if config.RefillRate <= 0 {
		config.RefillRate = 10
	}
	return &RateLimiter{
		config:     config,
		tokens:     config.MaxTokens,
		lastRefill: time.Now(),
	}
}

// Allow checks admission for cost 1.
func (rl *RateLimiter) Allow() bool {
	return rl.AllowN(1)
}

// AllowN refills from the elapsed time, then admits if at least cost
// tokens are available, subtracting them.
func (rl *RateLimiter) AllowN(cost float64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked(time.Now())
	if rl.tokens >= cost {
		rl.tokens -= cost
		return true
	}
	return false
}

func (rl *RateLimiter) refillLocked(now time.Time) {
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.lastRefill = now

	rl.tokens += elapsed * rl.currentRateLocked()
	if rl.tokens > rl.config.MaxTokens {
		rl.tokens = rl.config.MaxTokens
	}
}

// currentRateLocked exists so the adaptive variant can shrink the
// effective rate without copying the refill arithmetic.
func (rl *RateLimiter) currentRateLocked() float64 {
	if rl.effectiveRate > 0 {
		return rl.effectiveRate
	}
	return rl.config.RefillRate
}

// Tokens returns the token count as of now without consuming anything.
// Read-only probe for snapshots.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	elapsed := time.Since(rl.lastRefill).Seconds()
	tokens := rl.tokens + elapsed*rl.currentRateLocked()
	if tokens > rl.config.MaxTokens {
		tokens = rl.config.MaxTokens
	}
	return tokens
}

// MaxTokens returns the bucket capacity.
func (rl *RateLimiter) MaxTokens() float64 {
	return rl.config.MaxTokens
}

// Reset refills the bucket to capacity.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.tokens = rl.config.MaxTokens
	rl.lastRefill = time.Now()
}

// AdaptiveConfig tunes how an AdaptiveRateLimiter reacts to
// provider-reported rate limiting.
type AdaptiveConfig struct {
	// ShrinkFactor multiplies the refill rate on each reported rate
	// limit. Default: 0.5.
	ShrinkFactor float64

	// MinRate floors the shrunken refill rate. Default: 1/10 of the
	// configured rate.
	MinRate float64

	// RestoreAfter is the number of consecutive reported successes that
	// restores the configured rate. Default: 10.
	RestoreAfter int
}

// AdaptiveRateLimiter is a token bucket whose refill rate shrinks on
// provider-reported rate-limit errors and restores after a sustained
// success window.
type AdaptiveRateLimiter struct {
	*RateLimiter
	adaptive AdaptiveConfig

	amu       sync.Mutex
	rate      float64
	successes int
}

// NewAdaptiveRateLimiter creates an adaptive bucket around the base
// configuration.
func NewAdaptiveRateLimiter(config RateLimiterConfig, adaptive AdaptiveConfig) *AdaptiveRateLimiter {
	base := NewRateLimiter(config)
	if adaptive.ShrinkFactor <= 0 || adaptive.ShrinkFactor >= 1 {
		adaptive.ShrinkFactor = 0.5
	}
	if adaptive.MinRate <= 0 {
		adaptive.MinRate = base.config.RefillRate / 10
	}
	if adaptive.RestoreAfter <= 0 {
		adaptive.RestoreAfter = 10
	}

	a := &AdaptiveRateLimiter{
		RateLimiter: base,
		adaptive:    adaptive,
		rate:        base.config.RefillRate,
	}
	return a
}

// OnRateLimited reports a provider-side rate-limit error, shrinking the
// effective refill rate.
func (a *AdaptiveRateLimiter) OnRateLimited() {
	a.amu.Lock()
	defer a.amu.Unlock()

	a.successes = 0
	a.setRate(a.rate * a.adaptive.ShrinkFactor)
}

// OnSuccess reports one successful call. A sustained window of successes
// restores the configured rate.
func (a *AdaptiveRateLimiter) OnSuccess() {
	a.amu.Lock()
	defer a.amu.Unlock()

	if a.rate >= a.config.RefillRate {
		return
	}
	a.successes++
	if a.successes >= a.adaptive.RestoreAfter {
		a.successes = 0
		a.setRate(a.config.RefillRate)
	}
}

// Rate returns the effective refill rate.
func (a *AdaptiveRateLimiter) Rate() float64 {
	a.amu.Lock()
	defer a.amu.Unlock()
	return a.rate
}

func (a *AdaptiveRateLimiter) setRate(rate float64) {
	if rate < a.adaptive.MinRate {
		rate = a.adaptive.MinRate
	}
	if rate > a.config.RefillRate {
		rate = a.config.RefillRate
	}
	a.rate = rate

	// Settle accrued tokens at the old rate before the new one applies.
	a.mu.Lock()
	a.refillLocked(time.Now())
	a.effectiveRate = rate
	a.mu.Unlock()
}
