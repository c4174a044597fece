package resilience

import "time"

// SignalsSnapshot is a read-only aggregation of the three gates' state
// at one instant, with a derived health assessment. Taking a snapshot
// never mutates gate state.
type SignalsSnapshot struct {
	Taken time.Time

	RateLimiter  RateLimiterSignals
	Circuit      CircuitMetrics
	Backpressure BackpressureMetrics

	// Healthy is true when no gate would reject a call outright.
	Healthy bool

	// HealthScore aggregates the gates into [0, 1]: 1 is fully
	// available, 0 is certain rejection.
	HealthScore float64
}

// RateLimiterSignals describes token availability.
type RateLimiterSignals struct {
	Tokens    float64
	MaxTokens float64
}

// snapshot builds a SignalsSnapshot from whichever gates are configured;
// absent gates count as fully healthy.
func snapshot(limiter *RateLimiter, breaker *CircuitBreaker, backpressure *Backpressure) SignalsSnapshot {
	s := SignalsSnapshot{Taken: time.Now(), HealthScore: 1, Healthy: true}

	scores := make([]float64, 0, 3)

	if limiter != nil {
		s.RateLimiter = RateLimiterSignals{
			Tokens:    limiter.Tokens(),
			MaxTokens: limiter.MaxTokens(),
		}
		score := 0.0
		if s.RateLimiter.MaxTokens > 0 {
			score = s.RateLimiter.Tokens / s.RateLimiter.MaxTokens
		}
		if s.RateLimiter.Tokens < 1 {
			s.Healthy = false
		}
		scores = append(scores, score)
	}

	if breaker != nil {
		s.Circuit = breaker.Metrics()
		var score float64
		switch s.Circuit.State {
		case StateClosed:
			score = 1
		case StateHalfOpen:
			score = 0.5
		case StateOpen:
			score = 0
			s.Healthy = false
		}
		scores = append(scores, score)
	}

	if backpressure != nil {
		s.Backpressure = backpressure.Metrics()
		score := 1.0
		if s.Backpressure.MaxConcurrent > 0 {
			free := s.Backpressure.MaxConcurrent - s.Backpressure.Current
			score = float64(free) / float64(s.Backpressure.MaxConcurrent)
			if free <= 0 {
				s.Healthy = false
			}
		}
		scores = append(scores, score)
	}

	if len(scores) > 0 {
		total := 0.0
		for _, sc := range scores {
			total += sc
		}
		s.HealthScore = total / float64(len(scores))
	}
	return s
}
