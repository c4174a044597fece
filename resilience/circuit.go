package resilience

import (
	"sync"
	"time"
)

// CircuitState represents the circuit breaker state.
type CircuitState int

const (
	// StateClosed means calls flow normally.
	StateClosed CircuitState = iota
	// StateOpen means all calls are rejected without an attempt.
	StateOpen
	// StateHalfOpen means a limited number of trial calls are admitted.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures in Closed
	// that opens the circuit. Default: 5.
	FailureThreshold int

	// SuccessThreshold is the number of successful trial calls in
	// HalfOpen that closes the circuit. Default: 1.
	SuccessThreshold int

	// Cooldown is how long an opened circuit rejects calls before
	// admitting trials. Default: 30 seconds.
	Cooldown time.Duration

	// OnStateChange is called with each transition.
	OnStateChange func(from, to CircuitState)
}

// CircuitBreaker is a Closed/Open/HalfOpen failure gate. The Open to
// HalfOpen transition is lazy: it happens on the first admission check
// after the cooldown elapses, not on a timer.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu        sync.Mutex
	state     CircuitState
	failures  int
	successes int
	openUntil time.Time
	probes    int
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 30 * time.Second
	}
	return &CircuitBreaker{config: config, state: StateClosed}
}

// Allow performs an admission check. It returns ErrCircuitOpen when the
// call must be rejected without an attempt; a nil return in HalfOpen
// consumes one trial slot.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentStateLocked() {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.probes >= cb.config.SuccessThreshold {
			return ErrCircuitOpen
		}
		cb.probes++
	}
	return nil
}

// OnSuccess reports a successful attempt.
func (cb *CircuitBreaker) OnSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentStateLocked() {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.transitionLocked(StateClosed)
		}
	}
}

// OnFailure reports a failed attempt.
func (cb *CircuitBreaker) OnFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentStateLocked() {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.openLocked()
		}
	case StateHalfOpen:
		// A single trial failure reopens with a fresh cooldown.
		cb.openLocked()
	}
}

// State returns the current state, applying the lazy Open to HalfOpen
// transition if the cooldown has elapsed.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked()
}

// Reset forces the breaker closed and clears all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transitionLocked(StateClosed)
}

func (cb *CircuitBreaker) currentStateLocked() CircuitState {
	if cb.state == StateOpen && !time.Now().Before(cb.openUntil) {
		cb.transitionLocked(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) openLocked() {
	cb.openUntil = time.Now().Add(cb.config.Cooldown)
	cb.transitionLocked(StateOpen)
}

func (cb *CircuitBreaker) transitionLocked(to CircuitState) {
	from := cb.state
	cb.state = to
	cb.failures = 0
	cb.successes = 0
	cb.probes = 0

	if from != to && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}

// CircuitMetrics contains circuit breaker statistics.
type CircuitMetrics struct {
	State     CircuitState
	Failures  int
	Successes int
	OpenUntil time.Time
}

// Metrics returns the breaker's counters without consuming a trial slot.
func (cb *CircuitBreaker) Metrics() CircuitMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitMetrics{
		State:     cb.currentStateLocked(),
		Failures:  cb.failures,
		Successes: cb.successes,
		OpenUntil: cb.openUntil,
	}
}
