package resilience

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hiddenpath/relay/core"
)

// Sentinel errors for gate rejections. Each is a distinct "did not
// attempt" condition, never confused with a transport failure.
var (
	// ErrCircuitOpen is returned when the circuit breaker rejects a call
	// without attempting it.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrRateLimited is returned when the local token bucket denies
	// admission.
	ErrRateLimited = errors.New("resilience: rate limit exceeded")

	// ErrBackpressureFull is returned when no concurrency permit frees
	// within the configured acquire timeout.
	ErrBackpressureFull = errors.New("resilience: backpressure at capacity")
)

// TargetError pairs a fallback target's name with the error it produced.
type TargetError struct {
	Target string
	Err    error
}

func (e TargetError) Error() string {
	return fmt.Sprintf("%s: %v", e.Target, e.Err)
}

func (e TargetError) Unwrap() error { return e.Err }

// ExecError is the typed final failure surfaced by the executor when all
// retries (and any fallback targets) are exhausted or the error is not
// recoverable.
type ExecError struct {
	// Provider names the executor that produced the failure.
	Provider string

	// Kind is the classification of the underlying error.
	Kind core.ErrorKind

	// Attempts is the number of attempts actually made.
	Attempts int

	// Err is the last underlying error.
	Err error

	// TargetErrors lists per-target failures when a fallback chain ran,
	// ordered by attempt.
	TargetErrors []TargetError
}

func (e *ExecError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s after %d attempt", e.Provider, e.Kind, e.Attempts)
	if e.Attempts != 1 {
		b.WriteByte('s')
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ExecError) Unwrap() error { return e.Err }

// kindOfGate maps the engine's own sentinel rejections onto the error
// taxonomy; anything else defers to the general classifier.
func kindOfGate(err error) core.ErrorKind {
	switch {
	case errors.Is(err, ErrCircuitOpen):
		return core.KindOverloaded
	case errors.Is(err, ErrRateLimited):
		return core.KindRateLimited
	case errors.Is(err, ErrBackpressureFull):
		return core.KindOverloaded
	default:
		return core.KindOf(err)
	}
}
