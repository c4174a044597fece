package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hiddenpath/relay/core"
)

// Executor runs one logical call through the configured gates: acquire a
// concurrency permit, pass preflight, attempt, classify failures, retry
// retryable kinds, and report every outcome back into breaker and
// limiter state. The permit is released exactly once on every exit path.
type Executor struct {
	provider string

	limiter      *RateLimiter
	adaptive     *AdaptiveRateLimiter
	breaker      *CircuitBreaker
	backpressure *Backpressure
	retry        *RetryPolicy
	preflight    *Preflight
	telemetry    core.TelemetryHook
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithRateLimiter gates calls on a token bucket.
func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) { e.limiter = rl }
}

// WithAdaptiveRateLimiter gates calls on an adaptive bucket and feeds
// outcomes back into its rate adjustment.
func WithAdaptiveRateLimiter(a *AdaptiveRateLimiter) ExecutorOption {
	return func(e *Executor) {
		e.adaptive = a
		e.limiter = a.RateLimiter
	}
}

// WithCircuitBreaker gates calls on a circuit breaker.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.breaker = cb }
}

// WithBackpressure bounds the executor's concurrency.
func WithBackpressure(b *Backpressure) ExecutorOption {
	return func(e *Executor) { e.backpressure = b }
}

// WithRetryPolicy sets the retry behavior. Without one, failures are
// never retried.
func WithRetryPolicy(p *RetryPolicy) ExecutorOption {
	return func(e *Executor) { e.retry = p }
}

// WithTelemetry installs a hook observing call starts and ends.
func WithTelemetry(hook core.TelemetryHook) ExecutorOption {
	return func(e *Executor) { e.telemetry = hook }
}

// NewExecutor creates an executor for the named provider. All gates are
// optional; an executor with none simply runs the operation.
func NewExecutor(provider string, opts ...ExecutorOption) *Executor {
	e := &Executor{provider: provider}
	for _, opt := range opts {
		opt(e)
	}

	// The permit is acquired directly, so preflight covers only the
	// rate limiter and breaker gates.
	var popts []PreflightOption
	if e.adaptive != nil {
		popts = append(popts, WithPreflightAdaptiveRateLimiter(e.adaptive))
	} else if e.limiter != nil {
		popts = append(popts, WithPreflightRateLimiter(e.limiter))
	}
	if e.breaker != nil {
		popts = append(popts, WithPreflightCircuitBreaker(e.breaker))
	}
	popts = append(popts, WithPreflightFailFast())
	e.preflight = NewPreflight(popts...)

	return e
}

// Provider returns the executor's provider name.
func (e *Executor) Provider() string { return e.provider }

// Signals returns a read-only snapshot of all configured gates.
func (e *Executor) Signals() SignalsSnapshot {
	return snapshot(e.limiter, e.breaker, e.backpressure)
}

// Do runs the operation through the gates, retrying retryable failures
// per the configured policy. The final failure, if any, is an *ExecError
// carrying the classification and the attempt count.
func (e *Executor) Do(ctx context.Context, op func(context.Context) error) error {
	callID := uuid.NewString()
	start := time.Now()
	if e.telemetry != nil {
		e.telemetry.OnCallStart(core.CallStartEvent{
			CallID:   callID,
			Provider: e.provider,
			Start:    start,
		})
	}

	attempts, err := e.run(ctx, op)

	if e.telemetry != nil {
		end := core.CallEndEvent{
			CallID:   callID,
			Provider: e.provider,
			Start:    start,
			End:      time.Now(),
			Attempts: attempts,
			Err:      err,
		}
		if err != nil {
			end.Kind = kindOfGate(err)
		}
		e.telemetry.OnCallEnd(end)
	}

	if err != nil {
		return &ExecError{
			Provider: e.provider,
			Kind:     kindOfGate(err),
			Attempts: attempts,
			Err:      err,
		}
	}
	return nil
}

func (e *Executor) run(ctx context.Context, op func(context.Context) error) (int, error) {
	if e.backpressure != nil {
		if err := e.backpressure.Acquire(ctx); err != nil {
			return 0, err
		}
		// One release per successful acquire, on every exit path.
		defer e.backpressure.Release()
	}

	if err := e.preflight.Check(); err != nil {
		return 0, err
	}

	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			e.preflight.OnSuccess()
			return attempt, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return attempt, ctxErr
		}

		e.preflight.OnFailure(err)

		if e.retry == nil || !e.retry.ShouldRetry(err, attempt) {
			return attempt, err
		}

		delay := e.retry.Delay(attempt, err)
		if e.retry.OnRetry != nil {
			e.retry.OnRetry(attempt, err, delay)
		}
		if waitErr := e.retry.Wait(ctx, delay); waitErr != nil {
			return attempt, waitErr
		}
	}
}

// Execute runs a value-returning operation through the executor.
func Execute[T any](ctx context.Context, e *Executor, op func(context.Context) (T, error)) (T, error) {
	var result T
	err := e.Do(ctx, func(ctx context.Context) error {
		v, opErr := op(ctx)
		if opErr == nil {
			result = v
		}
		return opErr
	})
	return result, err
}

// ExecuteWithFallback runs the primary operation through the executor
// and, when it fails with a fallbackable kind, delegates to the chain.
// The returned ExecError aggregates the primary failure with every
// target's failure, in attempt order.
func ExecuteWithFallback[T any](ctx context.Context, e *Executor, op func(context.Context) (T, error), chain *FallbackChain[T]) (T, error) {
	value, err := Execute(ctx, e, op)
	if err == nil || chain == nil {
		return value, err
	}
	if !kindOfGate(err).Fallbackable() {
		return value, err
	}

	result, chainErr := chain.Execute(ctx)
	if chainErr == nil {
		return result.Value, nil
	}

	var zero T
	execErr := &ExecError{
		Provider:     e.provider,
		Kind:         kindOfGate(chainErr),
		Attempts:     1,
		Err:          chainErr,
		TargetErrors: append([]TargetError{{Target: e.provider, Err: err}}, result.Errors...),
	}
	var primary *ExecError
	if errors.As(err, &primary) {
		execErr.Attempts = primary.Attempts
	}
	return zero, execErr
}
