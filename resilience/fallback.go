package resilience

import (
	"context"
	"sort"

	"github.com/hiddenpath/relay/core"
)

// FallbackTarget is one alternative in a fallback chain. Higher weight
// means higher selection priority.
type FallbackTarget[T any] struct {
	Name   string
	Weight int
	Run    func(ctx context.Context) (T, error)
}

// FallbackResult reports which target succeeded, its value, and the
// ordered errors of every target that failed before it.
type FallbackResult[T any] struct {
	// Target is the name of the succeeding target; empty when all
	// targets failed.
	Target string

	// Value is the succeeding target's result.
	Value T

	// Errors lists per-target failures in attempt order.
	Errors []TargetError
}

// FallbackChain tries targets sequentially in descending weight order.
// Targets are never invoked concurrently, so a higher-priority target is
// always tried first and lower-priority targets see no unnecessary load.
type FallbackChain[T any] struct {
	targets    []FallbackTarget[T]
	onFallback func(from, to string, err error)
}

// FallbackOption configures a chain.
type FallbackOption[T any] func(*FallbackChain[T])

// WithFallbackCallback registers a callback invoked with (failed target,
// next target, error) before each fall-forward.
func WithFallbackCallback[T any](fn func(from, to string, err error)) FallbackOption[T] {
	return func(c *FallbackChain[T]) {
		c.onFallback = fn
	}
}

// NewFallbackChain creates a chain over the given targets, sorted stably
// by descending weight.
func NewFallbackChain[T any](targets []FallbackTarget[T], opts ...FallbackOption[T]) *FallbackChain[T] {
	sorted := make([]FallbackTarget[T], len(targets))
	copy(sorted, targets)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Weight > sorted[j].Weight })

	c := &FallbackChain[T]{targets: sorted}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Targets returns the target names in selection order.
func (c *FallbackChain[T]) Targets() []string {
	names := make([]string, len(c.targets))
	for i, t := range c.targets {
		names[i] = t.Name
	}
	return names
}

// Execute tries each target in order. A target failing with a
// fallbackable kind yields to the next target; a non-fallbackable kind
// stops the chain immediately. When every target fails, the result
// carries all errors in attempt order alongside a non-nil error.
func (c *FallbackChain[T]) Execute(ctx context.Context) (*FallbackResult[T], error) {
	result := &FallbackResult[T]{}

	for i, target := range c.targets {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		value, err := target.Run(ctx)
		if err == nil {
			result.Target = target.Name
			result.Value = value
			return result, nil
		}

		result.Errors = append(result.Errors, TargetError{Target: target.Name, Err: err})

		if !core.KindOf(err).Fallbackable() {
			return result, err
		}
		if i+1 < len(c.targets) && c.onFallback != nil {
			c.onFallback(target.Name, c.targets[i+1].Name, err)
		}
	}

	if len(result.Errors) > 0 {
		return result, result.Errors[len(result.Errors)-1].Err
	}
	return result, nil
}
