package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/hiddenpath/relay/core"
)

const instrumentationName = "github.com/hiddenpath/relay/observe"

// Hook implements core.TelemetryHook on top of OpenTelemetry. It is safe
// for concurrent use; in-flight spans are tracked by call ID between
// OnCallStart and OnCallEnd.
type Hook struct {
	tracer trace.Tracer

	calls    metric.Int64Counter
	failures metric.Int64Counter
	duration metric.Float64Histogram
	attempts metric.Int64Histogram
	tokens   metric.Int64Counter

	mu    sync.Mutex
	spans map[string]trace.Span
}

// HookOption configures a Hook.
type HookOption func(*hookConfig)

type hookConfig struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) HookOption {
	return func(c *hookConfig) { c.tracerProvider = tp }
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) HookOption {
	return func(c *hookConfig) { c.meterProvider = mp }
}

// NewHook creates a telemetry hook. Without options it uses the global
// otel providers, which are no-ops until the application installs real
// ones.
func NewHook(opts ...HookOption) (*Hook, error) {
	cfg := &hookConfig{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	meter := cfg.meterProvider.Meter(instrumentationName)

	calls, err := meter.Int64Counter(
		"relay.calls",
		metric.WithDescription("Completed provider calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(
		"relay.call.failures",
		metric.WithDescription("Provider calls that ended in error"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"relay.call.duration_ms",
		metric.WithDescription("End-to-end call duration, including retries"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	attempts, err := meter.Int64Histogram(
		"relay.call.attempts",
		metric.WithDescription("Attempts used per call, including the first"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	tokens, err := meter.Int64Counter(
		"relay.tokens",
		metric.WithDescription("Token consumption by direction"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, err
	}

	return &Hook{
		tracer:   cfg.tracerProvider.Tracer(instrumentationName),
		calls:    calls,
		failures: failures,
		duration: duration,
		attempts: attempts,
		tokens:   tokens,
		spans:    make(map[string]trace.Span),
	}, nil
}

// OnCallStart opens a client span for the call.
func (h *Hook) OnCallStart(e core.CallStartEvent) {
	attrs := []attribute.KeyValue{
		attribute.String("relay.provider", e.Provider),
		attribute.Bool("relay.stream", e.Stream),
	}
	if e.Model != "" {
		attrs = append(attrs, attribute.String("relay.model", string(e.Model)))
	}

	_, span := h.tracer.Start(context.Background(), "chat "+e.Provider,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithTimestamp(e.Start),
		trace.WithAttributes(attrs...),
	)

	h.mu.Lock()
	h.spans[e.CallID] = span
	h.mu.Unlock()
}

// OnCallEnd closes the call's span and records outcome metrics. An end
// event with no matching start is counted but produces no span.
func (h *Hook) OnCallEnd(e core.CallEndEvent) {
	h.mu.Lock()
	span, ok := h.spans[e.CallID]
	delete(h.spans, e.CallID)
	h.mu.Unlock()

	attrs := []attribute.KeyValue{
		attribute.String("relay.provider", e.Provider),
	}
	if e.Err != nil {
		attrs = append(attrs, attribute.String("relay.error.kind", string(e.Kind)))
	}

	if ok {
		span.SetAttributes(attribute.Int("relay.attempts", e.Attempts))
		if e.Err != nil {
			span.SetStatus(codes.Error, string(e.Kind))
			span.RecordError(e.Err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End(trace.WithTimestamp(e.End))
	}

	ctx := context.Background()
	opt := metric.WithAttributes(attrs...)

	h.calls.Add(ctx, 1, opt)
	if e.Err != nil {
		h.failures.Add(ctx, 1, opt)
	}
	h.duration.Record(ctx, float64(e.Duration().Milliseconds()), opt)
	h.attempts.Record(ctx, int64(e.Attempts), opt)

	if e.Usage.InputTokens > 0 {
		h.tokens.Add(ctx, int64(e.Usage.InputTokens), metric.WithAttributes(
			append(attrs, attribute.String("relay.token.direction", "input"))...))
	}
	if e.Usage.OutputTokens > 0 {
		h.tokens.Add(ctx, int64(e.Usage.OutputTokens), metric.WithAttributes(
			append(attrs, attribute.String("relay.token.direction", "output"))...))
	}
}
