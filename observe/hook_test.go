package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/hiddenpath/relay/core"
)

func newTestHook(t *testing.T) (*Hook, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	h, err := NewHook(WithTracerProvider(tp), WithMeterProvider(mp))
	if err != nil {
		t.Fatalf("NewHook() = %v", err)
	}
	return h, recorder, reader
}

func attrValue(attrs []attribute.KeyValue, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range attrs {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestHookSuccessfulCallSpan(t *testing.T) {
	h, recorder, _ := newTestHook(t)

	start := time.Now()
	h.OnCallStart(core.CallStartEvent{
		CallID:   "call-1",
		Provider: "openai",
		Model:    "gpt-4o",
		Start:    start,
	})
	h.OnCallEnd(core.CallEndEvent{
		CallID:   "call-1",
		Provider: "openai",
		Start:    start,
		End:      start.Add(120 * time.Millisecond),
		Attempts: 1,
	})

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}

	span := spans[0]
	if span.Name() != "chat openai" {
		t.Errorf("span name = %q", span.Name())
	}
	if span.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", span.Status().Code)
	}
	if got, ok := attrValue(span.Attributes(), "relay.provider"); !ok || got.AsString() != "openai" {
		t.Errorf("relay.provider = %v", got)
	}
	if got, ok := attrValue(span.Attributes(), "relay.model"); !ok || got.AsString() != "gpt-4o" {
		t.Errorf("relay.model = %v", got)
	}
	if got, ok := attrValue(span.Attributes(), "relay.attempts"); !ok || got.AsInt64() != 1 {
		t.Errorf("relay.attempts = %v", got)
	}
}

func TestHookFailedCallSpan(t *testing.T) {
	h, recorder, _ := newTestHook(t)

	start := time.Now()
	h.OnCallStart(core.CallStartEvent{CallID: "call-2", Provider: "anthropic", Start: start})
	h.OnCallEnd(core.CallEndEvent{
		CallID:   "call-2",
		Provider: "anthropic",
		Start:    start,
		End:      start.Add(time.Second),
		Attempts: 3,
		Kind:     core.KindRateLimited,
		Err:      errors.New("429 from upstream"),
	})

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}

	span := spans[0]
	if span.Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", span.Status().Code)
	}
	if span.Status().Description != "rate_limited" {
		t.Errorf("status description = %q", span.Status().Description)
	}
	if len(span.Events()) == 0 {
		t.Error("no span events recorded for the error")
	}
}

func TestHookRecordsMetrics(t *testing.T) {
	h, _, reader := newTestHook(t)

	start := time.Now()
	h.OnCallStart(core.CallStartEvent{CallID: "a", Provider: "openai", Start: start})
	h.OnCallEnd(core.CallEndEvent{
		CallID:   "a",
		Provider: "openai",
		Start:    start,
		End:      start.Add(50 * time.Millisecond),
		Attempts: 1,
		Usage:    core.Usage{InputTokens: 10, OutputTokens: 20},
	})
	h.OnCallStart(core.CallStartEvent{CallID: "b", Provider: "openai", Start: start})
	h.OnCallEnd(core.CallEndEvent{
		CallID:   "b",
		Provider: "openai",
		Start:    start,
		End:      start.Add(time.Second),
		Attempts: 2,
		Kind:     core.KindServerError,
		Err:      errors.New("boom"),
	})

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() = %v", err)
	}

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				sums[m.Name] += dp.Value
			}
		}
	}

	if sums["relay.calls"] != 2 {
		t.Errorf("relay.calls = %d, want 2", sums["relay.calls"])
	}
	if sums["relay.call.failures"] != 1 {
		t.Errorf("relay.call.failures = %d, want 1", sums["relay.call.failures"])
	}
	if sums["relay.tokens"] != 30 {
		t.Errorf("relay.tokens = %d, want 30", sums["relay.tokens"])
	}
}

func TestHookUnmatchedEndStillCounts(t *testing.T) {
	h, recorder, reader := newTestHook(t)

	h.OnCallEnd(core.CallEndEvent{
		CallID:   "never-started",
		Provider: "gemini",
		Start:    time.Now(),
		End:      time.Now(),
		Attempts: 1,
	})

	if got := len(recorder.Ended()); got != 0 {
		t.Errorf("ended spans = %d, want 0 without a matching start", got)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() = %v", err)
	}
	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "relay.calls" {
				found = true
			}
		}
	}
	if !found {
		t.Error("relay.calls not recorded for unmatched end event")
	}
}
