package core

import "time"

// TelemetryHook receives notifications about call lifecycle events.
// Implementations can use this for logging, metrics, tracing, etc.
//
/// Event types never include sensitive data: API keys, prompt content, and
// response content are all excluded. Only operational metadata is exposed
// (provider, model, timing, token counts, error kinds).
type TelemetryHook interface {
	// OnCallStart is called when a call to a provider begins.
	OnCallStart(e CallStartEvent)

	// OnCallEnd is called when a call to a provider completes, after all
	// retries and fallbacks.
	OnCallEnd(e CallEndEvent)
}

// CallStartEvent contains metadata about a starting call.
type CallStartEvent struct {
	CallID   string    // Unique identifier for this logical call
	Provider string    // Driver identifier (e.g., "openai", "anthropic")
	Model    ModelID   // Model being called
	Stream   bool      // Whether the call is streaming
	Start    time.Time // When the call started
}

// CallEndEvent contains metadata about a completed call.
// The Err field carries typed errors, not raw provider messages.
type CallEndEvent struct {
	CallID   string
	Provider string
	Model    ModelID
	Start    time.Time
	End      time.Time
	Attempts int       // Attempts actually used, including the first
	Usage    Usage     // Token consumption, zeroed when unknown
	Kind     ErrorKind // Classified kind when Err is non-nil
	Err      error     // nil on success
}

// Duration returns the elapsed time for the call.
func (e CallEndEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// NoopTelemetryHook is a no-op implementation of TelemetryHook.
// Use this as a default when no telemetry is configured.
type NoopTelemetryHook struct{}

// OnCallStart does nothing.
func (NoopTelemetryHook) OnCallStart(CallStartEvent) {}

// OnCallEnd does nothing.
func (NoopTelemetryHook) OnCallEnd(CallEndEvent) {}
