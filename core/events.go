package core

// EventType identifies the variant of a StreamEvent.
type EventType string

const (
	// EventContentDelta carries an incremental chunk of assistant text.
	EventContentDelta EventType = "content_delta"
	// EventThinkingDelta carries an incremental chunk of reasoning text.
	EventThinkingDelta EventType = "thinking_delta"
	// EventToolCallStarted announces a new tool call by id and name.
	EventToolCallStarted EventType = "tool_call_started"
	// EventToolCallDelta carries an argument-text fragment for a tool call.
	EventToolCallDelta EventType = "tool_call_delta"
	// EventStreamEnd terminates a stream normally.
	EventStreamEnd EventType = "stream_end"
	// EventStreamError terminates a stream with a failure.
	EventStreamError EventType = "stream_error"
)

// StreamEvent is one unit of the neutral, typed event sequence exposed to
// callers of a streaming call. It is a closed union: exactly one variant,
// identified by Type, and exactly one terminal variant (EventStreamEnd or
// EventStreamError) ends a stream. No events are valid after a terminal
// event.
type StreamEvent struct {
	Type EventType `json:"type"`

	// Text delta (EventContentDelta, EventThinkingDelta).
	Text string `json:"text,omitempty"`
	// SequenceID orders content deltas and, on tool-call events, carries
	// the provider's stream position for fragment continuation.
	SequenceID int `json:"sequence_id,omitempty"`

	// Tool call fields (EventToolCallStarted, EventToolCallDelta).
	ToolCallID   string `json:"tool_call_id,omitempty"`
	ToolName     string `json:"tool_name,omitempty"`
	ArgsFragment string `json:"args_fragment,omitempty"`

	// FinishReason is set on EventStreamEnd.
	FinishReason FinishReason `json:"finish_reason,omitempty"`

	// Err is set on EventStreamError.
	Err error `json:"-"`

	// Usage is populated on EventStreamEnd when the provider reported
	// streaming usage.
	Usage *Usage `json:"usage,omitempty"`

	// ToolCalls carries the fully assembled tool calls on EventStreamEnd
	// when an assembling mapper produced the stream.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Terminal reports whether the event ends its stream.
func (e StreamEvent) Terminal() bool {
	return e.Type == EventStreamEnd || e.Type == EventStreamError
}

// ContentDelta constructs a content delta event.
func ContentDelta(text string) StreamEvent {
	return StreamEvent{Type: EventContentDelta, Text: text}
}

// ThinkingDelta constructs a reasoning delta event.
func ThinkingDelta(text string) StreamEvent {
	return StreamEvent{Type: EventThinkingDelta, Text: text}
}

// ToolCallStarted constructs a tool-call announcement event.
func ToolCallStarted(id, name string) StreamEvent {
	return StreamEvent{Type: EventToolCallStarted, ToolCallID: id, ToolName: name}
}

// ToolCallDelta constructs a tool-call argument fragment event.
func ToolCallDelta(id, fragment string) StreamEvent {
	return StreamEvent{Type: EventToolCallDelta, ToolCallID: id, ArgsFragment: fragment}
}

// StreamEnd constructs the normal terminal event.
func StreamEnd(reason FinishReason) StreamEvent {
	return StreamEvent{Type: EventStreamEnd, FinishReason: reason}
}

// StreamError constructs the failure terminal event.
func StreamError(err error) StreamEvent {
	return StreamEvent{Type: EventStreamError, Err: err}
}
