package core

import (
	"encoding/json"
	"net/http"
)

// Capability represents a feature that a driver may support.
type Capability string

const (
	CapabilityChat          Capability = "chat"
	CapabilityChatStreaming Capability = "chat_streaming"
	CapabilityToolCalling   Capability = "tool_calling"
	CapabilityReasoning     Capability = "reasoning"
	CapabilityVision        Capability = "vision"
	CapabilityJSONMode      Capability = "json_mode"
)

// ModelID is a string identifier for a model.
// Using string avoids coupling to provider-specific enums.
type ModelID string

// Role represents a message participant role in the neutral vocabulary.
// Drivers map these onto each provider's role vocabulary.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool" // For tool result messages
)

// BlockType identifies the kind of content carried by a ContentBlock.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockImage      BlockType = "image"
	BlockAudio      BlockType = "audio"
	BlockToolResult BlockType = "tool_result"
)

// ContentBlock is one typed part of a multimodal message.
// Exactly one payload field is populated, selected by Type.
type ContentBlock struct {
	Type BlockType `json:"type"`

	// Text content (BlockText).
	Text string `json:"text,omitempty"`

	// Image or audio source: an HTTPS URL or a data URL (BlockImage, BlockAudio).
	URL string `json:"url,omitempty"`
	// MIMEType qualifies URL payloads, e.g. "image/png" or "audio/wav".
	MIMEType string `json:"mime_type,omitempty"`

	// Tool result fields (BlockToolResult).
	ToolCallID string `json:"tool_call_id,omitempty"`
	Result     string `json:"result,omitempty"`
	IsError    bool   `json:"is_error,omitempty"`
}

// Message represents a single message in a conversation.
// For simple text messages, use Content. For multimodal messages, use
// Blocks. If Blocks is non-empty, Content is ignored.
//
// Messages are consumed read-only by drivers.
type Message struct {
	Role      Role           `json:"role"`
	Content   string         `json:"content,omitempty"`
	Blocks    []ContentBlock `json:"blocks,omitempty"`
	ToolCalls []ToolCall     `json:"tool_calls,omitempty"` // For assistant messages requesting tools
}

// ToolCall represents a tool invocation requested by the model.
// Arguments MUST be valid JSON bytes and MUST preserve raw JSON (no reformatting).
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`

	// RawArguments preserves the unparsed argument text when the streamed
	// fragments could not be assembled into valid JSON. Empty otherwise.
	RawArguments string `json:"raw_arguments,omitempty"`
}

// Request is the provider-neutral chat request handed to a driver.
type Request struct {
	Model       ModelID   `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float32  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`

	// Extra carries provider-specific body overrides. Drivers merge these
	// into the wire body last, so they win over computed defaults.
	Extra map[string]any `json:"extra,omitempty"`
}

// DriverRequest is one fully built provider wire request.
// It is built once per call attempt and immutable after construction.
type DriverRequest struct {
	URL    string
	Method string
	Header http.Header

	// Body is the provider-shaped request body, marshaled by the transport.
	Body map[string]any

	// Stream reports whether the response should be consumed incrementally.
	Stream bool
}

// FinishReason is the neutral vocabulary for why generation stopped.
// Unmapped provider reasons pass through lower-cased, unchanged.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolCalls     FinishReason = "tool_calls"
	FinishContentFilter FinishReason = "content_filter"
)

// Usage tracks token consumption for a request.
// Missing provider counts default to 0; TotalTokens is computed as
// input+output when the provider does not report it directly.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// DriverResponse is the normalized form of one whole provider response.
// It is created by a driver and never mutated afterwards.
type DriverResponse struct {
	ID           string       `json:"id"`
	Model        ModelID      `json:"model"`
	Output       string       `json:"output"`
	FinishReason FinishReason `json:"finish_reason"`
	Usage        Usage        `json:"usage"`
	ToolCalls    []ToolCall   `json:"tool_calls,omitempty"`

	// Raw preserves the provider payload for debugging.
	Raw json.RawMessage `json:"-"`
}

// HasToolCalls reports whether the response contains any tool calls.
func (r *DriverResponse) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}
