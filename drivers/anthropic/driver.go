// Package anthropic implements the protocol driver for the Anthropic
// Messages wire format.
package anthropic

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hiddenpath/relay/core"
	"github.com/hiddenpath/relay/drivers"
)

// messagesPath is the API endpoint for the Messages API.
const messagesPath = "/v1/messages"

// Driver translates between the neutral model and the Anthropic wire
// format. Driver is stateless and safe for concurrent use.
type Driver struct {
	config Config
}

// New creates a new Anthropic driver with the given API key and options.
func New(apiKey string, opts ...Option) *Driver {
	cfg := Config{
		APIKey:     core.NewSecret(apiKey),
		BaseURL:    DefaultBaseURL,
		APIVersion: DefaultAPIVersion,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Driver{config: cfg}
}

// Style returns the wire protocol family.
func (d *Driver) Style() drivers.APIStyle {
	return drivers.StyleAnthropic
}

// Capabilities returns the driver's static capability declaration.
func (d *Driver) Capabilities() []core.Capability {
	return []core.Capability{
		core.CapabilityChat,
		core.CapabilityChatStreaming,
		core.CapabilityToolCalling,
		core.CapabilityVision,
		core.CapabilityReasoning,
	}
}

// BuildRequest translates a neutral request into an Anthropic wire request.
func (d *Driver) BuildRequest(req *core.Request, stream bool) (*core.DriverRequest, error) {
	if req.Model == "" {
		return nil, &core.ProviderError{
			Provider: "anthropic",
			Kind:     core.KindInvalidRequest,
			Message:  "model required",
		}
	}

	return &core.DriverRequest{
		URL:    d.config.BaseURL + messagesPath,
		Method: http.MethodPost,
		Header: d.buildHeaders(),
		Body:   buildBody(req, stream),
		Stream: stream,
	}, nil
}

// buildHeaders constructs the HTTP headers for an API request.
func (d *Driver) buildHeaders() http.Header {
	headers := make(http.Header)
	headers.Set("x-api-key", d.config.APIKey.Expose())
	headers.Set("anthropic-version", d.config.APIVersion)
	headers.Set("Content-Type", "application/json")

	for key, values := range d.config.Headers {
		for _, v := range values {
			headers.Add(key, v)
		}
	}
	return headers
}

// ParseResponse parses one whole response body into the neutral form.
// Text is joined across all text content blocks; tool_use blocks become
// tool calls.
func (d *Driver) ParseResponse(body []byte) (*core.DriverResponse, error) {
	var resp anthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, newDecodeError(err)
	}

	result := &core.DriverResponse{
		ID:           resp.ID,
		Model:        core.ModelID(resp.Model),
		FinishReason: mapStopReason(resp.StopReason),
		Usage:        mapUsage(resp.Usage),
		Raw:          json.RawMessage(body),
	}

	var textParts []string
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			textParts = append(textParts, block.Text)
		case "tool_use":
			tc := core.ToolCall{ID: block.ID, Name: block.Name}
			if json.Valid(block.Input) {
				tc.Arguments = block.Input
			} else {
				tc.Arguments = json.RawMessage(`{}`)
				tc.RawArguments = string(block.Input)
			}
			result.ToolCalls = append(result.ToolCalls, tc)
		}
	}
	result.Output = strings.Join(textParts, "")

	return result, nil
}

// ParseStreamEvent parses one typed SSE event into zero or one neutral
// event.
//
// Anthropic signals completion through the message_delta event carrying a
// stop_reason; the trailing message_stop event and ping keepalives yield
// nothing.
func (d *Driver) ParseStreamEvent(chunk []byte) (*core.StreamEvent, error) {
	trimmed := bytes.TrimSpace(chunk)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var event anthropicStreamEvent
	if err := json.Unmarshal(trimmed, &event); err != nil {
		return nil, newDecodeError(err)
	}

	switch event.Type {
	case "content_block_start":
		if event.ContentBlock != nil && event.ContentBlock.Type == "tool_use" {
			ev := core.ToolCallStarted(event.ContentBlock.ID, event.ContentBlock.Name)
			ev.SequenceID = event.Index
			return &ev, nil
		}
		return nil, nil

	case "content_block_delta":
		if event.Delta == nil {
			return nil, nil
		}
		switch event.Delta.Type {
		case "text_delta":
			if event.Delta.Text == "" {
				return nil, nil
			}
			ev := core.ContentDelta(event.Delta.Text)
			ev.SequenceID = event.Index
			return &ev, nil
		case "thinking_delta":
			if event.Delta.Thinking == "" {
				return nil, nil
			}
			ev := core.ThinkingDelta(event.Delta.Thinking)
			return &ev, nil
		case "input_json_delta":
			if event.Delta.PartialJSON == "" {
				return nil, nil
			}
			ev := core.ToolCallDelta("", event.Delta.PartialJSON)
			ev.SequenceID = event.Index
			return &ev, nil
		}
		return nil, nil

	case "message_delta":
		if event.Delta != nil && event.Delta.StopReason != "" {
			ev := core.StreamEnd(mapStopReason(event.Delta.StopReason))
			if event.Usage != nil {
				u := mapUsage(*event.Usage)
				ev.Usage = &u
			}
			return &ev, nil
		}
		return nil, nil

	case "error":
		var pe *core.ProviderError
		if event.Error != nil {
			kind := core.KindServerError
			if event.Error.Type == "overloaded_error" {
				kind = core.KindOverloaded
			}
			pe = &core.ProviderError{
				Provider: "anthropic",
				Kind:     kind,
				Message:  event.Error.Message,
			}
		} else {
			pe = &core.ProviderError{Provider: "anthropic", Kind: core.KindServerError, Message: "stream error"}
		}
		ev := core.StreamError(pe)
		return &ev, nil
	}

	// message_start, content_block_stop, message_stop, ping.
	return nil, nil
}

// IsStreamDone always returns false: Anthropic ends streams with a typed
// message_delta/message_stop event, not a sentinel value.
func (d *Driver) IsStreamDone(chunk []byte) bool {
	return false
}

// NormalizeError converts an error-status response into a classified
// provider error.
func (d *Driver) NormalizeError(resp *core.WireResponse, body []byte) error {
	return normalizeError(resp.Status, body, resp.Header.Get("request-id"), resp.RetryAfter(), d.config.ClassifyOverrides)
}
