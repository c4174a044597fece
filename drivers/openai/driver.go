// Package openai implements the protocol driver for the OpenAI Chat
// Completions wire format. The driver also serves as the fallback for
// OpenAI-compatible providers selected through drivers.ForStyle.
package openai

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/hiddenpath/relay/core"
	"github.com/hiddenpath/relay/drivers"
)

// chatCompletionsPath is the API endpoint for chat completions.
const chatCompletionsPath = "/chat/completions"

// doneSentinel is the explicit end-of-stream marker.
const doneSentinel = "[DONE]"

// Driver translates between the neutral model and the OpenAI wire format.
// Driver is stateless and safe for concurrent use.
type Driver struct {
	config Config
}

// New creates a new OpenAI driver with the given API key and options.
func New(apiKey string, opts ...Option) *Driver {
	cfg := Config{
		APIKey:  core.NewSecret(apiKey),
		BaseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Driver{config: cfg}
}

// Style returns the wire protocol family.
func (d *Driver) Style() drivers.APIStyle {
	return drivers.StyleOpenAI
}

// Capabilities returns the driver's static capability declaration.
func (d *Driver) Capabilities() []core.Capability {
	return []core.Capability{
		core.CapabilityChat,
		core.CapabilityChatStreaming,
		core.CapabilityToolCalling,
		core.CapabilityVision,
		core.CapabilityJSONMode,
	}
}

// BuildRequest translates a neutral request into an OpenAI wire request.
func (d *Driver) BuildRequest(req *core.Request, stream bool) (*core.DriverRequest, error) {
	if req.Model == "" {
		return nil, &core.ProviderError{
			Provider: "openai",
			Kind:     core.KindInvalidRequest,
			Message:  "model required",
		}
	}

	return &core.DriverRequest{
		URL:    d.config.BaseURL + chatCompletionsPath,
		Method: http.MethodPost,
		Header: d.buildHeaders(),
		Body:   buildBody(req, stream),
		Stream: stream,
	}, nil
}

// buildHeaders constructs the HTTP headers for an API request.
func (d *Driver) buildHeaders() http.Header {
	headers := make(http.Header)
	headers.Set("Authorization", "Bearer "+d.config.APIKey.Expose())
	headers.Set("Content-Type", "application/json")

	if d.config.OrgID != "" {
		headers.Set("OpenAI-Organization", d.config.OrgID)
	}
	if d.config.ProjectID != "" {
		headers.Set("OpenAI-Project", d.config.ProjectID)
	}
	for key, values := range d.config.Headers {
		for _, v := range values {
			headers.Add(key, v)
		}
	}
	return headers
}

// ParseResponse parses one whole response body into the neutral form.
func (d *Driver) ParseResponse(body []byte) (*core.DriverResponse, error) {
	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, newDecodeError(err)
	}

	result := &core.DriverResponse{
		ID:    resp.ID,
		Model: core.ModelID(resp.Model),
		Usage: mapUsage(resp.Usage),
		Raw:   json.RawMessage(body),
	}

	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		result.Output = choice.Message.Content
		result.FinishReason = mapFinishReason(choice.FinishReason)

		for _, call := range choice.Message.ToolCalls {
			tc := core.ToolCall{ID: call.ID, Name: call.Function.Name}
			if json.Valid([]byte(call.Function.Arguments)) {
				tc.Arguments = json.RawMessage(call.Function.Arguments)
			} else {
				tc.Arguments = json.RawMessage(`{}`)
				tc.RawArguments = call.Function.Arguments
			}
			result.ToolCalls = append(result.ToolCalls, tc)
		}
	}

	return result, nil
}

// ParseStreamEvent parses one SSE data payload into zero or one event.
func (d *Driver) ParseStreamEvent(chunk []byte) (*core.StreamEvent, error) {
	trimmed := bytes.TrimSpace(chunk)
	if len(trimmed) == 0 || string(trimmed) == doneSentinel {
		return nil, nil
	}

	var sc openAIStreamChunk
	if err := json.Unmarshal(trimmed, &sc); err != nil {
		return nil, newDecodeError(err)
	}

	if sc.Error != nil {
		ev := core.StreamError(&core.ProviderError{
			Provider: "openai",
			Kind:     core.KindServerError,
			Message:  sc.Error.Message,
		})
		return &ev, nil
	}

	if len(sc.Choices) == 0 {
		// Usage-only chunks carry no choice; nothing to emit.
		return nil, nil
	}

	choice := sc.Choices[0]

	if choice.FinishReason != "" {
		ev := core.StreamEnd(mapFinishReason(choice.FinishReason))
		if sc.Usage != nil {
			u := mapUsage(*sc.Usage)
			ev.Usage = &u
		}
		return &ev, nil
	}

	if len(choice.Delta.ToolCalls) > 0 {
		call := choice.Delta.ToolCalls[0]
		if call.ID != "" || call.Function.Name != "" {
			ev := core.ToolCallStarted(call.ID, call.Function.Name)
			ev.ArgsFragment = call.Function.Arguments
			ev.SequenceID = call.Index
			return &ev, nil
		}
		ev := core.ToolCallDelta(call.ID, call.Function.Arguments)
		ev.SequenceID = call.Index
		return &ev, nil
	}

	if choice.Delta.ReasoningContent != "" {
		ev := core.ThinkingDelta(choice.Delta.ReasoningContent)
		return &ev, nil
	}

	if choice.Delta.Content != "" {
		ev := core.ContentDelta(choice.Delta.Content)
		ev.SequenceID = choice.Index
		return &ev, nil
	}

	// Role-only preamble chunks carry no content.
	return nil, nil
}

// IsStreamDone reports whether chunk is the "[DONE]" sentinel.
func (d *Driver) IsStreamDone(chunk []byte) bool {
	return string(bytes.TrimSpace(chunk)) == doneSentinel
}

// NormalizeError converts an error-status response into a classified
// provider error.
func (d *Driver) NormalizeError(resp *core.WireResponse, body []byte) error {
	return normalizeError(resp.Status, body, resp.Header.Get("x-request-id"), resp.RetryAfter(), d.config.ClassifyOverrides)
}
