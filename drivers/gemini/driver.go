// Package gemini implements the protocol driver for the Google Gemini
// generateContent wire format.
package gemini

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hiddenpath/relay/core"
	"github.com/hiddenpath/relay/drivers"
)

// Driver translates between the neutral model and the Gemini wire format.
// Driver is stateless and safe for concurrent use.
type Driver struct {
	config Config
}

// New creates a new Gemini driver with the given API key and options.
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
	return drivers.StyleGemini
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

// BuildRequest translates a neutral request into a Gemini wire request.
// The model travels in the URL path, not the body.
func (d *Driver) BuildRequest(req *core.Request, stream bool) (*core.DriverRequest, error) {
	if req.Model == "" {
		return nil, &core.ProviderError{
			Provider: "gemini",
			Kind:     core.KindInvalidRequest,
			Message:  "model required",
		}
	}

	method := "generateContent"
	query := ""
	if stream {
		method = "streamGenerateContent"
		query = "?alt=sse"
	}

	return &core.DriverRequest{
		URL:    fmt.Sprintf("%s/v1beta/models/%s:%s%s", d.config.BaseURL, req.Model, method, query),
		Method: http.MethodPost,
		Header: d.buildHeaders(),
		Body:   buildBody(req),
		Stream: stream,
	}, nil
}

// buildHeaders constructs the HTTP headers for an API request.
func (d *Driver) buildHeaders() http.Header {
	headers := make(http.Header)
	headers.Set("x-goog-api-key", d.config.APIKey.Expose())
	headers.Set("Content-Type", "application/json")

	for key, values := range d.config.Headers {
		for _, v := range values {
			headers.Add(key, v)
		}
	}
	return headers
}

// ParseResponse parses one whole response body into the neutral form.
// Only the first candidate is consulted.
func (d *Driver) ParseResponse(body []byte) (*core.DriverResponse, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, newDecodeError(err)
	}

	result := &core.DriverResponse{
		ID:    resp.ResponseID,
		Model: core.ModelID(resp.ModelVersion),
		Usage: mapUsage(resp.UsageMetadata),
		Raw:   json.RawMessage(body),
	}

	if len(resp.Candidates) == 0 {
		return result, nil
	}

	candidate := resp.Candidates[0]
	result.Output, result.ToolCalls = mapCandidate(candidate)
	result.FinishReason = mapFinishReason(candidate.FinishReason)
	if len(result.ToolCalls) > 0 && result.FinishReason == core.FinishStop {
		result.FinishReason = core.FinishToolCalls
	}

	return result, nil
}

// ParseStreamEvent parses one SSE chunk into zero or one neutral event.
//
// Gemini stream chunks reuse the response shape. A chunk carrying text
// yields a content delta even when it also carries the finish reason; the
// finish reason rides along on the event, and a chunk with a finish
// reason but no content yields the terminal event. Function calls arrive
// whole in a single chunk.
func (d *Driver) ParseStreamEvent(chunk []byte) (*core.StreamEvent, error) {
	trimmed := bytes.TrimSpace(chunk)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var event geminiResponse
	if err := json.Unmarshal(trimmed, &event); err != nil {
		return nil, newDecodeError(err)
	}

	if event.Error != nil {
		ev := core.StreamError(&core.ProviderError{
			Provider: "gemini",
			Status:   event.Error.Code,
			Kind:     core.Classify(event.Error.Code, trimmed, d.config.ClassifyOverrides),
			Message:  event.Error.Message,
		})
		return &ev, nil
	}

	if len(event.Candidates) == 0 {
		// Usage-only keepalive chunk.
		return nil, nil
	}

	candidate := event.Candidates[0]
	for i, part := range candidate.Content.Parts {
		if part.FunctionCall != nil {
			ev := core.ToolCallStarted("", part.FunctionCall.Name)
			ev.ArgsFragment = string(part.FunctionCall.Args)
			ev.SequenceID = i
			return &ev, nil
		}
		if part.Text == "" {
			continue
		}
		if part.Thought != nil && *part.Thought {
			ev := core.ThinkingDelta(part.Text)
			return &ev, nil
		}
		ev := core.ContentDelta(part.Text)
		if candidate.FinishReason != "" {
			ev.FinishReason = mapFinishReason(candidate.FinishReason)
		}
		return &ev, nil
	}

	if candidate.FinishReason != "" {
		ev := core.StreamEnd(mapFinishReason(candidate.FinishReason))
		if event.UsageMetadata != nil {
			u := mapUsage(event.UsageMetadata)
			ev.Usage = &u
		}
		return &ev, nil
	}

	return nil, nil
}

// IsStreamDone always returns false: Gemini streams end with the final
// finishReason chunk and connection close, not a sentinel value.
func (d *Driver) IsStreamDone(chunk []byte) bool {
	return false
}

// NormalizeError converts an error-status response into a classified
// provider error.
func (d *Driver) NormalizeError(resp *core.WireResponse, body []byte) error {
	return normalizeError(resp.Status, body, resp.Header.Get("x-goog-request-id"), resp.RetryAfter(), d.config.ClassifyOverrides)
}
