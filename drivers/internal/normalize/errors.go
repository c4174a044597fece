// Package normalize provides shared provider error normalization helpers.
package normalize

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/hiddenpath/relay/core"
)

// openAIStyleErrorResponse represents providers that return:
// {"error":{"message":"...","type":"...","code":"..."}}
type openAIStyleErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// anthropicStyleErrorResponse represents the Anthropic envelope:
// {"type":"error","error":{"type":"...","message":"..."}}
type anthropicStyleErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// geminiStyleErrorResponse represents the Google envelope:
// {"error":{"code":429,"message":"...","status":"RESOURCE_EXHAUSTED"}}
type geminiStyleErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// OpenAIStyleError normalizes providers that use OpenAI-style error envelopes.
func OpenAIStyleError(provider string, status int, body []byte, requestID string, retryAfter time.Duration, opts *core.ClassifyOptions) error {
	var errResp openAIStyleErrorResponse
	_ = json.Unmarshal(body, &errResp)

	return providerError(provider, status, body, requestID, errResp.Error.Message, retryAfter, opts)
}

// AnthropicStyleError normalizes Anthropic-style error envelopes.
func AnthropicStyleError(provider string, status int, body []byte, requestID string, retryAfter time.Duration, opts *core.ClassifyOptions) error {
	var errResp anthropicStyleErrorResponse
	_ = json.Unmarshal(body, &errResp)

	return providerError(provider, status, body, requestID, errResp.Error.Message, retryAfter, opts)
}

// GeminiStyleError normalizes Google-style error envelopes.
func GeminiStyleError(provider string, status int, body []byte, requestID string, retryAfter time.Duration, opts *core.ClassifyOptions) error {
	var errResp geminiStyleErrorResponse
	_ = json.Unmarshal(body, &errResp)

	return providerError(provider, status, body, requestID, errResp.Error.Message, retryAfter, opts)
}

// NetworkError wraps transport failures as provider-specific network errors.
func NetworkError(provider string, err error) error {
	return &core.ProviderError{
		Provider: provider,
		Kind:     core.KindServerError,
		Message:  err.Error(),
		Err:      core.ErrNetwork,
	}
}

// DecodeError wraps decode/parsing failures as provider-specific decode errors.
func DecodeError(provider string, err error) error {
	return &core.ProviderError{
		Provider: provider,
		Kind:     core.KindInvalidRequest,
		Message:  err.Error(),
		Err:      core.ErrDecode,
	}
}

func providerError(provider string, status int, body []byte, requestID, message string, retryAfter time.Duration, opts *core.ClassifyOptions) error {
	if message == "" {
		message = http.StatusText(status)
	}
	return &core.ProviderError{
		Provider:   provider,
		Status:     status,
		RequestID:  requestID,
		Kind:       core.Classify(status, body, opts),
		Message:    message,
		RetryAfter: retryAfter,
	}
}
