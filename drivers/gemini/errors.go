package gemini

import (
	"time"

	"github.com/hiddenpath/relay/core"
	"github.com/hiddenpath/relay/drivers/internal/normalize"
)

// normalizeError converts an error-status response body into a classified
// provider error.
func normalizeError(status int, body []byte, requestID string, retryAfter time.Duration, opts *core.ClassifyOptions) error {
	return normalize.GeminiStyleError("gemini", status, body, requestID, retryAfter, opts)
}

// newDecodeError wraps a decode failure.
func newDecodeError(err error) error {
	return normalize.DecodeError("gemini", err)
}
