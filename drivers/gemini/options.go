package gemini

import (
	"net/http"

	"github.com/hiddenpath/relay/core"
)

// DefaultBaseURL is the default Gemini API base URL.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// Config holds configuration for the Gemini driver.
type Config struct {
	// APIKey is the Google AI API key (required).
	APIKey core.Secret

	// BaseURL is the API base URL. Defaults to
	// https://generativelanguage.googleapis.com
	BaseURL string

	// Headers contains optional extra headers to include in requests.
	Headers http.Header

	// ClassifyOverrides adjusts error classification for Gemini-compatible
	// endpoints whose status semantics differ.
	ClassifyOverrides *core.ClassifyOptions
}

// Option configures the Gemini driver.
type Option func(*Config)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithHeader adds an extra header to include in requests.
func WithHeader(key, value string) Option {
	return func(c *Config) {
		if c.Headers == nil {
			c.Headers = make(http.Header)
		}
		c.Headers.Set(key, value)
	}
}

// WithClassifyOverrides sets per-provider error classification overrides.
func WithClassifyOverrides(opts *core.ClassifyOptions) Option {
	return func(c *Config) {
		c.ClassifyOverrides = opts
	}
}
