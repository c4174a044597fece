package anthropic

import (
	"net/http"

	"github.com/hiddenpath/relay/core"
)

// DefaultBaseURL is the default Anthropic API base URL.
const DefaultBaseURL = "https://api.anthropic.com"

// DefaultAPIVersion is the anthropic-version header value.
const DefaultAPIVersion = "2023-06-01"

// Config holds configuration for the Anthropic driver.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey core.Secret

	// BaseURL is the API base URL. Defaults to https://api.anthropic.com
	BaseURL string

	// APIVersion is the anthropic-version header. Defaults to DefaultAPIVersion.
	APIVersion string

	// Headers contains optional extra headers to include in requests.
	Headers http.Header

	// ClassifyOverrides adjusts error classification.
	ClassifyOverrides *core.ClassifyOptions
}

// Option configures the Anthropic driver.
type Option func(*Config)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithAPIVersion sets the anthropic-version header value.
func WithAPIVersion(version string) Option {
	return func(c *Config) {
		c.APIVersion = version
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
