package openai

import (
	"net/http"

	"github.com/hiddenpath/relay/core"
)

// DefaultBaseURL is the default OpenAI API base URL.
const DefaultBaseURL = "https://api.openai.com/v1"

// Config holds configuration for the OpenAI driver.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey core.Secret

	// BaseURL is the API base URL. Defaults to https://api.openai.com/v1
	BaseURL string

	// OrgID is the optional OpenAI organization ID.
	OrgID string

	// ProjectID is the optional OpenAI project ID.
	ProjectID string

	// Headers contains optional extra headers to include in requests.
	Headers http.Header

	// ClassifyOverrides adjusts error classification for OpenAI-compatible
	// providers whose status semantics differ.
	ClassifyOverrides *core.ClassifyOptions
}

// Option configures the OpenAI driver.
type Option func(*Config)

// WithBaseURL sets the API base URL. Use this to point the driver at any
// OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithOrgID sets the OpenAI organization ID header.
func WithOrgID(org string) Option {
	return func(c *Config) {
		c.OrgID = org
	}
}

// WithProjectID sets the OpenAI project ID header.
func WithProjectID(project string) Option {
	return func(c *Config) {
		c.ProjectID = project
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
