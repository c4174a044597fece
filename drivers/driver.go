// Package drivers defines the protocol driver contract and the API-style
// factory used to select a concrete driver.
//
// A Driver translates between the neutral request/response model in core
// and one provider's wire format. Drivers are stateless and safe for use
// by any number of concurrent callers; they build requests and parse
// responses but never perform network I/O themselves.
package drivers

import (
	"github.com/hiddenpath/relay/core"
)

// APIStyle identifies a provider wire protocol family.
type APIStyle string

const (
	// StyleOpenAI is the OpenAI Chat Completions wire format.
	StyleOpenAI APIStyle = "openai"
	// StyleAnthropic is the Anthropic Messages wire format.
	StyleAnthropic APIStyle = "anthropic"
	// StyleGemini is the Google Gemini generateContent wire format.
	StyleGemini APIStyle = "gemini"
	// StyleCustom marks providers with no dedicated driver. Many
	// third-party providers mirror the OpenAI wire format, so custom
	// styles resolve to the OpenAI-compatible driver.
	StyleCustom APIStyle = "custom"
)

// Driver is the per-provider protocol translation contract.
//
// BuildRequest and the parse methods are pure: the same inputs always
// produce the same outputs, and no state is carried between calls.
type Driver interface {
	// Style returns the wire protocol family this driver speaks.
	Style() APIStyle

	// BuildRequest translates a neutral request into a provider wire
	// request. System-role messages are relocated into the provider's
	// dedicated system slot when the provider does not accept "system" as
	// a conversational role, the neutral role vocabulary is mapped onto
	// the provider's, required-but-omitted fields receive provider
	// defaults, and req.Extra is merged last so caller overrides win.
	BuildRequest(req *core.Request, stream bool) (*core.DriverRequest, error)

	// ParseResponse parses one whole response body into the neutral form:
	// first candidate's text, finish reason normalized through a static
	// lookup table, and aggregate usage.
	ParseResponse(body []byte) (*core.DriverResponse, error)

	// ParseStreamEvent parses one raw streaming chunk into zero or one
	// event. Empty or whitespace chunks yield (nil, nil). Malformed JSON
	// is a decode error, never silently swallowed.
	ParseStreamEvent(chunk []byte) (*core.StreamEvent, error)

	// IsStreamDone reports whether chunk is the provider's explicit
	// end-of-stream sentinel. Providers that signal completion through a
	// typed terminal event or connection close always return false.
	IsStreamDone(chunk []byte) bool

	// Capabilities returns the driver's static capability declaration.
	Capabilities() []core.Capability
}

// ErrorNormalizer is an optional interface for drivers that understand
// their provider's error envelope. Callers should type-assert and fall
// back to generic classification via core.Classify when not implemented.
type ErrorNormalizer interface {
	// NormalizeError converts an error-status response into a classified
	// *core.ProviderError.
	NormalizeError(resp *core.WireResponse, body []byte) error
}
