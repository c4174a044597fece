// Package relay is a unified runtime for chat requests against
// heterogeneous AI providers. One neutral request and event model fronts
// OpenAI-, Anthropic-, and Gemini-style wire protocols; streaming is
// consumed as a lazy event sequence; and every call runs through a
// resilience engine (rate limiting, circuit breaking, backpressure,
// retries, fallback).
//
// The subpackages can be used on their own: drivers for protocol
// translation, stream for pipeline composition, resilience for the
// execution gates. This package ties them together behind a Client.
package relay

import (
	// Register the built-in protocol drivers.
	_ "github.com/hiddenpath/relay/drivers/anthropic"
	_ "github.com/hiddenpath/relay/drivers/gemini"
	_ "github.com/hiddenpath/relay/drivers/openai"
)
