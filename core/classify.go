package core

import (
	"net/http"
	"strings"
)

// bodyHint maps a lower-cased substring of an error body to a kind.
// Body-derived hints take precedence over the generic status mapping.
type bodyHint struct {
	marker string
	kind   ErrorKind
}

// bodyHints are checked in order; the first match wins.
var bodyHints = []bodyHint{
	{"context length", KindRequestTooLarge},
	{"context_length_exceeded", KindRequestTooLarge},
	{"maximum context", KindRequestTooLarge},
	{"prompt is too long", KindRequestTooLarge},
	{"content_filter", KindInvalidRequest},
	{"overloaded", KindOverloaded},
}

// quotaMarkers disambiguate a 429 into quota exhaustion rather than
// transient rate limiting. These are English-language heuristics and
// inherently provider-dependent; use ClassifyOptions.StatusOverrides to
// pin a provider's 429 semantics when they are known.
var quotaMarkers = []string{
	"insufficient_quota",
	"insufficient quota",
	"quota exceeded",
	"exceeded your current quota",
	"check quota",
	"billing",
}

// ClassifyOptions adjusts classification for one provider.
type ClassifyOptions struct {
	// StatusOverrides maps an exact HTTP status to a kind, bypassing the
	// generic mapping (body hints still win).
	StatusOverrides map[int]ErrorKind
}

// Classify maps a transport status and optional response body to an
// ErrorKind.
//
// Body-derived hints (e.g. a "context length exceeded" marker) take
// precedence over the status mapping, and a 429 is further disambiguated
// into rate_limited vs quota_exhausted using message-content heuristics
// before falling back to the generic mapping.
func Classify(status int, body []byte, opts *ClassifyOptions) ErrorKind {
	lower := strings.ToLower(string(body))

	for _, h := range bodyHints {
		if strings.Contains(lower, h.marker) {
			return h.kind
		}
	}

	if status == http.StatusTooManyRequests {
		for _, m := range quotaMarkers {
			if strings.Contains(lower, m) {
				return KindQuotaExhausted
			}
		}
	}

	if opts != nil {
		if k, ok := opts.StatusOverrides[status]; ok && k.Valid() {
			return k
		}
	}

	return classifyStatus(status)
}

// classifyStatus is the generic status-code mapping.
func classifyStatus(status int) ErrorKind {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindInvalidRequest
	case http.StatusUnauthorized:
		return KindAuthentication
	case http.StatusForbidden:
		return KindPermissionDenied
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusRequestEntityTooLarge:
		return KindRequestTooLarge
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return KindTimeout
	case http.StatusConflict:
		return KindConflict
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusServiceUnavailable:
		return KindOverloaded
	}

	if status >= 500 {
		return KindServerError
	}
	if status >= 400 {
		return KindInvalidRequest
	}
	return KindOther
}
