package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a failure into one of thirteen fixed kinds.
// Every failure entering the resilience engine is classified into exactly
// one kind before any retry, fallback, or circuit decision is made.
type ErrorKind string

const (
	KindInvalidRequest   ErrorKind = "invalid_request"
	KindAuthentication   ErrorKind = "authentication"
	KindPermissionDenied ErrorKind = "permission_denied"
	KindNotFound         ErrorKind = "not_found"
	KindQuotaExhausted   ErrorKind = "quota_exhausted"
	KindRateLimited      ErrorKind = "rate_limited"
	KindRequestTooLarge  ErrorKind = "request_too_large"
	KindTimeout          ErrorKind = "timeout"
	KindConflict         ErrorKind = "conflict"
	KindCancelled        ErrorKind = "cancelled"
	KindServerError      ErrorKind = "server_error"
	KindOverloaded       ErrorKind = "overloaded"
	KindOther            ErrorKind = "other"
)

// kindTraits holds the static per-kind retry/fallback flags.
type kindTraits struct {
	retryable    bool
	fallbackable bool
}

// kindTable is the authoritative, immutable kind lookup table.
var kindTable = map[ErrorKind]kindTraits{
	KindInvalidRequest:   {retryable: false, fallbackable: false},
	KindAuthentication:   {retryable: false, fallbackable: false},
	KindPermissionDenied: {retryable: false, fallbackable: false},
	KindNotFound:         {retryable: false, fallbackable: true},
	KindQuotaExhausted:   {retryable: false, fallbackable: true},
	KindRateLimited:      {retryable: true, fallbackable: true},
	KindRequestTooLarge:  {retryable: false, fallbackable: false},
	KindTimeout:          {retryable: true, fallbackable: true},
	KindConflict:         {retryable: true, fallbackable: false},
	KindCancelled:        {retryable: false, fallbackable: false},
	KindServerError:      {retryable: true, fallbackable: true},
	KindOverloaded:       {retryable: true, fallbackable: true},
	KindOther:            {retryable: false, fallbackable: true},
}

// Retryable reports whether failures of this kind may be retried.
func (k ErrorKind) Retryable() bool {
	return kindTable[k].retryable
}

// Fallbackable reports whether failures of this kind may move on to the
// next fallback target.
func (k ErrorKind) Fallbackable() bool {
	return kindTable[k].fallbackable
}

// Code returns the stable machine-readable code for the kind.
func (k ErrorKind) Code() string {
	if _, ok := kindTable[k]; !ok {
		return string(KindOther)
	}
	return string(k)
}

// Valid reports whether k is one of the thirteen fixed kinds.
func (k ErrorKind) Valid() bool {
	_, ok := kindTable[k]
	return ok
}

// Kinds returns all thirteen kinds. The slice is a copy.
func Kinds() []ErrorKind {
	return []ErrorKind{
		KindInvalidRequest, KindAuthentication, KindPermissionDenied,
		KindNotFound, KindQuotaExhausted, KindRateLimited,
		KindRequestTooLarge, KindTimeout, KindConflict, KindCancelled,
		KindServerError, KindOverloaded, KindOther,
	}
}

// Sentinel errors used across packages.
var (
	// ErrDecode marks a malformed frame or payload. Decode failures are
	// distinct from provider-reported errors and are never retried.
	ErrDecode = errors.New("decode error")

	// ErrNetwork marks a transport-level failure before any provider
	// response was received.
	ErrNetwork = errors.New("network error")

	// ErrStreamTerminated is returned when events are requested after a
	// terminal event was already delivered.
	ErrStreamTerminated = errors.New("stream already terminated")
)

// ProviderError represents an error returned by a provider with full context.
type ProviderError struct {
	Provider  string
	Status    int
	RequestID string
	Kind      ErrorKind
	Message   string

	// RetryAfter is the provider-supplied backoff hint, zero when absent.
	// When present it overrides the computed retry delay.
	RetryAfter time.Duration

	Err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s: %s (status=%d, kind=%s, request_id=%s)",
			e.Provider, e.Message, e.Status, e.Kind.Code(), e.RequestID)
	}
	return fmt.Sprintf("%s: %s (status=%d, kind=%s)",
		e.Provider, e.Message, e.Status, e.Kind.Code())
}

// Unwrap returns the underlying error for error chaining.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// KindOf classifies an arbitrary error into an ErrorKind.
//
// Precedence: explicit *ProviderError kind, then context cancellation and
// deadline sentinels, then transport sentinels. Unknown errors classify as
// KindOther.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var pe *ProviderError
	if errors.As(err, &pe) && pe.Kind.Valid() {
		return pe.Kind
	}

	switch {
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrDecode):
		return KindInvalidRequest
	case errors.Is(err, ErrNetwork):
		return KindServerError
	}

	return KindOther
}

// RetryAfterHint extracts a provider-supplied retry-after hint from err,
// or zero when none is present.
func RetryAfterHint(err error) time.Duration {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.RetryAfter
	}
	return 0
}
