package core

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"
)

// WireResponse is the transport-level view of one provider response.
// For streaming calls, Body yields bytes as they arrive and must be closed
// by the consumer.
type WireResponse struct {
	Status int
	Header http.Header
	Body   io.ReadCloser
}

// RetryAfter parses the Retry-After response header, zero when absent or
// unparseable. Only the delta-seconds form is supported.
func (r *WireResponse) RetryAfter() time.Duration {
	v := r.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// Transport issues one provider wire request. The core never implements
// HTTP itself; it requires transport-level timeout and cancellation
// support from implementations.
//
// Implementations must honor ctx cancellation both while connecting and
// while the returned Body is being read.
type Transport interface {
	RoundTrip(ctx context.Context, req *DriverRequest) (*WireResponse, error)
}

// HTTPTransport is the default Transport backed by net/http.
type HTTPTransport struct {
	// Client is the underlying HTTP client. Defaults to http.DefaultClient.
	Client *http.Client
}

// RoundTrip marshals the request body as JSON and performs the call.
// The response body is returned open; the caller owns closing it.
func (t *HTTPTransport) RoundTrip(ctx context.Context, req *DriverRequest) (*WireResponse, error) {
	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, &ProviderError{Kind: KindInvalidRequest, Message: err.Error(), Err: ErrDecode}
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, &ProviderError{Kind: KindInvalidRequest, Message: err.Error(), Err: err}
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ProviderError{Kind: KindServerError, Message: err.Error(), Err: ErrNetwork}
	}

	return &WireResponse{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   resp.Body,
	}, nil
}
