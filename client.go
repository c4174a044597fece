package relay

import (
	"context"
	"fmt"
	"io"
	"iter"
	"net/http"

	"github.com/hiddenpath/relay/core"
	"github.com/hiddenpath/relay/drivers"
	"github.com/hiddenpath/relay/resilience"
	"github.com/hiddenpath/relay/stream"
)

// openAIDoneSentinel ends OpenAI-style SSE streams. Anthropic and Gemini
// signal completion through typed terminal events or connection close.
const openAIDoneSentinel = "[DONE]"

// Client executes chat requests against one provider. It is safe for
// concurrent use.
type Client struct {
	driver    drivers.Driver
	transport core.Transport
	executor  *resilience.Executor
}

// Option configures a Client.
type Option func(*Client)

// WithTransport replaces the default net/http transport.
func WithTransport(t core.Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithHTTPClient keeps the default transport but swaps its HTTP client,
// for custom timeouts or proxies.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.transport = &core.HTTPTransport{Client: hc} }
}

// WithExecutor replaces the default executor. Use this to attach rate
// limiting, circuit breaking, backpressure, telemetry, or a custom retry
// policy.
func WithExecutor(e *resilience.Executor) Option {
	return func(c *Client) { c.executor = e }
}

// New creates a client for the given API style. Unknown and custom
// styles resolve to the OpenAI-compatible driver.
func New(style drivers.APIStyle, apiKey string, opts ...Option) (*Client, error) {
	d, err := drivers.ForStyle(style, apiKey)
	if err != nil {
		return nil, err
	}
	return NewFromDriver(d, opts...), nil
}

// NewFromDriver creates a client over an already constructed driver,
// typically one built with provider-specific options (base URL, extra
// headers, classification overrides).
func NewFromDriver(d drivers.Driver, opts ...Option) *Client {
	c := &Client{
		driver:    d,
		transport: &core.HTTPTransport{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.executor == nil {
		c.executor = resilience.NewExecutor(string(d.Style()),
			resilience.WithRetryPolicy(resilience.NewRetryPolicy(resilience.RetryPolicy{})),
		)
	}
	return c
}

// Driver returns the client's protocol driver.
func (c *Client) Driver() drivers.Driver { return c.driver }

// Signals returns a read-only snapshot of the executor's gates.
func (c *Client) Signals() resilience.SignalsSnapshot { return c.executor.Signals() }

// Chat executes one non-streaming request and returns the normalized
// response.
func (c *Client) Chat(ctx context.Context, req *core.Request) (*core.DriverResponse, error) {
	wire, err := c.driver.BuildRequest(req, false)
	if err != nil {
		return nil, err
	}

	return resilience.Execute(ctx, c.executor, func(ctx context.Context) (*core.DriverResponse, error) {
		resp, err := c.transport.RoundTrip(ctx, wire)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("read response: %w: %w", core.ErrNetwork, readErr)
		}
		if resp.Status >= 400 {
			return nil, c.normalizeError(resp, body)
		}
		return c.driver.ParseResponse(body)
	})
}

// Stream executes one streaming request. The returned sequence is lazy
// and single-pass; it ends with exactly one terminal event, and the
// underlying connection is closed exactly once when iteration stops for
// any reason.
//
// Connection establishment runs through the resilience gates; once the
// stream is open, failures surface as events rather than retries.
func (c *Client) Stream(ctx context.Context, req *core.Request) (iter.Seq2[core.StreamEvent, error], error) {
	wire, err := c.driver.BuildRequest(req, true)
	if err != nil {
		return nil, err
	}

	resp, err := resilience.Execute(ctx, c.executor, func(ctx context.Context) (*core.WireResponse, error) {
		resp, rtErr := c.transport.RoundTrip(ctx, wire)
		if rtErr != nil {
			return nil, rtErr
		}
		if resp.Status >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, c.normalizeError(resp, body)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	pipe := stream.NewPipeline(c.decoder(),
		stream.WithMapper(stream.NewDriverMapper(c.driver)),
		stream.WithCleanup(func() { resp.Body.Close() }),
	)
	return pipe.Events(ctx, stream.ReaderChunks(resp.Body, 0)), nil
}

// Collect drains a streaming request into one aggregate result. It is
// the streaming equivalent of Chat for callers that want incremental
// transport but a whole response.
func (c *Client) Collect(ctx context.Context, req *core.Request) (*stream.Result, error) {
	events, err := c.Stream(ctx, req)
	if err != nil {
		return nil, err
	}
	return stream.Collect(events)
}

// decoder returns the stream decoder for the driver's protocol family.
func (c *Client) decoder() stream.Decoder {
	if c.driver.Style() == drivers.StyleOpenAI {
		return stream.NewSSEDecoder(openAIDoneSentinel)
	}
	return stream.NewSSEDecoder("")
}

// normalizeError prefers the driver's own error envelope handling and
// falls back to generic status classification.
func (c *Client) normalizeError(resp *core.WireResponse, body []byte) error {
	if n, ok := c.driver.(drivers.ErrorNormalizer); ok {
		return n.NormalizeError(resp, body)
	}
	return &core.ProviderError{
		Provider:   string(c.driver.Style()),
		Status:     resp.Status,
		Kind:       core.Classify(resp.Status, body, nil),
		Message:    string(body),
		RetryAfter: resp.RetryAfter(),
	}
}
