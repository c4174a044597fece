package relay

import (
	"context"
	"iter"

	"github.com/hiddenpath/relay/core"
)

// ChatBuilder accumulates a neutral request fluently. It is not safe for
// concurrent use; build one per request.
type ChatBuilder struct {
	client *Client
	req    core.Request
}

// NewChat starts a request builder for the given model.
func (c *Client) NewChat(model core.ModelID) *ChatBuilder {
	return &ChatBuilder{client: c, req: core.Request{Model: model}}
}

// System appends a system message.
func (b *ChatBuilder) System(s string) *ChatBuilder {
	b.req.Messages = append(b.req.Messages, core.Message{Role: core.RoleSystem, Content: s})
	return b
}

// User appends a user message.
func (b *ChatBuilder) User(s string) *ChatBuilder {
	b.req.Messages = append(b.req.Messages, core.Message{Role: core.RoleUser, Content: s})
	return b
}

// Assistant appends an assistant message.
func (b *ChatBuilder) Assistant(s string) *ChatBuilder {
	b.req.Messages = append(b.req.Messages, core.Message{Role: core.RoleAssistant, Content: s})
	return b
}

// Message appends an arbitrary prebuilt message, for multimodal blocks
// and tool results.
func (b *ChatBuilder) Message(m core.Message) *ChatBuilder {
	b.req.Messages = append(b.req.Messages, m)
	return b
}

// Temperature sets the sampling temperature.
func (b *ChatBuilder) Temperature(v float32) *ChatBuilder {
	b.req.Temperature = &v
	return b
}

// MaxTokens caps the response length.
func (b *ChatBuilder) MaxTokens(n int) *ChatBuilder {
	b.req.MaxTokens = &n
	return b
}

// Extra sets a provider-specific body override, merged into the wire
// body last so it wins over computed defaults.
func (b *ChatBuilder) Extra(key string, value any) *ChatBuilder {
	if b.req.Extra == nil {
		b.req.Extra = make(map[string]any)
	}
	b.req.Extra[key] = value
	return b
}

// Request returns the accumulated neutral request.
func (b *ChatBuilder) Request() *core.Request { return &b.req }

// Do executes the request without streaming.
func (b *ChatBuilder) Do(ctx context.Context) (*core.DriverResponse, error) {
	return b.client.Chat(ctx, &b.req)
}

// Stream executes the request and returns the lazy event sequence.
func (b *ChatBuilder) Stream(ctx context.Context) (iter.Seq2[core.StreamEvent, error], error) {
	return b.client.Stream(ctx, &b.req)
}

// Text executes the request over the streaming transport and returns the
// concatenated output text.
func (b *ChatBuilder) Text(ctx context.Context) (string, error) {
	result, err := b.client.Collect(ctx, &b.req)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}
