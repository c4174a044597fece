package stream

import (
	"context"
	"iter"
	"sync"

	"github.com/hiddenpath/relay/core"
)

// Pipeline is the sequential composition decode -> transforms in
// registration order -> map. Iteration is lazy and consumer-paced: each
// stage pulls from upstream only when the consumer asks for the next
// event.
//
// The yielded sequence is single-pass and non-restartable. It ends with
// exactly one terminal event (StreamEnd or StreamError), or with a
// non-nil error for decode and transport failures; when the source ends
// without a provider terminal event, the pipeline synthesizes StreamEnd.
type Pipeline struct {
	decoder    Decoder
	transforms []Transform
	mapper     Mapper
	cleanup    func()
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithTransform appends a transform to the chain. Transforms run in
// registration order.
func WithTransform(t Transform) PipelineOption {
	return func(p *Pipeline) {
		p.transforms = append(p.transforms, t)
	}
}

// WithMapper sets the terminal mapping stage. Without one, raw frames
// are wrapped as content-delta events rather than dropped.
func WithMapper(m Mapper) PipelineOption {
	return func(p *Pipeline) {
		p.mapper = m
	}
}

// WithCleanup registers a callback invoked exactly once when iteration
// stops for any reason: normal end, error, cancellation, or the consumer
// abandoning the loop early.
func WithCleanup(fn func()) PipelineOption {
	return func(p *Pipeline) {
		p.cleanup = fn
	}
}

// NewPipeline creates a pipeline over the given decoder.
func NewPipeline(decoder Decoder, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{decoder: decoder}
	for _, opt := range opts {
		opt(p)
	}
	if p.mapper == nil {
		p.mapper = fallbackMapper{}
	}
	return p
}

// Events runs the pipeline over a chunk sequence.
func (p *Pipeline) Events(ctx context.Context, chunks iter.Seq2[[]byte, error]) iter.Seq2[core.StreamEvent, error] {
	var once sync.Once
	finish := func() {
		if p.cleanup != nil {
			once.Do(p.cleanup)
		}
	}

	return func(yield func(core.StreamEvent, error) bool) {
		defer finish()

		frames := Frames(p.decoder, chunks)
		for _, t := range p.transforms {
			frames = t(frames)
		}

		// finishHint remembers a finish reason carried on a non-terminal
		// event, for providers that fold it into the last content chunk.
		var finishHint core.FinishReason

		for frame, err := range frames {
			if ctxErr := ctx.Err(); ctxErr != nil {
				yield(core.StreamEvent{}, ctxErr)
				return
			}
			if err != nil {
				yield(core.StreamEvent{}, err)
				return
			}

			ev, mapErr := p.mapper.MapFrame(frame)
			if mapErr != nil {
				yield(core.StreamEvent{}, mapErr)
				return
			}
			if ev == nil {
				continue
			}
			if !ev.Terminal() && ev.FinishReason != "" {
				finishHint = ev.FinishReason
			}
			if !yield(*ev, nil) {
				return
			}
			if ev.Terminal() {
				return
			}
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			yield(core.StreamEvent{}, ctxErr)
			return
		}

		// Source ended without a provider terminal event.
		if finishHint == "" {
			finishHint = core.FinishStop
		}
		end := core.StreamEnd(finishHint)
		if asm, ok := p.mapper.(interface{ Assembled() []core.ToolCall }); ok {
			end.ToolCalls = asm.Assembled()
		}
		yield(end, nil)
	}
}
