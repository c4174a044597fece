package stream

import (
	"iter"
	"strings"

	"github.com/hiddenpath/relay/core"
)

// Result is the aggregate of one fully drained event sequence.
type Result struct {
	Text         string
	Thinking     string
	ToolCalls    []core.ToolCall
	FinishReason core.FinishReason
	Usage        *core.Usage
}

// Collect drains an event sequence into a Result. It returns the
// StreamError detail or the sequence error as soon as one occurs;
// partial accumulation up to that point is discarded.
func Collect(events iter.Seq2[core.StreamEvent, error]) (*Result, error) {
	var (
		text     strings.Builder
		thinking strings.Builder
		result   Result
	)
	asm := NewAssembler()

	for ev, err := range events {
		if err != nil {
			return nil, err
		}
		switch ev.Type {
		case core.EventContentDelta:
			text.WriteString(ev.Text)
		case core.EventThinkingDelta:
			thinking.WriteString(ev.Text)
		case core.EventToolCallStarted, core.EventToolCallDelta:
			asm.Observe(&ev)
		case core.EventStreamEnd:
			result.FinishReason = ev.FinishReason
			result.Usage = ev.Usage
			if len(ev.ToolCalls) > 0 {
				result.ToolCalls = ev.ToolCalls
			}
		case core.EventStreamError:
			return nil, ev.Err
		}
	}

	if result.ToolCalls == nil {
		result.ToolCalls = asm.Finalize()
	}
	if result.FinishReason == "" {
		result.FinishReason = core.FinishStop
	}
	if len(result.ToolCalls) > 0 && result.FinishReason == core.FinishStop {
		result.FinishReason = core.FinishToolCalls
	}
	result.Text = text.String()
	result.Thinking = thinking.String()
	return &result, nil
}
