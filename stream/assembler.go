package stream

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/hiddenpath/relay/core"
)

// Assembler accumulates multi-fragment tool calls from a stream of
// events. A started event registers its call under both the tool-call id
// and the stream position, so continuation fragments resolve whichever
// the provider sends: OpenAI starts with an id but continues by index
// alone, Anthropic addresses every fragment by block index. A new
// started event in an already-used position opens a fresh call, so
// providers that never assign ids still assemble correctly.
//
// Assembler is scoped to one stream and is not safe for concurrent use.
type Assembler struct {
	calls []*pendingCall
	open  map[string]int // key -> index of the call receiving fragments
}

type pendingCall struct {
	id   string
	name strings.Builder
	args strings.Builder
}

// NewAssembler creates an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{open: make(map[string]int)}
}

// Observe feeds one event into the assembler. Only tool-call events
// mutate state; everything else is ignored, so callers can feed the whole
// stream unconditionally.
func (a *Assembler) Observe(ev *core.StreamEvent) {
	if ev == nil {
		return
	}
	switch ev.Type {
	case core.EventToolCallStarted:
		call := &pendingCall{id: ev.ToolCallID}
		call.name.WriteString(ev.ToolName)
		call.args.WriteString(ev.ArgsFragment)
		a.calls = append(a.calls, call)
		a.register(ev, len(a.calls)-1)

	case core.EventToolCallDelta:
		idx, ok := a.open[a.key(ev)]
		if !ok {
			// Fragment with no preceding start; open implicitly.
			call := &pendingCall{id: ev.ToolCallID}
			a.calls = append(a.calls, call)
			idx = len(a.calls) - 1
			a.register(ev, idx)
		}
		call := a.calls[idx]
		call.name.WriteString(ev.ToolName)
		call.args.WriteString(ev.ArgsFragment)
	}
}

// register indexes a call under its id and its stream position. The
// positional key always points at the newest call in that slot.
func (a *Assembler) register(ev *core.StreamEvent, idx int) {
	if ev.ToolCallID != "" {
		a.open[ev.ToolCallID] = idx
	}
	a.open[seqKey(ev.SequenceID)] = idx
}

func (a *Assembler) key(ev *core.StreamEvent) string {
	if ev.ToolCallID != "" {
		return ev.ToolCallID
	}
	return seqKey(ev.SequenceID)
}

func seqKey(n int) string {
	return "#" + strconv.Itoa(n)
}

// Pending reports how many calls have accumulated so far.
func (a *Assembler) Pending() int {
	return len(a.calls)
}

// Finalize parses every accumulated argument buffer and returns the
// assembled calls in start order. A buffer that fails to parse is run
// through JSON repair; if repair also fails the call gets an empty
// argument set with the raw buffer preserved for diagnostics. Finalize
// never fails.
func (a *Assembler) Finalize() []core.ToolCall {
	if len(a.calls) == 0 {
		return nil
	}

	out := make([]core.ToolCall, 0, len(a.calls))
	for i, call := range a.calls {
		tc := core.ToolCall{
			ID:   call.id,
			Name: call.name.String(),
		}
		if tc.ID == "" {
			tc.ID = fmt.Sprintf("call_%d", i)
		}
		tc.Arguments, tc.RawArguments = parseArgs(call.args.String())
		out = append(out, tc)
	}
	return out
}

// parseArgs turns an accumulated fragment buffer into argument JSON.
func parseArgs(buf string) (args json.RawMessage, raw string) {
	trimmed := strings.TrimSpace(buf)
	if trimmed == "" {
		return json.RawMessage(`{}`), ""
	}
	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), ""
	}
	if repaired, err := jsonrepair.JSONRepair(trimmed); err == nil && json.Valid([]byte(repaired)) {
		return json.RawMessage(repaired), trimmed
	}
	return json.RawMessage(`{}`), trimmed
}
