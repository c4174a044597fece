package stream

import (
	"encoding/json"
	"fmt"

	"github.com/hiddenpath/relay/core"
	"github.com/hiddenpath/relay/drivers"
)

// A Mapper is the terminal pipeline stage: it converts each surviving
// frame into zero or one neutral event (nil, nil means the frame carried
// nothing of interest).
type Mapper interface {
	MapFrame(frame Frame) (*core.StreamEvent, error)
}

// MapperFunc adapts a function to the Mapper interface.
type MapperFunc func(Frame) (*core.StreamEvent, error)

// MapFrame implements Mapper.
func (f MapperFunc) MapFrame(frame Frame) (*core.StreamEvent, error) {
	return f(frame)
}

// DriverMapper maps frames through a protocol driver's stream-event
// parser and assembles multi-fragment tool calls along the way. On the
// terminal StreamEnd event it attaches the assembled calls.
//
// DriverMapper is scoped to one stream and is not safe for concurrent
// use.
type DriverMapper struct {
	driver drivers.Driver
	asm    *Assembler
}

// NewDriverMapper creates a mapper backed by the given driver.
func NewDriverMapper(d drivers.Driver) *DriverMapper {
	return &DriverMapper{driver: d, asm: NewAssembler()}
}

// MapFrame implements Mapper.
func (m *DriverMapper) MapFrame(frame Frame) (*core.StreamEvent, error) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w: %w", core.ErrDecode, err)
	}

	ev, err := m.driver.ParseStreamEvent(payload)
	if err != nil || ev == nil {
		return nil, err
	}

	m.asm.Observe(ev)
	if ev.Type == core.EventStreamEnd {
		ev.ToolCalls = m.asm.Finalize()
	}
	return ev, nil
}

// Assembled finalizes and returns the tool calls accumulated so far. It
// is used when the stream ends without a provider terminal event.
func (m *DriverMapper) Assembled() []core.ToolCall {
	return m.asm.Finalize()
}

// fallbackMapper wraps raw frames as content-delta events, so that a
// pipeline without a configured mapper never silently drops frames.
type fallbackMapper struct{}

func (fallbackMapper) MapFrame(frame Frame) (*core.StreamEvent, error) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w: %w", core.ErrDecode, err)
	}
	ev := core.ContentDelta(string(payload))
	return &ev, nil
}
