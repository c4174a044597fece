package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/hiddenpath/relay/core"
)

// A Decoder turns a sequence of raw byte chunks into a sequence of
// frames. Frame boundaries need not align with chunk boundaries; decoders
// buffer partial frames across reads.
type Decoder interface {
	// Payloads yields one raw frame payload per logical frame, with
	// framing (delimiters, prefixes, sentinels) already stripped. Empty
	// frames are discarded.
	Payloads(chunks iter.Seq2[[]byte, error]) iter.Seq2[[]byte, error]
}

// Frames decodes each payload produced by the decoder as a JSON object.
// A payload that is not valid JSON yields a decode error.
func Frames(d Decoder, chunks iter.Seq2[[]byte, error]) iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		for payload, err := range d.Payloads(chunks) {
			if err != nil {
				yield(nil, err)
				return
			}
			var frame Frame
			if jsonErr := json.Unmarshal(payload, &frame); jsonErr != nil {
				if !yield(nil, fmt.Errorf("decode frame: %w: %w", core.ErrDecode, jsonErr)) {
					return
				}
				continue
			}
			if !yield(frame, nil) {
				return
			}
		}
	}
}

// SSEDecoder decodes delimiter-and-prefix framed streams such as
// Server-Sent Events: frames are separated by Delimiter, payload lines
// carry Prefix, and an optional sentinel payload marks end of stream.
//
// The zero value is not usable; call NewSSEDecoder for defaults.
type SSEDecoder struct {
	// Delimiter separates frames. Defaults to a blank line ("\n\n").
	Delimiter string

	// Prefix marks payload lines within a frame; other lines are
	// ignored. Defaults to "data:".
	Prefix string

	// DoneSentinel, when non-empty, ends the stream as soon as a payload
	// equals it. The sentinel itself is never yielded.
	DoneSentinel string
}

// NewSSEDecoder returns an SSE decoder with standard framing and the
// given end-of-stream sentinel ("" for providers without one).
func NewSSEDecoder(doneSentinel string) *SSEDecoder {
	return &SSEDecoder{
		Delimiter:    "\n\n",
		Prefix:       "data:",
		DoneSentinel: doneSentinel,
	}
}

// Payloads implements Decoder.
func (d *SSEDecoder) Payloads(chunks iter.Seq2[[]byte, error]) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		var buf strings.Builder

		emit := func(raw string) (done, keepGoing bool) {
			payload := d.extract(raw)
			if payload == "" {
				return false, true
			}
			if d.DoneSentinel != "" && payload == d.DoneSentinel {
				return true, false
			}
			return false, yield([]byte(payload), nil)
		}

		for chunk, err := range chunks {
			if err != nil {
				yield(nil, err)
				return
			}
			buf.Write(chunk)

			pending := buf.String()
			for {
				idx := strings.Index(pending, d.Delimiter)
				if idx == -1 {
					break
				}
				raw := pending[:idx]
				pending = pending[idx+len(d.Delimiter):]
				if done, keepGoing := emit(raw); done || !keepGoing {
					return
				}
			}
			buf.Reset()
			buf.WriteString(pending)
		}

		// Trailing partial frame after the source ends.
		if rest := buf.String(); strings.TrimSpace(rest) != "" {
			emit(rest)
		}
	}
}

// extract strips framing from one raw frame: prefixed payload lines are
// concatenated, everything else (comments, event names) is dropped.
func (d *SSEDecoder) extract(raw string) string {
	var parts []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if d.Prefix != "" {
			if !strings.HasPrefix(line, d.Prefix) {
				continue
			}
			line = strings.TrimPrefix(line, d.Prefix)
		}
		parts = append(parts, strings.TrimSpace(line))
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// JSONLinesDecoder decodes one-frame-per-line JSON streams.
type JSONLinesDecoder struct{}

// Payloads implements Decoder.
func (d *JSONLinesDecoder) Payloads(chunks iter.Seq2[[]byte, error]) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		var buf strings.Builder

		for chunk, err := range chunks {
			if err != nil {
				yield(nil, err)
				return
			}
			buf.Write(chunk)

			pending := buf.String()
			for {
				idx := strings.IndexByte(pending, '\n')
				if idx == -1 {
					break
				}
				line := strings.TrimSpace(pending[:idx])
				pending = pending[idx+1:]
				if line == "" {
					continue
				}
				if !yield([]byte(line), nil) {
					return
				}
			}
			buf.Reset()
			buf.WriteString(pending)
		}

		if line := strings.TrimSpace(buf.String()); line != "" {
			yield([]byte(line), nil)
		}
	}
}

// ReaderChunks adapts an io.Reader into the chunk sequence consumed by
// decoders, reading up to size bytes at a time. The reader is not closed.
func ReaderChunks(r io.Reader, size int) iter.Seq2[[]byte, error] {
	if size <= 0 {
		size = 4096
	}
	return func(yield func([]byte, error) bool) {
		buf := make([]byte, size)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				if !yield(chunk, nil) {
					return
				}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("read stream: %w: %w", core.ErrNetwork, err))
				return
			}
		}
	}
}
