package stream

import (
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/hiddenpath/relay/core"
)

// chunksOf yields each string as one raw chunk.
func chunksOf(chunks ...string) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for _, c := range chunks {
			if !yield([]byte(c), nil) {
				return
			}
		}
	}
}

func collectPayloads(t *testing.T, d Decoder, chunks iter.Seq2[[]byte, error]) []string {
	t.Helper()
	var out []string
	for payload, err := range d.Payloads(chunks) {
		if err != nil {
			t.Fatalf("payload error: %v", err)
		}
		out = append(out, string(payload))
	}
	return out
}

func TestSSEDecoderBasic(t *testing.T) {
	d := NewSSEDecoder("[DONE]")
	payloads := collectPayloads(t, d, chunksOf(
		"data: {\"a\":1}\n\ndata: {\"b\":2}\n\ndata: [DONE]\n\n",
	))

	if len(payloads) != 2 {
		t.Fatalf("payloads = %v", payloads)
	}
	if payloads[0] != `{"a":1}` || payloads[1] != `{"b":2}` {
		t.Errorf("payloads = %v", payloads)
	}
}

func TestSSEDecoderPartialFrames(t *testing.T) {
	// A frame boundary may not align with a network read.
	d := NewSSEDecoder("[DONE]")
	payloads := collectPayloads(t, d, chunksOf(
		"data: {\"tex",
		"t\":\"H\"}\n\nda",
		"ta: {\"text\":\"i\"}\n",
		"\ndata: [DO",
		"NE]\n\n",
	))

	if len(payloads) != 2 {
		t.Fatalf("payloads = %v", payloads)
	}
	if payloads[0] != `{"text":"H"}` {
		t.Errorf("payloads[0] = %q", payloads[0])
	}
}

func TestSSEDecoderSkipsCommentsAndEmptyFrames(t *testing.T) {
	d := NewSSEDecoder("")
	payloads := collectPayloads(t, d, chunksOf(
		": keepalive\n\n\n\nevent: message\ndata: {\"a\":1}\n\n",
	))

	if len(payloads) != 1 || payloads[0] != `{"a":1}` {
		t.Errorf("payloads = %v", payloads)
	}
}

func TestSSEDecoderStopsAtSentinel(t *testing.T) {
	d := NewSSEDecoder("[DONE]")
	payloads := collectPayloads(t, d, chunksOf(
		"data: {\"a\":1}\n\ndata: [DONE]\n\ndata: {\"never\":true}\n\n",
	))

	if len(payloads) != 1 {
		t.Errorf("frames after sentinel should not be yielded: %v", payloads)
	}
}

func TestSSEDecoderTrailingFrameWithoutDelimiter(t *testing.T) {
	d := NewSSEDecoder("")
	payloads := collectPayloads(t, d, chunksOf("data: {\"a\":1}"))

	if len(payloads) != 1 || payloads[0] != `{"a":1}` {
		t.Errorf("payloads = %v", payloads)
	}
}

func TestSSEDecoderMultiLineData(t *testing.T) {
	d := NewSSEDecoder("")
	payloads := collectPayloads(t, d, chunksOf("data: line1\ndata: line2\n\n"))

	if len(payloads) != 1 || payloads[0] != "line1\nline2" {
		t.Errorf("payloads = %v", payloads)
	}
}

func TestSSEDecoderPropagatesSourceError(t *testing.T) {
	src := func(yield func([]byte, error) bool) {
		if !yield([]byte("data: {\"a\":1}\n\n"), nil) {
			return
		}
		yield(nil, errors.New("connection reset"))
	}

	d := NewSSEDecoder("")
	var got []string
	var gotErr error
	for payload, err := range d.Payloads(src) {
		if err != nil {
			gotErr = err
			break
		}
		got = append(got, string(payload))
	}

	if len(got) != 1 {
		t.Errorf("payloads before error = %v", got)
	}
	if gotErr == nil {
		t.Error("source error not propagated")
	}
}

func TestJSONLinesDecoder(t *testing.T) {
	d := &JSONLinesDecoder{}
	payloads := collectPayloads(t, d, chunksOf(
		"{\"a\":1}\n{\"b\"",
		":2}\n\n{\"c\":3}",
	))

	want := []string{`{"a":1}`, `{"b":2}`, `{"c":3}`}
	if len(payloads) != len(want) {
		t.Fatalf("payloads = %v", payloads)
	}
	for i := range want {
		if payloads[i] != want[i] {
			t.Errorf("payloads[%d] = %q, want %q", i, payloads[i], want[i])
		}
	}
}

func TestFramesDecodesJSON(t *testing.T) {
	d := NewSSEDecoder("")
	var frames []Frame
	for frame, err := range Frames(d, chunksOf("data: {\"text\":\"hi\"}\n\n")) {
		if err != nil {
			t.Fatalf("frame error: %v", err)
		}
		frames = append(frames, frame)
	}

	if len(frames) != 1 || frames[0]["text"] != "hi" {
		t.Errorf("frames = %v", frames)
	}
}

func TestFramesMalformedJSONIsDecodeError(t *testing.T) {
	d := NewSSEDecoder("")
	var gotErr error
	for _, err := range Frames(d, chunksOf("data: {broken\n\n")) {
		if err != nil {
			gotErr = err
			break
		}
	}

	if !errors.Is(gotErr, core.ErrDecode) {
		t.Errorf("error = %v, want ErrDecode", gotErr)
	}
}

func TestReaderChunks(t *testing.T) {
	r := strings.NewReader("hello world")
	var got strings.Builder
	for chunk, err := range ReaderChunks(r, 4) {
		if err != nil {
			t.Fatalf("chunk error: %v", err)
		}
		got.Write(chunk)
	}

	if got.String() != "hello world" {
		t.Errorf("reassembled = %q", got.String())
	}
}
