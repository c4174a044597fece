package stream

import (
	"iter"
	"strings"
	"sync"
)

// A Transform receives the upstream lazy frame sequence and yields its
// own. Transforms are composable and unaware of their position in the
// chain; each must preserve upstream ordering and propagate errors
// unchanged.
type Transform func(iter.Seq2[Frame, error]) iter.Seq2[Frame, error]

// PathFilter drops frames failing a boolean predicate over a
// dotted/bracketed path. Two expression forms are supported:
//
//	exists($.choices)  - keep frames where the path resolves
//	$.choices          - keep frames where the path resolves to a
//	                     non-empty value
//
// Error values pass through unfiltered.
func PathFilter(expr string) Transform {
	expr = strings.TrimSpace(expr)

	var keep func(Frame) bool
	if inner, ok := strings.CutPrefix(expr, "exists("); ok {
		path := strings.TrimSuffix(inner, ")")
		keep = func(f Frame) bool {
			_, found := Lookup(f, path)
			return found
		}
	} else {
		keep = func(f Frame) bool {
			v, found := Lookup(f, expr)
			return found && truthy(v)
		}
	}

	return func(upstream iter.Seq2[Frame, error]) iter.Seq2[Frame, error] {
		return func(yield func(Frame, error) bool) {
			for frame, err := range upstream {
				if err != nil {
					if !yield(nil, err) {
						return
					}
					continue
				}
				if !keep(frame) {
					continue
				}
				if !yield(frame, nil) {
					return
				}
			}
		}
	}
}

// FanOut expands one frame containing an array at arrayPath into one
// frame per element. With preserveMetadata, each expanded frame also
// carries the parent's top-level fields other than the array itself.
// Frames without an array at the path pass through unchanged.
func FanOut(arrayPath string, preserveMetadata bool) Transform {
	rootKey := fanOutRootKey(arrayPath)

	return func(upstream iter.Seq2[Frame, error]) iter.Seq2[Frame, error] {
		return func(yield func(Frame, error) bool) {
			for frame, err := range upstream {
				if err != nil {
					if !yield(nil, err) {
						return
					}
					continue
				}

				v, found := Lookup(frame, arrayPath)
				arr, isArray := v.([]any)
				if !found || !isArray {
					if !yield(frame, nil) {
						return
					}
					continue
				}

				for i, elem := range arr {
					out := make(Frame)
					if preserveMetadata {
						for k, pv := range frame {
							if k == rootKey {
								continue
							}
							out[k] = pv
						}
					}
					switch e := elem.(type) {
					case map[string]any:
						for k, ev := range e {
							out[k] = ev
						}
					default:
						out["value"] = elem
						out["index"] = i
					}
					if !yield(out, nil) {
						return
					}
				}
			}
		}
	}
}

// fanOutRootKey returns the top-level field holding the fanned-out array,
// so preserveMetadata can exclude it from the merged parent fields.
func fanOutRootKey(path string) string {
	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, ".")
	if idx := strings.IndexAny(path, ".["); idx != -1 {
		return path[:idx]
	}
	return path
}

// Replicate duplicates every frame n times. With a non-empty tagKey, each
// copy carries its replica index under that key.
func Replicate(n int, tagKey string) Transform {
	return func(upstream iter.Seq2[Frame, error]) iter.Seq2[Frame, error] {
		return func(yield func(Frame, error) bool) {
			for frame, err := range upstream {
				if err != nil {
					if !yield(nil, err) {
						return
					}
					continue
				}
				for i := 0; i < n; i++ {
					out := make(Frame, len(frame)+1)
					for k, v := range frame {
						out[k] = v
					}
					if tagKey != "" {
						out[tagKey] = i
					}
					if !yield(out, nil) {
						return
					}
				}
			}
		}
	}
}

// Aside holds the frames a Split transform buffered out of the main
// sequence, for inspection after (or during) iteration.
type Aside struct {
	mu     sync.Mutex
	frames []Frame
}

// Frames returns a snapshot of the buffered frames in arrival order.
func (a *Aside) Frames() []Frame {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Frame, len(a.frames))
	copy(out, a.frames)
	return out
}

// Len returns the number of buffered frames.
func (a *Aside) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.frames)
}

func (a *Aside) add(f Frame) {
	a.mu.Lock()
	a.frames = append(a.frames, f)
	a.mu.Unlock()
}

// Split partitions frames by predicate: frames where pass returns true
// flow through, the rest are buffered into the returned Aside.
func Split(pass func(Frame) bool) (Transform, *Aside) {
	aside := &Aside{}

	transform := func(upstream iter.Seq2[Frame, error]) iter.Seq2[Frame, error] {
		return func(yield func(Frame, error) bool) {
			for frame, err := range upstream {
				if err != nil {
					if !yield(nil, err) {
						return
					}
					continue
				}
				if !pass(frame) {
					aside.add(frame)
					continue
				}
				if !yield(frame, nil) {
					return
				}
			}
		}
	}
	return transform, aside
}
