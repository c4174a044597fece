package stream

import "strings"

// Frame is one decoded structured unit from a raw streaming byte
// sequence, prior to event mapping. Frames are ephemeral: consumed by the
// next pipeline stage and discarded.
type Frame map[string]any

// Lookup resolves a dotted/bracketed path such as
// "choices[0].delta.content" against a frame. A leading "$" or "$." is
// accepted and ignored. The second return reports whether the full path
// resolved.
func Lookup(frame Frame, path string) (any, bool) {
	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return map[string]any(frame), frame != nil
	}

	var current any = map[string]any(frame)
	for _, seg := range strings.Split(path, ".") {
		name, indexes, ok := parseSegment(seg)
		if !ok {
			return nil, false
		}

		if name != "" {
			m, ok := current.(map[string]any)
			if !ok {
				return nil, false
			}
			current, ok = m[name]
			if !ok {
				return nil, false
			}
		}

		for _, idx := range indexes {
			arr, ok := current.([]any)
			if !ok || idx < 0 || idx >= len(arr) {
				return nil, false
			}
			current = arr[idx]
		}
	}
	return current, true
}

// parseSegment splits one path segment into a field name and trailing
// bracket indexes, e.g. "choices[0][1]" -> ("choices", [0, 1]).
func parseSegment(seg string) (name string, indexes []int, ok bool) {
	open := strings.IndexByte(seg, '[')
	if open == -1 {
		return seg, nil, seg != ""
	}

	name = seg[:open]
	rest := seg[open:]
	for rest != "" {
		if rest[0] != '[' {
			return "", nil, false
		}
		close := strings.IndexByte(rest, ']')
		if close == -1 {
			return "", nil, false
		}
		idx := 0
		digits := rest[1:close]
		if digits == "" {
			return "", nil, false
		}
		for _, c := range digits {
			if c < '0' || c > '9' {
				return "", nil, false
			}
			idx = idx*10 + int(c-'0')
		}
		indexes = append(indexes, idx)
		rest = rest[close+1:]
	}
	return name, indexes, true
}

// truthy reports whether a resolved path value counts as "present and
// non-empty" for filtering purposes.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	case float64:
		return t != 0
	default:
		return true
	}
}
