package stream

import "testing"

func TestLookup(t *testing.T) {
	frame := Frame{
		"model": "m",
		"choices": []any{
			map[string]any{"delta": map[string]any{"content": "hi"}},
			map[string]any{"delta": map[string]any{"content": "there"}},
		},
		"usage": map[string]any{"total": float64(7)},
	}

	tests := []struct {
		path      string
		want      any
		wantFound bool
	}{
		{"model", "m", true},
		{"$.model", "m", true},
		{"choices[0].delta.content", "hi", true},
		{"choices[1].delta.content", "there", true},
		{"usage.total", float64(7), true},
		{"choices[2]", nil, false},
		{"missing", nil, false},
		{"model.nested", nil, false},
		{"choices[x]", nil, false},
	}

	for _, tt := range tests {
		got, found := Lookup(frame, tt.path)
		if found != tt.wantFound {
			t.Errorf("Lookup(%q) found = %v, want %v", tt.path, found, tt.wantFound)
			continue
		}
		if found && got != tt.want {
			t.Errorf("Lookup(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestLookupWholeFrame(t *testing.T) {
	frame := Frame{"a": float64(1)}
	v, found := Lookup(frame, "$")
	if !found {
		t.Fatal("root path should resolve")
	}
	if m, ok := v.(map[string]any); !ok || m["a"] != float64(1) {
		t.Errorf("root value = %v", v)
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		v    any
		want bool
	}{
		{nil, false},
		{false, false},
		{true, true},
		{"", false},
		{"x", true},
		{[]any{}, false},
		{[]any{1}, true},
		{map[string]any{}, false},
		{map[string]any{"k": 1}, true},
		{float64(0), false},
		{float64(3), true},
	}
	for _, tt := range tests {
		if got := truthy(tt.v); got != tt.want {
			t.Errorf("truthy(%#v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}
