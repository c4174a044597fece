package core

import (
	"encoding/json"
	"fmt"
	"testing"
)

func TestSecretRedaction(t *testing.T) {
	s := NewSecret("sk-abc123")

	if got := fmt.Sprint(s); got != "[REDACTED]" {
		t.Errorf("String() = %q, want [REDACTED]", got)
	}
	if got := fmt.Sprintf("%#v", s); got != "core.Secret{[REDACTED]}" {
		t.Errorf("GoString() = %q", got)
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `"[REDACTED]"` {
		t.Errorf("MarshalJSON() = %s", data)
	}

	if s.Expose() != "sk-abc123" {
		t.Errorf("Expose() = %q", s.Expose())
	}
	if s.IsEmpty() {
		t.Error("IsEmpty() = true for non-empty secret")
	}
	if !NewSecret("").IsEmpty() {
		t.Error("IsEmpty() = false for empty secret")
	}
}
