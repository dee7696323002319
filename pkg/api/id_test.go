package api

import (
	"strings"
	"testing"
)

func TestNewMessageID(t *testing.T) {
	id := NewMessageID()

	if !strings.HasPrefix(id, "msg_") {
		t.Errorf("message ID %q missing msg_ prefix", id)
	}
	if len(id) != len("msg_")+24 {
		t.Errorf("message ID %q has wrong length %d", id, len(id))
	}
	if !ValidateMessageID(id) {
		t.Errorf("generated message ID %q fails validation", id)
	}
}

func TestNewToolUseID(t *testing.T) {
	id := NewToolUseID()

	if !strings.HasPrefix(id, "toolu_") {
		t.Errorf("tool_use ID %q missing toolu_ prefix", id)
	}
	if !ValidateToolUseID(id) {
		t.Errorf("generated tool_use ID %q fails validation", id)
	}
}

func TestIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewMessageID()
		if seen[id] {
			t.Fatalf("duplicate message ID generated: %s", id)
		}
		seen[id] = true
	}
}

func TestValidateMessageID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"valid ID", "msg_" + strings.Repeat("a", 24), true},
		{"wrong prefix", "resp_" + strings.Repeat("a", 24), false},
		{"too short", "msg_abc", false},
		{"too long", "msg_" + strings.Repeat("a", 25), false},
		{"invalid characters", "msg_" + strings.Repeat("-", 24), false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateMessageID(tt.id); got != tt.want {
				t.Errorf("ValidateMessageID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}
