package api

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

// roundTrip marshals v to JSON, then unmarshals back into a new value of the
// same type and returns it. It fails the test on any error.
func roundTrip[T any](t *testing.T, v T) T {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	var got T
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal error: %v\nJSON: %s", err, data)
	}
	return got
}

// assertDeepEqual fails the test if got and want are not deeply equal.
func assertDeepEqual(t *testing.T, got, want any) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round-trip mismatch\n got: %+v\nwant: %+v", got, want)
	}
}

// ---------------------------------------------------------------------------
// TestContentBlockRoundTrip
// ---------------------------------------------------------------------------

func TestContentBlockRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		block ContentBlock
	}{
		{
			name:  "text block",
			block: NewTextBlock("Hello, world!"),
		},
		{
			name: "tool_use block",
			block: NewToolUseBlock("toolu_abc123", "search",
				map[string]any{"query": "Python tutorials"}),
		},
		{
			name: "tool_result block with string content",
			block: ContentBlock{
				Type:      BlockTypeToolResult,
				ToolUseID: "toolu_abc123",
				Content:   json.RawMessage(`"42 results"`),
			},
		},
		{
			name: "tool_result block with error flag",
			block: ContentBlock{
				Type:      BlockTypeToolResult,
				ToolUseID: "toolu_abc123",
				Content:   json.RawMessage(`"lookup failed"`),
				IsError:   true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := roundTrip(t, tt.block)
			assertDeepEqual(t, got, tt.block)
		})
	}
}

func TestContentBlockWireFormat(t *testing.T) {
	block := NewToolUseBlock("toolu_x", "search", nil)
	data, err := json.Marshal(block)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	// A tool_use block with nil input serializes input as an empty object,
	// never null.
	if !strings.Contains(string(data), `"input":{}`) {
		t.Errorf("tool_use wire format missing empty input object: %s", data)
	}

	if _, err := json.Marshal(ContentBlock{Type: "bogus"}); err == nil {
		t.Error("expected error for unknown block type, got nil")
	}
}

func TestContentBlockResultText(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "string content",
			content: `"plain result"`,
			want:    "plain result",
		},
		{
			name:    "text block array",
			content: `[{"type":"text","text":"line one"},{"type":"text","text":"line two"}]`,
			want:    "line one\nline two",
		},
		{
			name:    "object content passed through encoded",
			content: `{"status":"ok"}`,
			want:    `{"status":"ok"}`,
		},
		{
			name:    "empty content",
			content: "",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block := ContentBlock{
				Type:      BlockTypeToolResult,
				ToolUseID: "toolu_x",
			}
			if tt.content != "" {
				block.Content = json.RawMessage(tt.content)
			}
			if got := block.ResultText(); got != tt.want {
				t.Errorf("ResultText() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestMessageContent
// ---------------------------------------------------------------------------

func TestMessageContentAcceptsString(t *testing.T) {
	var msg Message
	raw := `{"role":"user","content":"Hello, how are you?"}`
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if len(msg.Content) != 1 {
		t.Fatalf("expected 1 content block, got %d", len(msg.Content))
	}
	if msg.Content[0].Type != BlockTypeText || msg.Content[0].Text != "Hello, how are you?" {
		t.Errorf("unexpected block: %+v", msg.Content[0])
	}
}

func TestMessageContentAcceptsBlocks(t *testing.T) {
	var msg Message
	raw := `{"role":"assistant","content":[
		{"type":"text","text":"Let me check."},
		{"type":"tool_use","id":"toolu_1","name":"search","input":{"query":"go"}}
	]}`
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if len(msg.Content) != 2 {
		t.Fatalf("expected 2 content blocks, got %d", len(msg.Content))
	}
	if msg.Content[1].Type != BlockTypeToolUse || msg.Content[1].Name != "search" {
		t.Errorf("unexpected second block: %+v", msg.Content[1])
	}
}

func TestMessageContentRejectsNumber(t *testing.T) {
	var msg Message
	if err := json.Unmarshal([]byte(`{"role":"user","content":42}`), &msg); err == nil {
		t.Error("expected error for numeric content, got nil")
	}
}

// ---------------------------------------------------------------------------
// TestSystemPrompt
// ---------------------------------------------------------------------------

func TestSystemPrompt(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want SystemPrompt
	}{
		{
			name: "plain string",
			raw:  `"You are a helpful assistant."`,
			want: "You are a helpful assistant.",
		},
		{
			name: "single text block",
			raw:  `[{"type":"text","text":"Be brief."}]`,
			want: "Be brief.",
		},
		{
			name: "multiple text blocks joined",
			raw:  `[{"type":"text","text":"Be brief."},{"type":"text","text":"Be kind."}]`,
			want: "Be brief.\n\nBe kind.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got SystemPrompt
			if err := json.Unmarshal([]byte(tt.raw), &got); err != nil {
				t.Fatalf("Unmarshal error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestMessagesRequest
// ---------------------------------------------------------------------------

func TestMessagesRequestUnmarshal(t *testing.T) {
	raw := `{
		"model": "claude-sonnet-4-5",
		"system": "You are a helpful assistant.",
		"messages": [
			{"role": "user", "content": "Hello!"},
			{"role": "assistant", "content": "Hi there!"},
			{"role": "user", "content": "How are you?"}
		],
		"max_tokens": 1024,
		"temperature": 0.7,
		"stream": false
	}`

	var req MessagesRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if req.Model != "claude-sonnet-4-5" {
		t.Errorf("Model = %q", req.Model)
	}
	if len(req.Messages) != 3 {
		t.Errorf("len(Messages) = %d, want 3", len(req.Messages))
	}
	if req.System != "You are a helpful assistant." {
		t.Errorf("System = %q", req.System)
	}
	if req.MaxTokens != 1024 {
		t.Errorf("MaxTokens = %d, want 1024", req.MaxTokens)
	}
	if req.Temperature == nil || *req.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", req.Temperature)
	}
}

func TestMessagesResponseWireFormat(t *testing.T) {
	resp := NewMessagesResponse("msg_abc", "claude-sonnet-4-5")
	resp.Content = []ContentBlock{NewTextBlock("Hello!")}
	resp.StopReason = StopEndTurn
	resp.Usage = Usage{InputTokens: 10, OutputTokens: 8}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	// stop_sequence must be present and null; type and role are fixed.
	for _, want := range []string{
		`"type":"message"`,
		`"role":"assistant"`,
		`"stop_sequence":null`,
		`"stop_reason":"end_turn"`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("response wire format missing %s: %s", want, data)
		}
	}
}
