package integration

import (
	"net/http"
	"strings"
	"testing"
)

// claudeMessage asserts a 200 response and decodes the messages body.
func claudeMessage(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, readBody(t, resp))
	}
	var msg map[string]any
	decodeJSON(t, resp, &msg)
	return msg
}

func TestMessagesEcho(t *testing.T) {
	resp := postJSON(t, testEnv.BaseURL()+"/v1/messages", map[string]any{
		"model":      "claude-sonnet-4-5",
		"max_tokens": 256,
		"messages": []map[string]any{
			{"role": "user", "content": "Hello world!"},
		},
	})
	msg := claudeMessage(t, resp)

	if got := msg["type"]; got != "message" {
		t.Errorf("type = %v, want message", got)
	}
	if got := msg["role"]; got != "assistant" {
		t.Errorf("role = %v, want assistant", got)
	}
	if got := msg["id"]; got != "genmock-text" {
		t.Errorf("id = %v, want genmock-text", got)
	}
	if got := msg["model"]; got != "claude-sonnet-4-5" {
		t.Errorf("model = %v, want claude-sonnet-4-5", got)
	}
	if got := msg["stop_reason"]; got != "end_turn" {
		t.Errorf("stop_reason = %v, want end_turn", got)
	}

	content, ok := msg["content"].([]any)
	if !ok || len(content) != 1 {
		t.Fatalf("content = %v, want exactly one block", msg["content"])
	}
	block, _ := content[0].(map[string]any)
	if block["type"] != "text" || block["text"] != "Hello world!" {
		t.Errorf("content[0] = %v, want echoed text block", block)
	}

	usage, _ := msg["usage"].(map[string]any)
	if usage["input_tokens"] != 10.0 || usage["output_tokens"] != 5.0 {
		t.Errorf("usage = %v, want input 10 / output 5", usage)
	}
}

// TestMessagesModelMapping verifies that the model id the client sends is
// resolved before it reaches the backend and that the resolved id is what
// comes back in the response.
func TestMessagesModelMapping(t *testing.T) {
	cases := []struct {
		name  string
		model string
		want  string
	}{
		{"current id passes through", "claude-sonnet-4-5", "claude-sonnet-4-5"},
		{"dated snapshot resolves", "claude-3-5-sonnet-20241022", "claude-sonnet-4-5"},
		{"gpt id resolves to default", "gpt-4o", "claude-sonnet-4-5"},
		{"mini tier resolves to flash", "gpt-4o-mini", "gemini-2.5-flash"},
		{"haiku tier resolves to flash", "claude-3-5-haiku-20241022", "gemini-2.5-flash"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, testEnv.BaseURL()+"/v1/messages", map[string]any{
				"model":      tc.model,
				"max_tokens": 64,
				"messages": []map[string]any{
					{"role": "user", "content": "hi"},
				},
			})
			msg := claudeMessage(t, resp)
			if got := msg["model"]; got != tc.want {
				t.Errorf("model = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMessagesDefaultModel(t *testing.T) {
	resp := postJSON(t, testEnv.BaseURL()+"/v1/messages", map[string]any{
		"max_tokens": 64,
		"messages": []map[string]any{
			{"role": "user", "content": "hi"},
		},
	})
	msg := claudeMessage(t, resp)
	if got := msg["model"]; got != "claude-sonnet-4-5" {
		t.Errorf("model = %v, want the configured default", got)
	}
}

func TestMessagesSystemPrompt(t *testing.T) {
	resp := postJSON(t, testEnv.BaseURL()+"/v1/messages", map[string]any{
		"model":      "claude-sonnet-4-5",
		"max_tokens": 64,
		"system":     "You are a terse assistant.",
		"messages": []map[string]any{
			{"role": "user", "content": "state your purpose"},
		},
	})
	msg := claudeMessage(t, resp)

	content, _ := msg["content"].([]any)
	if len(content) != 1 {
		t.Fatalf("content = %v, want one block", msg["content"])
	}
	block, _ := content[0].(map[string]any)
	if block["text"] != "state your purpose" {
		t.Errorf("text = %v, want the user text echoed back", block["text"])
	}
}

func TestMessagesMultiTurn(t *testing.T) {
	resp := postJSON(t, testEnv.BaseURL()+"/v1/messages", map[string]any{
		"model":      "claude-sonnet-4-5",
		"max_tokens": 64,
		"messages": []map[string]any{
			{"role": "user", "content": "first question"},
			{"role": "assistant", "content": "first answer"},
			{"role": "user", "content": "second question"},
		},
	})
	msg := claudeMessage(t, resp)

	content, _ := msg["content"].([]any)
	if len(content) != 1 {
		t.Fatalf("content = %v, want one block", msg["content"])
	}
	block, _ := content[0].(map[string]any)
	if block["text"] != "second question" {
		t.Errorf("text = %v, want the latest user turn echoed back", block["text"])
	}
}

func TestMessagesToolUse(t *testing.T) {
	resp := postJSON(t, testEnv.BaseURL()+"/v1/messages", map[string]any{
		"model":      "claude-sonnet-4-5",
		"max_tokens": 256,
		"messages": []map[string]any{
			{"role": "user", "content": "what's the weather in SF?"},
		},
		"tools": []map[string]any{
			{
				"name":        "get_weather",
				"description": "Look up the current weather",
				"input_schema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"location": map[string]any{"type": "string"},
						"unit":     map[string]any{"type": "string"},
					},
				},
			},
		},
	})
	msg := claudeMessage(t, resp)

	if got := msg["stop_reason"]; got != "tool_use" {
		t.Errorf("stop_reason = %v, want tool_use", got)
	}

	content, _ := msg["content"].([]any)
	if len(content) != 1 {
		t.Fatalf("content = %v, want one block", msg["content"])
	}
	block, _ := content[0].(map[string]any)
	if block["type"] != "tool_use" {
		t.Fatalf("block type = %v, want tool_use", block["type"])
	}
	if block["name"] != "get_weather" {
		t.Errorf("tool name = %v, want get_weather", block["name"])
	}
	id, _ := block["id"].(string)
	if !strings.HasPrefix(id, "toolu_") {
		t.Errorf("tool id = %q, want toolu_ prefix", id)
	}
	input, _ := block["input"].(map[string]any)
	if input["location"] != "San Francisco" || input["unit"] != "celsius" {
		t.Errorf("input = %v, want the mock arguments", input)
	}

	usage, _ := msg["usage"].(map[string]any)
	if usage["input_tokens"] != 20.0 || usage["output_tokens"] != 15.0 {
		t.Errorf("usage = %v, want input 20 / output 15", usage)
	}
}

// TestMessagesToolResultRoundTrip sends a conversation that already
// contains a tool_use turn and its tool_result. The gateway has to encode
// both into backend parts; the mock answers with plain text because no
// tools are declared on this follow-up request.
func TestMessagesToolResultRoundTrip(t *testing.T) {
	resp := postJSON(t, testEnv.BaseURL()+"/v1/messages", map[string]any{
		"model":      "claude-sonnet-4-5",
		"max_tokens": 256,
		"messages": []map[string]any{
			{"role": "user", "content": "what's the weather in SF?"},
			{"role": "assistant", "content": []map[string]any{
				{
					"type":  "tool_use",
					"id":    "toolu_roundtrip1",
					"name":  "get_weather",
					"input": map[string]any{"location": "San Francisco"},
				},
			}},
			{"role": "user", "content": []map[string]any{
				{
					"type":        "tool_result",
					"tool_use_id": "toolu_roundtrip1",
					"content":     "18C and foggy",
				},
			}},
		},
	})
	msg := claudeMessage(t, resp)

	if got := msg["stop_reason"]; got != "end_turn" {
		t.Errorf("stop_reason = %v, want end_turn", got)
	}
	content, _ := msg["content"].([]any)
	if len(content) != 1 {
		t.Fatalf("content = %v, want one block", msg["content"])
	}
	block, _ := content[0].(map[string]any)
	if block["text"] != "what's the weather in SF?" {
		t.Errorf("text = %v, want the last plain user text echoed back", block["text"])
	}
}

func TestMessagesTruncation(t *testing.T) {
	resp := postJSON(t, testEnv.BaseURL()+"/v1/messages", map[string]any{
		"model":      "claude-sonnet-4-5",
		"max_tokens": 32,
		"messages": []map[string]any{
			{"role": "user", "content": "trigger MAX_TOKENS please"},
		},
	})
	msg := claudeMessage(t, resp)

	if got := msg["stop_reason"]; got != "max_tokens" {
		t.Errorf("stop_reason = %v, want max_tokens", got)
	}
	content, _ := msg["content"].([]any)
	if len(content) != 1 {
		t.Fatalf("content = %v, want one block", msg["content"])
	}
	block, _ := content[0].(map[string]any)
	if block["text"] != mockTruncatedText {
		t.Errorf("text = %q, want the truncated mock text", block["text"])
	}
	usage, _ := msg["usage"].(map[string]any)
	if usage["output_tokens"] != 30.0 {
		t.Errorf("usage = %v, want output 30", usage)
	}
}
