package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rhuss/dolmetsch/pkg/api"
	"github.com/rhuss/dolmetsch/pkg/openai"
)

// sseFrame is one parsed "event:/data:" frame.
type sseFrame struct {
	event string
	data  string
}

func parseFrames(t *testing.T, body string) []sseFrame {
	t.Helper()
	var frames []sseFrame
	for _, raw := range strings.Split(strings.TrimSpace(body), "\n\n") {
		if raw == "" {
			continue
		}
		var f sseFrame
		for _, line := range strings.Split(raw, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				f.event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				f.data = strings.TrimPrefix(line, "data: ")
			}
		}
		frames = append(frames, f)
	}
	return frames
}

// dataLines extracts the payload of every "data:" line, in order.
func dataLines(body string) []string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "data: ") {
			out = append(out, strings.TrimPrefix(line, "data: "))
		}
	}
	return out
}

func streamEvents() []api.StreamEvent {
	return []api.StreamEvent{
		api.NewMessageStartEvent(api.NewMessagesResponse("msg_stream_1", "gemini-2.5-pro")),
		api.NewBlockStartEvent(0, api.NewTextBlock("")),
		api.NewTextDeltaEvent(0, "Hel"),
		api.NewTextDeltaEvent(0, "lo"),
		api.NewBlockStopEvent(0),
		api.NewMessageDeltaEvent(api.StopEndTurn, &api.Usage{InputTokens: 7, OutputTokens: 2}),
		api.NewMessageStopEvent(),
	}
}

func TestClaudeWriter_StreamFraming(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newClaudeWriter(rec)
	ctx := context.Background()

	for i, ev := range streamEvents() {
		if err := w.WriteEvent(ctx, ev); err != nil {
			t.Fatalf("WriteEvent %d: %v", i, err)
		}
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", cc)
	}

	body := rec.Body.String()
	if strings.Contains(body, "[DONE]") {
		t.Error("messages stream must not contain a [DONE] sentinel")
	}

	frames := parseFrames(t, body)
	want := []string{
		"message_start",
		"content_block_start",
		"content_block_delta",
		"content_block_delta",
		"content_block_stop",
		"message_delta",
		"message_stop",
	}
	if len(frames) != len(want) {
		t.Fatalf("got %d frames, want %d:\n%s", len(frames), len(want), body)
	}
	for i, name := range want {
		if frames[i].event != name {
			t.Errorf("frame %d event = %q, want %q", i, frames[i].event, name)
		}
		var payload struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal([]byte(frames[i].data), &payload); err != nil {
			t.Fatalf("frame %d data is not JSON: %v", i, err)
		}
		if payload.Type != name {
			t.Errorf("frame %d data type = %q, want %q", i, payload.Type, name)
		}
	}
}

func TestClaudeWriter_CompletedAfterMessageStop(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newClaudeWriter(rec)
	ctx := context.Background()

	if err := w.WriteEvent(ctx, api.NewMessageStopEvent()); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	if err := w.WriteEvent(ctx, api.NewTextDeltaEvent(0, "late")); err == nil {
		t.Error("expected error writing after message_stop")
	}
}

func TestClaudeWriter_CompletedAfterErrorEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newClaudeWriter(rec)
	ctx := context.Background()

	if err := w.WriteEvent(ctx, api.NewErrorEvent(api.NewOverloadedError("backend saturated"))); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	if err := w.WriteEvent(ctx, api.NewTextDeltaEvent(0, "late")); err == nil {
		t.Error("expected error writing after error event")
	}

	frames := parseFrames(t, rec.Body.String())
	if len(frames) != 1 || frames[0].event != "error" {
		t.Fatalf("unexpected frames: %+v", frames)
	}
}

func TestClaudeWriter_WriteMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newClaudeWriter(rec)

	resp := api.NewMessagesResponse("msg_json_1", "gemini-2.5-pro")
	resp.Content = []api.ContentBlock{api.NewTextBlock("Hello there")}
	resp.StopReason = api.StopEndTurn
	resp.Usage = api.Usage{InputTokens: 10, OutputTokens: 5}

	if err := w.WriteMessage(context.Background(), resp); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var decoded api.MessagesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if decoded.ID != "msg_json_1" || decoded.Type != "message" {
		t.Errorf("unexpected response: %+v", decoded)
	}
	if w.hasStartedStreaming() {
		t.Error("hasStartedStreaming should be false after WriteMessage")
	}
}

func TestClaudeWriter_MutualExclusion(t *testing.T) {
	ctx := context.Background()

	t.Run("message after event", func(t *testing.T) {
		w := newClaudeWriter(httptest.NewRecorder())
		if err := w.WriteEvent(ctx, api.NewMessageStartEvent(api.NewMessagesResponse("msg_1", "m"))); err != nil {
			t.Fatalf("WriteEvent: %v", err)
		}
		if err := w.WriteMessage(ctx, api.NewMessagesResponse("msg_1", "m")); err == nil {
			t.Error("expected error writing message after events")
		}
	})

	t.Run("event after message", func(t *testing.T) {
		w := newClaudeWriter(httptest.NewRecorder())
		if err := w.WriteMessage(ctx, api.NewMessagesResponse("msg_1", "m")); err != nil {
			t.Fatalf("WriteMessage: %v", err)
		}
		if err := w.WriteEvent(ctx, api.NewTextDeltaEvent(0, "x")); err == nil {
			t.Error("expected error writing event after message")
		}
	})
}

func TestClaudeWriter_HasStartedStreaming(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newClaudeWriter(rec)
	ctx := context.Background()

	if w.hasStartedStreaming() {
		t.Error("new writer should not report streaming")
	}
	if err := w.WriteEvent(ctx, api.NewMessageStartEvent(api.NewMessagesResponse("msg_1", "m"))); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	if !w.hasStartedStreaming() {
		t.Error("writer should report streaming after first event")
	}
	if err := w.WriteEvent(ctx, api.NewMessageStopEvent()); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	// Still true after completion so error handling picks the event path.
	if !w.hasStartedStreaming() {
		t.Error("completed stream should still report streaming")
	}
}

func TestOpenAIWriter_StreamFraming(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newOpenAIWriter(rec, "gpt-4o")
	ctx := context.Background()

	for i, ev := range streamEvents() {
		if err := w.WriteEvent(ctx, ev); err != nil {
			t.Fatalf("WriteEvent %d: %v", i, err)
		}
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	body := rec.Body.String()
	if strings.Contains(body, "event:") {
		t.Error("chat-completions stream must not use event: framing")
	}

	lines := dataLines(body)
	if len(lines) == 0 {
		t.Fatal("no data lines written")
	}
	if lines[len(lines)-1] != "[DONE]" {
		t.Errorf("last data line = %q, want [DONE]", lines[len(lines)-1])
	}

	var chunks []openai.ChatChunk
	for _, line := range lines[:len(lines)-1] {
		var chunk openai.ChatChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			t.Fatalf("chunk is not valid JSON: %v\n%s", err, line)
		}
		chunks = append(chunks, chunk)
	}

	// Role chunk, two content deltas, terminal chunk.
	if len(chunks) != 4 {
		t.Fatalf("got %d chunks, want 4:\n%s", len(chunks), body)
	}
	if chunks[0].Choices[0].Delta.Role != "assistant" {
		t.Errorf("first chunk role = %q, want assistant", chunks[0].Choices[0].Delta.Role)
	}
	var text strings.Builder
	for _, chunk := range chunks {
		if c := chunk.Choices[0].Delta.Content; c != nil {
			text.WriteString(*c)
		}
		if chunk.Object != "chat.completion.chunk" {
			t.Errorf("chunk object = %q", chunk.Object)
		}
		if chunk.ID != chunks[0].ID {
			t.Errorf("chunk id %q differs from %q", chunk.ID, chunks[0].ID)
		}
		// message_start overrides the requested model.
		if chunk.Model != "gemini-2.5-pro" {
			t.Errorf("chunk model = %q, want gemini-2.5-pro", chunk.Model)
		}
	}
	if text.String() != "Hello" {
		t.Errorf("assembled text = %q, want Hello", text.String())
	}

	final := chunks[len(chunks)-1]
	if final.Choices[0].FinishReason == nil || *final.Choices[0].FinishReason != "stop" {
		t.Errorf("final finish_reason = %v, want stop", final.Choices[0].FinishReason)
	}
	if final.Usage == nil || final.Usage.PromptTokens != 7 || final.Usage.CompletionTokens != 2 {
		t.Errorf("final usage = %+v", final.Usage)
	}

	if err := w.WriteEvent(ctx, api.NewTextDeltaEvent(0, "late")); err == nil {
		t.Error("expected error writing after [DONE]")
	}
}

func TestOpenAIWriter_ToolCallStream(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newOpenAIWriter(rec, "gpt-4o")
	ctx := context.Background()

	events := []api.StreamEvent{
		api.NewMessageStartEvent(api.NewMessagesResponse("msg_tool_1", "gemini-2.5-pro")),
		api.NewBlockStartEvent(0, api.NewToolUseBlock("toolu_1", "get_weather", nil)),
		api.NewInputJSONDeltaEvent(0, `{"city":`),
		api.NewInputJSONDeltaEvent(0, `"Berlin"}`),
		api.NewBlockStopEvent(0),
		api.NewMessageDeltaEvent(api.StopToolUse, &api.Usage{InputTokens: 12, OutputTokens: 8}),
		api.NewMessageStopEvent(),
	}
	for i, ev := range events {
		if err := w.WriteEvent(ctx, ev); err != nil {
			t.Fatalf("WriteEvent %d: %v", i, err)
		}
	}

	lines := dataLines(rec.Body.String())
	var chunks []openai.ChatChunk
	for _, line := range lines[:len(lines)-1] {
		var chunk openai.ChatChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			t.Fatalf("chunk is not valid JSON: %v", err)
		}
		chunks = append(chunks, chunk)
	}
	if len(chunks) != 4 {
		t.Fatalf("got %d chunks, want 4", len(chunks))
	}

	first := chunks[0].Choices[0].Delta
	if first.Role != "assistant" {
		t.Errorf("first chunk role = %q, want assistant", first.Role)
	}
	if len(first.ToolCalls) != 1 || first.ToolCalls[0].ID != "toolu_1" || first.ToolCalls[0].Function.Name != "get_weather" {
		t.Errorf("unexpected tool call start: %+v", first.ToolCalls)
	}

	var args strings.Builder
	for _, chunk := range chunks[1:3] {
		calls := chunk.Choices[0].Delta.ToolCalls
		if len(calls) != 1 || calls[0].Index != 0 {
			t.Fatalf("unexpected tool call fragment: %+v", calls)
		}
		args.WriteString(calls[0].Function.Arguments)
	}
	if args.String() != `{"city":"Berlin"}` {
		t.Errorf("assembled arguments = %q", args.String())
	}

	final := chunks[3].Choices[0]
	if final.FinishReason == nil || *final.FinishReason != "tool_calls" {
		t.Errorf("final finish_reason = %v, want tool_calls", final.FinishReason)
	}
}

func TestOpenAIWriter_WriteMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newOpenAIWriter(rec, "gpt-4o")

	resp := api.NewMessagesResponse("msg_conv_1", "gemini-2.5-pro")
	resp.Content = []api.ContentBlock{api.NewTextBlock("Hello there")}
	resp.StopReason = api.StopEndTurn
	resp.Usage = api.Usage{InputTokens: 10, OutputTokens: 5}

	if err := w.WriteMessage(context.Background(), resp); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var decoded openai.ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if decoded.Object != "chat.completion" {
		t.Errorf("object = %q, want chat.completion", decoded.Object)
	}
	if !strings.HasPrefix(decoded.ID, "chatcmpl-") {
		t.Errorf("id = %q, want chatcmpl- prefix", decoded.ID)
	}
	if len(decoded.Choices) != 1 {
		t.Fatalf("got %d choices, want 1", len(decoded.Choices))
	}
	if content, ok := decoded.Choices[0].Message.Content.(string); !ok || content != "Hello there" {
		t.Errorf("content = %v, want Hello there", decoded.Choices[0].Message.Content)
	}
	if decoded.Choices[0].FinishReason != "stop" {
		t.Errorf("finish_reason = %q, want stop", decoded.Choices[0].FinishReason)
	}
}

func TestOpenAIWriter_MutualExclusion(t *testing.T) {
	ctx := context.Background()

	t.Run("message after event", func(t *testing.T) {
		w := newOpenAIWriter(httptest.NewRecorder(), "gpt-4o")
		if err := w.WriteEvent(ctx, api.NewMessageStartEvent(api.NewMessagesResponse("msg_1", "m"))); err != nil {
			t.Fatalf("WriteEvent: %v", err)
		}
		if err := w.WriteMessage(ctx, api.NewMessagesResponse("msg_1", "m")); err == nil {
			t.Error("expected error writing message after events")
		}
	})

	t.Run("event after message", func(t *testing.T) {
		w := newOpenAIWriter(httptest.NewRecorder(), "gpt-4o")
		if err := w.WriteMessage(ctx, api.NewMessagesResponse("msg_1", "m")); err != nil {
			t.Fatalf("WriteMessage: %v", err)
		}
		if err := w.WriteEvent(ctx, api.NewTextDeltaEvent(0, "x")); err == nil {
			t.Error("expected error writing event after message")
		}
	})
}

func TestOpenAIWriter_StreamError(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newOpenAIWriter(rec, "gpt-4o")
	ctx := context.Background()

	if err := w.WriteEvent(ctx, api.NewMessageStartEvent(api.NewMessagesResponse("msg_1", "m"))); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	if err := w.WriteEvent(ctx, api.NewBlockStartEvent(0, api.NewTextBlock(""))); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}

	w.writeStreamError(api.NewOverloadedError("backend saturated"))

	lines := dataLines(rec.Body.String())
	if len(lines) < 3 {
		t.Fatalf("got %d data lines, want at least 3", len(lines))
	}
	if lines[len(lines)-1] != "[DONE]" {
		t.Errorf("last data line = %q, want [DONE]", lines[len(lines)-1])
	}

	var envelope struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(lines[len(lines)-2]), &envelope); err != nil {
		t.Fatalf("error line is not valid JSON: %v", err)
	}
	if envelope.Error.Type != "server_error" || envelope.Error.Message == "" {
		t.Errorf("unexpected error envelope: %+v", envelope.Error)
	}

	if err := w.WriteEvent(ctx, api.NewTextDeltaEvent(0, "late")); err == nil {
		t.Error("expected error writing after stream error")
	}
}
