// Command demo walks the translation pipeline offline. A messages request
// is validated and translated into the backend envelope, a simulated
// backend reply is translated back into the canonical form, and the same
// response is projected into the chat-completions dialect. No server or
// backend is needed.
package main

import (
	"encoding/json"
	"fmt"

	"github.com/rhuss/dolmetsch/pkg/api"
	"github.com/rhuss/dolmetsch/pkg/openai"
	"github.com/rhuss/dolmetsch/pkg/provider/cloudcode"
)

func main() {
	fmt.Println("=== dolmetsch translation pipeline demo ===")

	// 1. A request as a messages-dialect client would send it.
	req := &api.MessagesRequest{
		Model:     "claude-3-5-sonnet-20241022",
		MaxTokens: 1024,
		System:    "You are a weather assistant.",
		Messages: []api.Message{
			{
				Role:    api.RoleUser,
				Content: api.MessageContent{api.NewTextBlock("What's the weather in Paris?")},
			},
		},
		Tools: []api.ToolDefinition{
			{
				Name:        "get_weather",
				Description: "Look up the current weather for a city",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"city": map[string]any{"type": "string"},
					},
					"required": []any{"city"},
				},
			},
		},
	}

	if err := api.ValidateRequest(req, api.DefaultValidationConfig()); err != nil {
		fmt.Printf("validation failed: %v\n", err)
		return
	}
	fmt.Println("\n[1] Request validated")

	// 2. Model resolution, then the outbound translation.
	mapped := cloudcode.MapModel(req.Model)
	fmt.Printf("\n[2] Model %s resolves to %s\n", req.Model, mapped)

	envelope, err := cloudcode.TranslateRequest(req, "demo-project", mapped)
	if err != nil {
		fmt.Printf("request translation failed: %v\n", err)
		return
	}
	dump("[3] Backend envelope", envelope)

	// 3. A backend reply that invokes the declared tool.
	backendResp := &cloudcode.GenerateResponse{
		ResponseID:   "demo-response",
		ModelVersion: mapped,
		Candidates: []cloudcode.Candidate{
			{
				Content: &cloudcode.Content{
					Role: "model",
					Parts: []cloudcode.Part{
						{FunctionCall: &cloudcode.FunctionCall{
							Name: "get_weather",
							Args: map[string]any{"city": "Paris"},
						}},
					},
				},
				FinishReason: cloudcode.FinishStop,
			},
		},
		UsageMetadata: &cloudcode.UsageMetadata{
			PromptTokenCount:     42,
			CandidatesTokenCount: 11,
		},
	}

	msg, usage, err := cloudcode.TranslateResponse(backendResp, backendResp.ResponseID, mapped)
	if err != nil {
		fmt.Printf("response translation failed: %v\n", err)
		return
	}
	dump("[4] Canonical messages response", msg)
	fmt.Printf("\n    stop_reason=%s input_tokens=%d output_tokens=%d\n",
		msg.StopReason, usage.InputTokens, usage.OutputTokens)

	// 4. The same response in the chat-completions dialect.
	dump("[5] Chat-completions projection", openai.FromMessagesResponse(msg))

	// 5. Inbound chat requests join the pipeline in the same canonical form.
	chatReq := &openai.ChatRequest{
		Model: "gpt-4o",
		Messages: []openai.ChatMessage{
			{Role: "system", Content: "You are a weather assistant."},
			{Role: "user", Content: "What's the weather in Paris?"},
		},
	}
	canonical, err := openai.ToMessagesRequest(chatReq)
	if err != nil {
		fmt.Printf("chat translation failed: %v\n", err)
		return
	}
	dump("[6] Canonical form of the same request via the chat dialect", canonical)

	fmt.Println("\nDone. Both client dialects meet in the canonical form;")
	fmt.Println("the backend only ever sees the envelope from step [3].")
}

func dump(label string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%s: marshal failed: %v\n", label, err)
		return
	}
	fmt.Printf("\n%s:\n%s\n", label, data)
}
