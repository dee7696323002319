package openai

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rhuss/dolmetsch/pkg/api"
)

// defaultMaxTokens applies when a chat request carries no token limit;
// the messages dialect requires one.
const defaultMaxTokens = 4096

// ToMessagesRequest converts a chat-completions request into the canonical
// messages form.
//
// The first system (or developer) message becomes the system prompt; any
// later system messages are demoted to user turns. Assistant tool_calls
// become tool_use blocks, and a tool-role message becomes a user turn
// carrying a tool_result block.
func ToMessagesRequest(req *ChatRequest) (*api.MessagesRequest, error) {
	if req == nil {
		return nil, api.NewInvalidRequestError("", "request body is required")
	}

	out := &api.MessagesRequest{
		Model:         req.Model,
		MaxTokens:     defaultMaxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		StopSequences: req.Stop,
		Stream:        req.Stream,
	}
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		out.MaxTokens = *req.MaxTokens
	} else if req.MaxCompletionTokens != nil && *req.MaxCompletionTokens > 0 {
		out.MaxTokens = *req.MaxCompletionTokens
	}

	systemSeen := false
	for i, msg := range req.Messages {
		switch msg.Role {
		case "system", "developer":
			text, err := contentText(msg.Content)
			if err != nil {
				return nil, api.NewInvalidRequestError(
					fmt.Sprintf("messages[%d].content", i), err.Error())
			}
			if !systemSeen {
				out.System = api.SystemPrompt(text)
				systemSeen = true
				continue
			}
			// The messages dialect carries a single system prompt; later
			// system messages pass through as user turns.
			out.Messages = append(out.Messages, api.Message{
				Role:    api.RoleUser,
				Content: api.MessageContent{api.NewTextBlock(text)},
			})

		case "user":
			text, err := contentText(msg.Content)
			if err != nil {
				return nil, api.NewInvalidRequestError(
					fmt.Sprintf("messages[%d].content", i), err.Error())
			}
			out.Messages = append(out.Messages, api.Message{
				Role:    api.RoleUser,
				Content: api.MessageContent{api.NewTextBlock(text)},
			})

		case "assistant":
			text, err := contentText(msg.Content)
			if err != nil {
				return nil, api.NewInvalidRequestError(
					fmt.Sprintf("messages[%d].content", i), err.Error())
			}
			var content api.MessageContent
			if text != "" {
				content = append(content, api.NewTextBlock(text))
			}
			for _, tc := range msg.ToolCalls {
				content = append(content,
					api.NewToolUseBlock(tc.ID, tc.Function.Name, parseArguments(tc.Function.Arguments)))
			}
			if len(content) == 0 {
				content = append(content, api.NewTextBlock(""))
			}
			out.Messages = append(out.Messages, api.Message{
				Role:    api.RoleAssistant,
				Content: content,
			})

		case "tool":
			text, err := contentText(msg.Content)
			if err != nil {
				return nil, api.NewInvalidRequestError(
					fmt.Sprintf("messages[%d].content", i), err.Error())
			}
			raw, _ := json.Marshal(text)
			out.Messages = append(out.Messages, api.Message{
				Role: api.RoleUser,
				Content: api.MessageContent{{
					Type:      api.BlockTypeToolResult,
					ToolUseID: msg.ToolCallID,
					Content:   raw,
				}},
			})

		default:
			return nil, api.NewInvalidRequestError(
				fmt.Sprintf("messages[%d].role", i),
				fmt.Sprintf("unsupported message role %q", msg.Role))
		}
	}

	for i, tool := range req.Tools {
		if tool.Type != "" && tool.Type != "function" {
			return nil, api.NewInvalidRequestError(
				fmt.Sprintf("tools[%d].type", i),
				fmt.Sprintf("unsupported tool type %q", tool.Type))
		}
		out.Tools = append(out.Tools, api.ToolDefinition{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
			InputSchema: tool.Function.Parameters,
		})
	}
	out.ToolChoice = convertToolChoice(req.ToolChoice)

	if req.User != "" {
		out.Metadata = map[string]any{"user_id": req.User}
	}

	return out, nil
}

// parseArguments decodes a tool call's JSON arguments. Malformed input is
// preserved under a "raw" key rather than rejected; an empty string means
// no arguments.
func parseArguments(arguments string) map[string]any {
	if arguments == "" {
		return nil
	}
	var input map[string]any
	if err := json.Unmarshal([]byte(arguments), &input); err != nil {
		return map[string]any{"raw": arguments}
	}
	return input
}

// convertToolChoice maps the chat-completions tool_choice value (string or
// object) to its messages equivalent. "none" has no direct counterpart and
// falls back to auto.
func convertToolChoice(choice any) *api.ToolChoice {
	switch v := choice.(type) {
	case nil:
		return nil
	case string:
		if v == "required" {
			return &api.ToolChoice{Type: api.ToolChoiceAny}
		}
		return &api.ToolChoice{Type: api.ToolChoiceAuto}
	case map[string]any:
		fn, _ := v["function"].(map[string]any)
		if name, _ := fn["name"].(string); name != "" {
			return &api.ToolChoice{Type: api.ToolChoiceTool, Name: name}
		}
		return &api.ToolChoice{Type: api.ToolChoiceAuto}
	default:
		return &api.ToolChoice{Type: api.ToolChoiceAuto}
	}
}

// FromMessagesResponse converts a complete messages response back into the
// chat-completions format. The message id is reused as the completion id.
func FromMessagesResponse(resp *api.MessagesResponse) *ChatResponse {
	var text string
	var toolCalls []ChatToolCall
	for _, block := range resp.Content {
		switch block.Type {
		case api.BlockTypeText:
			text += block.Text
		case api.BlockTypeToolUse:
			toolCalls = append(toolCalls, ChatToolCall{
				ID:   block.ID,
				Type: "function",
				Function: ChatFunctionCall{
					Name:      block.Name,
					Arguments: encodeArguments(block.Input),
				},
			})
		}
	}

	msg := ChatMessage{Role: "assistant", Content: text, ToolCalls: toolCalls}
	if text == "" && len(toolCalls) > 0 {
		// Pure tool-call turns carry a null content, matching the
		// chat-completions convention.
		msg.Content = nil
	}

	return &ChatResponse{
		ID:      resp.ID,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   resp.Model,
		Choices: []ChatChoice{{
			Index:        0,
			Message:      msg,
			FinishReason: finishReasonFromStop(resp.StopReason),
		}},
		Usage: &ChatUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}
}

// encodeArguments renders a tool_use input as the JSON string the
// chat-completions format expects.
func encodeArguments(input map[string]any) string {
	if input == nil {
		return "{}"
	}
	raw, err := json.Marshal(input)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

// finishReasonFromStop maps a messages stop_reason to a chat-completions
// finish_reason. Both end_turn and stop_sequence read as a normal stop.
func finishReasonFromStop(reason api.StopReason) string {
	switch reason {
	case api.StopMaxTokens:
		return "length"
	case api.StopToolUse:
		return "tool_calls"
	default:
		return "stop"
	}
}
