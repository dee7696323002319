package api

import (
	"encoding/json"
	"fmt"
)

// ValidationConfig holds the configurable limits for request validation.
type ValidationConfig struct {
	// MaxMessages is the maximum number of messages per request.
	MaxMessages int

	// MaxContentSize is the maximum total content size in bytes.
	MaxContentSize int

	// MaxTools is the maximum number of tool definitions per request.
	MaxTools int
}

// DefaultValidationConfig returns the default validation limits.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxMessages:    1000,
		MaxContentSize: 10 * 1024 * 1024, // 10 MB
		MaxTools:       128,
	}
}

// ValidateRequest checks a MessagesRequest against protocol rules and the
// given limits. Returns nil if the request is valid, or an APIError
// naming the offending parameter.
func ValidateRequest(req *MessagesRequest, cfg ValidationConfig) *APIError {
	if req.Model == "" {
		return NewInvalidRequestError("model", "model is required")
	}

	if len(req.Messages) == 0 {
		return NewInvalidRequestError("messages", "messages must not be empty")
	}
	if cfg.MaxMessages > 0 && len(req.Messages) > cfg.MaxMessages {
		return NewInvalidRequestError("messages",
			fmt.Sprintf("too many messages (max %d)", cfg.MaxMessages))
	}

	if req.MaxTokens <= 0 {
		return NewInvalidRequestError("max_tokens", "max_tokens must be a positive integer")
	}

	if req.Temperature != nil && (*req.Temperature < 0 || *req.Temperature > 2) {
		return NewInvalidRequestError("temperature", "temperature must be between 0 and 2")
	}

	if req.TopP != nil && (*req.TopP < 0 || *req.TopP > 1) {
		return NewInvalidRequestError("top_p", "top_p must be between 0 and 1")
	}

	for i, msg := range req.Messages {
		if msg.Role != RoleUser && msg.Role != RoleAssistant {
			return NewInvalidRequestError(
				fmt.Sprintf("messages[%d].role", i),
				fmt.Sprintf("role must be %q or %q", RoleUser, RoleAssistant))
		}
	}

	if cfg.MaxTools > 0 && len(req.Tools) > cfg.MaxTools {
		return NewInvalidRequestError("tools",
			fmt.Sprintf("too many tools (max %d)", cfg.MaxTools))
	}
	for i, tool := range req.Tools {
		if tool.Name == "" {
			return NewInvalidRequestError(
				fmt.Sprintf("tools[%d].name", i), "tool name is required")
		}
	}

	if req.ToolChoice != nil {
		switch req.ToolChoice.Type {
		case ToolChoiceAuto, ToolChoiceAny:
		case ToolChoiceTool:
			if req.ToolChoice.Name == "" {
				return NewInvalidRequestError("tool_choice.name",
					"tool_choice of type \"tool\" requires a name")
			}
		default:
			return NewInvalidRequestError("tool_choice.type",
				fmt.Sprintf("unknown tool_choice type %q", req.ToolChoice.Type))
		}
	}

	if cfg.MaxContentSize > 0 {
		if size := contentSize(req); size > cfg.MaxContentSize {
			return NewInvalidRequestError("messages",
				fmt.Sprintf("total content size %d exceeds maximum %d", size, cfg.MaxContentSize))
		}
	}

	return nil
}

// contentSize approximates the total content payload in bytes: text and
// tool results by length, tool inputs by their encoded size.
func contentSize(req *MessagesRequest) int {
	size := len(req.System)
	for _, msg := range req.Messages {
		for _, block := range msg.Content {
			switch block.Type {
			case BlockTypeText:
				size += len(block.Text)
			case BlockTypeToolResult:
				size += len(block.Content)
			case BlockTypeToolUse:
				if block.Input != nil {
					if raw, err := json.Marshal(block.Input); err == nil {
						size += len(raw)
					}
				}
			}
		}
	}
	return size
}
