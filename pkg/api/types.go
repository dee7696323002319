package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Roles and content block types
// ---------------------------------------------------------------------------

// MessageRole represents the role of a message sender.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ContentBlockType represents the type of a content block.
type ContentBlockType string

const (
	BlockTypeText       ContentBlockType = "text"
	BlockTypeToolUse    ContentBlockType = "tool_use"
	BlockTypeToolResult ContentBlockType = "tool_result"
)

// StopReason explains why the model stopped generating.
type StopReason string

const (
	StopEndTurn      StopReason = "end_turn"
	StopMaxTokens    StopReason = "max_tokens"
	StopToolUse      StopReason = "tool_use"
	StopStopSequence StopReason = "stop_sequence"
)

// ---------------------------------------------------------------------------
// ContentBlock union type
// ---------------------------------------------------------------------------

// ContentBlock represents a single unit of message content. The Type field
// selects the variant: text carries Text; tool_use carries ID, Name, and
// Input; tool_result carries ToolUseID, Content, and IsError.
type ContentBlock struct {
	Type ContentBlockType `json:"-"`

	// text
	Text string `json:"-"`

	// tool_use
	ID    string         `json:"-"`
	Name  string         `json:"-"`
	Input map[string]any `json:"-"`

	// tool_result
	ToolUseID string          `json:"-"`
	Content   json.RawMessage `json:"-"`
	IsError   bool            `json:"-"`
}

// NewTextBlock creates a text content block.
func NewTextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockTypeText, Text: text}
}

// NewToolUseBlock creates a tool_use content block.
func NewToolUseBlock(id, name string, input map[string]any) ContentBlock {
	return ContentBlock{Type: BlockTypeToolUse, ID: id, Name: name, Input: input}
}

// MarshalJSON serializes a ContentBlock to its wire form. The wire format
// is flat per variant: {type, text}, {type, id, name, input}, or
// {type, tool_use_id, content, is_error?}.
func (b ContentBlock) MarshalJSON() ([]byte, error) {
	switch b.Type {
	case BlockTypeText:
		return json.Marshal(struct {
			Type ContentBlockType `json:"type"`
			Text string           `json:"text"`
		}{b.Type, b.Text})

	case BlockTypeToolUse:
		input := b.Input
		if input == nil {
			input = map[string]any{}
		}
		return json.Marshal(struct {
			Type  ContentBlockType `json:"type"`
			ID    string           `json:"id"`
			Name  string           `json:"name"`
			Input map[string]any   `json:"input"`
		}{b.Type, b.ID, b.Name, input})

	case BlockTypeToolResult:
		return json.Marshal(struct {
			Type      ContentBlockType `json:"type"`
			ToolUseID string           `json:"tool_use_id"`
			Content   json.RawMessage  `json:"content,omitempty"`
			IsError   bool             `json:"is_error,omitempty"`
		}{b.Type, b.ToolUseID, b.Content, b.IsError})

	default:
		return nil, fmt.Errorf("unknown content block type %q", b.Type)
	}
}

// UnmarshalJSON deserializes a ContentBlock from the wire form, selecting
// the variant by the type field.
func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	var wire struct {
		Type      ContentBlockType `json:"type"`
		Text      string           `json:"text"`
		ID        string           `json:"id"`
		Name      string           `json:"name"`
		Input     map[string]any   `json:"input"`
		ToolUseID string           `json:"tool_use_id"`
		Content   json.RawMessage  `json:"content"`
		IsError   bool             `json:"is_error"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	b.Type = wire.Type
	switch wire.Type {
	case BlockTypeText:
		b.Text = wire.Text
	case BlockTypeToolUse:
		b.ID = wire.ID
		b.Name = wire.Name
		b.Input = wire.Input
	case BlockTypeToolResult:
		b.ToolUseID = wire.ToolUseID
		b.Content = wire.Content
		b.IsError = wire.IsError
	default:
		return fmt.Errorf("unknown content block type %q", wire.Type)
	}
	return nil
}

// ResultText renders the content of a tool_result block as a plain string:
// a JSON string is unquoted, an array of text blocks is joined, and any
// other JSON value is passed through in its encoded form.
func (b ContentBlock) ResultText() string {
	if len(b.Content) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(b.Content, &s); err == nil {
		return s
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(b.Content, &blocks); err == nil {
		var parts []string
		for _, inner := range blocks {
			if inner.Type == BlockTypeText {
				parts = append(parts, inner.Text)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n")
		}
	}

	return string(b.Content)
}

// ---------------------------------------------------------------------------
// Message and flexible content
// ---------------------------------------------------------------------------

// MessageContent is the content of a message: an ordered list of content
// blocks. The wire format also allows a bare string, which deserializes to
// a single text block; serialization always emits the canonical array form.
type MessageContent []ContentBlock

// UnmarshalJSON accepts either a JSON string or an array of content blocks.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = MessageContent{NewTextBlock(s)}
		return nil
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("content must be a string or an array of content blocks: %w", err)
	}
	*c = blocks
	return nil
}

// Message represents one turn of a conversation.
type Message struct {
	Role    MessageRole    `json:"role"`
	Content MessageContent `json:"content"`
}

// SystemPrompt is the top-level system field. The wire format allows a
// plain string or an array of text blocks; both normalize to a single
// string, with multiple blocks joined by blank lines.
type SystemPrompt string

// UnmarshalJSON accepts either a JSON string or an array of text blocks.
func (s *SystemPrompt) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = SystemPrompt(str)
		return nil
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("system must be a string or an array of text blocks: %w", err)
	}
	var parts []string
	for _, b := range blocks {
		if b.Type == BlockTypeText {
			parts = append(parts, b.Text)
		}
	}
	*s = SystemPrompt(strings.Join(parts, "\n\n"))
	return nil
}

// ---------------------------------------------------------------------------
// Tools
// ---------------------------------------------------------------------------

// ToolDefinition describes a tool available to the model. InputSchema is a
// JSON Schema object carried as loosely typed data; it is sanitized for the
// backend at translation time, not here.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

// ToolChoice represents a tool selection strategy: auto, any, or a
// specific tool by name.
type ToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

const (
	ToolChoiceAuto = "auto"
	ToolChoiceAny  = "any"
	ToolChoiceTool = "tool"
)

// ---------------------------------------------------------------------------
// Request and Response
// ---------------------------------------------------------------------------

// MessagesRequest represents the request body for creating a message.
type MessagesRequest struct {
	Model         string           `json:"model"`
	Messages      []Message        `json:"messages"`
	System        SystemPrompt     `json:"system,omitempty"`
	MaxTokens     int              `json:"max_tokens"`
	Temperature   *float64         `json:"temperature,omitempty"`
	TopP          *float64         `json:"top_p,omitempty"`
	StopSequences []string         `json:"stop_sequences,omitempty"`
	Stream        bool             `json:"stream,omitempty"`
	Tools         []ToolDefinition `json:"tools,omitempty"`
	ToolChoice    *ToolChoice      `json:"tool_choice,omitempty"`
	Metadata      map[string]any   `json:"metadata,omitempty"`
}

// MessagesResponse represents a complete model response.
// StopSequence is always present on the wire (null unless the model
// stopped on a custom sequence), matching client library expectations.
type MessagesResponse struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Role         MessageRole    `json:"role"`
	Model        string         `json:"model"`
	Content      []ContentBlock `json:"content"`
	StopReason   StopReason     `json:"stop_reason,omitempty"`
	StopSequence *string        `json:"stop_sequence"`
	Usage        Usage          `json:"usage"`
}

// NewMessagesResponse creates a response shell with the fixed type and
// role fields populated.
func NewMessagesResponse(id, model string) *MessagesResponse {
	return &MessagesResponse{
		ID:      id,
		Type:    "message",
		Role:    RoleAssistant,
		Model:   model,
		Content: []ContentBlock{},
	}
}
