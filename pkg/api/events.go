package api

import (
	"encoding/json"
	"fmt"
)

// StreamEventType identifies the type of a streaming event.
type StreamEventType string

const (
	EventMessageStart      StreamEventType = "message_start"
	EventContentBlockStart StreamEventType = "content_block_start"
	EventContentBlockDelta StreamEventType = "content_block_delta"
	EventContentBlockStop  StreamEventType = "content_block_stop"
	EventMessageDelta      StreamEventType = "message_delta"
	EventMessageStop       StreamEventType = "message_stop"
	EventPing              StreamEventType = "ping"
	EventError             StreamEventType = "error"
)

// Block delta types carried inside content_block_delta events.
const (
	DeltaTypeText      = "text_delta"
	DeltaTypeInputJSON = "input_json_delta"
)

// BlockDelta is the incremental payload of a content_block_delta event:
// a text fragment for text blocks, or a partial JSON fragment of the
// input arguments for tool_use blocks.
type BlockDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
}

// MessageDelta is the payload of a message_delta event. StopSequence is
// serialized even when null, matching the wire format.
type MessageDelta struct {
	StopReason   StopReason `json:"stop_reason,omitempty"`
	StopSequence *string    `json:"stop_sequence"`
}

// StreamEvent represents a single server-sent event in a streaming
// response. The Type field selects which of the remaining fields are
// meaningful; MarshalJSON emits exactly the wire fields of each variant.
type StreamEvent struct {
	Type StreamEventType

	// message_start
	Message *MessagesResponse

	// content_block_start / content_block_delta / content_block_stop
	Index        int
	ContentBlock *ContentBlock
	Delta        *BlockDelta

	// message_delta
	MessageDelta *MessageDelta
	Usage        *Usage

	// error
	Error *APIError
}

// MarshalJSON serializes a StreamEvent to its wire form.
func (e StreamEvent) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventMessageStart:
		return json.Marshal(struct {
			Type    StreamEventType   `json:"type"`
			Message *MessagesResponse `json:"message"`
		}{e.Type, e.Message})

	case EventContentBlockStart:
		return json.Marshal(struct {
			Type         StreamEventType `json:"type"`
			Index        int             `json:"index"`
			ContentBlock *ContentBlock   `json:"content_block"`
		}{e.Type, e.Index, e.ContentBlock})

	case EventContentBlockDelta:
		return json.Marshal(struct {
			Type  StreamEventType `json:"type"`
			Index int             `json:"index"`
			Delta *BlockDelta     `json:"delta"`
		}{e.Type, e.Index, e.Delta})

	case EventContentBlockStop:
		return json.Marshal(struct {
			Type  StreamEventType `json:"type"`
			Index int             `json:"index"`
		}{e.Type, e.Index})

	case EventMessageDelta:
		return json.Marshal(struct {
			Type  StreamEventType `json:"type"`
			Delta *MessageDelta   `json:"delta"`
			Usage *Usage          `json:"usage,omitempty"`
		}{e.Type, e.MessageDelta, e.Usage})

	case EventMessageStop, EventPing:
		return json.Marshal(struct {
			Type StreamEventType `json:"type"`
		}{e.Type})

	case EventError:
		return json.Marshal(struct {
			Type  StreamEventType `json:"type"`
			Error *APIError       `json:"error"`
		}{e.Type, e.Error})

	default:
		return nil, fmt.Errorf("unknown stream event type %q", e.Type)
	}
}

// UnmarshalJSON deserializes a StreamEvent, disambiguating the overloaded
// "delta" field by the event type.
func (e *StreamEvent) UnmarshalJSON(data []byte) error {
	var wire struct {
		Type         StreamEventType   `json:"type"`
		Message      *MessagesResponse `json:"message"`
		Index        int               `json:"index"`
		ContentBlock *ContentBlock     `json:"content_block"`
		Delta        json.RawMessage   `json:"delta"`
		Usage        *Usage            `json:"usage"`
		Error        *APIError         `json:"error"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	e.Type = wire.Type
	e.Message = wire.Message
	e.Index = wire.Index
	e.ContentBlock = wire.ContentBlock
	e.Usage = wire.Usage
	e.Error = wire.Error

	if len(wire.Delta) > 0 {
		switch wire.Type {
		case EventContentBlockDelta:
			var d BlockDelta
			if err := json.Unmarshal(wire.Delta, &d); err != nil {
				return err
			}
			e.Delta = &d
		case EventMessageDelta:
			var d MessageDelta
			if err := json.Unmarshal(wire.Delta, &d); err != nil {
				return err
			}
			e.MessageDelta = &d
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Event constructors
// ---------------------------------------------------------------------------

// NewMessageStartEvent creates a message_start event carrying the response
// shell (empty content, partial usage).
func NewMessageStartEvent(msg *MessagesResponse) StreamEvent {
	return StreamEvent{Type: EventMessageStart, Message: msg}
}

// NewBlockStartEvent creates a content_block_start event.
func NewBlockStartEvent(index int, block ContentBlock) StreamEvent {
	return StreamEvent{Type: EventContentBlockStart, Index: index, ContentBlock: &block}
}

// NewTextDeltaEvent creates a content_block_delta event with a text fragment.
func NewTextDeltaEvent(index int, text string) StreamEvent {
	return StreamEvent{
		Type:  EventContentBlockDelta,
		Index: index,
		Delta: &BlockDelta{Type: DeltaTypeText, Text: text},
	}
}

// NewInputJSONDeltaEvent creates a content_block_delta event with a
// partial JSON fragment of tool input.
func NewInputJSONDeltaEvent(index int, partial string) StreamEvent {
	return StreamEvent{
		Type:  EventContentBlockDelta,
		Index: index,
		Delta: &BlockDelta{Type: DeltaTypeInputJSON, PartialJSON: partial},
	}
}

// NewBlockStopEvent creates a content_block_stop event.
func NewBlockStopEvent(index int) StreamEvent {
	return StreamEvent{Type: EventContentBlockStop, Index: index}
}

// NewMessageDeltaEvent creates a message_delta event with the resolved
// stop reason and final usage.
func NewMessageDeltaEvent(stop StopReason, usage *Usage) StreamEvent {
	return StreamEvent{
		Type:         EventMessageDelta,
		MessageDelta: &MessageDelta{StopReason: stop},
		Usage:        usage,
	}
}

// NewMessageStopEvent creates a message_stop event.
func NewMessageStopEvent() StreamEvent {
	return StreamEvent{Type: EventMessageStop}
}

// NewErrorEvent creates a terminal error event for an already-started stream.
func NewErrorEvent(apiErr *APIError) StreamEvent {
	return StreamEvent{Type: EventError, Error: apiErr}
}
