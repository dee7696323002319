package openai

import (
	"time"

	"github.com/rhuss/dolmetsch/pkg/api"
)

// ChunkConverter re-emits a messages event stream as chat-completion
// chunks. Feed every event to Next; a nil result means the event produces
// no chunk. After message_stop, Next returns the terminal chunk and Done
// reports true; the transport then closes the stream with [DONE].
//
// All chunks share one id and created timestamp and carry a single choice
// at index 0.
type ChunkConverter struct {
	model   string
	id      string
	created int64

	sentRole  bool
	toolIndex int
	finish    string
	usage     *ChatUsage
	done      bool
}

// NewChunkConverter creates a converter for one streaming response. The
// model is echoed on every chunk unless message_start overrides it.
func NewChunkConverter(model string) *ChunkConverter {
	return &ChunkConverter{
		model:     model,
		created:   time.Now().Unix(),
		toolIndex: -1,
	}
}

// Done reports whether the terminal chunk has been emitted.
func (c *ChunkConverter) Done() bool { return c.done }

// Next converts one stream event. Events that carry nothing the
// chat-completions format expresses (ping, content_block_stop) yield nil.
func (c *ChunkConverter) Next(ev api.StreamEvent) *ChatChunk {
	switch ev.Type {
	case api.EventMessageStart:
		if ev.Message != nil {
			c.id = chatCompletionIDFrom(ev.Message.ID)
			if ev.Message.Model != "" {
				c.model = ev.Message.Model
			}
		}
		return nil

	case api.EventContentBlockStart:
		if ev.ContentBlock == nil {
			return nil
		}
		if ev.ContentBlock.Type == api.BlockTypeToolUse {
			c.toolIndex++
			delta := ChatChunkDelta{
				ToolCalls: []ChatChunkToolCall{{
					Index:    c.toolIndex,
					ID:       ev.ContentBlock.ID,
					Type:     "function",
					Function: ChatChunkFunctionCall{Name: ev.ContentBlock.Name},
				}},
			}
			if !c.sentRole {
				delta.Role = "assistant"
				c.sentRole = true
			}
			return c.chunk(delta)
		}
		if c.sentRole {
			return nil
		}
		c.sentRole = true
		return c.chunk(ChatChunkDelta{Role: "assistant"})

	case api.EventContentBlockDelta:
		if ev.Delta == nil {
			return nil
		}
		switch ev.Delta.Type {
		case api.DeltaTypeText:
			text := ev.Delta.Text
			return c.chunk(ChatChunkDelta{Content: &text})
		case api.DeltaTypeInputJSON:
			if c.toolIndex < 0 {
				return nil
			}
			return c.chunk(ChatChunkDelta{
				ToolCalls: []ChatChunkToolCall{{
					Index:    c.toolIndex,
					Function: ChatChunkFunctionCall{Arguments: ev.Delta.PartialJSON},
				}},
			})
		}
		return nil

	case api.EventMessageDelta:
		if ev.MessageDelta != nil {
			c.finish = finishReasonFromStop(ev.MessageDelta.StopReason)
		}
		if ev.Usage != nil {
			c.usage = &ChatUsage{
				PromptTokens:     ev.Usage.InputTokens,
				CompletionTokens: ev.Usage.OutputTokens,
				TotalTokens:      ev.Usage.InputTokens + ev.Usage.OutputTokens,
			}
		}
		return nil

	case api.EventMessageStop:
		c.done = true
		finish := c.finish
		if finish == "" {
			finish = "stop"
		}
		final := c.chunk(ChatChunkDelta{})
		final.Choices[0].FinishReason = &finish
		final.Usage = c.usage
		return final
	}

	return nil
}

// chunk wraps a delta in the shared chunk envelope.
func (c *ChunkConverter) chunk(delta ChatChunkDelta) *ChatChunk {
	if c.id == "" {
		c.id = NewChatCompletionID()
	}
	return &ChatChunk{
		ID:      c.id,
		Object:  "chat.completion.chunk",
		Created: c.created,
		Model:   c.model,
		Choices: []ChatChunkChoice{{Index: 0, Delta: delta}},
	}
}
