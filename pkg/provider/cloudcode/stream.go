package cloudcode

import (
	"encoding/json"
	"strings"

	"github.com/rhuss/dolmetsch/pkg/api"
)

type blockKind int

const (
	blockNone blockKind = iota
	blockText
	blockTool
)

// StreamProcessor translates a backend SSE stream into messages stream
// events, one line at a time. It tracks the open content block so that
// consecutive fragments of the same kind coalesce into a single block while
// a kind change closes the old block and opens the next one under an
// incremented index.
//
// Feed never blocks and never fails: lines that are not data lines, or whose
// payload does not parse, produce no events. Call Finish exactly once after
// the last line to flush the terminal events.
type StreamProcessor struct {
	model string

	started   bool
	messageID string

	index     int
	kind      blockKind
	toolRawID string
	toolName  string

	sawToolUse bool
	finish     string
	usage      api.Usage
}

// NewStreamProcessor returns a processor for one backend stream. The model
// is stamped into the message_start event.
func NewStreamProcessor(model string) *StreamProcessor {
	return &StreamProcessor{model: model, index: -1}
}

// Feed consumes one line of the backend SSE stream and returns the stream
// events it unlocks, possibly none.
func (p *StreamProcessor) Feed(line string) []api.StreamEvent {
	payload, ok := strings.CutPrefix(line, "data: ")
	if !ok {
		return nil
	}

	var frame streamFrame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		return nil
	}
	if frame.Response == nil && frame.ResponseID == "" {
		return nil
	}

	resp := frame.Response
	if resp != nil {
		p.usage.Merge(usageFromMetadata(resp.UsageMetadata))
	}

	var events []api.StreamEvent
	if !p.started {
		events = append(events, p.start(&frame))
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return events
	}

	cand := resp.Candidates[0]
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			switch {
			case part.FunctionCall != nil:
				events = append(events, p.feedFunctionCall(part.FunctionCall)...)
			case part.FunctionResponse != nil:
				// Not assistant output. Skip.
			case part.Text != "":
				events = append(events, p.feedText(part.Text)...)
			}
		}
	}
	if cand.FinishReason != "" {
		p.finish = cand.FinishReason
	}
	return events
}

// Finish closes any open block and emits the terminal message_delta and
// message_stop events together with the accumulated usage. When no frame
// ever arrived, a message_start is synthesized first so the emitted sequence
// is still a complete message. Finish must be called exactly once, after the
// last Feed.
func (p *StreamProcessor) Finish() ([]api.StreamEvent, *api.Usage) {
	var events []api.StreamEvent
	if !p.started {
		events = append(events, p.start(&streamFrame{}))
	}
	events = append(events, p.closeBlock()...)

	usage := p.usage
	events = append(events,
		api.NewMessageDeltaEvent(p.stopReason(), &usage),
		api.NewMessageStopEvent(),
	)
	return events, &usage
}

// start emits the message_start event, preferring the frame's response id
// over a synthesized one.
func (p *StreamProcessor) start(frame *streamFrame) api.StreamEvent {
	p.started = true

	id := frame.ResponseID
	if id == "" && frame.Response != nil {
		id = frame.Response.ResponseID
	}
	if id == "" {
		id = api.NewMessageID()
	}
	p.messageID = id

	shell := api.NewMessagesResponse(id, p.model)
	shell.Usage = p.usage
	return api.NewMessageStartEvent(shell)
}

func (p *StreamProcessor) feedText(text string) []api.StreamEvent {
	var events []api.StreamEvent
	if p.kind != blockText {
		events = append(events, p.closeBlock()...)
		p.index++
		p.kind = blockText
		events = append(events, api.NewBlockStartEvent(p.index, api.NewTextBlock("")))
	}
	return append(events, api.NewTextDeltaEvent(p.index, text))
}

func (p *StreamProcessor) feedFunctionCall(fc *FunctionCall) []api.StreamEvent {
	var events []api.StreamEvent

	// A fragment continues the open tool block only when it addresses the
	// same call: same name and same backend id, including both empty.
	continues := p.kind == blockTool && fc.Name == p.toolName && fc.ID == p.toolRawID
	if !continues {
		events = append(events, p.closeBlock()...)
		p.index++
		p.kind = blockTool
		p.toolRawID = fc.ID
		p.toolName = fc.Name
		p.sawToolUse = true

		id := fc.ID
		if id == "" {
			id = api.NewToolUseID()
		}
		events = append(events, api.NewBlockStartEvent(p.index, api.NewToolUseBlock(id, fc.Name, nil)))
	}

	if fc.Args != nil {
		encoded, err := json.Marshal(fc.Args)
		if err == nil {
			events = append(events, api.NewInputJSONDeltaEvent(p.index, string(encoded)))
		}
	}
	return events
}

func (p *StreamProcessor) closeBlock() []api.StreamEvent {
	if p.kind == blockNone {
		return nil
	}
	ev := api.NewBlockStopEvent(p.index)
	p.kind = blockNone
	p.toolRawID = ""
	p.toolName = ""
	return []api.StreamEvent{ev}
}

func (p *StreamProcessor) stopReason() api.StopReason {
	return mapFinishReason(p.finish, p.sawToolUse)
}
