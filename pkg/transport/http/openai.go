package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rhuss/dolmetsch/pkg/api"
	"github.com/rhuss/dolmetsch/pkg/openai"
	"github.com/rhuss/dolmetsch/pkg/transport"
)

// openaiWriter implements transport.ResponseWriter in the
// chat-completions wire format. Streaming events pass through a
// ChunkConverter and are framed as "data: {chunk}" lines; the terminal
// chunk is followed by "data: [DONE]". Non-streaming responses are
// translated with FromMessagesResponse and written as JSON.
type openaiWriter struct {
	w    http.ResponseWriter
	rc   *http.ResponseController
	conv *openai.ChunkConverter

	mu    sync.Mutex
	state writerState
}

var _ transport.ResponseWriter = (*openaiWriter)(nil)

// newOpenAIWriter creates a ResponseWriter for one chat-completions
// request. The model seeds the chunk converter and is echoed on every
// chunk unless message_start overrides it.
func newOpenAIWriter(w http.ResponseWriter, model string) *openaiWriter {
	return &openaiWriter{
		w:    w,
		rc:   http.NewResponseController(w),
		conv: openai.NewChunkConverter(model),
	}
}

// WriteEvent converts one canonical event and writes the resulting chunk,
// if any. Events that express nothing in the chat-completions format
// (message_start, ping, content_block_stop) set headers but emit no data.
func (s *openaiWriter) WriteEvent(ctx context.Context, event api.StreamEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerCompleted {
		return errors.New("cannot write event: writer is completed")
	}

	// First event: set SSE headers.
	if s.state == writerIdle {
		s.w.Header().Set("Content-Type", "text/event-stream")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.Header().Set("Connection", "keep-alive")
		s.state = writerStreaming
	}

	chunk := s.conv.Next(event)
	if chunk == nil && !s.conv.Done() {
		return nil
	}

	if chunk != nil {
		data, err := json.Marshal(chunk)
		if err != nil {
			return fmt.Errorf("failed to marshal chunk: %w", err)
		}
		if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
			return fmt.Errorf("failed to write chunk: %w", err)
		}
	}

	if s.conv.Done() {
		if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
			return fmt.Errorf("failed to write [DONE]: %w", err)
		}
		s.state = writerCompleted
	}

	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	return nil
}

// WriteMessage sends a complete non-streaming chat completion.
// This is mutually exclusive with WriteEvent.
func (s *openaiWriter) WriteMessage(ctx context.Context, msg *api.MessagesResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerStreaming {
		return errors.New("cannot write message: streaming has already started")
	}
	if s.state == writerCompleted {
		return errors.New("cannot write message: writer is completed")
	}

	s.w.Header().Set("Content-Type", "application/json")
	s.state = writerCompleted

	if err := json.NewEncoder(s.w).Encode(openai.FromMessagesResponse(msg)); err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}

	return nil
}

// Flush ensures buffered data is sent to the client.
func (s *openaiWriter) Flush() error {
	return s.rc.Flush()
}

// hasStartedStreaming returns true if at least one SSE event has been written.
func (s *openaiWriter) hasStartedStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == writerStreaming || (s.state == writerCompleted && s.w.Header().Get("Content-Type") == "text/event-stream")
}

// writeStreamError terminates an already-started stream with the error
// envelope as a data line, then [DONE]. The chat-completions stream
// protocol has no error event type, so this is best-effort.
func (s *openaiWriter) writeStreamError(apiErr *api.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerCompleted {
		return
	}
	s.state = writerCompleted

	data, err := json.Marshal(openai.FromAPIError(apiErr))
	if err != nil {
		return
	}
	fmt.Fprintf(s.w, "data: %s\n\n", data)
	fmt.Fprint(s.w, "data: [DONE]\n\n")
	s.rc.Flush()
}
