// Package http serves the two client-facing dialects over HTTP: the
// messages API on /v1/messages and the chat-completions API on
// /v1/chat/completions. Each dialect has its own ResponseWriter that
// renders the canonical engine output in that dialect's wire format.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rhuss/dolmetsch/pkg/api"
	"github.com/rhuss/dolmetsch/pkg/transport"
)

// writerState tracks the state of a dialect ResponseWriter.
type writerState int

const (
	writerIdle      writerState = iota // Initial state, no writes yet
	writerStreaming                    // WriteEvent has been called at least once
	writerCompleted                    // Terminal event sent or WriteMessage called
)

// claudeWriter implements transport.ResponseWriter in the messages wire
// format: SSE events for streaming responses, a single JSON document
// otherwise. The stream ends after message_stop or error; the messages
// protocol has no [DONE] sentinel.
type claudeWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu    sync.Mutex
	state writerState
}

var _ transport.ResponseWriter = (*claudeWriter)(nil)

// newClaudeWriter creates a ResponseWriter wrapping an http.ResponseWriter.
func newClaudeWriter(w http.ResponseWriter) *claudeWriter {
	return &claudeWriter{
		w:  w,
		rc: http.NewResponseController(w),
	}
}

// WriteEvent sends a single SSE event. The event is formatted as:
//
//	event: {type}\n
//	data: {json}\n
//	\n
func (s *claudeWriter) WriteEvent(ctx context.Context, event api.StreamEvent) error {
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

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	// Flush immediately.
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	if event.Type == api.EventMessageStop || event.Type == api.EventError {
		s.state = writerCompleted
	}

	return nil
}

// WriteMessage sends a complete non-streaming JSON response.
// This is mutually exclusive with WriteEvent.
func (s *claudeWriter) WriteMessage(ctx context.Context, msg *api.MessagesResponse) error {
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

	if err := json.NewEncoder(s.w).Encode(msg); err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	return nil
}

// Flush ensures buffered data is sent to the client.
func (s *claudeWriter) Flush() error {
	return s.rc.Flush()
}

// hasStartedStreaming returns true if at least one SSE event has been written.
func (s *claudeWriter) hasStartedStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == writerStreaming || (s.state == writerCompleted && s.w.Header().Get("Content-Type") == "text/event-stream")
}
