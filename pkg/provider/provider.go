package provider

import (
	"context"

	"github.com/rhuss/dolmetsch/pkg/api"
)

// Provider abstracts an LLM inference backend. Requests and responses use
// the Claude messages dialect, the gateway's canonical representation;
// each adapter handles its own backend protocol internally.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Provider interface {
	// Name returns the provider identifier (e.g., "cloudcode").
	Name() string

	// Capabilities returns what this provider supports.
	Capabilities() Capabilities

	// Complete performs non-streaming inference.
	Complete(ctx context.Context, req *api.MessagesRequest) (*api.MessagesResponse, error)

	// Stream performs streaming inference. The returned channel receives
	// Event values in emission order and is closed by the provider when
	// the stream completes or errors. An Event with a non-nil Err is
	// terminal.
	Stream(ctx context.Context, req *api.MessagesRequest) (<-chan Event, error)

	// ListModels returns the model identifiers this provider accepts.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// Close releases provider resources (HTTP clients, connections).
	Close() error
}

// Event is a single streaming event from the backend, already translated
// into the Claude dialect.
type Event struct {
	// Event is the translated stream event.
	Event api.StreamEvent

	// Err is populated if the stream failed; no further events follow.
	Err error
}

// Capabilities declares what features the backend supports. Used by the
// engine for early request validation.
type Capabilities struct {
	// Streaming indicates whether the provider supports streaming responses.
	Streaming bool

	// ToolCalling indicates whether the provider supports tool use.
	ToolCalling bool

	// MaxTools is the maximum number of tool definitions per request
	// (0 = unlimited).
	MaxTools int
}

// ModelInfo holds information about a model accepted by the provider.
type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`
}

// ValidateCapabilities checks whether the given request is compatible with
// the provider's declared capabilities. Returns an APIError identifying
// the specific unsupported feature, or nil if the request is compatible.
func ValidateCapabilities(caps Capabilities, req *api.MessagesRequest) *api.APIError {
	if req.Stream && !caps.Streaming {
		return api.NewInvalidRequestError("stream",
			"the configured provider does not support streaming responses")
	}

	if len(req.Tools) > 0 && !caps.ToolCalling {
		return api.NewInvalidRequestError("tools",
			"the configured provider does not support tool use")
	}

	if caps.MaxTools > 0 && len(req.Tools) > caps.MaxTools {
		return api.NewInvalidRequestError("tools",
			"the configured provider limits requests to fewer tools")
	}

	return nil
}
