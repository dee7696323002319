package transport

import (
	"context"
	"time"

	"github.com/rhuss/dolmetsch/pkg/api"
	"github.com/rhuss/dolmetsch/pkg/storage"
)

// MessageCreator handles the core create-message operation. The
// implementation receives a canonical request and writes the result
// (streaming events or a complete message) to the ResponseWriter.
type MessageCreator interface {
	CreateMessage(ctx context.Context, req *api.MessagesRequest, w ResponseWriter) error
}

// MessageCreatorFunc is an adapter that allows using an ordinary function
// as a MessageCreator.
type MessageCreatorFunc func(ctx context.Context, req *api.MessagesRequest, w ResponseWriter) error

// CreateMessage calls f(ctx, req, w).
func (f MessageCreatorFunc) CreateMessage(ctx context.Context, req *api.MessagesRequest, w ResponseWriter) error {
	return f(ctx, req, w)
}

// ResponseWriter abstracts streaming and non-streaming output for the
// handler. The transport layer creates a ResponseWriter for each request;
// the handler uses WriteEvent for streaming responses or WriteMessage for
// non-streaming ones.
//
// WriteEvent and WriteMessage are mutually exclusive on a single writer
// instance: calling one after the other returns an error, as does calling
// WriteEvent after the terminal message_stop event.
type ResponseWriter interface {
	// WriteEvent sends a single streaming event.
	WriteEvent(ctx context.Context, event api.StreamEvent) error

	// WriteMessage sends a complete non-streaming response.
	WriteMessage(ctx context.Context, msg *api.MessagesResponse) error

	// Flush ensures buffered data is sent to the client. Returns an error
	// if the client has disconnected.
	Flush() error
}

// UsageStore handles persistence and aggregation of per-request usage
// records. Implementations (memory, postgres) live under pkg/storage;
// shared types and tenant helpers live in pkg/storage itself.
type UsageStore interface {
	// SaveRecord persists a usage record. Stores assign an ID and
	// timestamp when the record carries none.
	SaveRecord(ctx context.Context, rec *storage.UsageRecord) error

	// GetRecord retrieves the most recent record for a request ID.
	// Returns storage.ErrNotFound if no record matches.
	GetRecord(ctx context.Context, requestID string) (*storage.UsageRecord, error)

	// ListRecords retrieves records matching the given options, newest
	// first. Scoped by tenant when a tenant is present in the context.
	ListRecords(ctx context.Context, opts storage.ListOptions) ([]*storage.UsageRecord, error)

	// Summarize aggregates records created at or after since, grouped
	// by tenant and mapped model.
	Summarize(ctx context.Context, since time.Time) ([]*storage.UsageSummary, error)

	// HealthCheck verifies the store connection is functional.
	HealthCheck(ctx context.Context) error

	// Close releases database connections and resources.
	Close() error
}
