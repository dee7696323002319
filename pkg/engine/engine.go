package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rhuss/dolmetsch/pkg/api"
	"github.com/rhuss/dolmetsch/pkg/observability"
	"github.com/rhuss/dolmetsch/pkg/provider"
	"github.com/rhuss/dolmetsch/pkg/storage"
	"github.com/rhuss/dolmetsch/pkg/transport"
)

// saveTimeout bounds the best-effort usage record write after the
// response has been delivered.
const saveTimeout = 5 * time.Second

// Engine orchestrates request processing between the transport layer
// and the backend provider. It implements transport.MessageCreator.
type Engine struct {
	provider provider.Provider
	store    transport.UsageStore
	cfg      Config
}

// Ensure Engine implements transport.MessageCreator at compile time.
var _ transport.MessageCreator = (*Engine)(nil)

// New creates a new Engine. The provider must not be nil. The store
// can be nil to disable usage recording.
func New(p provider.Provider, store transport.UsageStore, cfg Config) (*Engine, error) {
	if p == nil {
		return nil, fmt.Errorf("engine: provider must not be nil")
	}
	return &Engine{
		provider: p,
		store:    store,
		cfg:      cfg,
	}, nil
}

// CreateMessage handles a create-message request, streaming or not.
func (e *Engine) CreateMessage(ctx context.Context, req *api.MessagesRequest, w transport.ResponseWriter) error {
	// Apply default model if the request omits it.
	if req.Model == "" {
		if e.cfg.DefaultModel == "" {
			return api.NewInvalidRequestError("model", "model is required")
		}
		req.Model = e.cfg.DefaultModel
	}

	if apiErr := api.ValidateRequest(req, e.cfg.validation()); apiErr != nil {
		return apiErr
	}

	if apiErr := provider.ValidateCapabilities(e.provider.Capabilities(), req); apiErr != nil {
		return apiErr
	}

	if req.Stream {
		return e.streamMessage(ctx, req, w)
	}
	return e.completeMessage(ctx, req, w)
}

// completeMessage runs the non-streaming path: one backend call, one
// written response.
func (e *Engine) completeMessage(ctx context.Context, req *api.MessagesRequest, w transport.ResponseWriter) error {
	start := time.Now()
	resp, err := e.provider.Complete(ctx, req)
	duration := time.Since(start)

	if err != nil {
		observability.BackendRequestsTotal.WithLabelValues(req.Model, "error").Inc()
		observability.BackendLatency.WithLabelValues(req.Model).Observe(duration.Seconds())
		return err
	}

	observability.BackendRequestsTotal.WithLabelValues(req.Model, "success").Inc()
	observability.BackendLatency.WithLabelValues(req.Model).Observe(duration.Seconds())
	observability.TokensTotal.WithLabelValues(req.Model, "input").Add(float64(resp.Usage.InputTokens))
	observability.TokensTotal.WithLabelValues(req.Model, "output").Add(float64(resp.Usage.OutputTokens))

	if err := w.WriteMessage(ctx, resp); err != nil {
		return err
	}

	e.recordUsage(ctx, req, resp.Model, &resp.Usage, resp.StopReason, duration)
	return nil
}

// streamMessage runs the streaming path: backend events are forwarded
// to the writer as they arrive. The mapped model, usage, and stop
// reason are tracked along the way for metrics and usage recording.
func (e *Engine) streamMessage(ctx context.Context, req *api.MessagesRequest, w transport.ResponseWriter) error {
	start := time.Now()

	events, err := e.provider.Stream(ctx, req)
	if err != nil {
		observability.BackendRequestsTotal.WithLabelValues(req.Model, "error").Inc()
		return err
	}

	observability.StreamingConnections.Inc()
	defer observability.StreamingConnections.Dec()

	var (
		mappedModel string
		usage       api.Usage
		stopReason  api.StopReason
	)

	for ev := range events {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if ev.Err != nil {
			observability.BackendRequestsTotal.WithLabelValues(req.Model, "error").Inc()
			return ev.Err
		}

		switch ev.Event.Type {
		case api.EventMessageStart:
			if ev.Event.Message != nil {
				mappedModel = ev.Event.Message.Model
				usage.Merge(&ev.Event.Message.Usage)
			}
		case api.EventMessageDelta:
			if ev.Event.MessageDelta != nil {
				stopReason = ev.Event.MessageDelta.StopReason
			}
			usage.Merge(ev.Event.Usage)
		}

		if err := w.WriteEvent(ctx, ev.Event); err != nil {
			return err
		}
	}

	duration := time.Since(start)
	observability.BackendRequestsTotal.WithLabelValues(req.Model, "success").Inc()
	observability.BackendLatency.WithLabelValues(req.Model).Observe(duration.Seconds())
	observability.TokensTotal.WithLabelValues(req.Model, "input").Add(float64(usage.InputTokens))
	observability.TokensTotal.WithLabelValues(req.Model, "output").Add(float64(usage.OutputTokens))

	e.recordUsage(ctx, req, mappedModel, &usage, stopReason, duration)
	return nil
}

// recordUsage persists a usage record. Best-effort: failures are logged
// and never fail the request.
func (e *Engine) recordUsage(ctx context.Context, req *api.MessagesRequest, mappedModel string, usage *api.Usage, stopReason api.StopReason, duration time.Duration) {
	if e.store == nil {
		return
	}

	rec := &storage.UsageRecord{
		RequestID:    transport.RequestIDFromContext(ctx),
		TenantID:     storage.GetTenant(ctx),
		Dialect:      transport.DialectFromContext(ctx),
		Model:        req.Model,
		MappedModel:  mappedModel,
		Stream:       req.Stream,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		StopReason:   string(stopReason),
		LatencyMS:    duration.Milliseconds(),
	}

	// The response is already written; detach the save from request
	// cancellation so a disconnecting client does not lose the record.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()

	if err := e.store.SaveRecord(saveCtx, rec); err != nil {
		slog.Warn("failed to save usage record",
			"request_id", rec.RequestID,
			"error", err)
	}
}
