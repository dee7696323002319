package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/dolmetsch/pkg/api"
	"github.com/rhuss/dolmetsch/pkg/openai"
	"github.com/rhuss/dolmetsch/pkg/provider"
	"github.com/rhuss/dolmetsch/pkg/storage"
	"github.com/rhuss/dolmetsch/pkg/transport"
)

// Adapter serves both client dialects over HTTP. It routes requests to
// the dialect handlers, decodes the dialect request shapes, and picks
// the matching ResponseWriter so errors and results always come back in
// the wire format the client spoke.
type Adapter struct {
	creator transport.MessageCreator
	store   transport.UsageStore // nil when usage persistence is disabled
	models  ModelLister          // nil disables GET /v1/models
	mux     *http.ServeMux
	config  Config
}

// ModelLister exposes the model catalog for GET /v1/models. The backend
// provider implements it.
type ModelLister interface {
	ListModels(ctx context.Context) ([]provider.ModelInfo, error)
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	Addr            string
	MaxBodySize     int64
	ShutdownTimeout int // seconds
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		MaxBodySize:     10 << 20, // 10 MB
		ShutdownTimeout: 30,
	}
}

// NewAdapter creates an HTTP adapter with the given MessageCreator.
// The UsageStore and ModelLister are optional; when nil, the usage and
// model endpoints report the operation as unavailable.
// Middleware is applied to the MessageCreator in the given order.
func NewAdapter(creator transport.MessageCreator, store transport.UsageStore, models ModelLister, cfg Config, middlewares ...transport.Middleware) *Adapter {
	// Apply middleware chain to the creator.
	if len(middlewares) > 0 {
		creator = transport.Chain(middlewares...)(creator)
	}

	a := &Adapter{
		creator: creator,
		store:   store,
		models:  models,
		mux:     http.NewServeMux(),
		config:  cfg,
	}

	a.mux.HandleFunc("POST /v1/messages", a.handleMessages)
	a.mux.HandleFunc("POST /v1/chat/completions", a.handleChatCompletions)
	a.mux.HandleFunc("GET /v1/models", a.handleListModels)
	a.mux.HandleFunc("GET /v1/usage", a.handleUsageSummary)
	a.mux.HandleFunc("GET /v1/usage/records", a.handleUsageRecords)
	a.mux.HandleFunc("GET /healthz", a.handleHealth)
	a.mux.Handle("GET /metrics", promhttp.Handler())

	return a
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest. The returned handler includes
// HTTP-level middleware for request ID propagation.
func (a *Adapter) Handler() http.Handler {
	return httpRequestIDMiddleware(a.mux)
}

// httpRequestIDMiddleware is HTTP-level middleware that propagates the
// X-Request-ID header. If present in the request, it is forwarded to
// the response. After the handler runs, it checks the context for a
// request ID (set by the transport-level RequestID middleware) and adds
// it to the response headers if not already set.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// If client sent X-Request-ID, propagate it into context.
		if id := r.Header.Get("X-Request-ID"); id != "" {
			ctx := transport.ContextWithRequestID(r.Context(), id)
			r = r.WithContext(ctx)
		}
		// Use a response writer wrapper to capture and set the request ID
		// header before the first write.
		rw := &requestIDResponseWriter{ResponseWriter: w, r: r}
		next.ServeHTTP(rw, r)
	})
}

// requestIDResponseWriter wraps http.ResponseWriter to inject the
// X-Request-ID header before the first write.
type requestIDResponseWriter struct {
	http.ResponseWriter
	r           *http.Request
	headersSent bool
}

func (w *requestIDResponseWriter) WriteHeader(statusCode int) {
	w.ensureRequestIDHeader()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *requestIDResponseWriter) Write(b []byte) (int, error) {
	w.ensureRequestIDHeader()
	return w.ResponseWriter.Write(b)
}

func (w *requestIDResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter for http.NewResponseController.
func (w *requestIDResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *requestIDResponseWriter) ensureRequestIDHeader() {
	if w.headersSent {
		return
	}
	w.headersSent = true
	if id := transport.RequestIDFromContext(w.r.Context()); id != "" {
		w.ResponseWriter.Header().Set("X-Request-ID", id)
	}
}

// errorWriter renders an APIError in one dialect's wire shape with an
// explicit status code.
type errorWriter func(w http.ResponseWriter, apiErr *api.APIError, statusCode int)

func writeClaudeError(w http.ResponseWriter, apiErr *api.APIError, statusCode int) {
	transport.WriteErrorResponse(w, apiErr, statusCode)
}

func writeOpenAIError(w http.ResponseWriter, apiErr *api.APIError, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(openai.FromAPIError(apiErr))
}

// decodeBody validates the Content-Type, applies the body size limit,
// and decodes the request body into dst. On failure it writes the
// dialect-correct error response and returns false.
func (a *Adapter) decodeBody(w http.ResponseWriter, r *http.Request, dst any, writeErr errorWriter) bool {
	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" {
		writeErr(w,
			api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
			http.StatusUnsupportedMediaType,
		)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeErr(w,
				api.NewRequestTooLargeError(fmt.Sprintf("request body exceeds %d bytes", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return false
		}
		writeErr(w,
			api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return false
	}

	return true
}

// handleMessages handles POST /v1/messages.
func (a *Adapter) handleMessages(w http.ResponseWriter, r *http.Request) {
	r = r.WithContext(transport.ContextWithDialect(r.Context(), transport.DialectClaude))

	var req api.MessagesRequest
	if !a.decodeBody(w, r, &req, writeClaudeError) {
		return
	}

	rw := newClaudeWriter(w)
	if err := a.creator.CreateMessage(r.Context(), &req, rw); err != nil {
		a.writeClaudeHandlerError(w, rw, err)
	}
}

// handleChatCompletions handles POST /v1/chat/completions.
func (a *Adapter) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	r = r.WithContext(transport.ContextWithDialect(r.Context(), transport.DialectOpenAI))

	var chatReq openai.ChatRequest
	if !a.decodeBody(w, r, &chatReq, writeOpenAIError) {
		return
	}

	req, err := openai.ToMessagesRequest(&chatReq)
	if err != nil {
		apiErr := transport.APIErrorFrom(err)
		writeOpenAIError(w, apiErr, transport.HTTPStatusFromError(apiErr))
		return
	}

	rw := newOpenAIWriter(w, req.Model)
	if err := a.creator.CreateMessage(r.Context(), req, rw); err != nil {
		a.writeOpenAIHandlerError(w, rw, err)
	}
}

// writeClaudeHandlerError writes a handler error in the messages dialect.
// If streaming has already started, it sends a terminal error event.
// Otherwise it writes a standard JSON error response.
func (a *Adapter) writeClaudeHandlerError(w http.ResponseWriter, rw *claudeWriter, err error) {
	apiErr := transport.APIErrorFrom(err)

	if rw.hasStartedStreaming() {
		rw.WriteEvent(context.Background(), api.NewErrorEvent(apiErr))
		return
	}

	transport.WriteAPIError(w, apiErr)
}

// writeOpenAIHandlerError writes a handler error in the chat-completions
// dialect. If streaming has already started, it sends the error envelope
// as a final data line followed by [DONE].
func (a *Adapter) writeOpenAIHandlerError(w http.ResponseWriter, rw *openaiWriter, err error) {
	apiErr := transport.APIErrorFrom(err)

	if rw.hasStartedStreaming() {
		rw.writeStreamError(apiErr)
		return
	}

	writeOpenAIError(w, apiErr, transport.HTTPStatusFromError(apiErr))
}

// modelList is the chat-completions style model catalog envelope.
type modelList struct {
	Object string               `json:"object"`
	Data   []provider.ModelInfo `json:"data"`
}

// handleListModels handles GET /v1/models. The catalog is served in the
// chat-completions list shape; messages-dialect clients receive the same
// body.
func (a *Adapter) handleListModels(w http.ResponseWriter, r *http.Request) {
	if a.models == nil {
		writeOpenAIError(w,
			api.NewInvalidRequestError("", "model listing is not available"),
			http.StatusNotImplemented,
		)
		return
	}

	models, err := a.models.ListModels(r.Context())
	if err != nil {
		apiErr := transport.APIErrorFrom(err)
		writeOpenAIError(w, apiErr, transport.HTTPStatusFromError(apiErr))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(modelList{Object: "list", Data: models})
}

// usageReport is the response body of GET /v1/usage.
type usageReport struct {
	Summaries []*storage.UsageSummary `json:"summaries"`
}

// recordList is the response body of GET /v1/usage/records.
type recordList struct {
	Records []*storage.UsageRecord `json:"records"`
}

// handleUsageSummary handles GET /v1/usage. Results are scoped to the
// tenant of the authenticated identity via the request context.
func (a *Adapter) handleUsageSummary(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("", "usage reporting is not available (no store configured)"),
			http.StatusNotImplemented,
		)
		return
	}

	since, apiErr := parseSince(r)
	if apiErr != nil {
		transport.WriteErrorResponse(w, apiErr, http.StatusBadRequest)
		return
	}

	summaries, err := a.store.Summarize(r.Context(), since)
	if err != nil {
		transport.WriteAPIError(w, transport.APIErrorFrom(err))
		return
	}
	if summaries == nil {
		summaries = []*storage.UsageSummary{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(usageReport{Summaries: summaries})
}

// handleUsageRecords handles GET /v1/usage/records. With a request_id
// query parameter it returns the single matching record; otherwise it
// lists recent records filtered by the model, since, and limit
// parameters.
func (a *Adapter) handleUsageRecords(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("", "usage reporting is not available (no store configured)"),
			http.StatusNotImplemented,
		)
		return
	}

	q := r.URL.Query()

	if requestID := q.Get("request_id"); requestID != "" {
		rec, err := a.store.GetRecord(r.Context(), requestID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				transport.WriteAPIError(w, api.NewNotFoundError("no usage record for request "+requestID))
			} else {
				transport.WriteAPIError(w, transport.APIErrorFrom(err))
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rec)
		return
	}

	since, apiErr := parseSince(r)
	if apiErr != nil {
		transport.WriteErrorResponse(w, apiErr, http.StatusBadRequest)
		return
	}

	opts := storage.ListOptions{
		Model: q.Get("model"),
		Since: since,
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("limit", "limit must be a positive integer"),
				http.StatusBadRequest,
			)
			return
		}
		opts.Limit = limit
	}

	records, err := a.store.ListRecords(r.Context(), opts)
	if err != nil {
		transport.WriteAPIError(w, transport.APIErrorFrom(err))
		return
	}
	if records == nil {
		records = []*storage.UsageRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(recordList{Records: records})
}

// parseSince extracts the optional "since" query parameter as an
// RFC 3339 timestamp. A missing parameter yields the zero time,
// meaning no lower bound.
func parseSince(r *http.Request) (time.Time, *api.APIError) {
	raw := r.URL.Query().Get("since")
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, api.NewInvalidRequestError("since", "since must be an RFC 3339 timestamp")
	}
	return t, nil
}

// handleHealth handles GET /healthz. When a usage store is configured,
// its health check is included; a failing store degrades the gateway to
// 503 so orchestrators can restart it.
func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if a.store != nil {
		if err := a.store.HealthCheck(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
	}

	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
