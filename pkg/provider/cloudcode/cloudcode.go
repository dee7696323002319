package cloudcode

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rhuss/dolmetsch/pkg/api"
	"github.com/rhuss/dolmetsch/pkg/debug"
	"github.com/rhuss/dolmetsch/pkg/provider"
)

// Method suffixes appended to the base URL, colon-style.
const (
	methodGenerate = "/v1internal:generateContent"
	methodStream   = "/v1internal:streamGenerateContent"
)

// maxStreamLineBytes bounds a single SSE line. Backend chunks carry at most
// one response object, but functionCall args can get large.
const maxStreamLineBytes = 1024 * 1024

// debugBodyBytes bounds envelope dumps at DEBUG level. TRACE still gets the
// full body via debug.Raw.
const debugBodyBytes = 2048

// Client implements provider.Provider against a CloudCode generate-content
// backend.
type Client struct {
	cfg    Config
	client *http.Client
	caps   provider.Capabilities
}

// Ensure Client implements provider.Provider at compile time.
var _ provider.Provider = (*Client)(nil)

// New creates a new Client with the given configuration.
// Returns an error if the configuration is invalid.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("cloudcode: BaseURL is required")
	}
	if cfg.Project == "" {
		return nil, fmt.Errorf("cloudcode: Project is required")
	}

	// Normalize: remove trailing slash from base URL.
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	// Apply default timeout if not set.
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		caps: provider.Capabilities{
			Streaming:   true,
			ToolCalling: true,
		},
	}, nil
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return "cloudcode"
}

// Capabilities returns what this provider supports.
func (c *Client) Capabilities() provider.Capabilities {
	return c.caps
}

// Complete performs non-streaming inference against the generateContent
// method.
func (c *Client) Complete(ctx context.Context, req *api.MessagesRequest) (*api.MessagesResponse, error) {
	// Ensure we are not in streaming mode for Complete.
	reqCopy := *req
	reqCopy.Stream = false

	model := MapModel(req.Model)
	genReq, err := TranslateRequest(&reqCopy, c.cfg.Project, model)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.post(ctx, c.client, methodGenerate, genReq, false)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, mapHTTPError(httpResp)
	}

	var genResp GenerateResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&genResp); err != nil {
		return nil, api.NewAPIErrorf("failed to parse backend response: %s", err.Error())
	}

	responseID := genResp.ResponseID
	if responseID == "" {
		responseID = api.NewMessageID()
	}

	resp, _, err := TranslateResponse(&genResp, responseID, model)
	return resp, err
}

// Stream performs streaming inference against the streamGenerateContent
// method. It returns a channel of events; the channel is closed when the
// stream completes, errors, or the context is cancelled.
//
// The HTTP client timeout is not applied for streaming requests because a
// stream can legitimately last longer than any fixed timeout. Lifecycle
// control relies on context cancellation instead.
func (c *Client) Stream(ctx context.Context, req *api.MessagesRequest) (<-chan provider.Event, error) {
	// Force streaming mode.
	reqCopy := *req
	reqCopy.Stream = true

	model := MapModel(req.Model)
	genReq, err := TranslateRequest(&reqCopy, c.cfg.Project, model)
	if err != nil {
		return nil, err
	}

	// Use a client without timeout for streaming. The context controls
	// the request lifetime instead.
	streamClient := &http.Client{Transport: c.client.Transport}

	httpResp, err := c.post(ctx, streamClient, methodStream, genReq, true)
	if err != nil {
		return nil, err
	}

	// Check for error status codes before starting the stream.
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		return nil, mapHTTPError(httpResp)
	}

	ch := make(chan provider.Event, 16)

	go func() {
		defer close(ch)
		defer httpResp.Body.Close()
		pumpStream(ctx, httpResp.Body, model, ch)
	}()

	return ch, nil
}

// ListModels returns the client-facing model ids the gateway accepts. The
// list is static; the backend exposes no model discovery.
func (c *Client) ListModels(ctx context.Context) ([]provider.ModelInfo, error) {
	ids := KnownModels()
	models := make([]provider.ModelInfo, 0, len(ids))
	for _, id := range ids {
		models = append(models, provider.ModelInfo{
			ID:      id,
			Object:  "model",
			OwnedBy: "cloudcode",
		})
	}
	return models, nil
}

// Close releases provider resources.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// post marshals the envelope and issues the request.
func (c *Client) post(ctx context.Context, client *http.Client, method string, genReq *GenerateRequest, streaming bool) (*http.Response, error) {
	body, err := json.Marshal(genReq)
	if err != nil {
		return nil, api.NewAPIErrorf("failed to marshal backend request: %s", err.Error())
	}

	if debug.Enabled("backend") {
		debug.Log("backend", "translated envelope",
			"method", method,
			"model", genReq.Model,
			"bytes", len(body),
			"body", debug.Truncate(string(body), debugBodyBytes))
		debug.Raw("backend", string(body))
	}

	url := c.cfg.BaseURL + method
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, api.NewAPIErrorf("failed to create backend request: %s", err.Error())
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if streaming {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	if c.cfg.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, mapNetworkError(err)
	}
	return httpResp, nil
}

// pumpStream reads backend SSE lines, feeds them through a StreamProcessor,
// and forwards the translated events. The terminal events from Finish are
// always flushed, also when the backend connection drops mid-stream, so the
// consumer sees a complete message sequence.
func pumpStream(ctx context.Context, body io.Reader, model string, ch chan<- provider.Event) {
	proc := NewStreamProcessor(model)

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLineBytes)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Text()
		debug.Raw("streaming", line)
		for _, ev := range proc.Feed(line) {
			ch <- provider.Event{Event: ev}
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("backend stream read failed", "error", err)
	}

	events, _ := proc.Finish()
	for _, ev := range events {
		ch <- provider.Event{Event: ev}
	}
}
