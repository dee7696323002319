package storage

import "time"

// UsageRecord captures token usage and routing metadata for a single
// completed request. One record is written per create-message call,
// streaming or not.
type UsageRecord struct {
	// ID is the store-assigned record identifier.
	ID string `json:"id"`

	// RequestID is the transport request ID (X-Request-ID) the record
	// belongs to.
	RequestID string `json:"request_id"`

	// TenantID scopes the record to a tenant. Empty in single-tenant mode.
	TenantID string `json:"tenant_id,omitempty"`

	// Dialect names the client-facing wire dialect ("claude" or "openai").
	Dialect string `json:"dialect"`

	// Model is the model the client asked for; MappedModel is the backend
	// model the request was routed to.
	Model       string `json:"model"`
	MappedModel string `json:"mapped_model"`

	// Stream reports whether the response was streamed.
	Stream bool `json:"stream"`

	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`

	// StopReason is the canonical stop reason of the response, if known.
	StopReason string `json:"stop_reason,omitempty"`

	// LatencyMS is the wall-clock duration of the backend call in
	// milliseconds.
	LatencyMS int64 `json:"latency_ms"`

	CreatedAt time.Time `json:"created_at"`
}

// ListOptions filters record listings. Zero values mean "no filter".
type ListOptions struct {
	// Model filters on the client-facing model name.
	Model string

	// Since excludes records created before the given time.
	Since time.Time

	// Limit caps the number of returned records. Zero or negative
	// applies DefaultListLimit; values above MaxListLimit are clamped.
	Limit int
}

// List limits applied by all store implementations.
const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// EffectiveLimit resolves the Limit field against the shared defaults.
func (o ListOptions) EffectiveLimit() int {
	if o.Limit <= 0 {
		return DefaultListLimit
	}
	if o.Limit > MaxListLimit {
		return MaxListLimit
	}
	return o.Limit
}

// UsageSummary aggregates usage per tenant and backend model.
type UsageSummary struct {
	TenantID     string `json:"tenant_id,omitempty"`
	MappedModel  string `json:"mapped_model"`
	Requests     int64  `json:"requests"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
}
