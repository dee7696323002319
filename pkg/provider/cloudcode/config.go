package cloudcode

import "time"

// Config holds the configuration for the CloudCode provider.
type Config struct {
	// BaseURL is the backend endpoint, e.g. "https://cloudcode-pa.googleapis.com".
	// The ":generateContent" method suffixes are appended by the client.
	BaseURL string

	// Project is the backend project identifier stamped into every
	// request envelope.
	Project string

	// APIKey is sent as a bearer token. Optional; when empty no
	// Authorization header is set.
	APIKey string

	// Timeout bounds non-streaming requests. Streaming requests are
	// bounded by the caller's context instead.
	Timeout time.Duration

	// UserAgent overrides the User-Agent header. Optional.
	UserAgent string
}

// DefaultConfig returns a Config for the given backend URL with defaults
// applied.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		Timeout: 120 * time.Second,
	}
}
