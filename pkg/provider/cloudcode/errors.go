package cloudcode

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/rhuss/dolmetsch/pkg/api"
)

// mapHTTPError converts a non-2xx backend response into an APIError. The
// body is consulted for a descriptive message. Backend credential failures
// map to api_error, not authentication_error: the client's own credentials
// were fine, the gateway's were not.
func mapHTTPError(resp *http.Response) *api.APIError {
	message := extractErrorMessage(resp.Body)

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		if message == "" {
			message = "backend rejected the request"
		}
		return api.NewInvalidRequestError("", message)

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if message == "" {
			message = "backend authentication failed"
		}
		return api.NewAPIErrorf("%s", message)

	case resp.StatusCode == http.StatusNotFound:
		if message == "" {
			message = "backend resource not found"
		}
		return api.NewNotFoundError(message)

	case resp.StatusCode == http.StatusTooManyRequests:
		if message == "" {
			message = "backend rate limit exceeded"
		}
		return api.NewRateLimitError(message)

	case resp.StatusCode == http.StatusServiceUnavailable:
		if message == "" {
			message = "backend overloaded"
		}
		return api.NewOverloadedError(message)

	case resp.StatusCode >= http.StatusInternalServerError:
		if message == "" {
			message = fmt.Sprintf("backend server error (HTTP %d)", resp.StatusCode)
		}
		return api.NewAPIErrorf("%s", message)

	default:
		if message == "" {
			message = fmt.Sprintf("unexpected backend error (HTTP %d)", resp.StatusCode)
		}
		return api.NewAPIErrorf("%s", message)
	}
}

// mapNetworkError converts a network-level error (connection refused,
// timeout, DNS failure) into an APIError.
func mapNetworkError(err error) *api.APIError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return api.NewAPIErrorf("backend request timed out: %s", err.Error())
	}
	return api.NewAPIErrorf("backend connection error: %s", err.Error())
}

// extractErrorMessage pulls a human-readable message out of a backend error
// body. It understands the JSON error envelope and falls back to the raw
// body when that is short printable text.
func extractErrorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}

	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}

	text := strings.TrimSpace(string(data))
	if text == "" || len(text) > 200 || strings.HasPrefix(text, "{") || strings.HasPrefix(text, "<") {
		return ""
	}
	return text
}
