package api

import "fmt"

// ErrorType represents the category of an API error, using the Claude
// dialect's error taxonomy.
type ErrorType string

const (
	ErrorTypeInvalidRequest  ErrorType = "invalid_request_error"
	ErrorTypeAuthentication  ErrorType = "authentication_error"
	ErrorTypePermission      ErrorType = "permission_error"
	ErrorTypeNotFound        ErrorType = "not_found_error"
	ErrorTypeRequestTooLarge ErrorType = "request_too_large"
	ErrorTypeRateLimit       ErrorType = "rate_limit_error"
	ErrorTypeAPIError        ErrorType = "api_error"
	ErrorTypeOverloaded      ErrorType = "overloaded_error"
)

// APIError represents a structured API error with type, message, and an
// optional offending parameter.
type APIError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Param   string    `json:"param,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorResponse wraps an APIError for JSON serialization as the top-level
// error body: {"type":"error","error":{...}}.
type ErrorResponse struct {
	Type  string    `json:"type"`
	Error *APIError `json:"error"`
}

// NewErrorResponse wraps an APIError in the wire envelope.
func NewErrorResponse(apiErr *APIError) ErrorResponse {
	return ErrorResponse{Type: "error", Error: apiErr}
}

// NewInvalidRequestError creates an APIError for invalid request parameters.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Param:   param,
		Message: message,
	}
}

// NewAuthenticationError creates an APIError for missing or bad credentials.
func NewAuthenticationError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeAuthentication,
		Message: message,
	}
}

// NewPermissionError creates an APIError for valid credentials lacking access.
func NewPermissionError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypePermission,
		Message: message,
	}
}

// NewNotFoundError creates an APIError for resources that cannot be found.
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewRequestTooLargeError creates an APIError for oversized request bodies.
func NewRequestTooLargeError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeRequestTooLarge,
		Message: message,
	}
}

// NewRateLimitError creates an APIError for rate limiting.
func NewRateLimitError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeRateLimit,
		Message: message,
	}
}

// NewAPIErrorf creates an api_error for internal failures, including
// malformed backend responses.
func NewAPIErrorf(format string, args ...any) *APIError {
	return &APIError{
		Type:    ErrorTypeAPIError,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewOverloadedError creates an APIError signalling backend overload.
func NewOverloadedError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeOverloaded,
		Message: message,
	}
}
