package openai

import "github.com/rhuss/dolmetsch/pkg/api"

// ErrorResponse is the chat-completions error envelope:
// {"error": {"message", "type", "param", "code"}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the error fields of the chat-completions format.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code,omitempty"`
}

// FromAPIError renders an APIError in the chat-completions error format,
// folding the richer messages taxonomy into the smaller OpenAI one.
func FromAPIError(apiErr *api.APIError) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{
		Message: apiErr.Message,
		Type:    errorTypeString(apiErr.Type),
		Param:   apiErr.Param,
	}}
}

func errorTypeString(t api.ErrorType) string {
	switch t {
	case api.ErrorTypeInvalidRequest, api.ErrorTypeNotFound, api.ErrorTypeRequestTooLarge:
		return "invalid_request_error"
	case api.ErrorTypeAuthentication:
		return "authentication_error"
	case api.ErrorTypePermission:
		return "permission_error"
	case api.ErrorTypeRateLimit:
		return "rate_limit_error"
	default:
		return "server_error"
	}
}
