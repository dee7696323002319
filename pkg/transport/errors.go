package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rhuss/dolmetsch/pkg/api"
)

// StatusOverloaded is the non-standard status code the Claude dialect
// uses for overloaded_error; net/http has no constant for it.
const StatusOverloaded = 529

// HTTPStatusFromError maps an APIError type to the corresponding HTTP
// status code. Transport-level errors (body too large, unsupported
// content type, method not allowed) are handled by the HTTP adapter
// before a handler runs.
func HTTPStatusFromError(err *api.APIError) int {
	switch err.Type {
	case api.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case api.ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case api.ErrorTypePermission:
		return http.StatusForbidden
	case api.ErrorTypeNotFound:
		return http.StatusNotFound
	case api.ErrorTypeRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case api.ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case api.ErrorTypeOverloaded:
		return StatusOverloaded
	default:
		return http.StatusInternalServerError
	}
}

// APIErrorFrom coerces any handler error into an APIError. Errors that
// are not already APIErrors become generic api_error values, so clients
// always receive the structured shape.
func APIErrorFrom(err error) *api.APIError {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return api.NewAPIErrorf("%s", err.Error())
}

// WriteErrorResponse writes a JSON error response in the Claude error
// envelope {"type":"error","error":{...}} with the given status code.
func WriteErrorResponse(w http.ResponseWriter, apiErr *api.APIError, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(api.NewErrorResponse(apiErr))
}

// WriteAPIError writes an APIError response, deriving the HTTP status
// code from the error type.
func WriteAPIError(w http.ResponseWriter, apiErr *api.APIError) {
	WriteErrorResponse(w, apiErr, HTTPStatusFromError(apiErr))
}
