package openai

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/rhuss/dolmetsch/pkg/api"
)

func TestFromAPIError_TypeMapping(t *testing.T) {
	tests := []struct {
		in   api.ErrorType
		want string
	}{
		{api.ErrorTypeInvalidRequest, "invalid_request_error"},
		{api.ErrorTypeNotFound, "invalid_request_error"},
		{api.ErrorTypeRequestTooLarge, "invalid_request_error"},
		{api.ErrorTypeAuthentication, "authentication_error"},
		{api.ErrorTypePermission, "permission_error"},
		{api.ErrorTypeRateLimit, "rate_limit_error"},
		{api.ErrorTypeOverloaded, "server_error"},
		{api.ErrorTypeAPIError, "server_error"},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			resp := FromAPIError(&api.APIError{Type: tt.in, Message: "boom"})
			if resp.Error.Type != tt.want {
				t.Errorf("type = %q, want %q", resp.Error.Type, tt.want)
			}
			if resp.Error.Message != "boom" {
				t.Errorf("message = %q", resp.Error.Message)
			}
		})
	}
}

func TestFromAPIError_WireShape(t *testing.T) {
	resp := FromAPIError(api.NewInvalidRequestError("max_tokens", "must be positive"))
	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	for _, want := range []string{
		`"error":{`,
		`"message":"must be positive"`,
		`"type":"invalid_request_error"`,
		`"param":"max_tokens"`,
	} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("error JSON missing %s:\n%s", want, raw)
		}
	}

	resp = FromAPIError(api.NewAuthenticationError("bad key"))
	raw, _ = json.Marshal(resp)
	if strings.Contains(string(raw), "param") {
		t.Errorf("param should be omitted when empty:\n%s", raw)
	}
	if strings.Contains(string(raw), "code") {
		t.Errorf("code should be omitted when empty:\n%s", raw)
	}
}
