package integration

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rhuss/dolmetsch/pkg/auth"
	"github.com/rhuss/dolmetsch/pkg/auth/apikey"
)

// newAuthGateway builds a gateway protected by API key auth against the
// shared mock backend. A nil tiers map disables rate limiting.
func newAuthGateway(t *testing.T, entries []apikey.RawKeyEntry, tiers map[string]auth.TierConfig) *httptest.Server {
	t.Helper()

	chain := &auth.AuthChain{
		DefaultDecision: auth.No,
		Authenticators:  []auth.Authenticator{apikey.New(entries)},
	}
	var limiter auth.RateLimiter
	if len(tiers) > 0 {
		limiter = auth.NewInProcessLimiter(tiers, 0)
	}
	mw := auth.Middleware(chain, limiter, auth.DefaultBypassEndpoints)
	return newGatewayFor(t, testEnv.MockBackend.URL, mw)
}

func authTestBody() map[string]any {
	return map[string]any{
		"model":      "claude-sonnet-4-5",
		"max_tokens": 64,
		"messages": []map[string]any{
			{"role": "user", "content": "hi"},
		},
	}
}

func TestAuthMissingKey(t *testing.T) {
	gw := newAuthGateway(t, []apikey.RawKeyEntry{
		{Key: "secret-key-1", Identity: auth.Identity{Subject: "alice", ServiceTier: "default"}},
	}, nil)

	resp := postJSON(t, gw.URL+"/v1/messages", authTestBody())
	msg := claudeError(t, resp, http.StatusUnauthorized, "authentication_error")
	if !strings.Contains(msg, "credentials") {
		t.Errorf("message = %q, want credentials named", msg)
	}
}

func TestAuthWrongKey(t *testing.T) {
	gw := newAuthGateway(t, []apikey.RawKeyEntry{
		{Key: "secret-key-1", Identity: auth.Identity{Subject: "alice", ServiceTier: "default"}},
	}, nil)

	resp := postJSONHeaders(t, gw.URL+"/v1/messages", authTestBody(),
		map[string]string{"x-api-key": "not-the-key"})
	claudeError(t, resp, http.StatusUnauthorized, "authentication_error")
}

func TestAuthAPIKeyHeader(t *testing.T) {
	gw := newAuthGateway(t, []apikey.RawKeyEntry{
		{Key: "secret-key-1", Identity: auth.Identity{Subject: "alice", ServiceTier: "default"}},
	}, nil)

	resp := postJSONHeaders(t, gw.URL+"/v1/messages", authTestBody(),
		map[string]string{"x-api-key": "secret-key-1"})
	msg := claudeMessage(t, resp)
	if msg["type"] != "message" {
		t.Errorf("type = %v, want message", msg["type"])
	}
}

func TestAuthBearerToken(t *testing.T) {
	gw := newAuthGateway(t, []apikey.RawKeyEntry{
		{Key: "secret-key-1", Identity: auth.Identity{Subject: "alice", ServiceTier: "default"}},
	}, nil)

	resp := postJSONHeaders(t, gw.URL+"/v1/chat/completions", map[string]any{
		"model": "gpt-4o",
		"messages": []map[string]any{
			{"role": "user", "content": "hi"},
		},
	}, map[string]string{"Authorization": "Bearer secret-key-1"})
	chat := chatCompletion(t, resp)
	if chat["object"] != "chat.completion" {
		t.Errorf("object = %v, want chat.completion", chat["object"])
	}
}

func TestAuthBypassEndpoints(t *testing.T) {
	gw := newAuthGateway(t, []apikey.RawKeyEntry{
		{Key: "secret-key-1", Identity: auth.Identity{Subject: "alice", ServiceTier: "default"}},
	}, nil)

	for _, path := range []string{"/healthz", "/metrics"} {
		resp := getURL(t, gw.URL+path)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d without credentials, want 200", path, resp.StatusCode)
		}
		readBody(t, resp)
	}
}

func TestAuthRateLimit(t *testing.T) {
	gw := newAuthGateway(t, []apikey.RawKeyEntry{
		{Key: "rate-key", Identity: auth.Identity{Subject: "rate-user", ServiceTier: "limited"}},
	}, map[string]auth.TierConfig{
		"limited": {RequestsPerMinute: 1},
	})
	headers := map[string]string{"x-api-key": "rate-key"}

	resp := postJSONHeaders(t, gw.URL+"/v1/messages", authTestBody(), headers)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first request status = %d, want 200: %s", resp.StatusCode, readBody(t, resp))
	}
	readBody(t, resp)

	resp = postJSONHeaders(t, gw.URL+"/v1/messages", authTestBody(), headers)
	if got := resp.Header.Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want 60", got)
	}
	msg := claudeError(t, resp, http.StatusTooManyRequests, "rate_limit_error")
	if !strings.Contains(msg, "rate limit") {
		t.Errorf("message = %q, want rate limit named", msg)
	}
}

// TestAuthTenantScoping: usage records written under one tenant must not
// be visible to another tenant's key.
func TestAuthTenantScoping(t *testing.T) {
	gw := newAuthGateway(t, []apikey.RawKeyEntry{
		{Key: "tenant-a-key", Identity: auth.Identity{
			Subject:     "svc-a",
			ServiceTier: "default",
			Metadata:    map[string]string{"tenant_id": "tenant-a"},
		}},
		{Key: "tenant-b-key", Identity: auth.Identity{
			Subject:     "svc-b",
			ServiceTier: "default",
			Metadata:    map[string]string{"tenant_id": "tenant-b"},
		}},
	}, nil)

	requestID := fmt.Sprintf("req-tenant-%d", time.Now().UnixNano())
	resp := postJSONHeaders(t, gw.URL+"/v1/messages", authTestBody(), map[string]string{
		"x-api-key":    "tenant-a-key",
		"X-Request-ID": requestID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, readBody(t, resp))
	}
	readBody(t, resp)

	recordURL := gw.URL + "/v1/usage/records?request_id=" + requestID

	ownReq, _ := http.NewRequest(http.MethodGet, recordURL, nil)
	ownReq.Header.Set("x-api-key", "tenant-a-key")
	own, err := http.DefaultClient.Do(ownReq)
	if err != nil {
		t.Fatalf("GET %s: %v", recordURL, err)
	}
	if own.StatusCode != http.StatusOK {
		t.Errorf("owner lookup status = %d, want 200: %s", own.StatusCode, readBody(t, own))
	} else {
		var rec map[string]any
		decodeJSON(t, own, &rec)
		if rec["tenant_id"] != "tenant-a" {
			t.Errorf("tenant_id = %v, want tenant-a", rec["tenant_id"])
		}
	}

	otherReq, _ := http.NewRequest(http.MethodGet, recordURL, nil)
	otherReq.Header.Set("x-api-key", "tenant-b-key")
	other, err := http.DefaultClient.Do(otherReq)
	if err != nil {
		t.Fatalf("GET %s: %v", recordURL, err)
	}
	claudeError(t, other, http.StatusNotFound, "not_found_error")
}
