package auth

import (
	"context"
	"errors"
	"testing"
)

func TestLimiter_UnlimitedTier(t *testing.T) {
	limiter := NewInProcessLimiter(map[string]TierConfig{
		"free": {RequestsPerMinute: 0},
	}, 10)

	id := &Identity{Subject: "alice", ServiceTier: "free"}
	for i := 0; i < 50; i++ {
		if err := limiter.Allow(context.Background(), id); err != nil {
			t.Fatalf("request %d: unexpected error %v", i+1, err)
		}
	}
}

func TestLimiter_PerSubjectBuckets(t *testing.T) {
	limiter := NewInProcessLimiter(nil, 1)

	alice := &Identity{Subject: "alice"}
	bob := &Identity{Subject: "bob"}

	if err := limiter.Allow(context.Background(), alice); err != nil {
		t.Fatalf("alice first request: %v", err)
	}
	if err := limiter.Allow(context.Background(), alice); !errors.Is(err, ErrTooManyRequests) {
		t.Fatalf("alice second request: err = %v, want ErrTooManyRequests", err)
	}

	// Separate subject, separate bucket.
	if err := limiter.Allow(context.Background(), bob); err != nil {
		t.Fatalf("bob first request: %v", err)
	}
}
