package redis

import (
	"context"
	"testing"

	"github.com/receiptwise/backend/pkg/config"
)

func TestNewRequiresURL(t *testing.T) {
	if _, err := New(context.Background(), config.RedisConfig{}); err == nil {
		t.Fatal("expected error when redis url missing")
	}
}

func TestNewRejectsMalformedURL(t *testing.T) {
	if _, err := New(context.Background(), config.RedisConfig{URL: "not-a-url"}); err == nil {
		t.Fatal("expected error for malformed redis url")
	}
}

func TestRateLimitKeyNamespacing(t *testing.T) {
	c := &Client{}
	got := c.RateLimitKey("upload", "ip", "10.0.0.1")
	want := "rw:rate_limit:upload:ip:10.0.0.1"
	if got != want {
		t.Fatalf("RateLimitKey = %q, want %q", got, want)
	}
}
