package cache

import (
	"context"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/ghuser/inventory/pkg/config"
)

func newTestConfig(url string) *config.Config {
	return &config.Config{
		RedisURL: url,
	}
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), newTestConfig("not-a-valid-url"))
	if err == nil {
		t.Fatal("expected error for invalid URL, got nil")
	}
}

func TestNewRedisClient_UnreachableHost(t *testing.T) {
	_, err := NewRedisClient(context.Background(), newTestConfig("redis://localhost:19999"))
	if err == nil {
		t.Fatal("expected error when Redis is unreachable, got nil")
	}
}

func TestNewRedisClient_Miniredis(t *testing.T) {
	s := miniredis.RunT(t)

	rc, err := NewRedisClient(context.Background(), newTestConfig("redis://" + s.Addr()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := rc.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if err := rc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestNewRedisClient_CancelledContext(t *testing.T) {
	s := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewRedisClient(ctx, newTestConfig("redis://"+s.Addr())); err == nil {
		t.Fatal("expected error with a cancelled context, got nil")
	}
}

func TestClose_ZeroValue(t *testing.T) {
	if err := (&RedisClient{}).Close(); err != nil {
		t.Fatalf("expected nil error closing zero client, got %v", err)
	}
}

// Integration test, skipped unless REDIS_URL is set.
func TestRedisIntegration(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set; skipping integration tests")
	}

	rc, err := NewRedisClient(context.Background(), newTestConfig(redisURL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rc.Close() //nolint:errcheck

	if err := rc.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if rc.Client() == nil {
		t.Fatal("expected non-nil underlying client")
	}
}
