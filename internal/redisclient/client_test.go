package redisclient

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

// Needs a reachable Redis, e.g. TEST_REDIS_ADDR=127.0.0.1:6379.
func testClient(t *testing.T) *Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	c := New(Config{Addr: addr})
	t.Cleanup(func() { _ = c.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	return c
}

func TestHit_CountsWithinWindow(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	key := "test:ratelimit:" + uuid.NewString()
	t.Cleanup(func() { c.Raw().Del(context.Background(), key) })

	for i := int64(1); i <= 3; i++ {
		count, left, err := c.Hit(ctx, key, time.Minute)
		if err != nil {
			t.Fatalf("hit %d: %v", i, err)
		}
		if count != i {
			t.Fatalf("hit %d: got count %d", i, count)
		}
		if left <= 0 || left > time.Minute {
			t.Fatalf("hit %d: unexpected reset %v", i, left)
		}
	}
}

func TestHit_WindowExpires(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	key := "test:ratelimit:" + uuid.NewString()
	t.Cleanup(func() { c.Raw().Del(context.Background(), key) })

	if _, _, err := c.Hit(ctx, key, 200*time.Millisecond); err != nil {
		t.Fatalf("hit: %v", err)
	}
	time.Sleep(400 * time.Millisecond)

	count, _, err := c.Hit(ctx, key, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("hit: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a fresh window, got %d", count)
	}
}
