package app

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterCountsWithinWindow(t *testing.T) {
	store := NewMemoryLimiterStore()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		count, retryAfter, err := store.Increment(ctx, "api:1.2.3.4", time.Minute)
		if err != nil {
			t.Fatalf("increment failed: %v", err)
		}
		if count != want {
			t.Fatalf("expected count %d, got %d", want, count)
		}
		if retryAfter <= 0 || retryAfter > time.Minute {
			t.Fatalf("unexpected retryAfter %s", retryAfter)
		}
	}
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	store := NewMemoryLimiterStore()
	ctx := context.Background()

	if _, _, err := store.Increment(ctx, "api:1.2.3.4", time.Minute); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	count, _, err := store.Increment(ctx, "api:5.6.7.8", time.Minute)
	if err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected fresh key to start at 1, got %d", count)
	}
}

func TestMemoryLimiterWindowExpiry(t *testing.T) {
	store := NewMemoryLimiterStore()
	current := time.Now()
	store.now = func() time.Time { return current }
	ctx := context.Background()

	if _, _, err := store.Increment(ctx, "api:1.2.3.4", time.Minute); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if _, _, err := store.Increment(ctx, "api:1.2.3.4", time.Minute); err != nil {
		t.Fatalf("increment failed: %v", err)
	}

	current = current.Add(2 * time.Minute)

	count, _, err := store.Increment(ctx, "api:1.2.3.4", time.Minute)
	if err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected counter to restart after window expiry, got %d", count)
	}
}

func TestMemoryLimiterPeekDoesNotBump(t *testing.T) {
	store := NewMemoryLimiterStore()
	ctx := context.Background()

	if _, _, err := store.Increment(ctx, "auth:1.2.3.4", time.Minute); err != nil {
		t.Fatalf("increment failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		count, _, err := store.Peek(ctx, "auth:1.2.3.4")
		if err != nil {
			t.Fatalf("peek failed: %v", err)
		}
		if count != 1 {
			t.Fatalf("expected peek to leave the count at 1, got %d", count)
		}
	}
}

func TestMemoryLimiterReset(t *testing.T) {
	store := NewMemoryLimiterStore()
	ctx := context.Background()

	if _, _, err := store.Increment(ctx, "auth:1.2.3.4", time.Minute); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if err := store.Reset(ctx, "auth:1.2.3.4"); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	count, _, err := store.Peek(ctx, "auth:1.2.3.4")
	if err != nil {
		t.Fatalf("peek failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected count 0 after reset, got %d", count)
	}
}
