package ratelimit

import (
	"context"
	"testing"
	"time"
)

// waitWithin waits for a token on source, giving up after d
func waitWithin(l *Limiter, source string, d time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return l.Wait(ctx, source)
}

func TestLimiter_Unregistered(t *testing.T) {
	l := New()

	for i := 0; i < 100; i++ {
		if err := waitWithin(l, "shop:none", 10*time.Millisecond); err != nil {
			t.Fatalf("Wait() returned %v on attempt %d for unregistered source", err, i)
		}
	}
}

func TestLimiter_NilIsUnlimited(t *testing.T) {
	var l *Limiter

	if err := l.Wait(context.Background(), "shop:any"); err != nil {
		t.Errorf("Wait() on nil Limiter returned %v", err)
	}
}

func TestLimiter_Throttles(t *testing.T) {
	l := New()
	l.Set("shop:slow", 20) // one every 50ms

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Wait(ctx, "shop:slow"); err != nil {
			t.Fatalf("Wait() returned unexpected error: %v", err)
		}
	}
	elapsed := time.Since(start)

	// first token is immediate, the next two cost ~50ms each
	if elapsed < 80*time.Millisecond {
		t.Errorf("3 waits at 20 rps took %v, expected at least ~100ms", elapsed)
	}
}

func TestLimiter_SetZeroRemovesLimit(t *testing.T) {
	l := New()
	l.Set("shop:x", 0.001)

	if err := waitWithin(l, "shop:x", 10*time.Millisecond); err != nil {
		t.Fatalf("first Wait() should consume the burst token, got %v", err)
	}
	if err := waitWithin(l, "shop:x", 10*time.Millisecond); err == nil {
		t.Fatal("second Wait() should be throttled")
	}

	l.Set("shop:x", 0)
	if err := waitWithin(l, "shop:x", 10*time.Millisecond); err != nil {
		t.Errorf("Wait() should succeed after the limit is removed, got %v", err)
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	l := New()
	l.Set("shop:x", 0.001)
	if err := l.Wait(context.Background(), "shop:x"); err != nil {
		t.Fatalf("Wait() returned unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := l.Wait(ctx, "shop:x"); err == nil {
		t.Error("Wait() expected error for a cancelled context")
	}
}
