package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLimiter_NoBlockWhenZeroRPS(t *testing.T) {
	limiter := NewLimiter(0, 0.5)

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := limiter.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if time.Since(start) > 10*time.Millisecond {
		t.Errorf("limiter with 0 RPS should not block")
	}
}

func TestLimiter_FirstCallImmediate(t *testing.T) {
	limiter := NewLimiter(1, 0)

	start := time.Now()
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 20*time.Millisecond {
		t.Errorf("first wait should not block, took %v", time.Since(start))
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(10, 0) // 100ms interval
	ctx := context.Background()

	_ = limiter.Wait(ctx)

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	duration := time.Since(start)

	if duration < 80*time.Millisecond || duration > 200*time.Millisecond {
		t.Errorf("expected wait around 100ms, took %v", duration)
	}
}

func TestLimiter_ConcurrentSlots(t *testing.T) {
	limiter := NewLimiter(20, 0) // 50ms interval
	ctx := context.Background()

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = limiter.Wait(ctx)
		}()
	}
	wg.Wait()

	// Four callers occupy slots at 0, 50, 100 and 150ms.
	if d := time.Since(start); d < 130*time.Millisecond {
		t.Errorf("expected callers to be spaced out, all done after %v", d)
	}
}

func TestLimiter_ContextCancellation(t *testing.T) {
	limiter := NewLimiter(1, 0) // 1 second interval

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.Wait(ctx); err == nil {
		t.Fatalf("expected context canceled error")
	}
}

func TestLimiter_CancelWhileWaiting(t *testing.T) {
	limiter := NewLimiter(1, 0)
	_ = limiter.Wait(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := limiter.Wait(ctx); err == nil {
		t.Fatal("expected deadline error")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("cancellation should interrupt the wait")
	}
}

func TestLimiter_Jitter(t *testing.T) {
	limiter := NewLimiter(10, 0.5) // 100ms ± 50ms
	ctx := context.Background()

	_ = limiter.Wait(ctx)

	start := time.Now()
	_ = limiter.Wait(ctx)
	duration := time.Since(start)

	if duration < 40*time.Millisecond || duration > 250*time.Millisecond {
		t.Errorf("expected jittered wait between 50ms and 150ms, took %v", duration)
	}
}

func TestNewLimiter_ClampsJitter(t *testing.T) {
	if l := NewLimiter(1, -3); l.jitter != 0 {
		t.Errorf("expected jitter clamped to 0, got %v", l.jitter)
	}
	if l := NewLimiter(1, 7); l.jitter != 1 {
		t.Errorf("expected jitter clamped to 1, got %v", l.jitter)
	}
	if l := NewLimiter(4, 0); l.Interval() != 250*time.Millisecond {
		t.Errorf("expected 250ms interval, got %v", l.Interval())
	}
}
