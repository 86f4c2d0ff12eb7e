package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Limiter spaces operations at a fixed interval with optional jitter. It is
// safe for concurrent use: callers are granted consecutive slots.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	jitter   float64 // 0.0 to 1.0
	next     time.Time
	now      func() time.Time
}

// NewLimiter creates a limiter for rps operations per second. Jitter shifts
// each slot by up to ±jitter·interval and is clamped to [0, 1]. With rps <= 0
// the limiter never blocks.
func NewLimiter(rps float64, jitter float64) *Limiter {
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}

	l := &Limiter{jitter: jitter, now: time.Now}
	if rps > 0 {
		l.interval = time.Duration(float64(time.Second) / rps)
	}
	return l
}

// Interval is the nominal spacing between operations.
func (l *Limiter) Interval() time.Duration { return l.interval }

// Wait blocks until the caller's slot arrives or ctx is done. The first call
// never waits.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.interval <= 0 {
		return nil
	}

	delay := l.reserve()
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// reserve claims the next slot and returns how long until it starts.
func (l *Limiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	slot := l.next
	if slot.Before(now) {
		slot = now
	}

	step := l.interval
	if l.jitter > 0 {
		factor := rand.Float64()*2 - 1 // -1.0 to 1.0
		step += time.Duration(float64(l.interval) * l.jitter * factor)
	}
	l.next = slot.Add(step)

	return slot.Sub(now)
}
