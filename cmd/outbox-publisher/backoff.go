package main

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	maxBackoff   = 10 * time.Second
	jitterWindow = 250 * time.Millisecond
)

// pollBackoff doubles the wait after each failed batch, capped at max.
type pollBackoff struct {
	base    time.Duration
	max     time.Duration
	current time.Duration
}

func newPollBackoff(base, max time.Duration) *pollBackoff {
	return &pollBackoff{base: base, max: max}
}

func (b *pollBackoff) Next() time.Duration {
	b.current = nextBackoff(b.current, b.base, b.max)
	return b.current
}

func (b *pollBackoff) Reset() { b.current = 0 }

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	if next := current * 2; next < max {
		return next
	}
	return max
}

// withJitter spreads concurrent publishers so they do not poll in lockstep.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
