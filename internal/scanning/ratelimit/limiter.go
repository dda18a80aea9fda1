// Package ratelimit paces outbound explorer calls. It keeps two separate
// knobs: a steady minimum spacing applied before every call, and a penalty
// backoff that only grows after explicit rate-limit signals. Normal operation
// stays fast while sustained failures escalate the cool-down.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Config holds limiter tuning.
type Config struct {
	// MinInterval is the steady spacing between calls. Doubled while the
	// limiter is in an error state.
	MinInterval time.Duration

	// BackoffFloor is the penalty delay after the first rate-limit error,
	// and the value backoff resets to on any success.
	BackoffFloor time.Duration

	// BackoffMax caps backoff growth.
	BackoffMax time.Duration

	// Multiplier grows the backoff per consecutive error. Must be > 1.
	Multiplier float64
}

// DefaultConfig provides sensible defaults.
func DefaultConfig() Config {
	return Config{
		MinInterval:  200 * time.Millisecond,
		BackoffFloor: 1 * time.Second,
		BackoffMax:   60 * time.Second,
		Multiplier:   2.0,
	}
}

// Limiter tracks call cadence and consecutive-failure state for one scan.
// Safe for concurrent use, though a scan drives it from a single goroutine.
type Limiter struct {
	cfg Config

	mu                sync.Mutex
	lastCall          time.Time
	consecutiveErrors int
	backoff           time.Duration
}

// New creates a limiter with backoff at its floor.
func New(cfg Config) *Limiter {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultConfig().MinInterval
	}
	if cfg.BackoffFloor <= 0 {
		cfg.BackoffFloor = DefaultConfig().BackoffFloor
	}
	if cfg.BackoffMax < cfg.BackoffFloor {
		cfg.BackoffMax = DefaultConfig().BackoffMax
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = DefaultConfig().Multiplier
	}
	return &Limiter{cfg: cfg, backoff: cfg.BackoffFloor}
}

// WaitIfNeeded sleeps just long enough to enforce the minimum inter-call
// spacing, doubled while in an error state. Never sleeps a negative
// duration. Honors context cancellation.
func (l *Limiter) WaitIfNeeded(ctx context.Context) error {
	l.mu.Lock()
	interval := l.cfg.MinInterval
	if l.consecutiveErrors > 0 {
		interval *= 2
	}
	var wait time.Duration
	if !l.lastCall.IsZero() {
		if elapsed := time.Since(l.lastCall); elapsed < interval {
			wait = interval - elapsed
		}
	}
	l.mu.Unlock()

	if wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	l.mu.Lock()
	l.lastCall = time.Now()
	l.mu.Unlock()
	return nil
}

// RecordSuccess resets the error count and returns backoff to its floor.
func (l *Limiter) RecordSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.consecutiveErrors = 0
	l.backoff = l.cfg.BackoffFloor
}

// RecordError escalates the penalty backoff, clamped to the maximum.
func (l *Limiter) RecordError() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.consecutiveErrors > 0 {
		next := time.Duration(float64(l.backoff) * l.cfg.Multiplier)
		if next > l.cfg.BackoffMax {
			next = l.cfg.BackoffMax
		}
		l.backoff = next
	} else {
		l.backoff = l.cfg.BackoffFloor
	}
	l.consecutiveErrors++
}

// WaitTime returns the current penalty backoff. Callers sleep this long when
// the upstream explicitly reported a rate-limit condition, on top of the
// steady spacing WaitIfNeeded enforces.
func (l *Limiter) WaitTime() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.backoff
}

// ConsecutiveErrors returns the current failure streak.
func (l *Limiter) ConsecutiveErrors() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.consecutiveErrors
}
