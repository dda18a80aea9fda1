package ratelimit

import (
	"context"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		MinInterval:  20 * time.Millisecond,
		BackoffFloor: 10 * time.Millisecond,
		BackoffMax:   40 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestBackoffGrowthAndReset(t *testing.T) {
	l := New(testConfig())

	if got := l.WaitTime(); got != 10*time.Millisecond {
		t.Fatalf("initial WaitTime = %v, want floor 10ms", got)
	}

	var previous time.Duration
	expected := []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		40 * time.Millisecond,
	}
	for i, want := range expected {
		l.RecordError()
		got := l.WaitTime()
		if got != want {
			t.Errorf("after error %d: WaitTime = %v, want %v", i+1, got, want)
		}
		if got <= previous && i > 0 {
			t.Errorf("backoff not strictly increasing: %v -> %v", previous, got)
		}
		previous = got
	}

	// Clamped at max from here on
	l.RecordError()
	if got := l.WaitTime(); got != 40*time.Millisecond {
		t.Errorf("after clamp: WaitTime = %v, want 40ms", got)
	}

	l.RecordSuccess()
	if got := l.WaitTime(); got != 10*time.Millisecond {
		t.Errorf("after success: WaitTime = %v, want floor 10ms", got)
	}
	if got := l.ConsecutiveErrors(); got != 0 {
		t.Errorf("after success: ConsecutiveErrors = %d, want 0", got)
	}
}

func TestWaitIfNeededEnforcesSpacing(t *testing.T) {
	l := New(testConfig())
	ctx := context.Background()

	if err := l.WaitIfNeeded(ctx); err != nil {
		t.Fatalf("first WaitIfNeeded failed: %v", err)
	}

	start := time.Now()
	if err := l.WaitIfNeeded(ctx); err != nil {
		t.Fatalf("second WaitIfNeeded failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Errorf("second call waited %v, want at least ~20ms spacing", elapsed)
	}
}

func TestWaitIfNeededDoubledWhileErrored(t *testing.T) {
	l := New(testConfig())
	ctx := context.Background()

	if err := l.WaitIfNeeded(ctx); err != nil {
		t.Fatalf("WaitIfNeeded failed: %v", err)
	}
	l.RecordError()

	start := time.Now()
	if err := l.WaitIfNeeded(ctx); err != nil {
		t.Fatalf("WaitIfNeeded failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("errored call waited %v, want at least ~40ms (doubled spacing)", elapsed)
	}
}

func TestWaitIfNeededContextCancelled(t *testing.T) {
	l := New(testConfig())

	if err := l.WaitIfNeeded(context.Background()); err != nil {
		t.Fatalf("WaitIfNeeded failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.WaitIfNeeded(ctx); err != context.Canceled {
		t.Errorf("WaitIfNeeded = %v, want context.Canceled", err)
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	l := New(Config{})
	if l.cfg.MinInterval != DefaultConfig().MinInterval {
		t.Errorf("MinInterval = %v, want default %v", l.cfg.MinInterval, DefaultConfig().MinInterval)
	}
	if l.cfg.Multiplier != DefaultConfig().Multiplier {
		t.Errorf("Multiplier = %v, want default %v", l.cfg.Multiplier, DefaultConfig().Multiplier)
	}
	if l.WaitTime() != DefaultConfig().BackoffFloor {
		t.Errorf("WaitTime = %v, want default floor %v", l.WaitTime(), DefaultConfig().BackoffFloor)
	}
}
