package testfixtures

import (
	"testing"
	"time"
)

func TestClock(t *testing.T) {
	t.Parallel()

	t.Run("defaults to the reference time", func(t *testing.T) {
		t.Parallel()
		clock := NewClock(time.Time{})
		if !clock.Now().Equal(ReferenceTime()) {
			t.Fatalf("expected the reference time, got %v", clock.Now())
		}
	})

	t.Run("advance moves the clock forward", func(t *testing.T) {
		t.Parallel()
		clock := NewClock(time.Time{})
		updated := clock.Advance(90 * time.Second)
		if !updated.Equal(ReferenceTime().Add(90 * time.Second)) {
			t.Fatalf("unexpected advanced time: %v", updated)
		}
		if !clock.Now().Equal(updated) {
			t.Fatalf("expected Now to track the advance, got %v", clock.Now())
		}
	})

	t.Run("set overrides the current instant", func(t *testing.T) {
		t.Parallel()
		clock := NewClock(time.Time{})
		target := ReferenceTime().Add(-time.Hour)
		clock.Set(target)
		if !clock.Now().Equal(target) {
			t.Fatalf("expected %v, got %v", target, clock.Now())
		}
	})
}

func TestIDGenerator(t *testing.T) {
	t.Parallel()

	gen := NewIDGenerator("session")
	if got := gen.Next(); got != "session-1" {
		t.Fatalf("expected session-1, got %s", got)
	}
	if got := gen.Next(); got != "session-2" {
		t.Fatalf("expected session-2, got %s", got)
	}

	next := gen.NextFunc()
	if got := next(); got != "session-3" {
		t.Fatalf("expected session-3, got %s", got)
	}
}
