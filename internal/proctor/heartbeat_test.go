package proctor

import (
	"testing"
	"time"
)

func TestHeartbeatPolicyStaleAfter(t *testing.T) {
	t.Parallel()

	t.Run("defaults to 75 seconds", func(t *testing.T) {
		t.Parallel()
		policy := HeartbeatPolicy{}
		if got := policy.StaleAfter(); got != 75*time.Second {
			t.Fatalf("expected 75s staleness threshold, got %v", got)
		}
	})

	t.Run("scales with the interval", func(t *testing.T) {
		t.Parallel()
		policy := HeartbeatPolicy{Interval: 10 * time.Second, StalenessMultiplier: 3}
		if got := policy.StaleAfter(); got != 30*time.Second {
			t.Fatalf("expected 30s staleness threshold, got %v", got)
		}
	})
}

func TestHeartbeatTracker(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, time.March, 6, 15, 0, 0, 0, time.UTC)

	t.Run("records monotonically non-decreasing beats", func(t *testing.T) {
		t.Parallel()

		tracker := NewHeartbeatTracker(HeartbeatPolicy{}, nil)
		if !tracker.Record("s1", base) {
			t.Fatal("expected first beat to be recorded")
		}
		if !tracker.Record("s1", base.Add(30*time.Second)) {
			t.Fatal("expected later beat to be recorded")
		}
		if tracker.Record("s1", base.Add(10*time.Second)) {
			t.Fatal("expected out-of-order beat to be rejected")
		}

		last, ok := tracker.Last("s1")
		if !ok || !last.Equal(base.Add(30*time.Second)) {
			t.Fatalf("expected last beat to stay at +30s, got %v (ok=%v)", last, ok)
		}
	})

	t.Run("flags silence past two and a half intervals", func(t *testing.T) {
		t.Parallel()

		tracker := NewHeartbeatTracker(HeartbeatPolicy{Interval: 30 * time.Second, StalenessMultiplier: 2.5}, nil)
		tracker.Record("s1", base)

		if tracker.Stale("s1", base.Add(74*time.Second)) {
			t.Fatal("expected session to still be live at 74s of silence")
		}
		if tracker.Stale("s1", base.Add(75*time.Second)) {
			t.Fatal("expected session to still be live at exactly the threshold")
		}
		if !tracker.Stale("s1", base.Add(76*time.Second)) {
			t.Fatal("expected session to be stale at 76s of silence")
		}
	})

	t.Run("sessions without a beat are not stale", func(t *testing.T) {
		t.Parallel()

		tracker := NewHeartbeatTracker(HeartbeatPolicy{}, nil)
		if tracker.Stale("unknown", base.Add(time.Hour)) {
			t.Fatal("expected unknown session to not be stale")
		}
	})

	t.Run("forget drops liveness bookkeeping", func(t *testing.T) {
		t.Parallel()

		tracker := NewHeartbeatTracker(HeartbeatPolicy{}, nil)
		tracker.Record("s1", base)
		tracker.Forget("s1")

		if _, ok := tracker.Last("s1"); ok {
			t.Fatal("expected forgotten session to have no beat")
		}
		if tracker.Stale("s1", base.Add(time.Hour)) {
			t.Fatal("expected forgotten session to not be stale")
		}
	})
}
