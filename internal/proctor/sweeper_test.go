package proctor

import (
	"context"
	"testing"
	"time"
)

func TestSweeperRun(t *testing.T) {
	t.Parallel()

	h := newGateHarness(t, defaultWindow())
	session := h.admit(t)
	h.clock.Advance(3 * time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	sweeper := NewSweeper(h.gate, time.Millisecond, nil)
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		status, err := h.gate.Status(context.Background(), session.ID)
		if err != nil {
			t.Fatalf("Status failed: %v", err)
		}
		if status.State == StateExpired {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("sweeper never expired the session, state is %s", status.State)
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on context cancellation")
	}
}
