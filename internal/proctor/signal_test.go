package proctor

import (
	"errors"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, time.March, 6, 15, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		signal   Signal
		severity Severity
	}{
		{name: "tab hidden is a warning", signal: SignalTabHidden, severity: SeverityWarning},
		{name: "window blur is a warning", signal: SignalWindowBlur, severity: SeverityWarning},
		{name: "fullscreen exit is a warning", signal: SignalFullscreenExit, severity: SeverityWarning},
		{name: "devtools attempt is a warning", signal: SignalDevtoolsAttempt, severity: SeverityWarning},
		{name: "leave attempt is critical", signal: SignalLeaveAttempt, severity: SeverityCritical},
		{name: "heartbeat timeout is critical", signal: SignalHeartbeatTimeout, severity: SeverityCritical},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			violation, err := Classify(tc.signal, at, 7)
			if err != nil {
				t.Fatalf("Classify failed: %v", err)
			}
			if violation.Kind != tc.signal {
				t.Fatalf("expected kind %s, got %s", tc.signal, violation.Kind)
			}
			if violation.Severity != tc.severity {
				t.Fatalf("expected severity %s, got %s", tc.severity, violation.Severity)
			}
			if !violation.Timestamp.Equal(at) {
				t.Fatalf("expected timestamp %v, got %v", at, violation.Timestamp)
			}
			if violation.SequenceNumber != 7 {
				t.Fatalf("expected sequence 7, got %d", violation.SequenceNumber)
			}
		})
	}

	t.Run("rejects unknown signals", func(t *testing.T) {
		t.Parallel()

		_, err := Classify(Signal("copy_paste"), at, 1)
		if !errors.Is(err, ErrUnknownSignal) {
			t.Fatalf("expected ErrUnknownSignal, got %v", err)
		}
	})
}

func TestKnownSignal(t *testing.T) {
	t.Parallel()

	if !KnownSignal(SignalTabHidden) {
		t.Fatal("expected tab_hidden to be known")
	}
	if KnownSignal(Signal("made_up")) {
		t.Fatal("expected made_up to be unknown")
	}
}
