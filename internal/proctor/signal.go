package proctor

import (
	"fmt"
	"time"
)

// Signal identifies a raw monitoring event reported for a session. Client-side
// handlers map browser events onto these tags; the server never trusts any
// client-computed severity or count.
type Signal string

const (
	// SignalTabHidden indicates the monitored tab lost visibility.
	SignalTabHidden Signal = "tab_hidden"
	// SignalWindowBlur indicates the monitored window lost focus.
	SignalWindowBlur Signal = "window_blur"
	// SignalFullscreenExit indicates the client left fullscreen mode.
	SignalFullscreenExit Signal = "fullscreen_exit"
	// SignalDevtoolsAttempt indicates a developer-tools key combination was pressed.
	SignalDevtoolsAttempt Signal = "devtools_attempt"
	// SignalLeaveAttempt indicates an explicit navigation or unload attempt.
	SignalLeaveAttempt Signal = "leave_attempt"
	// SignalHeartbeatTimeout is synthesized server-side when a session goes
	// silent past the staleness threshold. Clients may not submit it.
	SignalHeartbeatTimeout Signal = "heartbeat_timeout"
)

// Severity ranks how strongly a violation counts against a session.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Violation is an immutable, severity-tagged record of a monitoring signal.
// SequenceNumber is strictly increasing within a session and orders the
// append-only violation history.
type Violation struct {
	Kind           Signal
	Severity       Severity
	Timestamp      time.Time
	SequenceNumber uint64
}

var signalSeverities = map[Signal]Severity{
	SignalTabHidden:        SeverityWarning,
	SignalWindowBlur:       SeverityWarning,
	SignalFullscreenExit:   SeverityWarning,
	SignalDevtoolsAttempt:  SeverityWarning,
	SignalLeaveAttempt:     SeverityCritical,
	SignalHeartbeatTimeout: SeverityCritical,
}

// Classify maps a raw signal tag to a typed violation. It is a pure function:
// the caller supplies the timestamp and sequence number, and severity policy
// lives only here. Unrecognized signals yield ErrUnknownSignal so callers can
// log and discard them instead of silently dropping input.
func Classify(signal Signal, at time.Time, sequence uint64) (Violation, error) {
	severity, ok := signalSeverities[signal]
	if !ok {
		return Violation{}, fmt.Errorf("%w: %q", ErrUnknownSignal, string(signal))
	}
	return Violation{
		Kind:           signal,
		Severity:       severity,
		Timestamp:      at,
		SequenceNumber: sequence,
	}, nil
}

// KnownSignal reports whether the tag maps to a severity tier.
func KnownSignal(signal Signal) bool {
	_, ok := signalSeverities[signal]
	return ok
}
