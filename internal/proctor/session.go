package proctor

import "time"

// State enumerates the lifecycle of a proctored session.
type State string

const (
	// StateUnauthenticated is the pre-admission state; it is never stored for
	// an issued session but appears as the origin of admission transitions.
	StateUnauthenticated State = "unauthenticated"
	// StateActive is a fully admitted, monitored session.
	StateActive State = "active"
	// StateWarned is an active session inside the warn band of the strike policy.
	StateWarned State = "warned"
	// StateSuspended is a scheduled pause while now is outside an approved
	// sub-window but before the absolute end. Not a violation.
	StateSuspended State = "suspended"
	// StateDisqualified is terminal: the session crossed the violation threshold.
	StateDisqualified State = "disqualified"
	// StateExpired is terminal: the access window's absolute end passed.
	StateExpired State = "expired"
)

// Terminal reports whether no further transition is possible from the state.
func (s State) Terminal() bool {
	return s == StateDisqualified || s == StateExpired
}

// Session is the server-side authoritative record of one participant or
// team's admission for one event. Window fields are immutable after admission;
// the violation history is append-only; once the state is terminal no field
// changes again.
type Session struct {
	ID                 string
	ScopeID            string
	EventID            string
	State              State
	AdmittedAt         time.Time
	Window             AccessWindow
	LastHeartbeatAt    time.Time
	Violations         []Violation
	DisqualifiedReason string
}

// ViolationCount returns the number of recorded strikes. Counts are never
// decremented; the audit log carries one violation entry per strike.
func (s *Session) ViolationCount() int {
	return len(s.Violations)
}

// LastSequence returns the highest violation sequence number recorded, or zero
// when no violation exists. Violations append in sequence order, so the last
// element holds the maximum.
func (s *Session) LastSequence() uint64 {
	if len(s.Violations) == 0 {
		return 0
	}
	return s.Violations[len(s.Violations)-1].SequenceNumber
}

// Clone returns a deep copy safe to hand to callers outside the per-session lock.
func (s *Session) Clone() Session {
	clone := *s
	clone.Window = s.Window.Clone()
	if len(s.Violations) > 0 {
		clone.Violations = make([]Violation, len(s.Violations))
		copy(clone.Violations, s.Violations)
	}
	return clone
}

// SessionStatus is the read-only view polled by UI and dashboard layers.
type SessionStatus struct {
	SessionID      string
	State          State
	ViolationCount int
	TimeRemaining  time.Duration
}
