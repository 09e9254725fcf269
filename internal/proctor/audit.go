package proctor

import (
	"context"
	"time"
)

// AuditKind labels what an audit entry records.
type AuditKind string

const (
	// AuditViolation records one counted strike. The number of violation
	// entries for a session always equals its violation count.
	AuditViolation AuditKind = "violation"
	// AuditTransition records a state change.
	AuditTransition AuditKind = "transition"
	// AuditIgnored records an event accepted for the record only: a signal for
	// a terminal session, or a violation arriving at or after expiry.
	AuditIgnored AuditKind = "ignored"
	// AuditRejected records a replayed or out-of-order submission that was
	// discarded without being applied.
	AuditRejected AuditKind = "rejected"
)

// AuditEntry is one write-once record in the append-only outcome log, ordered
// by (SessionID, SequenceNumber, Kind). The core never reads the log back to
// make live decisions.
type AuditEntry struct {
	SessionID      string
	SequenceNumber uint64
	Kind           AuditKind
	Signal         Signal
	Severity       Severity
	FromState      State
	ToState        State
	Reason         string
	Timestamp      time.Time
}

// AuditSink receives audit entries. Entries are never edited or deleted;
// concurrent appends are safe because ordering is established by the sequence
// number field, not by write order.
type AuditSink interface {
	Append(ctx context.Context, entry AuditEntry) error
}

// SessionStore persists authoritative session state for restart recovery and
// cross-process lookup. Saves are whole-session upserts issued only by the
// Gate under per-session serialization.
type SessionStore interface {
	SaveSession(ctx context.Context, session Session) error
	ListSessions(ctx context.Context) ([]Session, error)
}

// DisqualificationEvent is emitted exactly once, at the moment a session
// transitions to Disqualified, for the external notification system.
type DisqualificationEvent struct {
	SessionID  string
	ScopeID    string
	Reason     string
	Violations []Violation
}
