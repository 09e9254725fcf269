package persistence

import "time"

// SubWindow is the persisted form of an approved time-of-day access range.
// Offsets are nanoseconds from midnight, matching time.Duration.
type SubWindow struct {
	Day         int           `json:"day"`
	StartOffset time.Duration `json:"start_offset"`
	EndOffset   time.Duration `json:"end_offset"`
}

// Violation is the persisted form of one counted strike.
type Violation struct {
	SessionID      string
	SequenceNumber uint64
	Kind           string
	Severity       string
	Timestamp      time.Time
}

// Session is the durable shape of a proctored session. Window fields are
// immutable after admission; ViolationCount always equals the number of
// violation rows for the session.
type Session struct {
	ID                 string
	ScopeID            string
	EventID            string
	State              string
	AdmittedAt         time.Time
	WindowStart        time.Time
	WindowEnd          time.Time
	SubWindows         []SubWindow
	LastHeartbeatAt    time.Time
	ViolationCount     int
	Violations         []Violation
	DisqualifiedReason string
}

// AuditEntry is one write-once row in the append-only outcome log.
type AuditEntry struct {
	ID             string
	SessionID      string
	SequenceNumber uint64
	Kind           string
	Signal         string
	Severity       string
	FromState      string
	ToState        string
	Reason         string
	Timestamp      time.Time
}

// EventCredential is a provisioned access credential for one event, hashed
// with argon2id. Provisioning happens out of band; this service only reads
// credentials at admission.
type EventCredential struct {
	EventID    string
	AccessID   string
	SecretHash string
	ScopeID    string
	Disabled   bool
	CreatedAt  time.Time
}

// EventWindow is the per-event access window configuration supplied by the
// event-configuration authority. Read once at session admission.
type EventWindow struct {
	EventID    string
	Start      time.Time
	End        time.Time
	SubWindows []SubWindow
}
