package persistence

import "context"

// SessionStore persists authoritative session state keyed by session ID.
// SaveSession is an upsert of the whole session including its violation rows.
type SessionStore interface {
	SaveSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	ListSessions(ctx context.Context) ([]Session, error)
}

// AuditLog is the append-only outcome record. Entries are write-once, never
// edited or deleted, and ordered by (SessionID, SequenceNumber).
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
	ListBySession(ctx context.Context, sessionID string) ([]AuditEntry, error)
}

// CredentialRepository stores provisioned event credentials.
type CredentialRepository interface {
	GetCredential(ctx context.Context, eventID, accessID string) (EventCredential, error)
	PutCredential(ctx context.Context, credential EventCredential) error
}

// EventRepository stores per-event access window configuration.
type EventRepository interface {
	GetEventWindow(ctx context.Context, eventID string) (EventWindow, error)
	PutEventWindow(ctx context.Context, window EventWindow) error
}
