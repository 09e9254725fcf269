// Package sqlite provides the durable persistence layer over modernc.org/sqlite:
// the authoritative session store, the append-only audit log, and the
// provisioned event credential and window tables.
package sqlite

import (
	"context"
	"fmt"
)

// Storage bundles all repositories over one connection pool. It satisfies the
// persistence.SessionStore, persistence.AuditLog, persistence.CredentialRepository,
// and persistence.EventRepository interfaces.
type Storage struct {
	pool  *ConnectionPool
	retry RetryConfig

	*SessionStore
	*AuditLog
	*CredentialRepository
	*EventRepository
}

// Open creates a storage instance for the provided DSN.
func Open(dsn string) (*Storage, error) {
	pool, err := NewConnectionPool(dsn)
	if err != nil {
		return nil, err
	}
	retry := DefaultRetryConfig()
	return &Storage{
		pool:                 pool,
		retry:                retry,
		SessionStore:         NewSessionStore(pool, retry),
		AuditLog:             NewAuditLog(pool),
		CredentialRepository: NewCredentialRepository(pool),
		EventRepository:      NewEventRepository(pool),
	}, nil
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Migrate applies the schema. Statements are idempotent so repeated startup
// runs are safe.
func (s *Storage) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.DB().ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", MapError(err))
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		scope_id TEXT NOT NULL,
		event_id TEXT NOT NULL,
		state TEXT NOT NULL,
		admitted_at TEXT NOT NULL,
		window_start TEXT NOT NULL,
		window_end TEXT NOT NULL,
		sub_windows TEXT NOT NULL DEFAULT '[]',
		last_heartbeat_at TEXT NOT NULL,
		violation_count INTEGER NOT NULL DEFAULT 0,
		disqualified_reason TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS violations (
		session_id TEXT NOT NULL REFERENCES sessions(id),
		sequence_number INTEGER NOT NULL,
		kind TEXT NOT NULL,
		severity TEXT NOT NULL,
		occurred_at TEXT NOT NULL,
		PRIMARY KEY (session_id, sequence_number)
	)`,
	`CREATE TABLE IF NOT EXISTS audit_entries (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		sequence_number INTEGER NOT NULL,
		kind TEXT NOT NULL,
		signal TEXT NOT NULL DEFAULT '',
		severity TEXT NOT NULL DEFAULT '',
		from_state TEXT NOT NULL DEFAULT '',
		to_state TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		occurred_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_session_sequence
		ON audit_entries (session_id, sequence_number)`,
	`CREATE TABLE IF NOT EXISTS event_credentials (
		event_id TEXT NOT NULL,
		access_id TEXT NOT NULL,
		secret_hash TEXT NOT NULL,
		scope_id TEXT NOT NULL,
		disabled INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		PRIMARY KEY (event_id, access_id)
	)`,
	`CREATE TABLE IF NOT EXISTS event_windows (
		event_id TEXT PRIMARY KEY,
		window_start TEXT NOT NULL,
		window_end TEXT NOT NULL,
		sub_windows TEXT NOT NULL DEFAULT '[]'
	)`,
}
