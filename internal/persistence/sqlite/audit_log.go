package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/example/proctor-gate/internal/persistence"
)

// AuditLog implements persistence.AuditLog using SQLite. Rows are insert-only;
// no update or delete statement exists in this file by design of the schema.
type AuditLog struct {
	pool *ConnectionPool
}

// NewAuditLog creates a new SQLite audit log.
func NewAuditLog(pool *ConnectionPool) *AuditLog {
	return &AuditLog{pool: pool}
}

// Append writes one entry. Concurrent appends need no coordination: ordering
// is carried by the sequence_number column, not by write order.
func (l *AuditLog) Append(ctx context.Context, entry persistence.AuditEntry) error {
	if entry.ID == "" || entry.SessionID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := l.pool.DB().ExecContext(ctx, `
		INSERT INTO audit_entries (id, session_id, sequence_number, kind, signal, severity, from_state, to_state, reason, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		entry.SessionID,
		entry.SequenceNumber,
		entry.Kind,
		entry.Signal,
		entry.Severity,
		entry.FromState,
		entry.ToState,
		entry.Reason,
		entry.Timestamp.UTC().Format(timeFormat),
	)
	if err != nil {
		return MapError(err)
	}
	return nil
}

// ListBySession returns the entries for one session ordered by sequence
// number, then by time for entries sharing a sequence.
func (l *AuditLog) ListBySession(ctx context.Context, sessionID string) ([]persistence.AuditEntry, error) {
	rows, err := l.pool.DB().QueryContext(ctx, `
		SELECT id, session_id, sequence_number, kind, signal, severity, from_state, to_state, reason, occurred_at
		FROM audit_entries
		WHERE session_id = ?
		ORDER BY sequence_number, occurred_at, id
	`, sessionID)
	if err != nil {
		return nil, MapError(err)
	}
	defer rows.Close()

	entries := make([]persistence.AuditEntry, 0)
	for rows.Next() {
		var entry persistence.AuditEntry
		var occurredAt string
		if err := rows.Scan(
			&entry.ID,
			&entry.SessionID,
			&entry.SequenceNumber,
			&entry.Kind,
			&entry.Signal,
			&entry.Severity,
			&entry.FromState,
			&entry.ToState,
			&entry.Reason,
			&occurredAt,
		); err != nil {
			return nil, MapError(err)
		}
		if entry.Timestamp, err = time.Parse(timeFormat, occurredAt); err != nil {
			return nil, fmt.Errorf("failed to parse occurred_at: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return entries, nil
}
