package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/proctor-gate/internal/persistence"
)

// timeFormat keeps sub-second precision so restored heartbeat ordering matches
// what was committed.
const timeFormat = time.RFC3339Nano

// SessionStore implements persistence.SessionStore using SQLite.
type SessionStore struct {
	pool  *ConnectionPool
	retry RetryConfig
}

// NewSessionStore creates a new SQLite session store.
func NewSessionStore(pool *ConnectionPool, retry RetryConfig) *SessionStore {
	return &SessionStore{pool: pool, retry: retry}
}

// SaveSession upserts the session row and inserts any violation rows not yet
// present, as one transaction. The (session_id, sequence_number) primary key
// makes replayed saves idempotent, so at-least-once retries after a failed
// commit are safe.
func (s *SessionStore) SaveSession(ctx context.Context, session persistence.Session) error {
	if session.ID == "" {
		return persistence.ErrConstraintViolation
	}

	subWindows, err := json.Marshal(session.SubWindows)
	if err != nil {
		return fmt.Errorf("failed to encode sub windows: %w", err)
	}

	return WithRetry(ctx, s.retry, func() error {
		return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				INSERT INTO sessions (id, scope_id, event_id, state, admitted_at, window_start, window_end, sub_windows, last_heartbeat_at, violation_count, disqualified_reason)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					state = excluded.state,
					last_heartbeat_at = excluded.last_heartbeat_at,
					violation_count = excluded.violation_count,
					disqualified_reason = excluded.disqualified_reason
			`,
				session.ID,
				session.ScopeID,
				session.EventID,
				session.State,
				session.AdmittedAt.UTC().Format(timeFormat),
				session.WindowStart.UTC().Format(timeFormat),
				session.WindowEnd.UTC().Format(timeFormat),
				string(subWindows),
				session.LastHeartbeatAt.UTC().Format(timeFormat),
				len(session.Violations),
				session.DisqualifiedReason,
			)
			if err != nil {
				return MapError(err)
			}

			for _, violation := range session.Violations {
				_, err := tx.Exec(`
					INSERT INTO violations (session_id, sequence_number, kind, severity, occurred_at)
					VALUES (?, ?, ?, ?, ?)
					ON CONFLICT(session_id, sequence_number) DO NOTHING
				`,
					session.ID,
					violation.SequenceNumber,
					violation.Kind,
					violation.Severity,
					violation.Timestamp.UTC().Format(timeFormat),
				)
				if err != nil {
					return MapError(err)
				}
			}
			return nil
		})
	})
}

// GetSession retrieves one session with its violation history in sequence order.
func (s *SessionStore) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	row := s.pool.DB().QueryRowContext(ctx, `
		SELECT id, scope_id, event_id, state, admitted_at, window_start, window_end, sub_windows, last_heartbeat_at, violation_count, disqualified_reason
		FROM sessions
		WHERE id = ?
	`, id)

	session, err := scanSession(row)
	if err != nil {
		return persistence.Session{}, err
	}

	violations, err := s.listViolations(ctx, session.ID)
	if err != nil {
		return persistence.Session{}, err
	}
	session.Violations = violations
	return session, nil
}

// ListSessions returns every persisted session ordered by admission time,
// each with its full violation history.
func (s *SessionStore) ListSessions(ctx context.Context) ([]persistence.Session, error) {
	rows, err := s.pool.DB().QueryContext(ctx, `
		SELECT id, scope_id, event_id, state, admitted_at, window_start, window_end, sub_windows, last_heartbeat_at, violation_count, disqualified_reason
		FROM sessions
		ORDER BY admitted_at, id
	`)
	if err != nil {
		return nil, MapError(err)
	}
	defer rows.Close()

	sessions := make([]persistence.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	for i := range sessions {
		violations, err := s.listViolations(ctx, sessions[i].ID)
		if err != nil {
			return nil, err
		}
		sessions[i].Violations = violations
	}
	return sessions, nil
}

func (s *SessionStore) listViolations(ctx context.Context, sessionID string) ([]persistence.Violation, error) {
	rows, err := s.pool.DB().QueryContext(ctx, `
		SELECT session_id, sequence_number, kind, severity, occurred_at
		FROM violations
		WHERE session_id = ?
		ORDER BY sequence_number
	`, sessionID)
	if err != nil {
		return nil, MapError(err)
	}
	defer rows.Close()

	violations := make([]persistence.Violation, 0)
	for rows.Next() {
		var violation persistence.Violation
		var occurredAt string
		if err := rows.Scan(&violation.SessionID, &violation.SequenceNumber, &violation.Kind, &violation.Severity, &occurredAt); err != nil {
			return nil, MapError(err)
		}
		if violation.Timestamp, err = time.Parse(timeFormat, occurredAt); err != nil {
			return nil, fmt.Errorf("failed to parse occurred_at: %w", err)
		}
		violations = append(violations, violation)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	if len(violations) == 0 {
		return nil, nil
	}
	return violations, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (persistence.Session, error) {
	var session persistence.Session
	var admittedAt, windowStart, windowEnd, subWindows, lastHeartbeatAt string

	err := row.Scan(
		&session.ID,
		&session.ScopeID,
		&session.EventID,
		&session.State,
		&admittedAt,
		&windowStart,
		&windowEnd,
		&subWindows,
		&lastHeartbeatAt,
		&session.ViolationCount,
		&session.DisqualifiedReason,
	)
	if err != nil {
		return persistence.Session{}, MapError(err)
	}

	if session.AdmittedAt, err = time.Parse(timeFormat, admittedAt); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse admitted_at: %w", err)
	}
	if session.WindowStart, err = time.Parse(timeFormat, windowStart); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse window_start: %w", err)
	}
	if session.WindowEnd, err = time.Parse(timeFormat, windowEnd); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse window_end: %w", err)
	}
	if session.LastHeartbeatAt, err = time.Parse(timeFormat, lastHeartbeatAt); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse last_heartbeat_at: %w", err)
	}
	if err := json.Unmarshal([]byte(subWindows), &session.SubWindows); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to decode sub windows: %w", err)
	}
	return session, nil
}
