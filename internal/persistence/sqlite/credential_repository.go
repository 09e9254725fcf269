package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/proctor-gate/internal/persistence"
)

// CredentialRepository implements persistence.CredentialRepository using SQLite.
type CredentialRepository struct {
	pool *ConnectionPool
}

// NewCredentialRepository creates a new SQLite credential repository.
func NewCredentialRepository(pool *ConnectionPool) *CredentialRepository {
	return &CredentialRepository{pool: pool}
}

// GetCredential retrieves one provisioned credential for an event.
func (r *CredentialRepository) GetCredential(ctx context.Context, eventID, accessID string) (persistence.EventCredential, error) {
	row := r.pool.DB().QueryRowContext(ctx, `
		SELECT event_id, access_id, secret_hash, scope_id, disabled, created_at
		FROM event_credentials
		WHERE event_id = ? AND access_id = ?
	`, eventID, accessID)

	var credential persistence.EventCredential
	var disabled int
	var createdAt string
	if err := row.Scan(&credential.EventID, &credential.AccessID, &credential.SecretHash, &credential.ScopeID, &disabled, &createdAt); err != nil {
		return persistence.EventCredential{}, MapError(err)
	}
	credential.Disabled = disabled != 0

	var err error
	if credential.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return persistence.EventCredential{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return credential, nil
}

// PutCredential upserts a provisioned credential.
func (r *CredentialRepository) PutCredential(ctx context.Context, credential persistence.EventCredential) error {
	if credential.EventID == "" || credential.AccessID == "" {
		return persistence.ErrConstraintViolation
	}

	disabled := 0
	if credential.Disabled {
		disabled = 1
	}
	createdAt := credential.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO event_credentials (event_id, access_id, secret_hash, scope_id, disabled, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id, access_id) DO UPDATE SET
			secret_hash = excluded.secret_hash,
			scope_id = excluded.scope_id,
			disabled = excluded.disabled
	`,
		credential.EventID,
		credential.AccessID,
		credential.SecretHash,
		credential.ScopeID,
		disabled,
		createdAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return MapError(err)
	}
	return nil
}

// EventRepository implements persistence.EventRepository using SQLite.
type EventRepository struct {
	pool *ConnectionPool
}

// NewEventRepository creates a new SQLite event window repository.
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{pool: pool}
}

// GetEventWindow retrieves the access window configuration for an event.
func (r *EventRepository) GetEventWindow(ctx context.Context, eventID string) (persistence.EventWindow, error) {
	row := r.pool.DB().QueryRowContext(ctx, `
		SELECT event_id, window_start, window_end, sub_windows
		FROM event_windows
		WHERE event_id = ?
	`, eventID)

	var window persistence.EventWindow
	var start, end, subWindows string
	if err := row.Scan(&window.EventID, &start, &end, &subWindows); err != nil {
		return persistence.EventWindow{}, MapError(err)
	}

	var err error
	if window.Start, err = time.Parse(timeFormat, start); err != nil {
		return persistence.EventWindow{}, fmt.Errorf("failed to parse window_start: %w", err)
	}
	if window.End, err = time.Parse(timeFormat, end); err != nil {
		return persistence.EventWindow{}, fmt.Errorf("failed to parse window_end: %w", err)
	}
	if err := json.Unmarshal([]byte(subWindows), &window.SubWindows); err != nil {
		return persistence.EventWindow{}, fmt.Errorf("failed to decode sub windows: %w", err)
	}
	return window, nil
}

// PutEventWindow upserts the access window configuration for an event.
func (r *EventRepository) PutEventWindow(ctx context.Context, window persistence.EventWindow) error {
	if window.EventID == "" {
		return persistence.ErrConstraintViolation
	}

	subWindows, err := json.Marshal(window.SubWindows)
	if err != nil {
		return fmt.Errorf("failed to encode sub windows: %w", err)
	}

	_, err = r.pool.DB().ExecContext(ctx, `
		INSERT INTO event_windows (event_id, window_start, window_end, sub_windows)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(event_id) DO UPDATE SET
			window_start = excluded.window_start,
			window_end = excluded.window_end,
			sub_windows = excluded.sub_windows
	`,
		window.EventID,
		window.Start.UTC().Format(timeFormat),
		window.End.UTC().Format(timeFormat),
		string(subWindows),
	)
	if err != nil {
		return MapError(err)
	}
	return nil
}
