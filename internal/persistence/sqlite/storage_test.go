package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/proctor-gate/internal/persistence"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	dir := t.TempDir()
	dsn := filepath.Join(dir, "proctor.db")
	storage, err := Open(dsn)
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}

	t.Cleanup(func() {
		_ = storage.Close()
	})

	if err := storage.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return storage
}

func TestSessionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	now := time.Now().UTC().Truncate(time.Second)
	session := persistence.Session{
		ID:          "session-1",
		ScopeID:     "team-1",
		EventID:     "event-1",
		State:       "active",
		AdmittedAt:  now,
		WindowStart: now.Add(-time.Hour),
		WindowEnd:   now.Add(3 * time.Hour),
		SubWindows: []persistence.SubWindow{
			{Day: 6, StartOffset: 9 * time.Hour, EndOffset: 12 * time.Hour},
		},
		LastHeartbeatAt: now,
	}

	if err := storage.SaveSession(ctx, session); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	fetched, err := storage.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if fetched.State != "active" || fetched.ScopeID != "team-1" {
		t.Fatalf("unexpected session retrieved: %#v", fetched)
	}
	if len(fetched.SubWindows) != 1 || fetched.SubWindows[0].StartOffset != 9*time.Hour {
		t.Fatalf("unexpected sub-windows: %#v", fetched.SubWindows)
	}
	if !fetched.WindowEnd.Equal(session.WindowEnd) {
		t.Fatalf("expected window end %v, got %v", session.WindowEnd, fetched.WindowEnd)
	}

	// Upsert with violations and a state change.
	session.State = "warned"
	session.ViolationCount = 1
	session.Violations = []persistence.Violation{
		{SessionID: session.ID, SequenceNumber: 1, Kind: "tab_hidden", Severity: "warning", Timestamp: now},
	}
	if err := storage.SaveSession(ctx, session); err != nil {
		t.Fatalf("SaveSession upsert failed: %v", err)
	}

	// Saving the same violation rows again must be idempotent.
	if err := storage.SaveSession(ctx, session); err != nil {
		t.Fatalf("repeated SaveSession failed: %v", err)
	}

	fetched, err = storage.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if fetched.State != "warned" || fetched.ViolationCount != 1 {
		t.Fatalf("unexpected updated session: %#v", fetched)
	}
	if len(fetched.Violations) != 1 || fetched.Violations[0].Kind != "tab_hidden" {
		t.Fatalf("unexpected violations: %#v", fetched.Violations)
	}

	if _, err := storage.GetSession(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionStoreListSessions(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	now := time.Now().UTC().Truncate(time.Second)
	for _, id := range []string{"session-b", "session-a"} {
		session := persistence.Session{
			ID:              id,
			ScopeID:         "team",
			EventID:         "event-1",
			State:           "active",
			AdmittedAt:      now,
			WindowStart:     now,
			WindowEnd:       now.Add(time.Hour),
			LastHeartbeatAt: now,
		}
		if err := storage.SaveSession(ctx, session); err != nil {
			t.Fatalf("SaveSession failed: %v", err)
		}
	}

	sessions, err := storage.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected two sessions, got %d", len(sessions))
	}
	if sessions[0].ID != "session-a" || sessions[1].ID != "session-b" {
		t.Fatalf("expected sessions ordered by id, got %s then %s", sessions[0].ID, sessions[1].ID)
	}
}

func TestAuditLogAppendAndList(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	now := time.Now().UTC().Truncate(time.Second)
	entries := []persistence.AuditEntry{
		{ID: "a-2", SessionID: "session-1", SequenceNumber: 2, Kind: "violation", Signal: "window_blur", Severity: "warning", Timestamp: now.Add(time.Minute)},
		{ID: "a-1", SessionID: "session-1", SequenceNumber: 1, Kind: "violation", Signal: "tab_hidden", Severity: "warning", Timestamp: now},
		{ID: "a-3", SessionID: "session-2", SequenceNumber: 1, Kind: "transition", FromState: "unauthenticated", ToState: "active", Timestamp: now},
	}
	for _, entry := range entries {
		if err := storage.Append(ctx, entry); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	listed, err := storage.ListBySession(ctx, "session-1")
	if err != nil {
		t.Fatalf("ListBySession failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected two entries for session-1, got %d", len(listed))
	}
	if listed[0].SequenceNumber != 1 || listed[1].SequenceNumber != 2 {
		t.Fatalf("expected entries ordered by sequence number, got %#v", listed)
	}

	if err := storage.Append(ctx, persistence.AuditEntry{SessionID: "session-1"}); err == nil {
		t.Fatal("expected Append without an id to fail")
	}
}

func TestCredentialRepository(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	now := time.Now().UTC().Truncate(time.Second)
	credential := persistence.EventCredential{
		EventID:    "event-1",
		AccessID:   "team-1",
		SecretHash: "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		ScopeID:    "team-1",
		CreatedAt:  now,
	}

	if err := storage.PutCredential(ctx, credential); err != nil {
		t.Fatalf("PutCredential failed: %v", err)
	}

	fetched, err := storage.GetCredential(ctx, "event-1", "team-1")
	if err != nil {
		t.Fatalf("GetCredential failed: %v", err)
	}
	if fetched.SecretHash != credential.SecretHash || fetched.Disabled {
		t.Fatalf("unexpected credential: %#v", fetched)
	}

	credential.Disabled = true
	if err := storage.PutCredential(ctx, credential); err != nil {
		t.Fatalf("PutCredential upsert failed: %v", err)
	}
	fetched, err = storage.GetCredential(ctx, "event-1", "team-1")
	if err != nil {
		t.Fatalf("GetCredential failed: %v", err)
	}
	if !fetched.Disabled {
		t.Fatal("expected the upsert to disable the credential")
	}

	if _, err := storage.GetCredential(ctx, "event-1", "nobody"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEventRepository(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	now := time.Now().UTC().Truncate(time.Second)
	window := persistence.EventWindow{
		EventID: "event-1",
		Start:   now,
		End:     now.Add(4 * time.Hour),
		SubWindows: []persistence.SubWindow{
			{Day: 0, StartOffset: 14 * time.Hour, EndOffset: 18 * time.Hour},
		},
	}

	if err := storage.PutEventWindow(ctx, window); err != nil {
		t.Fatalf("PutEventWindow failed: %v", err)
	}

	fetched, err := storage.GetEventWindow(ctx, "event-1")
	if err != nil {
		t.Fatalf("GetEventWindow failed: %v", err)
	}
	if !fetched.Start.Equal(window.Start) || !fetched.End.Equal(window.End) {
		t.Fatalf("unexpected bounds: %#v", fetched)
	}
	if len(fetched.SubWindows) != 1 || fetched.SubWindows[0].EndOffset != 18*time.Hour {
		t.Fatalf("unexpected sub-windows: %#v", fetched.SubWindows)
	}

	if _, err := storage.GetEventWindow(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
