package testfixtures

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/example/proctor-gate/internal/proctor"
)

// MemorySessionStore is a thread-safe in-memory session store for gate tests.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]proctor.Session

	// SaveErr, when set, is returned by SaveSession to exercise failure paths.
	SaveErr error
	saves   int
}

// NewMemorySessionStore constructs an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]proctor.Session)}
}

// SaveSession upserts the whole session record.
func (s *MemorySessionStore) SaveSession(_ context.Context, session proctor.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

// ListSessions returns all saved sessions ordered by identifier.
func (s *MemorySessionStore) ListSessions(_ context.Context) ([]proctor.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]proctor.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns the stored copy of one session.
func (s *MemorySessionStore) Get(id string) (proctor.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return proctor.Session{}, false
	}
	return session.Clone(), true
}

// Saves reports how many SaveSession calls were made.
func (s *MemorySessionStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// MemoryAuditSink collects audit entries in memory.
type MemoryAuditSink struct {
	mu      sync.RWMutex
	entries []proctor.AuditEntry
}

// NewMemoryAuditSink constructs an empty audit sink.
func NewMemoryAuditSink() *MemoryAuditSink {
	return &MemoryAuditSink{}
}

// Append records one entry.
func (s *MemoryAuditSink) Append(_ context.Context, entry proctor.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// Entries returns a copy of everything appended so far.
func (s *MemoryAuditSink) Entries() []proctor.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]proctor.AuditEntry(nil), s.entries...)
}

// BySession returns the entries recorded for one session, in append order.
func (s *MemoryAuditSink) BySession(sessionID string) []proctor.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]proctor.AuditEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		if entry.SessionID == sessionID {
			out = append(out, entry)
		}
	}
	return out
}

// CountKind returns how many entries of the given kind exist for a session.
func (s *MemoryAuditSink) CountKind(sessionID string, kind proctor.AuditKind) int {
	count := 0
	for _, entry := range s.BySession(sessionID) {
		if entry.Kind == kind {
			count++
		}
	}
	return count
}

type memoryCredential struct {
	secret   string
	decision proctor.CredentialDecision
}

// MemoryCredentialValidator validates admission credentials against an
// in-memory table of plaintext secrets.
type MemoryCredentialValidator struct {
	mu    sync.RWMutex
	table map[string]memoryCredential
}

// NewMemoryCredentialValidator constructs an empty validator.
func NewMemoryCredentialValidator() *MemoryCredentialValidator {
	return &MemoryCredentialValidator{table: make(map[string]memoryCredential)}
}

// Register stores one credential and the decision returned when it matches.
func (v *MemoryCredentialValidator) Register(eventID, accessID, secret string, decision proctor.CredentialDecision) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.table[credentialKey(eventID, accessID)] = memoryCredential{secret: secret, decision: decision}
}

// Validate implements proctor.CredentialValidator.
func (v *MemoryCredentialValidator) Validate(_ context.Context, accessID, accessSecret, eventID string) (proctor.CredentialDecision, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	cred, ok := v.table[credentialKey(eventID, accessID)]
	if !ok || cred.secret != accessSecret {
		return proctor.CredentialDecision{}, proctor.ErrInvalidCredential
	}
	return cred.decision, nil
}

func credentialKey(eventID, accessID string) string {
	return fmt.Sprintf("%s/%s", eventID, accessID)
}
