package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/proctor-gate/internal/persistence"
	"github.com/example/proctor-gate/internal/proctor"
)

type sessionStoreAdapter struct {
	repo persistence.SessionStore
}

func newSessionStoreAdapter(repo persistence.SessionStore) *sessionStoreAdapter {
	return &sessionStoreAdapter{repo: repo}
}

func (a *sessionStoreAdapter) SaveSession(ctx context.Context, session proctor.Session) error {
	return a.repo.SaveSession(ctx, toPersistenceSession(session))
}

func (a *sessionStoreAdapter) ListSessions(ctx context.Context) ([]proctor.Session, error) {
	models, err := a.repo.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	sessions := make([]proctor.Session, 0, len(models))
	for _, model := range models {
		sessions = append(sessions, toProctorSession(model))
	}
	return sessions, nil
}

type auditSinkAdapter struct {
	log persistence.AuditLog
}

func newAuditSinkAdapter(log persistence.AuditLog) *auditSinkAdapter {
	return &auditSinkAdapter{log: log}
}

func (a *auditSinkAdapter) Append(ctx context.Context, entry proctor.AuditEntry) error {
	return a.log.Append(ctx, persistence.AuditEntry{
		ID:             uuid.NewString(),
		SessionID:      entry.SessionID,
		SequenceNumber: entry.SequenceNumber,
		Kind:           string(entry.Kind),
		Signal:         string(entry.Signal),
		Severity:       string(entry.Severity),
		FromState:      string(entry.FromState),
		ToState:        string(entry.ToState),
		Reason:         entry.Reason,
		Timestamp:      entry.Timestamp,
	})
}

type credentialValidatorAdapter struct {
	credentials persistence.CredentialRepository
	events      persistence.EventRepository
}

func newCredentialValidatorAdapter(credentials persistence.CredentialRepository, events persistence.EventRepository) *credentialValidatorAdapter {
	return &credentialValidatorAdapter{credentials: credentials, events: events}
}

func (a *credentialValidatorAdapter) Validate(ctx context.Context, accessID, accessSecret, eventID string) (proctor.CredentialDecision, error) {
	credential, err := a.credentials.GetCredential(ctx, eventID, accessID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return proctor.CredentialDecision{}, proctor.ErrInvalidCredential
		}
		return proctor.CredentialDecision{}, fmt.Errorf("load credential: %w", err)
	}
	if credential.Disabled {
		return proctor.CredentialDecision{}, proctor.ErrInvalidCredential
	}
	if err := proctor.VerifySecret(credential.SecretHash, accessSecret); err != nil {
		if errors.Is(err, proctor.ErrInvalidCredential) {
			return proctor.CredentialDecision{}, err
		}
		return proctor.CredentialDecision{}, fmt.Errorf("verify secret: %w", err)
	}

	window, err := a.events.GetEventWindow(ctx, eventID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return proctor.CredentialDecision{}, proctor.ErrInvalidCredential
		}
		return proctor.CredentialDecision{}, fmt.Errorf("load event window: %w", err)
	}

	return proctor.CredentialDecision{
		ScopeID: credential.ScopeID,
		Window:  toProctorWindow(window),
	}, nil
}

func toPersistenceSession(session proctor.Session) persistence.Session {
	violations := make([]persistence.Violation, 0, len(session.Violations))
	for _, violation := range session.Violations {
		violations = append(violations, persistence.Violation{
			SessionID:      session.ID,
			SequenceNumber: violation.SequenceNumber,
			Kind:           string(violation.Kind),
			Severity:       string(violation.Severity),
			Timestamp:      violation.Timestamp,
		})
	}
	return persistence.Session{
		ID:                 session.ID,
		ScopeID:            session.ScopeID,
		EventID:            session.EventID,
		State:              string(session.State),
		AdmittedAt:         session.AdmittedAt,
		WindowStart:        session.Window.Start,
		WindowEnd:          session.Window.End,
		SubWindows:         toPersistenceSubWindows(session.Window.SubWindows),
		LastHeartbeatAt:    session.LastHeartbeatAt,
		ViolationCount:     len(violations),
		Violations:         violations,
		DisqualifiedReason: session.DisqualifiedReason,
	}
}

func toProctorSession(model persistence.Session) proctor.Session {
	violations := make([]proctor.Violation, 0, len(model.Violations))
	for _, violation := range model.Violations {
		violations = append(violations, proctor.Violation{
			Kind:           proctor.Signal(violation.Kind),
			Severity:       proctor.Severity(violation.Severity),
			Timestamp:      violation.Timestamp,
			SequenceNumber: violation.SequenceNumber,
		})
	}
	return proctor.Session{
		ID:         model.ID,
		ScopeID:    model.ScopeID,
		EventID:    model.EventID,
		State:      proctor.State(model.State),
		AdmittedAt: model.AdmittedAt,
		Window: proctor.AccessWindow{
			Start:      model.WindowStart,
			End:        model.WindowEnd,
			SubWindows: toProctorSubWindows(model.SubWindows),
		},
		LastHeartbeatAt:    model.LastHeartbeatAt,
		Violations:         violations,
		DisqualifiedReason: model.DisqualifiedReason,
	}
}

func toProctorWindow(model persistence.EventWindow) proctor.AccessWindow {
	return proctor.AccessWindow{
		Start:      model.Start,
		End:        model.End,
		SubWindows: toProctorSubWindows(model.SubWindows),
	}
}

func toPersistenceSubWindows(subs []proctor.SubWindow) []persistence.SubWindow {
	if len(subs) == 0 {
		return nil
	}
	out := make([]persistence.SubWindow, 0, len(subs))
	for _, sub := range subs {
		out = append(out, persistence.SubWindow{
			Day:         int(sub.Day),
			StartOffset: sub.Start,
			EndOffset:   sub.End,
		})
	}
	return out
}

func toProctorSubWindows(subs []persistence.SubWindow) []proctor.SubWindow {
	if len(subs) == 0 {
		return nil
	}
	out := make([]proctor.SubWindow, 0, len(subs))
	for _, sub := range subs {
		out = append(out, proctor.SubWindow{
			Day:   time.Weekday(sub.Day),
			Start: sub.StartOffset,
			End:   sub.EndOffset,
		})
	}
	return out
}
