package proctor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxViolations is the 3-strike disqualification threshold.
const DefaultMaxViolations = 3

// GateConfig wires the dependencies of the session state machine.
type GateConfig struct {
	Validator     CredentialValidator
	Store         SessionStore
	Audit         AuditSink
	Heartbeats    *HeartbeatTracker
	IDGenerator   func() string
	Now           func() time.Time
	MaxViolations int
	EventBuffer   int
	Logger        *slog.Logger
}

// Gate is the session state machine: the single authority over session
// mutation. Every session evolves only through one serialized apply operation
// guarded by a per-session lock; all other components are read-only advisors.
type Gate struct {
	validator     CredentialValidator
	store         SessionStore
	audit         AuditSink
	heartbeats    *HeartbeatTracker
	idGenerator   func() string
	now           func() time.Time
	maxViolations int
	logger        *slog.Logger

	mu      sync.RWMutex
	entries map[string]*sessionEntry

	events chan DisqualificationEvent
}

// sessionEntry pairs a session with its serialization lock. The Gate's own
// mutex guards only the map; all session reads and writes happen under the
// entry lock so independent sessions never contend.
type sessionEntry struct {
	mu      sync.Mutex
	session Session
}

// NewGate constructs a Gate with the provided dependencies, applying defaults
// for optional fields.
func NewGate(cfg GateConfig) *Gate {
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = uuid.NewString
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxViolations <= 0 {
		cfg.MaxViolations = DefaultMaxViolations
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	if cfg.Heartbeats == nil {
		cfg.Heartbeats = NewHeartbeatTracker(HeartbeatPolicy{}, cfg.Logger)
	}
	return &Gate{
		validator:     cfg.Validator,
		store:         cfg.Store,
		audit:         cfg.Audit,
		heartbeats:    cfg.Heartbeats,
		idGenerator:   cfg.IDGenerator,
		now:           cfg.Now,
		maxViolations: cfg.MaxViolations,
		logger:        defaultLogger(cfg.Logger),
		entries:       make(map[string]*sessionEntry),
		events:        make(chan DisqualificationEvent, cfg.EventBuffer),
	}
}

func (g *Gate) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, g.logger, "Gate", operation, attrs...)
}

// Events exposes the disqualification notifications. Each session produces at
// most one event, emitted at the moment of the terminal transition.
func (g *Gate) Events() <-chan DisqualificationEvent {
	return g.events
}

// AdmitParams carries the credential presented for admission.
type AdmitParams struct {
	AccessID     string
	AccessSecret string
	EventID      string
}

// AdmitResult carries the admitted session.
type AdmitResult struct {
	Session Session
}

// Admit authenticates a credential against the event and creates an Active
// session when now falls inside an admissible window. Rejections are
// distinguished: ErrInvalidCredential when the credential fails, and
// ErrOutsideWindow when the credential is valid but now is outside the window.
// No session is created in either case.
func (g *Gate) Admit(ctx context.Context, params AdmitParams) (result AdmitResult, err error) {
	if g == nil {
		err = fmt.Errorf("Gate is nil")
		return
	}
	if g.validator == nil {
		err = fmt.Errorf("credential validator not configured")
		return
	}

	logger := g.loggerWith(ctx, "Admit",
		"access_id", params.AccessID,
		"event_id", params.EventID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "admission rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"session_id", result.Session.ID,
			"scope_id", result.Session.ScopeID,
		).InfoContext(ctx, "session admitted")
	}()

	if vErr := validateAdmitParams(params); vErr.HasErrors() {
		err = vErr
		return
	}

	var decision CredentialDecision
	decision, err = g.validator.Validate(ctx, params.AccessID, params.AccessSecret, params.EventID)
	if err != nil {
		if !errors.Is(err, ErrInvalidCredential) {
			err = fmt.Errorf("credential validation: %w", err)
		}
		return
	}

	now := g.now()
	if !decision.Window.Admissible(now) {
		err = ErrOutsideWindow
		return
	}

	session := Session{
		ID:              g.idGenerator(),
		ScopeID:         decision.ScopeID,
		EventID:         params.EventID,
		State:           StateActive,
		AdmittedAt:      now,
		Window:          decision.Window.Clone(),
		LastHeartbeatAt: now,
	}

	if g.store != nil {
		if err = g.store.SaveSession(ctx, session); err != nil {
			return
		}
	}

	g.mu.Lock()
	g.entries[session.ID] = &sessionEntry{session: session}
	g.mu.Unlock()

	g.heartbeats.Record(session.ID, now)
	g.appendAudit(ctx, AuditEntry{
		SessionID: session.ID,
		Kind:      AuditTransition,
		FromState: StateUnauthenticated,
		ToState:   StateActive,
		Reason:    "credential accepted inside access window",
		Timestamp: now,
	})

	result = AdmitResult{Session: session.Clone()}
	return
}

func validateAdmitParams(params AdmitParams) *ValidationError {
	vErr := &ValidationError{}
	if params.AccessID == "" {
		vErr.add("access_id", "access id is required")
	}
	if params.AccessSecret == "" {
		vErr.add("access_secret", "access secret is required")
	}
	if params.EventID == "" {
		vErr.add("event_id", "event id is required")
	}
	return vErr
}

// ReportSignalParams carries one client-submitted monitoring signal.
type ReportSignalParams struct {
	SessionID string
	Signal    Signal
	// Sequence is the client's strictly increasing submission counter. A value
	// at or below the last recorded one is rejected as a replay.
	Sequence uint64
}

// SignalResult reports the outcome of applying a signal.
type SignalResult struct {
	Status SessionStatus
	// Ignored is true when the event was accepted for the audit record only:
	// the session was already terminal, or expiry preempted the violation.
	Ignored bool
}

// ReportSignal classifies and applies one client signal to the session. The
// function is total over (state, event): terminal sessions absorb the signal
// into the audit log, expiry is checked before the violation so a late strike
// can never disqualify an expired session, and replays are rejected with
// ErrStaleSequence without being reapplied.
func (g *Gate) ReportSignal(ctx context.Context, params ReportSignalParams) (result SignalResult, err error) {
	if g == nil {
		err = fmt.Errorf("Gate is nil")
		return
	}

	logger := g.loggerWith(ctx, "ReportSignal",
		"session_id", params.SessionID,
		"signal", string(params.Signal),
		"sequence", params.Sequence,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "signal rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"state", string(result.Status.State),
			"violation_count", result.Status.ViolationCount,
			"ignored", result.Ignored,
		).InfoContext(ctx, "signal applied")
	}()

	if params.Signal == SignalHeartbeatTimeout {
		vErr := &ValidationError{}
		vErr.add("signal", "heartbeat_timeout is synthesized server-side")
		err = vErr
		return
	}

	entry := g.lookup(params.SessionID)
	if entry == nil {
		err = ErrSessionNotFound
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := g.now()

	if entry.session.State.Terminal() {
		g.appendAudit(ctx, AuditEntry{
			SessionID:      entry.session.ID,
			SequenceNumber: params.Sequence,
			Kind:           AuditIgnored,
			Signal:         params.Signal,
			FromState:      entry.session.State,
			ToState:        entry.session.State,
			Reason:         "signal for terminal session",
			Timestamp:      now,
		})
		result = SignalResult{Status: g.statusLocked(entry, now), Ignored: true}
		return
	}

	var violation Violation
	violation, err = Classify(params.Signal, now, params.Sequence)
	if err != nil {
		return
	}

	// Expiry wins over any pending violation in the same tick.
	g.reconcileLocked(ctx, entry, now)
	if entry.session.State.Terminal() {
		g.appendAudit(ctx, AuditEntry{
			SessionID:      entry.session.ID,
			SequenceNumber: params.Sequence,
			Kind:           AuditIgnored,
			Signal:         params.Signal,
			Severity:       violation.Severity,
			FromState:      entry.session.State,
			ToState:        entry.session.State,
			Reason:         "violation after expiry",
			Timestamp:      now,
		})
		result = SignalResult{Status: g.statusLocked(entry, now), Ignored: true}
		return
	}

	if params.Sequence <= entry.session.LastSequence() {
		g.appendAudit(ctx, AuditEntry{
			SessionID:      entry.session.ID,
			SequenceNumber: params.Sequence,
			Kind:           AuditRejected,
			Signal:         params.Signal,
			FromState:      entry.session.State,
			ToState:        entry.session.State,
			Reason:         "stale or duplicate sequence number",
			Timestamp:      now,
		})
		err = ErrStaleSequence
		return
	}

	if err = g.applyViolationLocked(ctx, entry, violation, now); err != nil {
		return
	}

	result = SignalResult{Status: g.statusLocked(entry, now)}
	return
}

// RecordHeartbeat ingests a presence ping. Out-of-order timestamps are a
// logged no-op; terminal sessions absorb the ping without mutation. A
// heartbeat may also resume a suspended session or expire the session when the
// window has already ended.
func (g *Gate) RecordHeartbeat(ctx context.Context, sessionID string, at time.Time) (SessionStatus, error) {
	if g == nil {
		return SessionStatus{}, fmt.Errorf("Gate is nil")
	}

	entry := g.lookup(sessionID)
	if entry == nil {
		return SessionStatus{}, ErrSessionNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := g.now()
	if at.IsZero() {
		at = now
	}
	// The server clock is authoritative for liveness. A forward-dated beat is
	// clamped so a client cannot park a timestamp in the future and sit silent
	// without ever tripping the staleness check.
	if at.After(now) {
		g.logger.WarnContext(ctx, "forward-dated heartbeat clamped",
			"session_id", sessionID,
			"at", at,
			"now", now,
		)
		at = now
	}

	if entry.session.State.Terminal() {
		return g.statusLocked(entry, now), nil
	}

	g.reconcileLocked(ctx, entry, now)
	if entry.session.State.Terminal() {
		return g.statusLocked(entry, now), nil
	}

	if !g.heartbeats.Record(sessionID, at) {
		return g.statusLocked(entry, now), nil
	}

	candidate := entry.session.Clone()
	candidate.LastHeartbeatAt = at
	if g.store != nil {
		if err := g.store.SaveSession(ctx, candidate); err != nil {
			return SessionStatus{}, err
		}
	}
	entry.session = candidate

	return g.statusLocked(entry, now), nil
}

// Status returns the read-only view polled by UI and dashboard layers.
func (g *Gate) Status(ctx context.Context, sessionID string) (SessionStatus, error) {
	entry := g.lookup(sessionID)
	if entry == nil {
		return SessionStatus{}, ErrSessionNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return g.statusLocked(entry, g.now()), nil
}

// Tick runs the time-driven sweep over all sessions: window expiry, scheduled
// suspension and resumption, and heartbeat staleness. It is the only path that
// can transition a session whose client never sends another message.
func (g *Gate) Tick(ctx context.Context) {
	if g == nil {
		return
	}
	now := g.now()

	g.mu.RLock()
	snapshot := make([]*sessionEntry, 0, len(g.entries))
	for _, entry := range g.entries {
		snapshot = append(snapshot, entry)
	}
	g.mu.RUnlock()

	for _, entry := range snapshot {
		entry.mu.Lock()
		if entry.session.State.Terminal() {
			entry.mu.Unlock()
			continue
		}

		g.reconcileLocked(ctx, entry, now)
		// Staleness only counts against monitored states. A suspended session is
		// expected to be silent until its next approved sub-window.
		monitored := entry.session.State == StateActive || entry.session.State == StateWarned
		if monitored && g.heartbeats.Stale(entry.session.ID, now) {
			sequence := entry.session.LastSequence() + 1
			violation, err := Classify(SignalHeartbeatTimeout, now, sequence)
			if err == nil {
				if applyErr := g.applyViolationLocked(ctx, entry, violation, now); applyErr != nil {
					g.logger.ErrorContext(ctx, "failed to apply heartbeat timeout",
						"session_id", entry.session.ID, "error", applyErr)
				} else {
					// Re-arm so one silent client yields one timeout per
					// staleness period, not one per sweep.
					g.heartbeats.Record(entry.session.ID, now)
				}
			}
		}
		entry.mu.Unlock()
	}
}

// Restore reloads committed sessions from the store after a restart. Terminal
// sessions stay terminal; live sessions re-seed the heartbeat tracker from
// their last persisted beat so staleness detection resumes immediately.
func (g *Gate) Restore(ctx context.Context) error {
	if g == nil || g.store == nil {
		return nil
	}

	sessions, err := g.store.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("restore sessions: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, session := range sessions {
		session := session
		g.entries[session.ID] = &sessionEntry{session: session}
		if !session.State.Terminal() && !session.LastHeartbeatAt.IsZero() {
			g.heartbeats.Record(session.ID, session.LastHeartbeatAt)
		}
	}

	g.logger.InfoContext(ctx, "sessions restored", "count", len(sessions))
	return nil
}

// lookup returns the entry for a session, or nil when unknown.
func (g *Gate) lookup(sessionID string) *sessionEntry {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.entries[sessionID]
}

func (g *Gate) statusLocked(entry *sessionEntry, now time.Time) SessionStatus {
	return SessionStatus{
		SessionID:      entry.session.ID,
		State:          entry.session.State,
		ViolationCount: entry.session.ViolationCount(),
		TimeRemaining:  entry.session.Window.TimeRemaining(now),
	}
}

// applyViolationLocked appends the violation, applies the strike policy, and
// commits the result as one unit: compute, durable save, audit, then the
// in-memory swap. A failed save leaves the in-memory session untouched so the
// caller can retry the original event; the sequence check makes retries safe.
func (g *Gate) applyViolationLocked(ctx context.Context, entry *sessionEntry, violation Violation, now time.Time) error {
	from := entry.session.State

	candidate := entry.session.Clone()
	candidate.Violations = append(candidate.Violations, violation)

	count := candidate.ViolationCount()
	to := from
	switch {
	case count >= g.maxViolations:
		to = StateDisqualified
		candidate.DisqualifiedReason = fmt.Sprintf("Disqualified: exceeded %d strikes — %s at strike %d",
			g.maxViolations, violation.Kind, count)
	case from == StateActive:
		to = StateWarned
	}
	candidate.State = to

	if g.store != nil {
		if err := g.store.SaveSession(ctx, candidate); err != nil {
			return err
		}
	}

	g.appendAudit(ctx, AuditEntry{
		SessionID:      candidate.ID,
		SequenceNumber: violation.SequenceNumber,
		Kind:           AuditViolation,
		Signal:         violation.Kind,
		Severity:       violation.Severity,
		FromState:      from,
		ToState:        to,
		Timestamp:      now,
	})
	if from != to {
		g.appendAudit(ctx, AuditEntry{
			SessionID:      candidate.ID,
			SequenceNumber: violation.SequenceNumber,
			Kind:           AuditTransition,
			FromState:      from,
			ToState:        to,
			Reason:         candidate.DisqualifiedReason,
			Timestamp:      now,
		})
	}

	entry.session = candidate

	if to == StateDisqualified {
		g.heartbeats.Forget(candidate.ID)
		g.emit(ctx, DisqualificationEvent{
			SessionID:  candidate.ID,
			ScopeID:    candidate.ScopeID,
			Reason:     candidate.DisqualifiedReason,
			Violations: append([]Violation(nil), candidate.Violations...),
		})
	}
	return nil
}

// reconcileLocked applies the time-driven transitions for now: forced expiry,
// scheduled suspension, and resumption. Suspension is an expected state, so no
// violation is recorded either way and the violation count survives.
func (g *Gate) reconcileLocked(ctx context.Context, entry *sessionEntry, now time.Time) {
	if entry.session.State.Terminal() {
		return
	}

	if entry.session.Window.TimeRemaining(now) == 0 {
		g.transitionLocked(ctx, entry, StateExpired, "access window ended", now)
		return
	}

	admissible := entry.session.Window.Admissible(now)
	switch {
	case !admissible && (entry.session.State == StateActive || entry.session.State == StateWarned):
		g.transitionLocked(ctx, entry, StateSuspended, "outside approved sub-window", now)
	case admissible && entry.session.State == StateSuspended:
		resumed := StateActive
		if entry.session.ViolationCount() > 0 {
			resumed = StateWarned
		}
		g.transitionLocked(ctx, entry, resumed, "approved sub-window reopened", now)
		// A fresh staleness period starts at resumption; the silence accrued
		// during the pause does not count.
		g.heartbeats.Record(entry.session.ID, now)
	}
}

// transitionLocked commits a non-violation state change. On a failed save the
// previous state is kept so the next tick retries the same transition.
func (g *Gate) transitionLocked(ctx context.Context, entry *sessionEntry, to State, reason string, now time.Time) {
	from := entry.session.State
	if from == to {
		return
	}

	candidate := entry.session.Clone()
	candidate.State = to

	if g.store != nil {
		if err := g.store.SaveSession(ctx, candidate); err != nil {
			g.logger.ErrorContext(ctx, "failed to persist transition",
				"session_id", candidate.ID,
				"from", string(from),
				"to", string(to),
				"error", err,
			)
			return
		}
	}

	g.appendAudit(ctx, AuditEntry{
		SessionID:      candidate.ID,
		SequenceNumber: candidate.LastSequence(),
		Kind:           AuditTransition,
		FromState:      from,
		ToState:        to,
		Reason:         reason,
		Timestamp:      now,
	})

	entry.session = candidate
	if to.Terminal() {
		g.heartbeats.Forget(candidate.ID)
	}
}

// appendAudit writes one entry to the outcome sink. Append failures are logged
// and do not fail the triggering operation: decisions are made from in-memory
// state plus the incoming event, never from the log.
func (g *Gate) appendAudit(ctx context.Context, entry AuditEntry) {
	if g.audit == nil {
		return
	}
	if err := g.audit.Append(ctx, entry); err != nil {
		g.logger.ErrorContext(ctx, "failed to append audit entry",
			"session_id", entry.SessionID,
			"kind", string(entry.Kind),
			"error", err,
		)
	}
}

// emit pushes a disqualification event without blocking the per-session lock.
// A full buffer drops the event and logs; the durable session record remains
// the source of truth for the outcome.
func (g *Gate) emit(ctx context.Context, event DisqualificationEvent) {
	select {
	case g.events <- event:
	default:
		g.logger.ErrorContext(ctx, "disqualification event buffer full, dropping",
			"session_id", event.SessionID,
			"scope_id", event.ScopeID,
		)
	}
}
