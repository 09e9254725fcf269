package proctor

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultHeartbeatInterval matches the external client cadence.
const DefaultHeartbeatInterval = 30 * time.Second

// DefaultStalenessMultiplier tolerates one or two missed beats from normal
// network jitter before a session is flagged stale.
const DefaultStalenessMultiplier = 2.5

// HeartbeatPolicy fixes the expected ping cadence and the multiple of it after
// which a silent session counts as stale.
type HeartbeatPolicy struct {
	Interval            time.Duration
	StalenessMultiplier float64
}

// normalize fills zero fields with defaults.
func (p HeartbeatPolicy) normalize() HeartbeatPolicy {
	if p.Interval <= 0 {
		p.Interval = DefaultHeartbeatInterval
	}
	if p.StalenessMultiplier <= 1 {
		p.StalenessMultiplier = DefaultStalenessMultiplier
	}
	return p
}

// StaleAfter returns the silence duration past which a session is stale.
func (p HeartbeatPolicy) StaleAfter() time.Duration {
	p = p.normalize()
	return time.Duration(float64(p.Interval) * p.StalenessMultiplier)
}

// HeartbeatTracker ingests presence pings per session and answers staleness
// queries. It is a read-only advisor to the session state machine: flagging a
// session stale never mutates session state directly, it only prompts the Gate
// to synthesize a heartbeat_timeout violation.
type HeartbeatTracker struct {
	mu     sync.Mutex
	policy HeartbeatPolicy
	beats  map[string]time.Time
	logger *slog.Logger
}

// NewHeartbeatTracker constructs a tracker with the provided policy.
func NewHeartbeatTracker(policy HeartbeatPolicy, logger *slog.Logger) *HeartbeatTracker {
	return &HeartbeatTracker{
		policy: policy.normalize(),
		beats:  make(map[string]time.Time),
		logger: defaultLogger(logger),
	}
}

// Policy returns the normalized heartbeat policy.
func (t *HeartbeatTracker) Policy() HeartbeatPolicy {
	return t.policy
}

// Record ingests a presence ping. Timestamps earlier than the last recorded
// one are rejected as out-of-order delivery: the call is a no-op, logged, and
// reports false. The recorded timestamp is therefore monotonically
// non-decreasing per session.
func (t *HeartbeatTracker) Record(sessionID string, at time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, ok := t.beats[sessionID]
	if ok && at.Before(last) {
		t.logger.Warn("out-of-order heartbeat rejected",
			"session_id", sessionID,
			"at", at,
			"last_heartbeat_at", last,
		)
		return false
	}
	t.beats[sessionID] = at
	return true
}

// Last returns the most recent heartbeat recorded for the session.
func (t *HeartbeatTracker) Last(sessionID string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.beats[sessionID]
	return last, ok
}

// Stale reports whether the session has been silent longer than the staleness
// threshold. Sessions with no recorded beat are not stale; admission seeds the
// first beat.
func (t *HeartbeatTracker) Stale(sessionID string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, ok := t.beats[sessionID]
	if !ok {
		return false
	}
	return now.Sub(last) > t.policy.StaleAfter()
}

// Forget drops liveness bookkeeping for a session that reached a terminal
// state, so the sweep stops re-evaluating it.
func (t *HeartbeatTracker) Forget(sessionID string) {
	t.mu.Lock()
	delete(t.beats, sessionID)
	t.mu.Unlock()
}
