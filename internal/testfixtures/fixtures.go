package testfixtures

import (
	"time"

	"github.com/example/proctor-gate/internal/proctor"
)

// Fixtures share one baseline instant so tests can reason about offsets
// instead of absolute timestamps. The reference falls on a Friday at 15:04:05
// UTC, two hours into the default four-hour access window.
var referenceTime = time.Date(2026, time.March, 6, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// WindowOption configures a generated access window.
type WindowOption func(*proctor.AccessWindow)

// NewWindowFixture returns an access window that contains ReferenceTime: it
// opens two hours before and closes two hours after, with no sub-window
// restriction.
func NewWindowFixture(opts ...WindowOption) proctor.AccessWindow {
	window := proctor.AccessWindow{
		Start: referenceTime.Add(-2 * time.Hour),
		End:   referenceTime.Add(2 * time.Hour),
	}
	for _, opt := range opts {
		opt(&window)
	}
	return window
}

// WithWindowBounds overrides the absolute start and end.
func WithWindowBounds(start, end time.Time) WindowOption {
	return func(w *proctor.AccessWindow) {
		w.Start = start
		w.End = end
	}
}

// WithSubWindows restricts the window to the given approved ranges.
func WithSubWindows(subs ...proctor.SubWindow) WindowOption {
	return func(w *proctor.AccessWindow) {
		w.SubWindows = subs
	}
}

// NewDecisionFixture returns a credential decision granting the default window.
func NewDecisionFixture(scopeID string, opts ...WindowOption) proctor.CredentialDecision {
	if scopeID == "" {
		scopeID = "team-001"
	}
	return proctor.CredentialDecision{
		ScopeID: scopeID,
		Window:  NewWindowFixture(opts...),
	}
}
