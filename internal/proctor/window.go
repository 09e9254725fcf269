package proctor

import "time"

// SubWindow restricts admission to a time-of-day range on one weekday, for
// example an organization-approved 09:00-12:00 Saturday block. Offsets are
// measured from midnight in the evaluation time's location.
type SubWindow struct {
	Day   time.Weekday
	Start time.Duration
	End   time.Duration
}

// contains reports whether now falls inside the sub-window. The start bound is
// inclusive and the end bound exclusive, matching the absolute window bounds.
func (sw SubWindow) contains(now time.Time) bool {
	if now.Weekday() != sw.Day {
		return false
	}
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	offset := now.Sub(midnight)
	return offset >= sw.Start && offset < sw.End
}

// AccessWindow is the read-only per-event time configuration: absolute bounds
// plus optional approved sub-windows. It is created by the event-configuration
// authority before any session exists and never mutated by this package.
type AccessWindow struct {
	Start      time.Time
	End        time.Time
	SubWindows []SubWindow
}

// Admissible reports whether now is inside an admissible window: within the
// absolute bounds and, when sub-windows are configured, inside at least one
// sub-window. An empty sub-window list means only the absolute bounds apply.
func (w AccessWindow) Admissible(now time.Time) bool {
	if now.Before(w.Start) || !now.Before(w.End) {
		return false
	}
	if len(w.SubWindows) == 0 {
		return true
	}
	for _, sw := range w.SubWindows {
		if sw.contains(now) {
			return true
		}
	}
	return false
}

// TimeRemaining returns the duration until the absolute end of the window, or
// zero once now has reached it. A zero result is the sole authority for
// forcing a session to Expired.
func (w AccessWindow) TimeRemaining(now time.Time) time.Duration {
	if remaining := w.End.Sub(now); remaining > 0 {
		return remaining
	}
	return 0
}

// Clone returns a deep copy so callers cannot alias the sub-window slice.
func (w AccessWindow) Clone() AccessWindow {
	clone := AccessWindow{Start: w.Start, End: w.End}
	if len(w.SubWindows) > 0 {
		clone.SubWindows = make([]SubWindow, len(w.SubWindows))
		copy(clone.SubWindows, w.SubWindows)
	}
	return clone
}
