package proctor

import "errors"

var (
	// ErrInvalidCredential is returned when admission is rejected because the
	// supplied access credential does not resolve to a valid participant.
	ErrInvalidCredential = errors.New("proctor: invalid credential")
	// ErrOutsideWindow is returned when a valid credential is presented outside
	// an admissible access window.
	ErrOutsideWindow = errors.New("proctor: outside access window")
	// ErrUnknownSignal is returned when the classifier cannot map a raw signal.
	ErrUnknownSignal = errors.New("proctor: unknown signal")
	// ErrStaleSequence is returned when a violation carries a sequence number
	// at or below the last one recorded for the session.
	ErrStaleSequence = errors.New("proctor: stale or duplicate sequence number")
	// ErrSessionNotFound is returned for events addressed to a session that
	// does not exist or has been purged.
	ErrSessionNotFound = errors.New("proctor: session not found")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
