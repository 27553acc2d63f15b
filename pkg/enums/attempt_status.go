package enums

import "fmt"

// AttemptStatus tracks one collection try for a charge.
type AttemptStatus string

const (
	AttemptStatusPending    AttemptStatus = "pending"
	AttemptStatusScheduled  AttemptStatus = "scheduled"
	AttemptStatusProcessing AttemptStatus = "processing"
	AttemptStatusPaid       AttemptStatus = "paid"
	AttemptStatusRejected   AttemptStatus = "rejected"
	AttemptStatusFailed     AttemptStatus = "failed"
	AttemptStatusCanceled   AttemptStatus = "canceled"
)

var validAttemptStatuses = []AttemptStatus{
	AttemptStatusPending,
	AttemptStatusScheduled,
	AttemptStatusProcessing,
	AttemptStatusPaid,
	AttemptStatusRejected,
	AttemptStatusFailed,
	AttemptStatusCanceled,
}

// String implements fmt.Stringer.
func (a AttemptStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is known.
func (a AttemptStatus) IsValid() bool {
	for _, candidate := range validAttemptStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (a AttemptStatus) IsTerminal() bool {
	switch a {
	case AttemptStatusPaid, AttemptStatusRejected, AttemptStatusFailed, AttemptStatusCanceled:
		return true
	}
	return false
}

// IsOpen reports whether the attempt can still be presented or canceled.
func (a AttemptStatus) IsOpen() bool {
	switch a {
	case AttemptStatusPending, AttemptStatusScheduled, AttemptStatusProcessing:
		return true
	}
	return false
}

// ParseAttemptStatus converts raw input into an AttemptStatus.
func ParseAttemptStatus(value string) (AttemptStatus, error) {
	for _, candidate := range validAttemptStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid attempt status %q", value)
}
