package enums

import "fmt"

// CycleStatus tracks a materialized billing cycle.
type CycleStatus string

const (
	CycleStatusFrozen   CycleStatus = "frozen"
	CycleStatusPaid     CycleStatus = "paid"
	CycleStatusCanceled CycleStatus = "canceled"
)

var validCycleStatuses = []CycleStatus{
	CycleStatusFrozen,
	CycleStatusPaid,
	CycleStatusCanceled,
}

// String implements fmt.Stringer.
func (c CycleStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c CycleStatus) IsValid() bool {
	for _, candidate := range validCycleStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCycleStatus converts raw input into a CycleStatus.
func ParseCycleStatus(value string) (CycleStatus, error) {
	for _, candidate := range validCycleStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cycle status %q", value)
}
