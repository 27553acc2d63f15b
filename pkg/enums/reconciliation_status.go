package enums

import "fmt"

// ReconciliationStatus records how a charge matched against bank outcomes.
type ReconciliationStatus string

const (
	ReconciliationStatusPending   ReconciliationStatus = "pending"
	ReconciliationStatusMatched   ReconciliationStatus = "matched"
	ReconciliationStatusUnmatched ReconciliationStatus = "unmatched"
	ReconciliationStatusError     ReconciliationStatus = "error"
)

var validReconciliationStatuses = []ReconciliationStatus{
	ReconciliationStatusPending,
	ReconciliationStatusMatched,
	ReconciliationStatusUnmatched,
	ReconciliationStatusError,
}

// String implements fmt.Stringer.
func (r ReconciliationStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is known.
func (r ReconciliationStatus) IsValid() bool {
	for _, candidate := range validReconciliationStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReconciliationStatus converts raw input into a ReconciliationStatus.
func ParseReconciliationStatus(value string) (ReconciliationStatus, error) {
	for _, candidate := range validReconciliationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reconciliation status %q", value)
}
