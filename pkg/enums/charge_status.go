package enums

import "fmt"

// ChargeStatus tracks the payable obligation derived from a billing cycle.
type ChargeStatus string

const (
	ChargeStatusReady    ChargeStatus = "ready"
	ChargeStatusPaid     ChargeStatus = "paid"
	ChargeStatusPastDue  ChargeStatus = "past_due"
	ChargeStatusCanceled ChargeStatus = "canceled"
)

var validChargeStatuses = []ChargeStatus{
	ChargeStatusReady,
	ChargeStatusPaid,
	ChargeStatusPastDue,
	ChargeStatusCanceled,
}

// String implements fmt.Stringer.
func (c ChargeStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c ChargeStatus) IsValid() bool {
	for _, candidate := range validChargeStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseChargeStatus converts raw input into a ChargeStatus.
func ParseChargeStatus(value string) (ChargeStatus, error) {
	for _, candidate := range validChargeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid charge status %q", value)
}
