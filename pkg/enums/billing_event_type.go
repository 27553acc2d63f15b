package enums

import "fmt"

// BillingEventType labels append-only audit records emitted by the engine.
type BillingEventType string

const (
	BillingEventChargePaid    BillingEventType = "charge_paid"
	BillingEventChargePastDue BillingEventType = "charge_past_due"
	BillingEventBatchExported BillingEventType = "batch_exported"
	BillingEventBatchImported BillingEventType = "batch_imported"
	BillingEventFiscalIssued  BillingEventType = "fiscal_issued"
)

var validBillingEventTypes = []BillingEventType{
	BillingEventChargePaid,
	BillingEventChargePastDue,
	BillingEventBatchExported,
	BillingEventBatchImported,
	BillingEventFiscalIssued,
}

// String implements fmt.Stringer.
func (b BillingEventType) String() string {
	return string(b)
}

// IsValid reports whether the value is known.
func (b BillingEventType) IsValid() bool {
	for _, candidate := range validBillingEventTypes {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBillingEventType converts raw input into a BillingEventType.
func ParseBillingEventType(value string) (BillingEventType, error) {
	for _, candidate := range validBillingEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid billing event type %q", value)
}
