package enums

import "fmt"

// PaymentMethodType distinguishes collection instruments.
type PaymentMethodType string

const (
	PaymentMethodTypeDebitMandate PaymentMethodType = "debit_mandate"
	PaymentMethodTypeCard         PaymentMethodType = "card"
	PaymentMethodTypeTransfer     PaymentMethodType = "transfer"
)

var validPaymentMethodTypes = []PaymentMethodType{
	PaymentMethodTypeDebitMandate,
	PaymentMethodTypeCard,
	PaymentMethodTypeTransfer,
}

// String implements fmt.Stringer.
func (p PaymentMethodType) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p PaymentMethodType) IsValid() bool {
	for _, candidate := range validPaymentMethodTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMethodType converts raw input into a PaymentMethodType.
func ParsePaymentMethodType(value string) (PaymentMethodType, error) {
	for _, candidate := range validPaymentMethodTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method type %q", value)
}

// PaymentMethodStatus tracks instrument readiness.
type PaymentMethodStatus string

const (
	PaymentMethodStatusActive  PaymentMethodStatus = "active"
	PaymentMethodStatusPending PaymentMethodStatus = "pending"
)

var validPaymentMethodStatuses = []PaymentMethodStatus{
	PaymentMethodStatusActive,
	PaymentMethodStatusPending,
}

// String implements fmt.Stringer.
func (p PaymentMethodStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p PaymentMethodStatus) IsValid() bool {
	for _, candidate := range validPaymentMethodStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// MandateStatus tracks the direct-debit authorization held by the bank.
type MandateStatus string

const (
	MandateStatusActive  MandateStatus = "active"
	MandateStatusPending MandateStatus = "pending"
	MandateStatusRevoked MandateStatus = "revoked"
)

var validMandateStatuses = []MandateStatus{
	MandateStatusActive,
	MandateStatusPending,
	MandateStatusRevoked,
}

// String implements fmt.Stringer.
func (m MandateStatus) String() string {
	return string(m)
}

// IsValid reports whether the value is known.
func (m MandateStatus) IsValid() bool {
	for _, candidate := range validMandateStatuses {
		if candidate == m {
			return true
		}
	}
	return false
}
