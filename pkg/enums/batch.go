package enums

import "fmt"

// BatchDirection distinguishes presentment files from bank responses.
type BatchDirection string

const (
	BatchDirectionOutbound BatchDirection = "outbound"
	BatchDirectionInbound  BatchDirection = "inbound"
)

var validBatchDirections = []BatchDirection{
	BatchDirectionOutbound,
	BatchDirectionInbound,
}

// String implements fmt.Stringer.
func (b BatchDirection) String() string {
	return string(b)
}

// IsValid reports whether the value is known.
func (b BatchDirection) IsValid() bool {
	for _, candidate := range validBatchDirections {
		if candidate == b {
			return true
		}
	}
	return false
}

// BatchStatus tracks the lifecycle of an exchanged bank file.
type BatchStatus string

const (
	BatchStatusCreated  BatchStatus = "created"
	BatchStatusReady    BatchStatus = "ready"
	BatchStatusExported BatchStatus = "exported"
	BatchStatusImported BatchStatus = "imported"
)

var validBatchStatuses = []BatchStatus{
	BatchStatusCreated,
	BatchStatusReady,
	BatchStatusExported,
	BatchStatusImported,
}

// String implements fmt.Stringer.
func (b BatchStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is known.
func (b BatchStatus) IsValid() bool {
	for _, candidate := range validBatchStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBatchStatus converts raw input into a BatchStatus.
func ParseBatchStatus(value string) (BatchStatus, error) {
	for _, candidate := range validBatchStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid batch status %q", value)
}

// BatchItemStatus records the per-row outcome inside a batch.
type BatchItemStatus string

const (
	BatchItemStatusPending  BatchItemStatus = "pending"
	BatchItemStatusPaid     BatchItemStatus = "paid"
	BatchItemStatusRejected BatchItemStatus = "rejected"
	BatchItemStatusError    BatchItemStatus = "error"
)

var validBatchItemStatuses = []BatchItemStatus{
	BatchItemStatusPending,
	BatchItemStatusPaid,
	BatchItemStatusRejected,
	BatchItemStatusError,
}

// String implements fmt.Stringer.
func (b BatchItemStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is known.
func (b BatchItemStatus) IsValid() bool {
	for _, candidate := range validBatchItemStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}
