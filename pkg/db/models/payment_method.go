package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignaciomazza/ofistur-billing/pkg/enums"
)

// PaymentMethod is the collection instrument attached to a subscription.
// AnchorRunner selects it; nothing in this engine mutates it.
type PaymentMethod struct {
	ID             uuid.UUID                 `gorm:"type:uuid;primaryKey"`
	SubscriptionID uuid.UUID                 `gorm:"column:subscription_id;type:uuid;not null;index"`
	AgencyID       uuid.UUID                 `gorm:"column:agency_id;type:uuid;not null;index"`
	Type           enums.PaymentMethodType   `gorm:"column:type;type:payment_method_type;not null"`
	Status         enums.PaymentMethodStatus `gorm:"column:status;type:payment_method_status;not null;default:'pending'"`
	IsDefault      bool                      `gorm:"column:is_default;not null;default:false"`
	HolderName     string                    `gorm:"column:holder_name;not null"`
	HolderTaxID    string                    `gorm:"column:holder_tax_id;not null"`
	MandateStatus  enums.MandateStatus       `gorm:"column:mandate_status;type:mandate_status;not null;default:'pending'"`
	MaskedCBU      string                    `gorm:"column:masked_cbu;not null;default:''"`
	CreatedAt      time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

// EligibleForDebit reports whether the method can back a direct-debit attempt.
func (m PaymentMethod) EligibleForDebit() bool {
	return m.Type == enums.PaymentMethodTypeDebitMandate &&
		m.Status == enums.PaymentMethodStatusActive &&
		m.MandateStatus == enums.MandateStatusActive
}
