package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignaciomazza/ofistur-billing/pkg/enums"
)

// Charge is the payable obligation derived from a billing cycle. Created by
// AnchorRunner; mutated only through the reconciliation engine.
type Charge struct {
	ID                   uuid.UUID                  `gorm:"type:uuid;primaryKey"`
	CycleID              uuid.UUID                  `gorm:"column:cycle_id;type:uuid;not null;index"`
	SubscriptionID       uuid.UUID                  `gorm:"column:subscription_id;type:uuid;not null;index"`
	AgencyID             uuid.UUID                  `gorm:"column:agency_id;type:uuid;not null;uniqueIndex:idx_charges_agency_idem_key"`
	Number               int64                      `gorm:"column:number;not null"`
	AmountUSDDue         decimal.Decimal            `gorm:"column:amount_usd_due;type:numeric(14,2);not null"`
	AmountARSDue         decimal.Decimal            `gorm:"column:amount_ars_due;type:numeric(14,2);not null"`
	AmountARSPaid        decimal.NullDecimal        `gorm:"column:amount_ars_paid;type:numeric(14,2)"`
	DueDate              time.Time                  `gorm:"column:due_date;type:date;not null"`
	Status               enums.ChargeStatus         `gorm:"column:status;type:charge_status;not null;default:'ready'"`
	ReconciliationStatus enums.ReconciliationStatus `gorm:"column:reconciliation_status;type:reconciliation_status;not null;default:'pending'"`
	IdempotencyKey       string                     `gorm:"column:idempotency_key;not null;uniqueIndex:idx_charges_agency_idem_key"`
	PaymentMethodID      *uuid.UUID                 `gorm:"column:payment_method_id;type:uuid"`
	PaidReference        *string                    `gorm:"column:paid_reference"`
	PaidAt               *time.Time                 `gorm:"column:paid_at"`
	PaidCurrency         *string                    `gorm:"column:paid_currency"`
	CreatedAt            time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}
