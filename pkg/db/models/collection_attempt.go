package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignaciomazza/ofistur-billing/pkg/enums"
)

// CollectionAttempt is one scheduled try to collect a charge through a
// channel. AttemptNo is strictly increasing and unique per charge.
type CollectionAttempt struct {
	ID              uuid.UUID               `gorm:"type:uuid;primaryKey"`
	ChargeID        uuid.UUID               `gorm:"column:charge_id;type:uuid;not null;uniqueIndex:idx_attempts_charge_no"`
	AgencyID        uuid.UUID               `gorm:"column:agency_id;type:uuid;not null;index"`
	AttemptNo       int                     `gorm:"column:attempt_no;not null;uniqueIndex:idx_attempts_charge_no"`
	Channel         enums.CollectionChannel `gorm:"column:channel;type:collection_channel;not null;default:'direct_debit'"`
	Status          enums.AttemptStatus     `gorm:"column:status;type:attempt_status;not null;default:'pending'"`
	PaymentMethodID *uuid.UUID              `gorm:"column:payment_method_id;type:uuid"`
	AmountARS       decimal.Decimal         `gorm:"column:amount_ars;type:numeric(14,2);not null"`
	ExternalRef     string                  `gorm:"column:external_ref;not null;unique"`
	ScheduledFor    *time.Time              `gorm:"column:scheduled_for;type:date"`
	ProcessedAt     *time.Time              `gorm:"column:processed_at"`
	ResultCode      *string                 `gorm:"column:result_code"`
	ResultMessage   *string                 `gorm:"column:result_message"`
	ProcessorTrace  *string                 `gorm:"column:processor_trace"`
	SettledAt       *time.Time              `gorm:"column:settled_at"`
	RawPayload      json.RawMessage         `gorm:"column:raw_payload;type:jsonb"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
