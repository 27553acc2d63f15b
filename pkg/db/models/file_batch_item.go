package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignaciomazza/ofistur-billing/pkg/enums"
)

// FileBatchItem is one row within a batch, linked back to the attempt and
// charge it presents or answers.
type FileBatchItem struct {
	ID              uuid.UUID             `gorm:"type:uuid;primaryKey"`
	BatchID         uuid.UUID             `gorm:"column:batch_id;type:uuid;not null;index"`
	AttemptID       *uuid.UUID            `gorm:"column:attempt_id;type:uuid;index"`
	ChargeID        *uuid.UUID            `gorm:"column:charge_id;type:uuid;index"`
	LineNo          int                   `gorm:"column:line_no;not null"`
	ExternalRef     string                `gorm:"column:external_ref;not null;index"`
	RowSHA256       string                `gorm:"column:row_sha256;not null"`
	AmountARS       decimal.Decimal       `gorm:"column:amount_ars;type:numeric(14,2);not null"`
	Status          enums.BatchItemStatus `gorm:"column:status;type:batch_item_status;not null;default:'pending'"`
	ResponseCode    *string               `gorm:"column:response_code"`
	ResponseMessage *string               `gorm:"column:response_message"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
