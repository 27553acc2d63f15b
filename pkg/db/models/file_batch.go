package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignaciomazza/ofistur-billing/pkg/enums"
)

// FileBatch is one file exchanged with the bank. Inbound batches reference
// the outbound presentment they answer through ParentBatchID. The content
// hash is the primary idempotency guard on imports.
type FileBatch struct {
	ID             uuid.UUID            `gorm:"type:uuid;primaryKey"`
	Direction      enums.BatchDirection `gorm:"column:direction;type:batch_direction;not null"`
	ParentBatchID  *uuid.UUID           `gorm:"column:parent_batch_id;type:uuid;index"`
	AdapterName    string               `gorm:"column:adapter_name;not null"`
	AdapterVersion string               `gorm:"column:adapter_version;not null"`
	BusinessDate   time.Time            `gorm:"column:business_date;type:date;not null"`
	Sequence       int64                `gorm:"column:sequence;not null"`
	StorageKey     string               `gorm:"column:storage_key;not null"`
	ContentSHA256  string               `gorm:"column:content_sha256;not null;uniqueIndex:idx_file_batches_sha,where:content_sha256 <> ''"`
	RecordCount    int                  `gorm:"column:record_count;not null;default:0"`
	TotalAmountARS decimal.Decimal      `gorm:"column:total_amount_ars;type:numeric(16,2);not null;default:0"`
	Status         enums.BatchStatus    `gorm:"column:status;type:batch_status;not null;default:'created'"`
	PaidCount      int                  `gorm:"column:paid_count;not null;default:0"`
	RejectedCount  int                  `gorm:"column:rejected_count;not null;default:0"`
	ErrorCount     int                  `gorm:"column:error_count;not null;default:0"`
	CreatedByID    *uuid.UUID           `gorm:"column:created_by_id;type:uuid"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
