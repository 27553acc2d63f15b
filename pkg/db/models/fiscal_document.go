package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignaciomazza/ofistur-billing/pkg/enums"
)

// FiscalDocument is the tax-authority invoice issued for a paid charge.
// At most one exists per (charge, doc type).
type FiscalDocument struct {
	ID              uuid.UUID             `gorm:"type:uuid;primaryKey"`
	ChargeID        uuid.UUID             `gorm:"column:charge_id;type:uuid;not null;uniqueIndex:idx_fiscal_docs_charge_type"`
	AgencyID        uuid.UUID             `gorm:"column:agency_id;type:uuid;not null;index"`
	DocType         enums.FiscalDocType   `gorm:"column:doc_type;type:fiscal_doc_type;not null;uniqueIndex:idx_fiscal_docs_charge_type"`
	Status          enums.FiscalDocStatus `gorm:"column:status;type:fiscal_doc_status;not null;default:'pending'"`
	IssuerReference *string               `gorm:"column:issuer_reference"`
	CAE             *string               `gorm:"column:cae"`
	CAEDue          *time.Time            `gorm:"column:cae_due;type:date"`
	RetryCount      int                   `gorm:"column:retry_count;not null;default:0"`
	LastError       *string               `gorm:"column:last_error"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
