package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignaciomazza/ofistur-billing/pkg/enums"
)

// BillingCycle freezes one period of a subscription at its anchor date.
// The (subscription, anchor date) pair is unique; re-running the anchor for
// an already-materialized date is a no-op.
type BillingCycle struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey"`
	SubscriptionID uuid.UUID         `gorm:"column:subscription_id;type:uuid;not null;uniqueIndex:idx_billing_cycles_sub_anchor"`
	AgencyID       uuid.UUID         `gorm:"column:agency_id;type:uuid;not null;index"`
	AnchorDate     time.Time         `gorm:"column:anchor_date;type:date;not null;uniqueIndex:idx_billing_cycles_sub_anchor"`
	PeriodStart    time.Time         `gorm:"column:period_start;type:date;not null"`
	PeriodEnd      time.Time         `gorm:"column:period_end;type:date;not null"`
	Status         enums.CycleStatus `gorm:"column:status;type:cycle_status;not null;default:'frozen'"`
	FxRate         decimal.Decimal   `gorm:"column:fx_rate;type:numeric(14,4);not null"`
	AmountUSD      decimal.Decimal   `gorm:"column:amount_usd;type:numeric(14,2);not null"`
	AmountARS      decimal.Decimal   `gorm:"column:amount_ars;type:numeric(14,2);not null"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
