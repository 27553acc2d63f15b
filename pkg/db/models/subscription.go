package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignaciomazza/ofistur-billing/pkg/enums"
)

// Subscription is an agency's recurring back-office plan. The engine reads it
// and only AnchorRunner moves next_anchor_date forward.
type Subscription struct {
	ID               uuid.UUID                `gorm:"type:uuid;primaryKey"`
	AgencyID         uuid.UUID                `gorm:"column:agency_id;type:uuid;not null;index"`
	Status           enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null;default:'active'"`
	PlanPriceUSD     decimal.Decimal          `gorm:"column:plan_price_usd;type:numeric(14,2);not null"`
	AnchorDay        int                      `gorm:"column:anchor_day;not null"`
	Timezone         string                   `gorm:"column:timezone;not null;default:'America/Argentina/Buenos_Aires'"`
	DebitDiscountPct decimal.Decimal          `gorm:"column:debit_discount_pct;type:numeric(5,2);not null;default:0"`
	NextAnchorDate   *time.Time               `gorm:"column:next_anchor_date;type:date"`
	CreatedAt        time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
