package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignaciomazza/ofistur-billing/pkg/enums"
)

// FxRate is an immutable (type, date) exchange-rate fact. The engine only
// reads them.
type FxRate struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey"`
	RateType  enums.FxRateType `gorm:"column:rate_type;not null;uniqueIndex:idx_fx_rates_type_date"`
	RateDate  time.Time        `gorm:"column:rate_date;type:date;not null;uniqueIndex:idx_fx_rates_type_date"`
	Rate      decimal.Decimal  `gorm:"column:rate;type:numeric(14,4);not null"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
}
