package models

import (
	"time"

	"github.com/google/uuid"
)

// AgencyCounter is a per-tenant monotonic sequence. Platform-wide counters
// use the nil agency UUID.
type AgencyCounter struct {
	AgencyID  uuid.UUID `gorm:"column:agency_id;type:uuid;not null;primaryKey"`
	Key       string    `gorm:"column:key;not null;primaryKey"`
	Value     int64     `gorm:"column:value;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
