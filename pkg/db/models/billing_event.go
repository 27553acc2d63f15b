package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ignaciomazza/ofistur-billing/pkg/enums"
)

// BillingEvent is an append-only audit record. Exactly one is emitted per
// meaningful state transition (one charge_paid per charge closure).
type BillingEvent struct {
	ID          uuid.UUID              `gorm:"type:uuid;primaryKey"`
	AgencyID    uuid.UUID              `gorm:"column:agency_id;type:uuid;not null;index"`
	Type        enums.BillingEventType `gorm:"column:type;type:billing_event_type;not null"`
	ChargeID    *uuid.UUID             `gorm:"column:charge_id;type:uuid;index"`
	ActorUserID *uuid.UUID             `gorm:"column:actor_user_id;type:uuid"`
	Payload     json.RawMessage        `gorm:"column:payload;type:jsonb"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
}
