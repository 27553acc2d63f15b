package counters

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ignaciomazza/ofistur-billing/pkg/db/models"
)

// Well-known counter keys. Platform-scoped counters use uuid.Nil as agency.
const (
	KeyChargeNumber        = "charge_number"
	KeyPresentmentSequence = "presentment_sequence"
)

// Service hands out monotonic sequence numbers scoped by (agency, key).
type Service interface {
	Next(ctx context.Context, tx *gorm.DB, agencyID uuid.UUID, key string) (int64, error)
}

type service struct {
	db *gorm.DB
}

// NewService returns a counter service backed by the provided database.
func NewService(db *gorm.DB) Service {
	return &service{db: db}
}

// Next atomically increments and returns the counter value. The first call
// for a (agency, key) pair returns 1. When tx is provided the increment joins
// the caller's transaction.
func (s *service) Next(ctx context.Context, tx *gorm.DB, agencyID uuid.UUID, key string) (int64, error) {
	if key == "" {
		return 0, errors.New("counter key is required")
	}
	conn := s.db
	if tx != nil {
		conn = tx
	}
	conn = conn.WithContext(ctx)

	counter := models.AgencyCounter{AgencyID: agencyID, Key: key, Value: 1}
	if err := conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "agency_id"}, {Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{"value": gorm.Expr("value + 1")}),
	}).Create(&counter).Error; err != nil {
		return 0, err
	}

	var current models.AgencyCounter
	if err := conn.
		Where("agency_id = ? AND key = ?", agencyID, key).
		First(&current).Error; err != nil {
		return 0, err
	}
	return current.Value, nil
}
