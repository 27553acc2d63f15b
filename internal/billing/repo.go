package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ignaciomazza/ofistur-billing/internal/repo"
	"github.com/ignaciomazza/ofistur-billing/pkg/db/models"
	"github.com/ignaciomazza/ofistur-billing/pkg/enums"
	"github.com/ignaciomazza/ofistur-billing/pkg/pagination"
)

// ChargeFilter narrows the paginated charge listing.
type ChargeFilter struct {
	AgencyID             *uuid.UUID
	Status               *enums.ChargeStatus
	ReconciliationStatus *enums.ReconciliationStatus
	DueBefore            *time.Time
}

// Repository manages persistence for subscriptions, cycles, charges,
// attempts and billing events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	ListDueSubscriptions(ctx context.Context, asOf time.Time) ([]models.Subscription, error)
	GetSubscription(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	AdvanceAnchor(ctx context.Context, subscriptionID uuid.UUID, next time.Time) error

	DefaultPaymentMethod(ctx context.Context, subscriptionID uuid.UUID) (*models.PaymentMethod, error)
	GetPaymentMethod(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error)

	CreateCycle(ctx context.Context, cycle *models.BillingCycle) error
	InsertCycle(ctx context.Context, cycle *models.BillingCycle) (bool, error)
	FindCycle(ctx context.Context, subscriptionID uuid.UUID, anchorDate time.Time) (*models.BillingCycle, error)
	GetCycle(ctx context.Context, id uuid.UUID) (*models.BillingCycle, error)
	UpdateCycleStatus(ctx context.Context, id uuid.UUID, status enums.CycleStatus) error

	CreateCharge(ctx context.Context, charge *models.Charge) error
	InsertCharge(ctx context.Context, charge *models.Charge) (bool, error)
	GetCharge(ctx context.Context, id uuid.UUID) (*models.Charge, error)
	FindChargeByIdempotencyKey(ctx context.Context, agencyID uuid.UUID, key string) (*models.Charge, error)
	UpdateCharge(ctx context.Context, charge *models.Charge) error
	ListCharges(ctx context.Context, filter ChargeFilter, params pagination.Params) ([]models.Charge, string, error)

	CreateAttempt(ctx context.Context, attempt *models.CollectionAttempt) error
	GetAttempt(ctx context.Context, id uuid.UUID) (*models.CollectionAttempt, error)
	ListAttemptsByCharge(ctx context.Context, chargeID uuid.UUID) ([]models.CollectionAttempt, error)
	FindAttemptByExternalRef(ctx context.Context, externalRef string) (*models.CollectionAttempt, error)
	UpdateAttempt(ctx context.Context, attempt *models.CollectionAttempt) error
	ListSchedulableAttempts(ctx context.Context, asOf time.Time) ([]models.CollectionAttempt, error)
	CancelOpenAttempts(ctx context.Context, chargeID uuid.UUID, exceptID uuid.UUID, now time.Time) (int64, error)

	CreateEvent(ctx context.Context, event *models.BillingEvent) error
	ListEventsByCharge(ctx context.Context, chargeID uuid.UUID) ([]models.BillingEvent, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns a billing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: repo.NewBase(tx)}
}

func (r *repository) ListDueSubscriptions(ctx context.Context, asOf time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	if err := r.base.DB(ctx).
		Where("status = ?", enums.SubscriptionStatusActive).
		Where("next_anchor_date IS NULL OR next_anchor_date <= ?", asOf).
		Order("created_at ASC").
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *repository) GetSubscription(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.base.DB(ctx).First(&sub, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) AdvanceAnchor(ctx context.Context, subscriptionID uuid.UUID, next time.Time) error {
	return r.base.DB(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", subscriptionID).
		Update("next_anchor_date", next).Error
}

func (r *repository) DefaultPaymentMethod(ctx context.Context, subscriptionID uuid.UUID) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	if err := r.base.DB(ctx).
		Where("subscription_id = ? AND is_default = ?", subscriptionID, true).
		Order("created_at DESC").
		First(&method).Error; err != nil {
		return nil, err
	}
	return &method, nil
}

func (r *repository) GetPaymentMethod(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	if err := r.base.DB(ctx).First(&method, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &method, nil
}

func (r *repository) CreateCycle(ctx context.Context, cycle *models.BillingCycle) error {
	return r.base.DB(ctx).Create(cycle).Error
}

// InsertCycle inserts the cycle unless the (subscription, anchor date) pair
// already exists. Reports whether a row was written.
func (r *repository) InsertCycle(ctx context.Context, cycle *models.BillingCycle) (bool, error) {
	result := r.base.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subscription_id"}, {Name: "anchor_date"}},
			DoNothing: true,
		}).
		Create(cycle)
	return result.RowsAffected > 0, result.Error
}

func (r *repository) FindCycle(ctx context.Context, subscriptionID uuid.UUID, anchorDate time.Time) (*models.BillingCycle, error) {
	var cycle models.BillingCycle
	if err := r.base.DB(ctx).
		Where("subscription_id = ? AND anchor_date = ?", subscriptionID, anchorDate).
		First(&cycle).Error; err != nil {
		return nil, err
	}
	return &cycle, nil
}

func (r *repository) GetCycle(ctx context.Context, id uuid.UUID) (*models.BillingCycle, error) {
	var cycle models.BillingCycle
	if err := r.base.DB(ctx).First(&cycle, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &cycle, nil
}

func (r *repository) UpdateCycleStatus(ctx context.Context, id uuid.UUID, status enums.CycleStatus) error {
	return r.base.DB(ctx).
		Model(&models.BillingCycle{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *repository) CreateCharge(ctx context.Context, charge *models.Charge) error {
	return r.base.DB(ctx).Create(charge).Error
}

// InsertCharge inserts the charge unless its (agency, idempotency key) pair is
// taken. Reports whether a row was written.
func (r *repository) InsertCharge(ctx context.Context, charge *models.Charge) (bool, error) {
	result := r.base.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "agency_id"}, {Name: "idempotency_key"}},
			DoNothing: true,
		}).
		Create(charge)
	return result.RowsAffected > 0, result.Error
}

func (r *repository) GetCharge(ctx context.Context, id uuid.UUID) (*models.Charge, error) {
	var charge models.Charge
	if err := r.base.DB(ctx).First(&charge, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &charge, nil
}

func (r *repository) FindChargeByIdempotencyKey(ctx context.Context, agencyID uuid.UUID, key string) (*models.Charge, error) {
	var charge models.Charge
	if err := r.base.DB(ctx).
		Where("agency_id = ? AND idempotency_key = ?", agencyID, key).
		First(&charge).Error; err != nil {
		return nil, err
	}
	return &charge, nil
}

func (r *repository) UpdateCharge(ctx context.Context, charge *models.Charge) error {
	return r.base.DB(ctx).Save(charge).Error
}

func (r *repository) ListCharges(ctx context.Context, filter ChargeFilter, params pagination.Params) ([]models.Charge, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.base.DB(ctx).Model(&models.Charge{})
	if filter.AgencyID != nil {
		query = query.Where("agency_id = ?", *filter.AgencyID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.ReconciliationStatus != nil {
		query = query.Where("reconciliation_status = ?", *filter.ReconciliationStatus)
	}
	if filter.DueBefore != nil {
		query = query.Where("due_date < ?", *filter.DueBefore)
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var charges []models.Charge
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&charges).Error; err != nil {
		return nil, "", err
	}

	next := ""
	if len(charges) > limit {
		charges = charges[:limit]
		last := charges[len(charges)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return charges, next, nil
}

func (r *repository) CreateAttempt(ctx context.Context, attempt *models.CollectionAttempt) error {
	return r.base.DB(ctx).Create(attempt).Error
}

func (r *repository) GetAttempt(ctx context.Context, id uuid.UUID) (*models.CollectionAttempt, error) {
	var attempt models.CollectionAttempt
	if err := r.base.DB(ctx).First(&attempt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *repository) ListAttemptsByCharge(ctx context.Context, chargeID uuid.UUID) ([]models.CollectionAttempt, error) {
	var attempts []models.CollectionAttempt
	if err := r.base.DB(ctx).
		Where("charge_id = ?", chargeID).
		Order("attempt_no ASC").
		Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *repository) FindAttemptByExternalRef(ctx context.Context, externalRef string) (*models.CollectionAttempt, error) {
	var attempt models.CollectionAttempt
	if err := r.base.DB(ctx).
		Where("external_ref = ?", externalRef).
		First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *repository) UpdateAttempt(ctx context.Context, attempt *models.CollectionAttempt) error {
	return r.base.DB(ctx).Save(attempt).Error
}

// ListSchedulableAttempts returns due direct-debit attempts whose charge is
// still collectible, ordered deterministically for file rendering.
func (r *repository) ListSchedulableAttempts(ctx context.Context, asOf time.Time) ([]models.CollectionAttempt, error) {
	var attempts []models.CollectionAttempt
	if err := r.base.DB(ctx).
		Joins("JOIN charges ON charges.id = collection_attempts.charge_id").
		Where("collection_attempts.status IN ?", []enums.AttemptStatus{
			enums.AttemptStatusPending,
			enums.AttemptStatusScheduled,
		}).
		Where("collection_attempts.channel = ?", enums.CollectionChannelDirectDebit).
		Where("collection_attempts.scheduled_for IS NOT NULL AND collection_attempts.scheduled_for <= ?", asOf).
		Where("charges.status = ?", enums.ChargeStatusReady).
		Order("collection_attempts.external_ref ASC").
		Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *repository) CancelOpenAttempts(ctx context.Context, chargeID uuid.UUID, exceptID uuid.UUID, now time.Time) (int64, error) {
	result := r.base.DB(ctx).
		Model(&models.CollectionAttempt{}).
		Where("charge_id = ? AND id <> ?", chargeID, exceptID).
		Where("status IN ?", []enums.AttemptStatus{
			enums.AttemptStatusPending,
			enums.AttemptStatusScheduled,
			enums.AttemptStatusProcessing,
		}).
		Updates(map[string]any{
			"status":       enums.AttemptStatusCanceled,
			"processed_at": now,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) CreateEvent(ctx context.Context, event *models.BillingEvent) error {
	return r.base.DB(ctx).Create(event).Error
}

func (r *repository) ListEventsByCharge(ctx context.Context, chargeID uuid.UUID) ([]models.BillingEvent, error) {
	var events []models.BillingEvent
	if err := r.base.DB(ctx).
		Where("charge_id = ?", chargeID).
		Order("created_at ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
