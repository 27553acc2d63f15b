package fiscal

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ignaciomazza/ofistur-billing/internal/repo"
	"github.com/ignaciomazza/ofistur-billing/pkg/db/models"
	"github.com/ignaciomazza/ofistur-billing/pkg/enums"
)

// Repository manages persistence for fiscal documents.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, doc *models.FiscalDocument) error
	Find(ctx context.Context, chargeID uuid.UUID, docType enums.FiscalDocType) (*models.FiscalDocument, error)
	Update(ctx context.Context, doc *models.FiscalDocument) error
	ListRetryable(ctx context.Context, maxRetries int, limit int) ([]models.FiscalDocument, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns a fiscal repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, doc *models.FiscalDocument) error {
	return r.base.DB(ctx).Create(doc).Error
}

func (r *repository) Find(ctx context.Context, chargeID uuid.UUID, docType enums.FiscalDocType) (*models.FiscalDocument, error) {
	var doc models.FiscalDocument
	if err := r.base.DB(ctx).
		Where("charge_id = ? AND doc_type = ?", chargeID, docType).
		First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *repository) Update(ctx context.Context, doc *models.FiscalDocument) error {
	return r.base.DB(ctx).Save(doc).Error
}

func (r *repository) ListRetryable(ctx context.Context, maxRetries int, limit int) ([]models.FiscalDocument, error) {
	var docs []models.FiscalDocument
	query := r.base.DB(ctx).
		Where("status IN ?", []enums.FiscalDocStatus{
			enums.FiscalDocStatusPending,
			enums.FiscalDocStatusFailed,
		}).
		Where("retry_count < ?", maxRetries).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}
