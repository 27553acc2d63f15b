package batches

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ignaciomazza/ofistur-billing/internal/repo"
	"github.com/ignaciomazza/ofistur-billing/pkg/db/models"
	"github.com/ignaciomazza/ofistur-billing/pkg/enums"
)

// Repository manages persistence for bank file batches and their rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, batch *models.FileBatch) error
	Get(ctx context.Context, id uuid.UUID) (*models.FileBatch, error)
	Update(ctx context.Context, batch *models.FileBatch) error

	FindInboundBySHA(ctx context.Context, parentBatchID uuid.UUID, sha string) (*models.FileBatch, error)
	FindInboundByTotals(ctx context.Context, parentBatchID uuid.UUID, adapterName string, recordCount int, totalAmount decimal.Decimal) (*models.FileBatch, error)
	FindLatestOutbound(ctx context.Context, adapterName string, businessDate time.Time) (*models.FileBatch, error)
	ListOutboundByStatus(ctx context.Context, adapterName string, status enums.BatchStatus) ([]models.FileBatch, error)

	CreateItem(ctx context.Context, item *models.FileBatchItem) error
	ListItems(ctx context.Context, batchID uuid.UUID) ([]models.FileBatchItem, error)
	FindItemByExternalRef(ctx context.Context, batchID uuid.UUID, externalRef string) (*models.FileBatchItem, error)
	UpdateItem(ctx context.Context, item *models.FileBatchItem) error
}

type repository struct {
	base repo.Base
}

// NewRepository returns a batch repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, batch *models.FileBatch) error {
	return r.base.DB(ctx).Create(batch).Error
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*models.FileBatch, error) {
	var batch models.FileBatch
	if err := r.base.DB(ctx).First(&batch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *repository) Update(ctx context.Context, batch *models.FileBatch) error {
	return r.base.DB(ctx).Save(batch).Error
}

func (r *repository) FindInboundBySHA(ctx context.Context, parentBatchID uuid.UUID, sha string) (*models.FileBatch, error) {
	var batch models.FileBatch
	if err := r.base.DB(ctx).
		Where("direction = ? AND parent_batch_id = ? AND content_sha256 = ?",
			enums.BatchDirectionInbound, parentBatchID, sha).
		First(&batch).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

// FindInboundByTotals is the secondary idempotency heuristic: a renamed but
// content-equivalent response shows up with the same adapter, record count and
// total amount for the same outbound batch.
func (r *repository) FindInboundByTotals(ctx context.Context, parentBatchID uuid.UUID, adapterName string, recordCount int, totalAmount decimal.Decimal) (*models.FileBatch, error) {
	var batch models.FileBatch
	if err := r.base.DB(ctx).
		Where("direction = ? AND parent_batch_id = ? AND adapter_name = ?",
			enums.BatchDirectionInbound, parentBatchID, adapterName).
		Where("record_count = ? AND total_amount_ars = ?", recordCount, totalAmount).
		First(&batch).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *repository) FindLatestOutbound(ctx context.Context, adapterName string, businessDate time.Time) (*models.FileBatch, error) {
	var batch models.FileBatch
	if err := r.base.DB(ctx).
		Where("direction = ? AND adapter_name = ? AND business_date = ?",
			enums.BatchDirectionOutbound, adapterName, businessDate).
		Order("sequence DESC").
		First(&batch).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *repository) ListOutboundByStatus(ctx context.Context, adapterName string, status enums.BatchStatus) ([]models.FileBatch, error) {
	var list []models.FileBatch
	if err := r.base.DB(ctx).
		Where("direction = ? AND adapter_name = ? AND status = ?",
			enums.BatchDirectionOutbound, adapterName, status).
		Order("sequence ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) CreateItem(ctx context.Context, item *models.FileBatchItem) error {
	return r.base.DB(ctx).Create(item).Error
}

func (r *repository) ListItems(ctx context.Context, batchID uuid.UUID) ([]models.FileBatchItem, error) {
	var items []models.FileBatchItem
	if err := r.base.DB(ctx).
		Where("batch_id = ?", batchID).
		Order("line_no ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) FindItemByExternalRef(ctx context.Context, batchID uuid.UUID, externalRef string) (*models.FileBatchItem, error) {
	var item models.FileBatchItem
	if err := r.base.DB(ctx).
		Where("batch_id = ? AND external_ref = ?", batchID, externalRef).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) UpdateItem(ctx context.Context, item *models.FileBatchItem) error {
	return r.base.DB(ctx).Save(item).Error
}
