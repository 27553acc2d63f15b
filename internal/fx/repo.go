package fx

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ignaciomazza/ofistur-billing/internal/repo"
	"github.com/ignaciomazza/ofistur-billing/pkg/db/models"
	"github.com/ignaciomazza/ofistur-billing/pkg/enums"
)

// Repository reads exchange-rate facts. Rates are written by the back office,
// never by this engine.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByDate(ctx context.Context, rateType enums.FxRateType, date time.Time) (*models.FxRate, error)
	FindLatestOnOrBefore(ctx context.Context, rateType enums.FxRateType, date time.Time) (*models.FxRate, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns an fx repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: repo.NewBase(tx)}
}

func (r *repository) FindByDate(ctx context.Context, rateType enums.FxRateType, date time.Time) (*models.FxRate, error) {
	var rate models.FxRate
	if err := r.base.DB(ctx).
		Where("rate_type = ? AND rate_date = ?", rateType, date).
		First(&rate).Error; err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *repository) FindLatestOnOrBefore(ctx context.Context, rateType enums.FxRateType, date time.Time) (*models.FxRate, error) {
	var rate models.FxRate
	if err := r.base.DB(ctx).
		Where("rate_type = ? AND rate_date <= ?", rateType, date).
		Order("rate_date DESC").
		First(&rate).Error; err != nil {
		return nil, err
	}
	return &rate, nil
}
