package fx

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ignaciomazza/ofistur-billing/pkg/config"
	"github.com/ignaciomazza/ofistur-billing/pkg/enums"
	"github.com/ignaciomazza/ofistur-billing/pkg/errors"
	"github.com/ignaciomazza/ofistur-billing/pkg/logger"
)

// Resolution is the rate applied to a billing date. Stale marks a fallback to
// an older rate instead of an exact (type, date) match.
type Resolution struct {
	Rate     decimal.Decimal
	RateDate time.Time
	Stale    bool
}

// Resolver picks the USD->ARS rate for a billing date.
type Resolver struct {
	repo             Repository
	maxStalenessDays int
	logg             *logger.Logger
}

// NewResolver builds a resolver honoring the configured staleness window.
func NewResolver(repo Repository, cfg config.BillingConfig, logg *logger.Logger) *Resolver {
	return &Resolver{
		repo:             repo,
		maxStalenessDays: cfg.MaxFxStalenessDays,
		logg:             logg,
	}
}

// Resolve returns the exact rate for the date, or the latest rate at-or-before
// it. A fallback older than the staleness window fails with FX_RATE_MISSING
// unless allowStale is set.
func (r *Resolver) Resolve(ctx context.Context, rateType enums.FxRateType, date time.Time, allowStale bool) (Resolution, error) {
	day := dateOnly(date)

	exact, err := r.repo.FindByDate(ctx, rateType, day)
	if err == nil {
		return Resolution{Rate: exact.Rate, RateDate: exact.RateDate, Stale: false}, nil
	}
	if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return Resolution{}, err
	}

	fallback, err := r.repo.FindLatestOnOrBefore(ctx, rateType, day)
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return Resolution{}, errors.New(errors.CodeFxRateMissing,
			fmt.Sprintf("no %s rate on or before %s", rateType, day.Format("2006-01-02")))
	}
	if err != nil {
		return Resolution{}, err
	}

	ageDays := int(day.Sub(dateOnly(fallback.RateDate)).Hours() / 24)
	if ageDays > r.maxStalenessDays {
		if !allowStale {
			return Resolution{}, errors.New(errors.CodeFxRateMissing,
				fmt.Sprintf("latest %s rate is %d days old", rateType, ageDays)).
				WithDetails(map[string]any{
					"rate_date":      fallback.RateDate.Format("2006-01-02"),
					"requested_date": day.Format("2006-01-02"),
					"max_age_days":   r.maxStalenessDays,
				})
		}
		if r.logg != nil {
			r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
				"rate_type": rateType.String(),
				"rate_date": fallback.RateDate.Format("2006-01-02"),
				"age_days":  ageDays,
			}), "using stale fx rate beyond staleness window")
		}
	}

	return Resolution{Rate: fallback.Rate, RateDate: fallback.RateDate, Stale: true}, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
