package fx

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ignaciomazza/ofistur-billing/pkg/config"
	"github.com/ignaciomazza/ofistur-billing/pkg/db/models"
	"github.com/ignaciomazza/ofistur-billing/pkg/enums"
	"github.com/ignaciomazza/ofistur-billing/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.FxRate{}))
	return conn
}

func seedRate(t *testing.T, db *gorm.DB, date time.Time, rate string) {
	t.Helper()
	require.NoError(t, db.Create(&models.FxRate{
		ID:       uuid.New(),
		RateType: enums.FxRateTypeUSDARS,
		RateDate: date,
		Rate:     decimal.RequireFromString(rate),
	}).Error)
}

func newResolver(t *testing.T, db *gorm.DB, maxStalenessDays int) *Resolver {
	t.Helper()
	cfg := config.BillingConfig{MaxFxStalenessDays: maxStalenessDays}
	return NewResolver(NewRepository(db), cfg, nil)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolve_ExactMatch(t *testing.T) {
	db := newTestDB(t)
	seedRate(t, db, date(2025, time.March, 10), "1030.5000")
	resolver := newResolver(t, db, 5)

	res, err := resolver.Resolve(context.Background(), enums.FxRateTypeUSDARS, date(2025, time.March, 10), false)
	require.NoError(t, err)
	require.False(t, res.Stale)
	require.True(t, res.Rate.Equal(decimal.RequireFromString("1030.5000")))
}

func TestResolve_FallsBackToLatestEarlierRate(t *testing.T) {
	db := newTestDB(t)
	seedRate(t, db, date(2025, time.March, 6), "1010")
	seedRate(t, db, date(2025, time.March, 8), "1020")
	resolver := newResolver(t, db, 5)

	res, err := resolver.Resolve(context.Background(), enums.FxRateTypeUSDARS, date(2025, time.March, 10), false)
	require.NoError(t, err)
	require.True(t, res.Stale)
	require.True(t, res.Rate.Equal(decimal.RequireFromString("1020")))
	require.Equal(t, date(2025, time.March, 8), res.RateDate.UTC())
}

func TestResolve_StaleBeyondWindowFails(t *testing.T) {
	db := newTestDB(t)
	seedRate(t, db, date(2025, time.February, 1), "990")
	resolver := newResolver(t, db, 5)

	_, err := resolver.Resolve(context.Background(), enums.FxRateTypeUSDARS, date(2025, time.March, 10), false)
	require.Error(t, err)
	typed := errors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, errors.CodeFxRateMissing, typed.Code())
}

func TestResolve_StaleBeyondWindowAllowed(t *testing.T) {
	db := newTestDB(t)
	seedRate(t, db, date(2025, time.February, 1), "990")
	resolver := newResolver(t, db, 5)

	res, err := resolver.Resolve(context.Background(), enums.FxRateTypeUSDARS, date(2025, time.March, 10), true)
	require.NoError(t, err)
	require.True(t, res.Stale)
	require.True(t, res.Rate.Equal(decimal.RequireFromString("990")))
}

func TestResolve_NoRateAtAll(t *testing.T) {
	db := newTestDB(t)
	resolver := newResolver(t, db, 5)

	_, err := resolver.Resolve(context.Background(), enums.FxRateTypeUSDARS, date(2025, time.March, 10), true)
	require.Error(t, err)
	typed := errors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, errors.CodeFxRateMissing, typed.Code())
}
