package anchor

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

	"github.com/ignaciomazza/ofistur-billing/internal/billing"
	"github.com/ignaciomazza/ofistur-billing/internal/counters"
	"github.com/ignaciomazza/ofistur-billing/internal/fx"
	"github.com/ignaciomazza/ofistur-billing/pkg/config"
	"github.com/ignaciomazza/ofistur-billing/pkg/db"
	"github.com/ignaciomazza/ofistur-billing/pkg/db/models"
	"github.com/ignaciomazza/ofistur-billing/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.Subscription{},
		&models.PaymentMethod{},
		&models.FxRate{},
		&models.BillingCycle{},
		&models.Charge{},
		&models.CollectionAttempt{},
		&models.BillingEvent{},
		&models.AgencyCounter{},
	))
	return conn
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newRunner(t *testing.T, conn *gorm.DB) *Runner {
	t.Helper()
	cfg := config.BillingConfig{
		AttemptCount:       3,
		AttemptOffsetDays:  7,
		MaxFxStalenessDays: 5,
	}
	resolver := fx.NewResolver(fx.NewRepository(conn), cfg, nil)
	return NewRunner(db.NewWithConn(conn), billing.NewRepository(conn), counters.NewService(conn), resolver, cfg, nil)
}

func seedRate(t *testing.T, conn *gorm.DB, day time.Time, rate string) {
	t.Helper()
	require.NoError(t, conn.Create(&models.FxRate{
		ID:       uuid.New(),
		RateType: enums.FxRateTypeUSDARS,
		RateDate: day,
		Rate:     decimal.RequireFromString(rate),
	}).Error)
}

func seedSubscription(t *testing.T, conn *gorm.DB, next *time.Time, withMandate bool) models.Subscription {
	t.Helper()
	sub := models.Subscription{
		ID:               uuid.New(),
		AgencyID:         uuid.New(),
		Status:           enums.SubscriptionStatusActive,
		PlanPriceUSD:     decimal.RequireFromString("50"),
		AnchorDay:        10,
		Timezone:         "America/Argentina/Buenos_Aires",
		DebitDiscountPct: decimal.RequireFromString("10"),
		NextAnchorDate:   next,
	}
	require.NoError(t, conn.Create(&sub).Error)

	if withMandate {
		require.NoError(t, conn.Create(&models.PaymentMethod{
			ID:             uuid.New(),
			SubscriptionID: sub.ID,
			AgencyID:       sub.AgencyID,
			Type:           enums.PaymentMethodTypeDebitMandate,
			Status:         enums.PaymentMethodStatusActive,
			IsDefault:      true,
			HolderName:     "Viajes del Sur SRL",
			HolderTaxID:    "30-11111111-1",
			MandateStatus:  enums.MandateStatusActive,
			MaskedCBU:      "285035****0001",
		}).Error)
	}
	return sub
}

func TestRun_MaterializesCycleChargeAndAttempts(t *testing.T) {
	conn := newTestDB(t)
	anchorDate := date(2025, time.March, 10)
	seedRate(t, conn, anchorDate, "1000")
	next := anchorDate
	sub := seedSubscription(t, conn, &next, true)
	runner := newRunner(t, conn)

	summary, err := runner.Run(context.Background(), RunParams{AnchorDate: anchorDate})
	require.NoError(t, err)
	require.Equal(t, 1, summary.CyclesCreated)
	require.Equal(t, 1, summary.ChargesCreated)
	require.Equal(t, 3, summary.AttemptsCreated)
	require.Empty(t, summary.Errors)

	var cycle models.BillingCycle
	require.NoError(t, conn.First(&cycle, "subscription_id = ?", sub.ID).Error)
	require.Equal(t, enums.CycleStatusFrozen, cycle.Status)
	// 50 USD minus the 10% debit discount at 1000 ARS/USD.
	require.True(t, cycle.AmountUSD.Equal(decimal.RequireFromString("45")), cycle.AmountUSD.String())
	require.True(t, cycle.AmountARS.Equal(decimal.RequireFromString("45000")), cycle.AmountARS.String())

	var charge models.Charge
	require.NoError(t, conn.First(&charge, "cycle_id = ?", cycle.ID).Error)
	require.Equal(t, enums.ChargeStatusReady, charge.Status)
	require.Equal(t, int64(1), charge.Number)
	require.Equal(t, fmt.Sprintf("sub:%s:anchor:2025-03-10", sub.ID), charge.IdempotencyKey)
	require.NotNil(t, charge.PaymentMethodID)

	var attempts []models.CollectionAttempt
	require.NoError(t, conn.Where("charge_id = ?", charge.ID).Order("attempt_no ASC").Find(&attempts).Error)
	require.Len(t, attempts, 3)
	for i, attempt := range attempts {
		require.Equal(t, i+1, attempt.AttemptNo)
		require.Equal(t, enums.AttemptStatusPending, attempt.Status)
		require.NotNil(t, attempt.ScheduledFor)
		require.True(t, anchorDate.AddDate(0, 0, i*7).Equal(*attempt.ScheduledFor))
	}

	var refreshed models.Subscription
	require.NoError(t, conn.First(&refreshed, "id = ?", sub.ID).Error)
	require.NotNil(t, refreshed.NextAnchorDate)
	require.True(t, date(2025, time.April, 10).Equal(*refreshed.NextAnchorDate))
}

func TestRun_SecondRunIsNoOp(t *testing.T) {
	conn := newTestDB(t)
	anchorDate := date(2025, time.March, 10)
	seedRate(t, conn, anchorDate, "1000")
	next := anchorDate
	sub := seedSubscription(t, conn, &next, true)
	runner := newRunner(t, conn)
	ctx := context.Background()

	_, err := runner.Run(ctx, RunParams{AnchorDate: anchorDate})
	require.NoError(t, err)

	second, err := runner.Run(ctx, RunParams{AnchorDate: anchorDate})
	require.NoError(t, err)
	require.Zero(t, second.CyclesCreated)
	require.Zero(t, second.ChargesCreated)
	require.Zero(t, second.AttemptsCreated)

	var chargeCount int64
	require.NoError(t, conn.Model(&models.Charge{}).
		Where("subscription_id = ?", sub.ID).
		Count(&chargeCount).Error)
	require.Equal(t, int64(1), chargeCount)
}

func TestRun_NoEligibleMethodStillCreatesCharge(t *testing.T) {
	conn := newTestDB(t)
	anchorDate := date(2025, time.March, 10)
	seedRate(t, conn, anchorDate, "1000")
	next := anchorDate
	sub := seedSubscription(t, conn, &next, false)
	runner := newRunner(t, conn)

	summary, err := runner.Run(context.Background(), RunParams{AnchorDate: anchorDate})
	require.NoError(t, err)
	require.Equal(t, 1, summary.ChargesCreated)
	require.Zero(t, summary.AttemptsCreated)
	require.Len(t, summary.Errors, 1)
	require.Equal(t, sub.ID, summary.Errors[0].SubscriptionID)

	var charge models.Charge
	require.NoError(t, conn.First(&charge, "subscription_id = ?", sub.ID).Error)
	// No discount without an active debit mandate.
	require.True(t, charge.AmountUSDDue.Equal(decimal.RequireFromString("50")))
}

func TestRun_MissingFxRateIsReportedNotFatal(t *testing.T) {
	conn := newTestDB(t)
	anchorDate := date(2025, time.March, 10)
	next := anchorDate
	first := seedSubscription(t, conn, &next, true)
	secondNext := anchorDate
	second := seedSubscription(t, conn, &secondNext, true)

	runner := newRunner(t, conn)
	summary, err := runner.Run(context.Background(), RunParams{AnchorDate: anchorDate})
	require.NoError(t, err)
	require.Zero(t, summary.CyclesCreated)
	require.Len(t, summary.Errors, 2)

	reported := map[uuid.UUID]bool{}
	for _, subErr := range summary.Errors {
		reported[subErr.SubscriptionID] = true
	}
	require.True(t, reported[first.ID])
	require.True(t, reported[second.ID])
}

func TestRun_FirstAnchorClampsDay(t *testing.T) {
	conn := newTestDB(t)
	runDate := date(2025, time.February, 28)
	seedRate(t, conn, runDate, "1000")

	sub := models.Subscription{
		ID:           uuid.New(),
		AgencyID:     uuid.New(),
		Status:       enums.SubscriptionStatusActive,
		PlanPriceUSD: decimal.RequireFromString("50"),
		AnchorDay:    31,
		Timezone:     "America/Argentina/Buenos_Aires",
	}
	require.NoError(t, conn.Create(&sub).Error)

	runner := newRunner(t, conn)
	summary, err := runner.Run(context.Background(), RunParams{AnchorDate: runDate})
	require.NoError(t, err)
	require.Equal(t, 1, summary.CyclesCreated)

	var cycle models.BillingCycle
	require.NoError(t, conn.First(&cycle, "subscription_id = ?", sub.ID).Error)
	require.True(t, date(2025, time.February, 28).Equal(cycle.AnchorDate))
}

func TestRun_FutureFirstAnchorIsSkipped(t *testing.T) {
	conn := newTestDB(t)
	runDate := date(2025, time.March, 5)
	seedRate(t, conn, runDate, "1000")
	// No next anchor yet: the first anchor derives from anchor_day 10, which
	// has not arrived on March 5.
	seedSubscription(t, conn, nil, true)

	runner := newRunner(t, conn)
	summary, err := runner.Run(context.Background(), RunParams{AnchorDate: runDate})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Skipped)
	require.Zero(t, summary.CyclesCreated)
}
