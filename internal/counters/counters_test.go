package counters

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ignaciomazza/ofistur-billing/pkg/db/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.AgencyCounter{}))
	return conn
}

func TestNext_StartsAtOneAndIncrements(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	agencyID := uuid.New()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := svc.Next(ctx, nil, agencyID, KeyChargeNumber)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestNext_ScopesByAgencyAndKey(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	agencyA := uuid.New()
	agencyB := uuid.New()

	first, err := svc.Next(ctx, nil, agencyA, KeyChargeNumber)
	require.NoError(t, err)
	require.Equal(t, int64(1), first)

	second, err := svc.Next(ctx, nil, agencyA, KeyChargeNumber)
	require.NoError(t, err)
	require.Equal(t, int64(2), second)

	other, err := svc.Next(ctx, nil, agencyB, KeyChargeNumber)
	require.NoError(t, err)
	require.Equal(t, int64(1), other)

	platform, err := svc.Next(ctx, nil, uuid.Nil, KeyPresentmentSequence)
	require.NoError(t, err)
	require.Equal(t, int64(1), platform)
}

func TestNext_RequiresKey(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	_, err := svc.Next(context.Background(), nil, uuid.New(), "")
	require.Error(t, err)
}

func TestNext_JoinsCallerTransaction(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	agencyID := uuid.New()
	ctx := context.Background()

	tx := db.Begin()
	require.NoError(t, tx.Error)

	got, err := svc.Next(ctx, tx, agencyID, KeyChargeNumber)
	require.NoError(t, err)
	require.Equal(t, int64(1), got)
	require.NoError(t, tx.Rollback().Error)

	var count int64
	require.NoError(t, db.Model(&models.AgencyCounter{}).
		Where("agency_id = ?", agencyID).
		Count(&count).Error)
	require.Zero(t, count)
}
