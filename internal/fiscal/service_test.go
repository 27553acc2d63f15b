package fiscal

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ignaciomazza/ofistur-billing/internal/billing"
	"github.com/ignaciomazza/ofistur-billing/pkg/config"
	"github.com/ignaciomazza/ofistur-billing/pkg/db/models"
	"github.com/ignaciomazza/ofistur-billing/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Charge{}, &models.FiscalDocument{}))
	return conn
}

func seedPaidCharge(t *testing.T, conn *gorm.DB) models.Charge {
	t.Helper()
	charge := models.Charge{
		ID:                   uuid.New(),
		CycleID:              uuid.New(),
		SubscriptionID:       uuid.New(),
		AgencyID:             uuid.New(),
		Number:               41,
		AmountUSDDue:         decimal.RequireFromString("50"),
		AmountARSDue:         decimal.RequireFromString("50000"),
		Status:               enums.ChargeStatusPaid,
		ReconciliationStatus: enums.ReconciliationStatusMatched,
		IdempotencyKey:       uuid.NewString(),
	}
	require.NoError(t, conn.Create(&charge).Error)
	return charge
}

type failingClient struct {
	failures int
	calls    int
}

func (f *failingClient) Issue(ctx context.Context, charge *models.Charge, docType enums.FiscalDocType) (IssueResult, error) {
	f.calls++
	if f.calls <= f.failures {
		return IssueResult{}, fmt.Errorf("ws unavailable")
	}
	return NewMockClient().Issue(ctx, charge, docType)
}

func newIssuer(t *testing.T, conn *gorm.DB, client IssuerClient) *Issuer {
	t.Helper()
	cfg := config.FiscalConfig{Mode: "REAL", MaxRetries: 5}
	if client == nil {
		cfg.Mode = "MOCK"
	}
	return NewIssuer(NewRepository(conn), billing.NewRepository(conn), client, cfg, nil)
}

func TestEnsureDocument_IssuesOnce(t *testing.T) {
	conn := newTestDB(t)
	charge := seedPaidCharge(t, conn)
	issuer := newIssuer(t, conn, nil)
	ctx := context.Background()

	doc, err := issuer.EnsureDocument(ctx, charge.ID, enums.FiscalDocTypeFacturaB)
	require.NoError(t, err)
	require.Equal(t, enums.FiscalDocStatusIssued, doc.Status)
	require.NotNil(t, doc.CAE)
	require.NotNil(t, doc.IssuerReference)

	again, err := issuer.EnsureDocument(ctx, charge.ID, enums.FiscalDocTypeFacturaB)
	require.NoError(t, err)
	require.Equal(t, doc.ID, again.ID)

	var count int64
	require.NoError(t, conn.Model(&models.FiscalDocument{}).
		Where("charge_id = ?", charge.ID).
		Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestEnsureDocument_FailureBumpsRetryCount(t *testing.T) {
	conn := newTestDB(t)
	charge := seedPaidCharge(t, conn)
	issuer := newIssuer(t, conn, &failingClient{failures: 1})
	ctx := context.Background()

	doc, err := issuer.EnsureDocument(ctx, charge.ID, enums.FiscalDocTypeFacturaB)
	require.NoError(t, err)
	require.Equal(t, enums.FiscalDocStatusFailed, doc.Status)
	require.Equal(t, 1, doc.RetryCount)
	require.NotNil(t, doc.LastError)

	recovered, err := issuer.EnsureDocument(ctx, charge.ID, enums.FiscalDocTypeFacturaB)
	require.NoError(t, err)
	require.Equal(t, enums.FiscalDocStatusIssued, recovered.Status)
}

func TestRetryFailed_IssuesStuckDocuments(t *testing.T) {
	conn := newTestDB(t)
	charge := seedPaidCharge(t, conn)
	ctx := context.Background()

	failing := newIssuer(t, conn, &failingClient{failures: 1})
	doc, err := failing.EnsureDocument(ctx, charge.ID, enums.FiscalDocTypeFacturaB)
	require.NoError(t, err)
	require.Equal(t, enums.FiscalDocStatusFailed, doc.Status)

	retrier := newIssuer(t, conn, nil)
	issued, err := retrier.RetryFailed(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, issued)

	refreshed, err := NewRepository(conn).Find(ctx, charge.ID, enums.FiscalDocTypeFacturaB)
	require.NoError(t, err)
	require.Equal(t, enums.FiscalDocStatusIssued, refreshed.Status)
}

func TestRetryFailed_HonorsRetryCeiling(t *testing.T) {
	conn := newTestDB(t)
	charge := seedPaidCharge(t, conn)
	ctx := context.Background()

	doc := models.FiscalDocument{
		ID:         uuid.New(),
		ChargeID:   charge.ID,
		AgencyID:   charge.AgencyID,
		DocType:    enums.FiscalDocTypeFacturaB,
		Status:     enums.FiscalDocStatusFailed,
		RetryCount: 5,
	}
	require.NoError(t, conn.Create(&doc).Error)

	issuer := newIssuer(t, conn, nil)
	issued, err := issuer.RetryFailed(ctx, 10)
	require.NoError(t, err)
	require.Zero(t, issued)
}
