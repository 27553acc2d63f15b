package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ignaciomazza/ofistur-billing/internal/anchor"
	"github.com/ignaciomazza/ofistur-billing/internal/bankfile"
	"github.com/ignaciomazza/ofistur-billing/internal/batches"
	"github.com/ignaciomazza/ofistur-billing/internal/billing"
	"github.com/ignaciomazza/ofistur-billing/internal/counters"
	"github.com/ignaciomazza/ofistur-billing/internal/fiscal"
	"github.com/ignaciomazza/ofistur-billing/internal/fx"
	"github.com/ignaciomazza/ofistur-billing/internal/presentment"
	"github.com/ignaciomazza/ofistur-billing/internal/reconcile"
	"github.com/ignaciomazza/ofistur-billing/internal/respimport"
	"github.com/ignaciomazza/ofistur-billing/pkg/config"
	"github.com/ignaciomazza/ofistur-billing/pkg/db"
	"github.com/ignaciomazza/ofistur-billing/pkg/db/models"
	"github.com/ignaciomazza/ofistur-billing/pkg/enums"
	"github.com/ignaciomazza/ofistur-billing/pkg/logger"
	"github.com/ignaciomazza/ofistur-billing/pkg/storage"
)

func newTestRouter(t *testing.T) (http.Handler, *gorm.DB) {
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
		&models.FileBatch{},
		&models.FileBatchItem{},
		&models.BillingEvent{},
		&models.AgencyCounter{},
		&models.FiscalDocument{},
	))

	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.Billing = config.BillingConfig{AttemptCount: 3, AttemptOffsetDays: 7, MaxFxStalenessDays: 5}
	cfg.Bank = config.BankConfig{AdapterName: "pagodirecto"}

	logg := logger.New(logger.Options{ServiceName: "router-test"})
	client := db.NewWithConn(conn)
	billingRepo := billing.NewRepository(conn)
	batchRepo := batches.NewRepository(conn)
	counterSvc := counters.NewService(conn)
	registry := bankfile.DefaultRegistry()
	store := storage.NewMemoryStore()
	resolver := fx.NewResolver(fx.NewRepository(conn), cfg.Billing, logg)
	engine := reconcile.NewEngine(client, billingRepo, logg)
	issuer := fiscal.NewIssuer(fiscal.NewRepository(conn), billingRepo, nil, cfg.Fiscal, logg)

	router := NewRouter(cfg, logg, Deps{
		AnchorRunner: anchor.NewRunner(client, billingRepo, counterSvc, resolver, cfg.Billing, logg),
		Presentment:  presentment.NewBuilder(client, billingRepo, batchRepo, counterSvc, registry, store, cfg.Bank, logg),
		Importer: respimport.NewImporter(client, billingRepo, batchRepo, engine, issuer, registry, store,
			reconcile.NewLogDunningHook(logg), cfg.Fiscal, logg),
		Charges: billingRepo,
	})
	return router, conn
}

func TestHealthLive(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "test", rec.Header().Get("X-Ofistur-Env"))
}

func TestAnchorRunEndpoint(t *testing.T) {
	router, conn := newTestRouter(t)

	day := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, conn.Create(&models.FxRate{
		ID:       uuid.New(),
		RateType: enums.FxRateTypeUSDARS,
		RateDate: day,
		Rate:     decimal.RequireFromString("1000"),
	}).Error)
	next := day
	require.NoError(t, conn.Create(&models.Subscription{
		ID:             uuid.New(),
		AgencyID:       uuid.New(),
		Status:         enums.SubscriptionStatusActive,
		PlanPriceUSD:   decimal.RequireFromString("50"),
		AnchorDay:      10,
		Timezone:       "America/Argentina/Buenos_Aires",
		NextAnchorDate: &next,
	}).Error)

	body := strings.NewReader(`{"anchor_date":"2025-03-10"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/anchor-runs", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data anchor.RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, 1, envelope.Data.CyclesCreated)
	require.Equal(t, 1, envelope.Data.ChargesCreated)
}

func TestAnchorRunRejectsBadDate(t *testing.T) {
	router, _ := newTestRouter(t)
	body := strings.NewReader(`{"anchor_date":"10-03-2025"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/anchor-runs", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListChargesEndpoint(t *testing.T) {
	router, conn := newTestRouter(t)

	agencyID := uuid.New()
	require.NoError(t, conn.Create(&models.Charge{
		ID:                   uuid.New(),
		CycleID:              uuid.New(),
		SubscriptionID:       uuid.New(),
		AgencyID:             agencyID,
		Number:               1,
		AmountUSDDue:         decimal.RequireFromString("45"),
		AmountARSDue:         decimal.RequireFromString("45000"),
		DueDate:              time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		Status:               enums.ChargeStatusReady,
		ReconciliationStatus: enums.ReconciliationStatusPending,
		IdempotencyKey:       "sub:x:anchor:2025-03-10",
	}).Error)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/v1/billing/charges?agency_id="+agencyID.String()+"&status=ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "45000")
}

func TestListChargesRejectsUnknownStatus(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/billing/charges?status=bogus", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportResponsesRejectsBadBatchID(t *testing.T) {
	router, _ := newTestRouter(t)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "respuesta.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("H|PD|02|1|RESPUESTA|20250310|0|0.00|\nT|0|0.00|\n"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/batches/not-a-uuid/responses", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
