package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/ignaciomazza/ofistur-billing/api/controllers"
	"github.com/ignaciomazza/ofistur-billing/api/routes"
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
	"github.com/ignaciomazza/ofistur-billing/pkg/logger"
	"github.com/ignaciomazza/ofistur-billing/pkg/migrate"
	"github.com/ignaciomazza/ofistur-billing/pkg/redis"
	"github.com/ignaciomazza/ofistur-billing/pkg/storage"
	"github.com/ignaciomazza/ofistur-billing/pkg/storage/gcs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pingers := map[string]controllers.Pinger{
		"db":    dbClient,
		"redis": redisClient,
	}

	var store storage.Store
	if cfg.FeatureFlags.MemoryStorage || cfg.GCS.BucketName == "" {
		store = storage.NewMemoryStore()
		logg.Warn(context.Background(), "batch files stored in memory, not durable")
	} else {
		gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap gcs", err)
			os.Exit(1)
		}
		defer func() {
			if err := gcsClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing gcs", err)
			}
		}()
		store = gcsClient
		pingers["gcs"] = gcsClient
	}

	conn := dbClient.DB()
	billingRepo := billing.NewRepository(conn)
	batchRepo := batches.NewRepository(conn)
	counterSvc := counters.NewService(conn)
	registry := bankfile.DefaultRegistry()
	resolver := fx.NewResolver(fx.NewRepository(conn), cfg.Billing, logg)
	engine := reconcile.NewEngine(dbClient, billingRepo, logg)
	issuer := fiscal.NewIssuer(fiscal.NewRepository(conn), billingRepo, nil, cfg.Fiscal, logg)

	router := routes.NewRouter(cfg, logg, routes.Deps{
		AnchorRunner: anchor.NewRunner(dbClient, billingRepo, counterSvc, resolver, cfg.Billing, logg),
		Presentment:  presentment.NewBuilder(dbClient, billingRepo, batchRepo, counterSvc, registry, store, cfg.Bank, logg),
		Importer: respimport.NewImporter(dbClient, billingRepo, batchRepo, engine, issuer, registry, store,
			reconcile.NewLogDunningHook(logg), cfg.Fiscal, logg),
		Charges: billingRepo,
		Pingers: pingers,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
