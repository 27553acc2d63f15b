package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ignaciomazza/ofistur-billing/internal/anchor"
	"github.com/ignaciomazza/ofistur-billing/internal/bankfile"
	"github.com/ignaciomazza/ofistur-billing/internal/batches"
	"github.com/ignaciomazza/ofistur-billing/internal/billing"
	"github.com/ignaciomazza/ofistur-billing/internal/counters"
	"github.com/ignaciomazza/ofistur-billing/internal/cron"
	"github.com/ignaciomazza/ofistur-billing/internal/fiscal"
	"github.com/ignaciomazza/ofistur-billing/internal/fx"
	"github.com/ignaciomazza/ofistur-billing/internal/presentment"
	"github.com/ignaciomazza/ofistur-billing/pkg/config"
	"github.com/ignaciomazza/ofistur-billing/pkg/db"
	"github.com/ignaciomazza/ofistur-billing/pkg/logger"
	"github.com/ignaciomazza/ofistur-billing/pkg/metrics"
	"github.com/ignaciomazza/ofistur-billing/pkg/migrate"
	"github.com/ignaciomazza/ofistur-billing/pkg/redis"
	"github.com/ignaciomazza/ofistur-billing/pkg/storage"
	"github.com/ignaciomazza/ofistur-billing/pkg/storage/gcs"
)

const lockKeyFormat = "ofistur:billing-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "billing-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "billing-worker"

	logg = logger.New(logger.Options{
		ServiceName: "billing-worker",
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
	}

	conn := dbClient.DB()
	billingRepo := billing.NewRepository(conn)
	batchRepo := batches.NewRepository(conn)
	counterSvc := counters.NewService(conn)
	resolver := fx.NewResolver(fx.NewRepository(conn), cfg.Billing, logg)
	issuer := fiscal.NewIssuer(fiscal.NewRepository(conn), billingRepo, nil, cfg.Fiscal, logg)
	runner := anchor.NewRunner(dbClient, billingRepo, counterSvc, resolver, cfg.Billing, logg)
	builder := presentment.NewBuilder(dbClient, billingRepo, batchRepo, counterSvc,
		bankfile.DefaultRegistry(), store, cfg.Bank, logg)

	anchorJob, err := cron.NewAnchorRunJob(cron.AnchorRunJobParams{Logger: logg, Runner: runner})
	if err != nil {
		logg.Error(context.Background(), "failed to create anchor job", err)
		os.Exit(1)
	}
	presentmentJob, err := cron.NewPresentmentJob(cron.PresentmentJobParams{Logger: logg, Builder: builder})
	if err != nil {
		logg.Error(context.Background(), "failed to create presentment job", err)
		os.Exit(1)
	}
	fiscalJob, err := cron.NewFiscalRetryJob(cron.FiscalRetryJobParams{Logger: logg, Issuer: issuer})
	if err != nil {
		logg.Error(context.Background(), "failed to create fiscal retry job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create worker lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(anchorJob, presentmentJob, fiscalJob),
		Lock:     lock,
		Metrics:  metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting billing worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "billing worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "billing worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
