package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/avelardo/cryptomart-backend/internal/affiliate"
	"github.com/avelardo/cryptomart-backend/internal/cron"
	"github.com/avelardo/cryptomart-backend/internal/deposits"
	"github.com/avelardo/cryptomart-backend/internal/earnings"
	"github.com/avelardo/cryptomart-backend/internal/ledger"
	"github.com/avelardo/cryptomart-backend/internal/purchases"
	"github.com/avelardo/cryptomart-backend/internal/reconciliation"
	"github.com/avelardo/cryptomart-backend/internal/users"
	"github.com/avelardo/cryptomart-backend/internal/withdrawals"
	"github.com/avelardo/cryptomart-backend/pkg/config"
	"github.com/avelardo/cryptomart-backend/pkg/db"
	"github.com/avelardo/cryptomart-backend/pkg/logger"
	"github.com/avelardo/cryptomart-backend/pkg/metrics"
	"github.com/avelardo/cryptomart-backend/pkg/migrate"
	"github.com/avelardo/cryptomart-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	ledgerMetrics := metrics.NewLedgerMetrics(prometheus.DefaultRegisterer)
	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	purchasesRepo := purchases.NewRepository(dbClient.DB())
	usersRepo := users.NewRepository(dbClient.DB())

	earningsService, err := earnings.NewService(
		earnings.NewRepository(dbClient.DB()),
		purchasesRepo,
		ledgerService,
		dbClient,
		logg,
		ledgerMetrics,
		cfg.Earnings.HorizonDays,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create earnings service", err)
		os.Exit(1)
	}

	affiliateService, err := affiliate.NewService(
		affiliate.NewRepository(dbClient.DB()), usersRepo, ledgerService, dbClient, logg, ledgerMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create affiliate service", err)
		os.Exit(1)
	}

	reconciliationService, err := reconciliation.NewService(
		ledgerService,
		deposits.NewRepository(dbClient.DB()),
		purchasesRepo,
		withdrawals.NewRepository(dbClient.DB()),
		affiliateService,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciliation service", err)
		os.Exit(1)
	}

	accrualJob, err := cron.NewAccrualSweepJob(cron.AccrualSweepJobParams{
		Logger: logg,
		Engine: earningsService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create accrual sweep job", err)
		os.Exit(1)
	}
	reconciliationJob, err := cron.NewReconciliationJob(cron.ReconciliationJobParams{
		Logger:   logg,
		Service:  reconciliationService,
		Accounts: usersRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciliation job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker"), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(accrualJob, reconciliationJob),
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
