package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/avelardo/cryptomart-backend/api/routes"
	"github.com/avelardo/cryptomart-backend/internal/affiliate"
	"github.com/avelardo/cryptomart-backend/internal/deposits"
	"github.com/avelardo/cryptomart-backend/internal/earnings"
	"github.com/avelardo/cryptomart-backend/internal/ledger"
	"github.com/avelardo/cryptomart-backend/internal/products"
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

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}
	projector, err := ledger.NewCachedProjector(ledgerService, redisClient, logg, cfg.BalanceCache.TTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create balance projector", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())
	usersService, err := users.NewService(usersRepo, cfg.Password, cfg.JWT, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	productsRepo := products.NewRepository(dbClient.DB())
	purchasesRepo := purchases.NewRepository(dbClient.DB())
	earningsRepo := earnings.NewRepository(dbClient.DB())
	depositsRepo := deposits.NewRepository(dbClient.DB())
	withdrawalsRepo := withdrawals.NewRepository(dbClient.DB())

	earningsService, err := earnings.NewService(
		earningsRepo, purchasesRepo, ledgerService, dbClient, logg, ledgerMetrics, cfg.Earnings.HorizonDays,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create earnings service", err)
		os.Exit(1)
	}

	purchasesService, err := purchases.NewService(
		purchasesRepo, productsRepo, ledgerService, earningsService, dbClient, logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create purchases service", err)
		os.Exit(1)
	}

	affiliateService, err := affiliate.NewService(
		affiliate.NewRepository(dbClient.DB()), usersRepo, ledgerService, dbClient, logg, ledgerMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create affiliate service", err)
		os.Exit(1)
	}

	depositsService, err := deposits.NewService(depositsRepo, ledgerService, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create deposits service", err)
		os.Exit(1)
	}

	withdrawalsService, err := withdrawals.NewService(
		withdrawalsRepo, ledgerService, dbClient, logg, cfg.Withdrawals.FeeRatePercent,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create withdrawals service", err)
		os.Exit(1)
	}

	reconciliationService, err := reconciliation.NewService(
		ledgerService, depositsRepo, purchasesRepo, withdrawalsRepo, affiliateService, logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciliation service", err)
		os.Exit(1)
	}

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
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Redis:          redisClient,
			Users:          usersService,
			Affiliate:      affiliateService,
			Ledger:         ledgerService,
			Projector:      projector,
			ProductsRepo:   productsRepo,
			Purchases:      purchasesService,
			EarningsRepo:   earningsRepo,
			Earnings:       earningsService,
			Deposits:       depositsService,
			Withdrawals:    withdrawalsService,
			Reconciliation: reconciliationService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
