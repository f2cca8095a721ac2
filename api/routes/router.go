package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avelardo/cryptomart-backend/api/controllers"
	"github.com/avelardo/cryptomart-backend/api/middleware"
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
	"github.com/avelardo/cryptomart-backend/pkg/enums"
	"github.com/avelardo/cryptomart-backend/pkg/logger"
	"github.com/avelardo/cryptomart-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface needs.
type RouterParams struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client
	Redis  *redis.Client

	Users          users.Service
	Affiliate      affiliate.Service
	Ledger         ledger.Service
	Projector      *ledger.CachedProjector
	ProductsRepo   products.Repository
	Purchases      purchases.Service
	EarningsRepo   earnings.Repository
	Earnings       earnings.Service
	Deposits       deposits.Service
	Withdrawals    withdrawals.Service
	Reconciliation reconciliation.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/login", controllers.AuthLogin(p.Users, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/register", controllers.AuthRegister(p.Users, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/me", func(r chi.Router) {
			r.Get("/", controllers.AccountProfile(p.Users, logg))
			r.Put("/wallet", controllers.AccountSetWallet(p.Users, logg))
		})
		r.Get("/v1/referrals", controllers.ReferralStats(p.Affiliate, logg))

		r.Get("/v1/balance", controllers.Balance(p.Projector, logg))
		r.Get("/v1/ledger", controllers.LedgerHistory(p.Ledger, logg))

		r.Get("/v1/products", controllers.ProductList(p.ProductsRepo, logg))

		r.Route("/v1/purchases", func(r chi.Router) {
			r.Get("/", controllers.PurchaseList(p.Purchases, logg))
			r.Post("/", controllers.PurchaseCheckout(p.Purchases, p.Affiliate, p.Projector, logg))
			r.Get("/{purchaseId}", controllers.PurchaseDetail(p.Purchases, logg))
			r.Post("/{purchaseId}/validate", controllers.PurchaseValidate(p.Purchases, p.Projector, logg))
		})

		r.Get("/v1/earnings", controllers.EarningsList(p.EarningsRepo, logg))

		r.Route("/v1/deposits", func(r chi.Router) {
			r.Get("/", controllers.DepositList(p.Deposits, logg))
			r.Post("/", controllers.DepositReport(p.Deposits, logg))
		})

		r.Route("/v1/withdrawals", func(r chi.Router) {
			r.Get("/", controllers.WithdrawalList(p.Withdrawals, logg))
			r.Post("/", controllers.WithdrawalRequest(p.Withdrawals, logg))
			r.Get("/policy", controllers.WithdrawalPolicyToday(p.Withdrawals, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))

		r.Post("/v1/products", controllers.AdminProductCreate(p.ProductsRepo, logg))
		r.Post("/v1/deposits/{depositId}/confirm", controllers.AdminDepositConfirm(p.Deposits, p.Projector, logg))
		r.Post("/v1/deposits/{depositId}/fail", controllers.AdminDepositFail(p.Deposits, logg))
		r.Post("/v1/withdrawals/{withdrawalId}/approve", controllers.AdminWithdrawalApprove(p.Withdrawals, p.Projector, logg))
		r.Post("/v1/withdrawals/{withdrawalId}/reject", controllers.AdminWithdrawalReject(p.Withdrawals, logg))
		r.Post("/v1/earnings/backfill", controllers.AdminEarningsBackfill(p.Earnings, p.Projector, logg))
		r.Post("/v1/reconciliation/{userId}", controllers.AdminReconcile(p.Reconciliation, p.Projector, logg))
	})

	return r
}
