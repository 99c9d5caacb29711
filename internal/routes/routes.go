package routes

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/paymitra/paymitra/internal/bills"
	"github.com/paymitra/paymitra/internal/callback"
	"github.com/paymitra/paymitra/internal/config"
	"github.com/paymitra/paymitra/internal/gateway"
	"github.com/paymitra/paymitra/internal/metrics"
	"github.com/paymitra/paymitra/internal/middleware"
	"github.com/paymitra/paymitra/internal/notification"
	"github.com/paymitra/paymitra/internal/otp"
	"github.com/paymitra/paymitra/internal/recharge"
	"github.com/paymitra/paymitra/internal/settlement"
	"github.com/paymitra/paymitra/internal/txn"
	"github.com/paymitra/paymitra/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger

	// Aggregator overrides the HTTP gateway client when set. Tests inject
	// fakes here.
	Aggregator gateway.Aggregator
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Durable backends are required outside of dev, even though main also
	// checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Instrumentation
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Health
	RegisterHealthRoutes(app, d)

	// Storage backends
	var txns txn.Store
	var wallets wallet.Ledger
	if d.DB != nil {
		txns = txn.NewPostgresStore(d.DB)
		wallets = wallet.NewPostgresLedger(d.DB)
	} else {
		txns = txn.NewInMemory()
		wallets = wallet.NewInMemory()
	}

	// Payment core
	agg := d.Aggregator
	if agg == nil {
		agg = gateway.NewClient(gateway.Config{
			BaseURL:      d.Cfg.Gateway.BaseURL,
			APIToken:     d.Cfg.Gateway.APIToken,
			MemberID:     d.Cfg.Gateway.MemberID,
			FetchTimeout: d.Cfg.Gateway.FetchTimeout,
			PayTimeout:   d.Cfg.Gateway.PayTimeout,
		}, d.Logger, m.ObserveGateway)
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	settler := settlement.New(txns, wallets, notifier, m, d.Logger)
	rechargeSvc := recharge.NewService(agg, txns, wallets, settler, d.Logger)
	billsSvc := bills.NewService(agg, txns, wallets, settler, d.Logger)
	reconciler := callback.NewReconciler(txns, settler, notifier, m, d.Logger)

	// The webhook lives at the root so the URL registered with the
	// aggregator never changes when the API version does.
	RegisterCallbackRoutes(app, callback.NewHandler(reconciler))

	api := app.Group("/api/v1")
	RegisterRechargeRoutes(api, recharge.NewHandler(rechargeSvc))
	RegisterBillRoutes(api, bills.NewHandler(billsSvc))
	RegisterWalletRoutes(api, wallet.NewHandler(wallets))
	if d.Cache != nil {
		store := otp.NewStore(d.Cache, d.Cfg.OTPTTL)
		RegisterOTPRoutes(api, otp.NewHandler(store, d.Logger, d.Cfg.IsDev()))
	}

	return nil
}
