package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/haanhtuan/storefront-backend/api/routes"
	"github.com/haanhtuan/storefront-backend/internal/attributes"
	"github.com/haanhtuan/storefront-backend/internal/cart"
	checkoutsvc "github.com/haanhtuan/storefront-backend/internal/checkout"
	"github.com/haanhtuan/storefront-backend/internal/inventory"
	"github.com/haanhtuan/storefront-backend/internal/notifications"
	"github.com/haanhtuan/storefront-backend/internal/payments"
	"github.com/haanhtuan/storefront-backend/internal/pricing"
	"github.com/haanhtuan/storefront-backend/internal/products"
	"github.com/haanhtuan/storefront-backend/pkg/config"
	"github.com/haanhtuan/storefront-backend/pkg/db"
	"github.com/haanhtuan/storefront-backend/pkg/gateway"
	"github.com/haanhtuan/storefront-backend/pkg/logger"
	"github.com/haanhtuan/storefront-backend/pkg/metrics"
	"github.com/haanhtuan/storefront-backend/pkg/migrate"
	"github.com/haanhtuan/storefront-backend/pkg/outbox"
	"github.com/haanhtuan/storefront-backend/pkg/outbox/idempotency"
	"github.com/haanhtuan/storefront-backend/pkg/redis"
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

	gormDB := dbClient.DB()

	attrRepo := attributes.NewRepository(gormDB)
	attrService, err := attributes.NewService(attrRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create attributes service", err)
		os.Exit(1)
	}

	priceRepo := pricing.NewRepository(gormDB)
	pricer, err := pricing.NewService(priceRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing service", err)
		os.Exit(1)
	}

	productService, err := products.NewService(products.NewRepository(gormDB), attrService, pricer, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create products service", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)

	cartRepo := cart.NewRepository(gormDB)
	cartService, err := cart.NewService(cart.ServiceParams{
		DB:        dbClient,
		Repo:      cartRepo,
		AttrRepo:  attrRepo,
		Attrs:     attrService,
		PriceRepo: priceRepo,
		Pricer:    pricer,
		Events:    outboxService,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)
	ledger := inventory.NewLedger(gormDB)

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		DB:       dbClient,
		Repo:     checkoutsvc.NewRepository(gormDB),
		Cart:     cartService,
		CartRepo: cartRepo,
		Ledger:   ledger,
		Events:   outboxService,
		Metrics:  checkoutMetrics,
		Logger:   logg,
		Checkout: cfg.Checkout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	gatewayClient := gateway.New(cfg.Gateway)
	paymentsRepo := payments.NewRepository(gormDB)

	paymentSession, err := payments.NewSession(payments.SessionParams{
		DB:       dbClient,
		Repo:     paymentsRepo,
		Checkout: checkoutService,
		Gateway:  gatewayClient,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment session service", err)
		os.Exit(1)
	}

	idemManager, err := idempotency.NewManager(redisClient, cfg.Gateway.IdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}

	finalizer, err := payments.NewFinalizer(payments.FinalizerParams{
		DB:          dbClient,
		Repo:        paymentsRepo,
		CartRepo:    cartRepo,
		Ledger:      ledger,
		Gateway:     gatewayClient,
		Events:      outboxService,
		Idempotency: idemManager,
		Metrics:     checkoutMetrics,
		Logger:      logg,
		Config:      cfg.Gateway,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment finalizer", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
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
			Products:       productService,
			Cart:           cartService,
			Checkout:       checkoutService,
			PaymentSession: paymentSession,
			Finalizer:      finalizer,
			Notifications:  notificationsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
