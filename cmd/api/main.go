package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/peakrent/peakrent-backend/api/routes"
	"github.com/peakrent/peakrent-backend/internal/auth"
	"github.com/peakrent/peakrent-backend/internal/cart"
	"github.com/peakrent/peakrent-backend/internal/catalog"
	"github.com/peakrent/peakrent-backend/internal/checkout"
	"github.com/peakrent/peakrent-backend/internal/orders"
	"github.com/peakrent/peakrent-backend/internal/payments"
	"github.com/peakrent/peakrent-backend/internal/users"
	"github.com/peakrent/peakrent-backend/internal/vouchers"
	stripewebhook "github.com/peakrent/peakrent-backend/internal/webhooks/stripe"
	"github.com/peakrent/peakrent-backend/pkg/auth/session"
	"github.com/peakrent/peakrent-backend/pkg/config"
	"github.com/peakrent/peakrent-backend/pkg/db"
	"github.com/peakrent/peakrent-backend/pkg/instance"
	"github.com/peakrent/peakrent-backend/pkg/logger"
	"github.com/peakrent/peakrent-backend/pkg/metrics"
	"github.com/peakrent/peakrent-backend/pkg/migrate"
	"github.com/peakrent/peakrent-backend/pkg/outbox"
	"github.com/peakrent/peakrent-backend/pkg/redis"
	"github.com/peakrent/peakrent-backend/pkg/storage/s3"
	pkgstripe "github.com/peakrent/peakrent-backend/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	var storage s3.Uploader
	if cfg.Storage.Bucket != "" {
		s3Client, err := s3.NewClient(context.Background(), cfg.Storage, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap s3", err)
			os.Exit(1)
		}
		storage = s3Client
	} else {
		logg.Warn(context.Background(), "s3 bucket not configured, image uploads disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)
	eventMetrics := metrics.NewEventMetrics(registry)

	usersRepo := users.NewRepository(dbClient.DB())
	catalogRepo := catalog.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	vouchersRepo := vouchers.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Repo:    catalogRepo,
		Storage: storage,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	vouchersService, err := vouchers.NewService(vouchersRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create vouchers service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.ServiceParams{
		Repo:     cartRepo,
		Catalog:  catalogRepo,
		Vouchers: vouchersRepo,
		Currency: cfg.Checkout.Currency,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:    ordersRepo,
		Tx:      dbClient,
		Outbox:  outboxService,
		Gateway: stripeClient,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Tx:       dbClient,
		Carts:    cartRepo,
		Catalog:  catalogRepo,
		Orders:   ordersRepo,
		Users:    usersRepo,
		Gateway:  stripeClient,
		Outbox:   outboxService,
		Currency: cfg.Checkout.Currency,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.NewRepository(dbClient.DB()), ordersRepo, dbClient, outboxService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		SigningSecret: stripeClient.SigningSecret(),
		Store:         redisClient,
		EventTTL:      cfg.Eventing.WebhookIdempotencyTTL,
		Reconciler:    paymentsService,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Deps{
			DB:            dbClient,
			Redis:         redisClient,
			Sessions:      sessionManager,
			Gatherer:      registry,
			HTTP:          httpMetrics,
			Events:        eventMetrics,
			Auth:          authService,
			Catalog:       catalogService,
			Cart:          cartService,
			Vouchers:      vouchersService,
			Orders:        ordersService,
			Checkout:      checkoutService,
			StripeWebhook: webhookService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}
