package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/peakrent/peakrent-backend/internal/notifications"
	"github.com/peakrent/peakrent-backend/internal/orders"
	"github.com/peakrent/peakrent-backend/pkg/config"
	"github.com/peakrent/peakrent-backend/pkg/db"
	"github.com/peakrent/peakrent-backend/pkg/instance"
	"github.com/peakrent/peakrent-backend/pkg/logger"
	"github.com/peakrent/peakrent-backend/pkg/mailer"
	"github.com/peakrent/peakrent-backend/pkg/metrics"
	"github.com/peakrent/peakrent-backend/pkg/outbox/idempotency"
	"github.com/peakrent/peakrent-backend/pkg/pubsub"
	"github.com/peakrent/peakrent-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	mail, err := mailer.New(cfg.SMTP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create mailer", err)
		os.Exit(1)
	}

	processed, err := idempotency.ConsumerGuard(redisClient, notifications.ConsumerName, cfg.Eventing.ConsumerIdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency guard", err)
		os.Exit(1)
	}

	consumer, err := notifications.NewConsumer(
		orders.NewRepository(dbClient.DB()),
		mail,
		pubsubClient.OrdersSubscription(),
		processed,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification consumer", err)
		os.Exit(1)
	}

	eventMetrics := metrics.NewEventMetrics(prometheus.DefaultRegisterer)
	consumer.Instrument(eventMetrics)

	service, err := NewService(ServiceParams{
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		PubSub:        pubsubClient,
		Notifications: consumer,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"subscription": cfg.PubSub.OrdersSubscription,
		"instance":     instance.GetID(),
	})
	go func() {
		if err := metrics.Serve(ctx, cfg.App.MetricsAddr, prometheus.DefaultGatherer, logg); err != nil {
			logg.Error(ctx, "metrics listener failed", err)
		}
	}()
	logg.Info(ctx, "starting worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "worker shutting down gracefully")
}
