package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/peakrent/peakrent-backend/pkg/config"
	"github.com/peakrent/peakrent-backend/pkg/db"
	"github.com/peakrent/peakrent-backend/pkg/instance"
	"github.com/peakrent/peakrent-backend/pkg/logger"
	"github.com/peakrent/peakrent-backend/pkg/metrics"
	"github.com/peakrent/peakrent-backend/pkg/migrate"
	"github.com/peakrent/peakrent-backend/pkg/outbox"
	"github.com/peakrent/peakrent-backend/pkg/outbox/registry"
	"github.com/peakrent/peakrent-backend/pkg/pubsub"
)

const serviceName = "outbox-publisher"

func main() {
	drain := flag.Bool("drain", false, "publish the current backlog and exit")
	maxBatches := flag.Int("max-batches", 0, "with -drain, stop after this many batches (0 = until empty)")
	flag.Parse()

	bootLog := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		bootLog.Warn(context.Background(), ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		bootLog.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
		"drain":    *drain,
	})

	if err := run(ctx, cfg, logg, *drain, *maxBatches); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "outbox publisher shut down")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, drain bool, maxBatches int) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()
	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub client", err)
		}
	}()

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return err
	}
	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		PubSub:     pubsubClient,
		Repository: outbox.NewRepository(dbClient.DB()),
		Registry:   eventRegistry,
		Metrics:    metrics.NewEventMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return err
	}

	if drain {
		batches, err := service.Drain(ctx, maxBatches)
		logg.Info(logg.WithField(ctx, "batches", batches), "outbox drain finished")
		return err
	}

	go func() {
		if err := metrics.Serve(ctx, cfg.App.MetricsAddr, prometheus.DefaultGatherer, logg); err != nil {
			logg.Error(ctx, "metrics listener failed", err)
		}
	}()
	logg.Info(ctx, "starting outbox publisher")
	return service.Run(ctx)
}
