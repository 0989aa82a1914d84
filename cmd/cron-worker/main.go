package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/peakrent/peakrent-backend/internal/cart"
	"github.com/peakrent/peakrent-backend/internal/cron"
	"github.com/peakrent/peakrent-backend/internal/orders"
	"github.com/peakrent/peakrent-backend/internal/vouchers"
	"github.com/peakrent/peakrent-backend/pkg/config"
	"github.com/peakrent/peakrent-backend/pkg/db"
	"github.com/peakrent/peakrent-backend/pkg/instance"
	"github.com/peakrent/peakrent-backend/pkg/logger"
	"github.com/peakrent/peakrent-backend/pkg/metrics"
	"github.com/peakrent/peakrent-backend/pkg/migrate"
	"github.com/peakrent/peakrent-backend/pkg/outbox"
	"github.com/peakrent/peakrent-backend/pkg/redis"
	pkgstripe "github.com/peakrent/peakrent-backend/pkg/stripe"
)

const lockKeyFormat = "cron-worker:%s"

func main() {
	once := flag.Bool("once", false, "run every job a single time and exit")
	jobName := flag.String("job", "", "run only the named job once and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

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

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	outboxRepo := outbox.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:    orders.NewRepository(dbClient.DB()),
		Tx:      dbClient,
		Outbox:  outbox.NewService(outboxRepo, logg),
		Gateway: stripeClient,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	jobs, err := buildJobs(cfg, logg, dbClient, outboxRepo, ordersService)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	registry, err := cron.NewRegistry(jobs...)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockKey(cfg.App.Env)), instance.GetID(), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Cron.Interval.String(),
		"jobs":     len(jobs),
		"instance": instance.GetID(),
	})

	switch {
	case *jobName != "":
		if err := service.RunJob(logg.WithField(ctx, "job", *jobName), *jobName); err != nil {
			logg.Error(ctx, "cron job run failed", err)
			os.Exit(1)
		}
		return
	case *once:
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		return
	}

	go func() {
		if err := metrics.Serve(ctx, cfg.App.MetricsAddr, prometheus.DefaultGatherer, logg); err != nil {
			logg.Error(ctx, "metrics listener failed", err)
		}
	}()
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildJobs(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, outboxRepo *outbox.Repository, ordersService orders.Service) ([]cron.Job, error) {
	voucherJob, err := cron.NewVoucherExpiryJob(logg, vouchers.NewRepository(dbClient.DB()))
	if err != nil {
		return nil, err
	}
	pendingJob, err := cron.NewPendingOrderJob(cron.PendingOrderJobParams{
		Logger:    logg,
		Orders:    ordersService,
		TTL:       cfg.Checkout.PendingOrderTTL,
		BatchSize: cfg.Cron.ExpiryBatchSize,
	})
	if err != nil {
		return nil, err
	}
	cartJob, err := cron.NewAbandonedCartJob(logg, cart.NewRepository(dbClient.DB()), cfg.Cron.AbandonedCartAge)
	if err != nil {
		return nil, err
	}
	retentionJob, err := cron.NewOutboxRetentionJob(logg, outboxRepo, cfg.Cron.OutboxRetention, cfg.Outbox.MaxAttempts)
	if err != nil {
		return nil, err
	}
	return []cron.Job{voucherJob, pendingJob, cartJob, retentionJob}, nil
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
