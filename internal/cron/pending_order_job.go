package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/peakrent/peakrent-backend/pkg/logger"
)

const (
	defaultPendingOrderTTL = 24 * time.Hour
	defaultExpiryBatchSize = 100
	maxExpiryBatches       = 20
)

type pendingOrderExpirer interface {
	ExpirePending(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

type PendingOrderJobParams struct {
	Logger    *logger.Logger
	Orders    pendingOrderExpirer
	TTL       time.Duration
	BatchSize int
}

// NewPendingOrderJob cancels pending orders older than the TTL together with
// their payment intents.
func NewPendingOrderJob(params PendingOrderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatchSize
	}
	return &pendingOrderJob{
		logg:   params.Logger,
		orders: params.Orders,
		ttl:    ttl,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type pendingOrderJob struct {
	logg   *logger.Logger
	orders pendingOrderExpirer
	ttl    time.Duration
	batch  int
	now    func() time.Time
}

func (j *pendingOrderJob) Name() string { return "pending_order_expiry" }

// Run drains stale pending orders batch by batch. A batch with failures stops
// the run so the same rows are not retried in a tight loop.
func (j *pendingOrderJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	var (
		total int
		errs  error
	)
	for i := 0; i < maxExpiryBatches; i++ {
		cancelled, err := j.orders.ExpirePending(ctx, cutoff, j.batch)
		total += cancelled
		if err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		if cancelled < j.batch {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":           cutoff,
		"orders_cancelled": total,
	})
	if errs != nil {
		j.logg.Warn(logCtx, "pending order expiry finished with errors")
		return fmt.Errorf("expire pending orders: %w", errs)
	}
	j.logg.Info(logCtx, "pending order expiry complete")
	return nil
}
