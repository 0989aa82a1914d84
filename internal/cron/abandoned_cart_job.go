package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/peakrent/peakrent-backend/pkg/logger"
)

const defaultAbandonedCartAge = 7 * 24 * time.Hour

type staleCartMarker interface {
	AbandonStale(ctx context.Context, before time.Time) (int64, error)
}

// NewAbandonedCartJob marks active carts untouched for longer than age as abandoned.
func NewAbandonedCartJob(logg *logger.Logger, carts staleCartMarker, age time.Duration) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if age <= 0 {
		age = defaultAbandonedCartAge
	}
	return &abandonedCartJob{logg: logg, carts: carts, age: age, now: time.Now}, nil
}

type abandonedCartJob struct {
	logg  *logger.Logger
	carts staleCartMarker
	age   time.Duration
	now   func() time.Time
}

func (j *abandonedCartJob) Name() string { return "abandoned_cart" }

func (j *abandonedCartJob) Run(ctx context.Context) error {
	before := j.now().UTC().Add(-j.age)
	marked, err := j.carts.AbandonStale(ctx, before)
	if err != nil {
		return fmt.Errorf("abandon stale carts: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{"before": before, "carts_abandoned": marked}), "abandoned cart sweep complete")
	return nil
}
