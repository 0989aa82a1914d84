package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/peakrent/peakrent-backend/pkg/logger"
)

const (
	defaultOutboxRetention = 30 * 24 * time.Hour
	defaultOutboxAttempts  = 10
)

type outboxPurger interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, maxAttempts int) (int64, error)
}

// NewOutboxRetentionJob deletes outbox rows that are done: published before
// the retention cutoff, or parked after maxAttempts failed publishes.
func NewOutboxRetentionJob(logg *logger.Logger, events outboxPurger, retention time.Duration, maxAttempts int) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	if retention <= 0 {
		retention = defaultOutboxRetention
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultOutboxAttempts
	}
	return &outboxRetentionJob{logg: logg, events: events, retention: retention, maxAttempts: maxAttempts, now: time.Now}, nil
}

type outboxRetentionJob struct {
	logg        *logger.Logger
	events      outboxPurger
	now         func() time.Time
	retention   time.Duration
	maxAttempts int
}

func (j *outboxRetentionJob) Name() string { return "outbox_retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.events.DeletePublishedBefore(ctx, nil, cutoff, j.maxAttempts)
	if err != nil {
		return fmt.Errorf("purge outbox before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"max_attempts": j.maxAttempts,
		"rows_deleted": deleted,
	}), "outbox retention cleanup complete")
	return nil
}
