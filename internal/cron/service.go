package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/peakrent/peakrent-backend/pkg/logger"
	"github.com/peakrent/peakrent-backend/pkg/metrics"
)

const defaultInterval = 15 * time.Minute

// ErrUnknownJob is returned by RunJob for names that were never registered.
var ErrUnknownJob = errors.New("unknown cron job")

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// Service runs every registered job once per interval while holding the
// cluster lock. A failing job is logged and does not stop the cycle.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("registry required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		registry: params.Registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run executes a cycle immediately and then on every tick until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	s.tick(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	if err := s.RunOnce(ctx); err != nil {
		s.logg.Error(ctx, "cron cycle failed", err)
	}
}

// RunOnce executes every job a single time under the lock.
func (s *Service) RunOnce(ctx context.Context) error {
	return s.withLock(ctx, func(ctx context.Context) error {
		for _, job := range s.registry.Jobs() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			_ = s.runJob(ctx, job)
		}
		return nil
	})
}

// RunJob executes a single named job under the lock and returns its error.
func (s *Service) RunJob(ctx context.Context, name string) error {
	job, ok := s.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.withLock(ctx, func(ctx context.Context) error {
		return s.runJob(ctx, job)
	})
}

func (s *Service) withLock(ctx context.Context, fn func(context.Context) error) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire cron lock: %w", err)
	}
	if !locked {
		holder, holderErr := s.lock.Holder(ctx)
		if holderErr != nil {
			holder = "unknown"
		}
		s.logg.Info(s.logg.WithField(ctx, "lock_holder", holder), "cron lock held elsewhere, skipping cycle")
		s.metrics.IncSkippedCycle()
		return nil
	}
	defer func() {
		// release on a fresh context so shutdown does not strand the key
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.lock.Release(releaseCtx); err != nil {
			s.logg.Error(ctx, "failed to release cron lock", err)
		}
	}()
	return fn(ctx)
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job"})
	start := time.Now()
	err := job.Run(jobCtx)
	elapsed := time.Since(start)
	s.metrics.ObserveRun(job.Name(), elapsed, err)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "cron job failed", err)
		return err
	}
	s.logg.Info(jobCtx, "cron job completed")
	return nil
}
