package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/peakrent/peakrent-backend/pkg/config"
	"github.com/peakrent/peakrent-backend/pkg/db/models"
	"github.com/peakrent/peakrent-backend/pkg/logger"
	"github.com/peakrent/peakrent-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultPoll        = 500 * time.Millisecond
	defaultMaxAttempts = 10
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publishCounter interface {
	IncPublished(eventType, outcome string)
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	Metrics          publishCounter
}

// Service drains outbox_events onto Pub/Sub. Each batch is claimed with
// FOR UPDATE SKIP LOCKED inside one transaction, so several publishers can
// run side by side. Rows that can never be delivered are parked at the
// attempt ceiling for the retention job.
type Service struct {
	logg        *logger.Logger
	db          dbClient
	pubsub      pubSubClient
	repo        outboxRepository
	registry    registryResolver
	publishers  publisherFactory
	metrics     publishCounter
	batchSize   int
	maxAttempts int
	poll        time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	}

	cfg := params.Config.Outbox
	s := &Service{
		logg:        params.Logger,
		db:          params.DB,
		pubsub:      params.PubSub,
		repo:        params.Repository,
		registry:    params.Registry,
		publishers:  params.PublisherFactory,
		metrics:     params.Metrics,
		batchSize:   positiveOr(cfg.BatchSize, defaultBatchSize),
		maxAttempts: positiveOr(cfg.MaxAttempts, defaultMaxAttempts),
		poll:        defaultPoll,
	}
	if cfg.PollIntervalMS > 0 {
		s.poll = time.Duration(cfg.PollIntervalMS) * time.Millisecond
	}
	if s.publishers == nil {
		s.publishers = gcpPublishers(params.PubSub)
	}
	return s, nil
}

// Run polls until ctx is canceled. A busy outbox is drained back to back;
// an idle one waits one poll interval, and a failing one backs off.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	backoff := newPollBackoff(s.poll, maxBackoff)
	for {
		processed, err := s.processBatch(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox batch failed", err)
			wait = backoff.Next()
		case processed:
			backoff.Reset()
		default:
			backoff.Reset()
			wait = s.poll
		}
		if err := sleep(ctx, withJitter(wait)); err != nil {
			return err
		}
	}
}

// Drain publishes batches until the backlog is empty or maxBatches is hit.
// It returns the number of batches that carried events.
func (s *Service) Drain(ctx context.Context, maxBatches int) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	batches := 0
	for maxBatches <= 0 || batches < maxBatches {
		if err := ctx.Err(); err != nil {
			return batches, err
		}
		processed, err := s.processBatch(ctx)
		if err != nil {
			return batches, err
		}
		if !processed {
			break
		}
		batches++
	}
	return batches, nil
}

func (s *Service) ready(ctx context.Context) error {
	for name, ping := range map[string]func(context.Context) error{
		"database": s.db.Ping,
		"pubsub":   s.pubsub.Ping,
	} {
		if err := ping(ctx); err != nil {
			return fmt.Errorf("%s not ready: %w", name, err)
		}
	}
	return nil
}

// processBatch reports whether the claimed batch held any rows. An error
// means row state could not be written and the transaction rolled back.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim outbox batch: %w", err)
		}
		processed = len(events) > 0
		for _, event := range events {
			if err := s.settle(ctx, tx, event, s.deliver(ctx, event)); err != nil {
				return err
			}
		}
		return nil
	})
	return processed, err
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
