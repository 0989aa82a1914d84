package main

import (
	"context"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"gorm.io/gorm"

	"github.com/peakrent/peakrent-backend/pkg/db/models"
	"github.com/peakrent/peakrent-backend/pkg/outbox/registry"
)

const (
	publishTimeout = 15 * time.Second

	outcomePublished = "published"
	outcomeRetry     = "retry"
	outcomeTerminal  = "terminal"
)

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// delivery is what happened to one row on the wire.
type delivery struct {
	topic    string
	eventID  string
	serverID string
	err      error
}

func (s *Service) deliver(ctx context.Context, event models.OutboxEvent) delivery {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return delivery{err: err}
	}
	d := delivery{topic: resolved.Descriptor.Topic, eventID: resolved.Envelope.EventID}

	pub := s.publishers(d.topic)
	if pub == nil {
		d.err = registry.Permanent(fmt.Errorf("no publisher for topic %s", d.topic))
		return d
	}
	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, message(event, d.eventID))
	if result == nil {
		d.err = registry.Permanent(fmt.Errorf("publisher for topic %s returned no result", d.topic))
		return d
	}
	d.serverID, d.err = result.Get(publishCtx)
	return d
}

// message carries the stored envelope verbatim; attributes let subscribers
// filter without decoding the body.
func message(event models.OutboxEvent, eventID string) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       eventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	}
}

// settle records the delivery on the row: published, retried later, or
// parked at the attempt ceiling.
func (s *Service) settle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, d delivery) error {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"outbox_id":     event.ID.String(),
		"event_type":    event.EventType.String(),
		"aggregate_id":  event.AggregateID.String(),
		"attempt_count": event.AttemptCount + 1,
		"topic":         d.topic,
		"event_id":      d.eventID,
	})

	if d.err == nil {
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark %s published: %w", event.ID, err)
		}
		s.count(event, outcomePublished)
		s.logg.Info(s.logg.WithField(logCtx, "server_message_id", d.serverID), "outbox event published")
		return nil
	}

	logCtx = s.logg.WithField(logCtx, "error", d.err.Error())
	if !registry.IsPermanent(d.err) && event.AttemptCount+1 < s.maxAttempts {
		if err := s.repo.MarkFailedTx(tx, event.ID, d.err); err != nil {
			return fmt.Errorf("mark %s failed: %w", event.ID, err)
		}
		s.count(event, outcomeRetry)
		s.logg.Warn(logCtx, "outbox publish failed, will retry")
		return nil
	}

	cause := d.err
	if !registry.IsPermanent(cause) {
		cause = fmt.Errorf("gave up after %d attempts: %w", s.maxAttempts, cause)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("park %s: %w", event.ID, err)
	}
	s.count(event, outcomeTerminal)
	s.logg.Warn(logCtx, "outbox event parked")
	return nil
}

func (s *Service) count(event models.OutboxEvent, outcome string) {
	if s.metrics != nil {
		s.metrics.IncPublished(event.EventType.String(), outcome)
	}
}

func gcpPublishers(client pubSubClient) publisherFactory {
	return func(topic string) publisher {
		p := client.Publisher(topic)
		if p == nil {
			return nil
		}
		return gcpPublisher{p}
	}
}

type gcpPublisher struct {
	p *gcppubsub.Publisher
}

func (g gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return g.p.Publish(ctx, msg)
}
