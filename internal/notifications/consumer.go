// Package notifications emails customers about their order lifecycle events.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/peakrent/peakrent-backend/pkg/db/models"
	"github.com/peakrent/peakrent-backend/pkg/enums"
	"github.com/peakrent/peakrent-backend/pkg/logger"
	"github.com/peakrent/peakrent-backend/pkg/mailer"
	"github.com/peakrent/peakrent-backend/pkg/outbox"
	"github.com/peakrent/peakrent-backend/pkg/outbox/idempotency"
	"github.com/peakrent/peakrent-backend/pkg/outbox/payloads"
	"github.com/peakrent/peakrent-backend/pkg/outbox/registry"
)

// ConsumerName scopes the processed-event keys of this consumer.
const ConsumerName = "order-emails"

type orderLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// Consumer turns order events from Pub/Sub into customer emails.
type Consumer struct {
	orders       orderLoader
	mail         mailer.Sender
	subscription *pubsub.Subscriber
	processed    *idempotency.Guard
	decoders     *registry.DecoderRegistry
	metrics      consumedCounter
	logg         *logger.Logger
}

// NewConsumer builds an order email consumer. subscription may be nil when
// messages are fed through Handle directly.
func NewConsumer(orders orderLoader, mail mailer.Sender, subscription *pubsub.Subscriber, processed *idempotency.Guard, logg *logger.Logger) (*Consumer, error) {
	if orders == nil {
		return nil, fmt.Errorf("order loader required")
	}
	if mail == nil {
		return nil, fmt.Errorf("mail sender required")
	}
	if processed == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		orders:       orders,
		mail:         mail,
		subscription: subscription,
		processed:    processed,
		decoders:     registry.NewOrderDecoders(),
		metrics:      noopCounter{},
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if c.subscription == nil {
		return fmt.Errorf("orders subscription required")
	}
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		ctx = c.logg.WithField(ctx, "message_id", msg.ID)
		if c.Handle(ctx, msg.Attributes["event_type"], msg.Data) == Nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Result tells the subscriber loop whether to ack a message.
type Result int

const (
	Ack Result = iota
	Nack
)

const (
	outcomeSent      = "sent"
	outcomeSkipped   = "skipped"
	outcomeDuplicate = "duplicate"
	outcomeMalformed = "malformed"
	outcomeRetry     = "retry"
)

type consumedCounter interface {
	IncConsumed(consumer, eventType, outcome string)
}

// Instrument attaches delivery counters. Without it counting is a no-op.
func (c *Consumer) Instrument(counter consumedCounter) *Consumer {
	if counter != nil {
		c.metrics = counter
	}
	return c
}

type noopCounter struct{}

func (noopCounter) IncConsumed(string, string, string) {}

// Handle processes one envelope. Malformed messages are acked and dropped;
// transient failures release the idempotency mark and nack for redelivery.
func (c *Consumer) Handle(ctx context.Context, eventType string, data []byte) Result {
	result, outcome, resolvedType := c.handle(ctx, eventType, data)
	c.metrics.IncConsumed(ConsumerName, resolvedType, outcome)
	return result
}

func (c *Consumer) handle(ctx context.Context, eventType string, data []byte) (Result, string, string) {
	logCtx := c.logg.WithField(ctx, "event_type", eventType)

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return Ack, outcomeMalformed, eventType
	}
	if eventType == "" {
		eventType = envelope.EventType
		logCtx = c.logg.WithField(logCtx, "event_type", eventType)
	}
	if _, ok := emailsByEvent[enums.OutboxEventType(eventType)]; !ok {
		c.logg.Debug(logCtx, "event does not notify customers")
		return Ack, outcomeSkipped, eventType
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return Ack, outcomeMalformed, eventType
	}
	version := envelope.Version
	if version == 0 {
		version = 1
	}
	decoded, err := c.decoders.Decode(enums.OutboxEventType(eventType), version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return Ack, outcomeMalformed, eventType
	}
	payload := *decoded.(*payloads.OrderEvent)
	logCtx = c.logg.WithOrderID(c.logg.WithField(logCtx, "event_id", eventID.String()), payload.OrderID.String())

	claimed, err := c.processed.Claim(ctx, eventID.String())
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return Nack, outcomeRetry, eventType
	}
	if !claimed {
		c.logg.Info(logCtx, "event already processed")
		return Ack, outcomeDuplicate, eventType
	}

	if err := c.notify(ctx, enums.OutboxEventType(eventType), payload); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.logg.Warn(logCtx, "order not found; email skipped")
			return Ack, outcomeSkipped, eventType
		}
		c.logg.Error(logCtx, "order email failed", err)
		if delErr := c.processed.Release(ctx, eventID.String()); delErr != nil {
			c.logg.Error(logCtx, "release idempotency key", delErr)
		}
		return Nack, outcomeRetry, eventType
	}
	c.logg.Info(logCtx, "order email sent")
	return Ack, outcomeSent, eventType
}

func (c *Consumer) notify(ctx context.Context, eventType enums.OutboxEventType, payload payloads.OrderEvent) error {
	order, err := c.orders.FindByID(ctx, payload.OrderID)
	if err != nil {
		return err
	}
	msg, ok := buildMessage(eventType, order, payload.Reason)
	if !ok {
		return nil
	}
	return c.mail.Send(ctx, msg)
}
