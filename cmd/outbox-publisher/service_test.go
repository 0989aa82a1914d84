package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/peakrent/peakrent-backend/pkg/config"
	"github.com/peakrent/peakrent-backend/pkg/db/models"
	"github.com/peakrent/peakrent-backend/pkg/enums"
	"github.com/peakrent/peakrent-backend/pkg/logger"
	"github.com/peakrent/peakrent-backend/pkg/outbox"
	"github.com/peakrent/peakrent-backend/pkg/outbox/payloads"
	"github.com/peakrent/peakrent-backend/pkg/outbox/registry"
)

func TestServiceProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{
		events: []models.OutboxEvent{
			newOrderEvent(t, "event-one", 0),
			newOrderEvent(t, "event-two", 0),
		},
	}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient")},
			fakePublishResult{},
		},
	}
	counter := &fakeCounter{}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: ordersResolved()}, counter, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(repo.failed); got != 1 {
		t.Fatalf("unexpected number of failed rows: %d", got)
	}
	if got := len(repo.published); got != 1 {
		t.Fatalf("unexpected number of published rows: %d", got)
	}
	if repo.failed[0] != repo.events[0].ID {
		t.Fatalf("failed row recorded wrong ID")
	}
	if repo.published[0] != repo.events[1].ID {
		t.Fatalf("published row recorded wrong ID")
	}
	if counter.outcomes[outcomeRetry] != 1 || counter.outcomes[outcomePublished] != 1 {
		t.Fatalf("unexpected publish metrics: %v", counter.outcomes)
	}
}

func TestServiceProcessBatchSetsMessageAttributes(t *testing.T) {
	event := newOrderEvent(t, "attrs", 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{}}}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: ordersResolved()}, nil, nil)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.Attributes["event_type"] != string(enums.EventOrderCreated) {
		t.Fatalf("unexpected event_type attribute %q", msg.Attributes["event_type"])
	}
	if msg.Attributes["aggregate_id"] != event.AggregateID.String() {
		t.Fatalf("unexpected aggregate_id attribute %q", msg.Attributes["aggregate_id"])
	}
	if string(msg.Data) != string(event.Payload) {
		t.Fatalf("expected payload published verbatim")
	}
}

func TestServiceProcessBatchParksNonRetryable(t *testing.T) {
	event := newOrderEvent(t, "nonretryable", 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	eventRegistry := &fakeRegistry{err: registry.Permanent(errors.New("invalid payload"))}
	counter := &fakeCounter{}
	service := newTestService(t, repo, &fakePublisher{}, eventRegistry, counter, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(repo.terminal); got != 1 {
		t.Fatalf("expected parked row, got %d", got)
	}
	if repo.terminal[0] != event.ID {
		t.Fatalf("parked row recorded wrong ID")
	}
	if repo.terminalAttempts != 5 {
		t.Fatalf("expected row parked at attempt ceiling, got %d", repo.terminalAttempts)
	}
	if counter.outcomes[outcomeTerminal] != 1 {
		t.Fatalf("expected terminal metric, got %v", counter.outcomes)
	}
}

func TestServiceProcessBatchParksOnMaxAttempts(t *testing.T) {
	event := newOrderEvent(t, "max-attempts", 1)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient")},
		},
	}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: ordersResolved()}, nil, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(repo.failed) != 0 {
		t.Fatalf("expected no retry mark, got %d", len(repo.failed))
	}
	if len(repo.terminal) != 1 || repo.terminal[0] != event.ID {
		t.Fatalf("expected row parked, got %v", repo.terminal)
	}
	if repo.terminalAttempts != 2 {
		t.Fatalf("expected terminal attempts 2, got %d", repo.terminalAttempts)
	}
}

func TestServiceProcessBatchNilPublisherIsTerminal(t *testing.T) {
	event := newOrderEvent(t, "no-publisher", 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	service := newTestService(t, repo, nil, &fakeRegistry{resolved: ordersResolved()}, nil, nil)
	service.publishers = func(string) publisher { return nil }

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(repo.terminal) != 1 {
		t.Fatalf("expected row parked when topic has no publisher")
	}
}

func TestServiceProcessBatchEmpty(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, &fakeRegistry{resolved: ordersResolved()}, nil, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if processed {
		t.Fatalf("expected empty batch to report idle")
	}
}

func TestDrainStopsWhenBacklogEmpty(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{newOrderEvent(t, "drain", 0)}, singleBatch: true}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{}}}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: ordersResolved()}, nil, nil)

	batches, err := service.Drain(context.Background(), 0)
	if err != nil {
		t.Fatalf("drain returned error: %v", err)
	}
	if batches != 1 || repo.fetches != 2 {
		t.Fatalf("expected one batch over two fetches, got batches=%d fetches=%d", batches, repo.fetches)
	}
	if len(repo.published) != 1 {
		t.Fatalf("expected event published, got %v", repo.published)
	}
}

func TestDrainHonoursBatchCap(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{newOrderEvent(t, "capped", 0)}}
	pub := &fakePublisher{}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: ordersResolved()}, nil, nil)

	batches, err := service.Drain(context.Background(), 3)
	if err != nil {
		t.Fatalf("drain returned error: %v", err)
	}
	if batches != 3 {
		t.Fatalf("expected cap of 3 batches, got %d", batches)
	}
}

func TestPollBackoffResets(t *testing.T) {
	b := newPollBackoff(100*time.Millisecond, time.Second)
	if got := b.Next(); got != 200*time.Millisecond {
		t.Fatalf("expected 200ms, got %s", got)
	}
	if got := b.Next(); got != 400*time.Millisecond {
		t.Fatalf("expected 400ms, got %s", got)
	}
	b.Reset()
	if got := b.Next(); got != 200*time.Millisecond {
		t.Fatalf("expected reset to base, got %s", got)
	}
}

func TestNextBackoffCapsAtMax(t *testing.T) {
	base := 100 * time.Millisecond
	if got := nextBackoff(base, base, time.Second); got != 200*time.Millisecond {
		t.Fatalf("expected doubled backoff, got %s", got)
	}
	if got := nextBackoff(800*time.Millisecond, base, time.Second); got != time.Second {
		t.Fatalf("expected capped backoff, got %s", got)
	}
	if got := nextBackoff(0, base, time.Second); got != 200*time.Millisecond {
		t.Fatalf("expected zero backoff to start from base, got %s", got)
	}
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, eventRegistry registryResolver, counter publishCounter, outboxCfgOverride *config.OutboxConfig) *Service {
	t.Helper()
	outboxCfg := config.OutboxConfig{
		BatchSize:      2,
		PollIntervalMS: 100,
		MaxAttempts:    5,
	}
	if outboxCfgOverride != nil {
		outboxCfg = *outboxCfgOverride
	}
	cfg := &config.Config{
		Outbox: outboxCfg,
	}
	logg := logger.New(logger.Options{
		ServiceName: "outbox-publisher-test",
		Output:      io.Discard,
	})
	service, err := NewService(ServiceParams{
		Config:           cfg,
		Logger:           logg,
		DB:               &fakeDB{},
		PubSub:           &fakePubSubClient{},
		Repository:       repo,
		Registry:         eventRegistry,
		PublisherFactory: func(_ string) publisher { return pub },
		Metrics:          counter,
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func newOrderEvent(tb testing.TB, eventID string, attempts int) models.OutboxEvent {
	tb.Helper()
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelopePayload(tb, eventID),
		AttemptCount:  attempts,
	}
}

func ordersResolved() *registry.ResolvedEvent {
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			Topic:         "orders-topic",
		},
		Payload: &payloads.OrderEvent{},
	}
}

func mustEnvelopePayload(tb testing.TB, eventID string) json.RawMessage {
	tb.Helper()
	env := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		EventType:  string(enums.EventOrderCreated),
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

type fakeRepo struct {
	events           []models.OutboxEvent
	published        []uuid.UUID
	failed           []uuid.UUID
	terminal         []uuid.UUID
	terminalAttempts int
	// singleBatch makes every fetch after the first come back empty
	singleBatch bool
	fetches     int
}

func (f *fakeRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	f.fetches++
	if f.singleBatch && f.fetches > 1 {
		return nil, nil
	}
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	f.terminal = append(f.terminal, id)
	f.terminalAttempts = terminalAttempts
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error {
	return nil
}

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type fakePubSubClient struct{}

func (f *fakePubSubClient) Ping(context.Context) error {
	return nil
}

func (f *fakePubSubClient) Publisher(name string) *gcppubsub.Publisher {
	return nil
}

type fakePublisher struct {
	results  []publishResult
	messages []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	if len(f.results) == 0 {
		return nil
	}
	result := f.results[0]
	f.results = f.results[1:]
	return result
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "", f.err
}

type fakeRegistry struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.resolved == nil {
		return nil, f.err
	}
	resolved := *f.resolved
	resolved.Envelope.EventID = event.ID.String()
	resolved.Envelope.OccurredAt = time.Now()
	return &resolved, f.err
}

type fakeCounter struct {
	outcomes map[string]int
}

func (f *fakeCounter) IncPublished(_ string, outcome string) {
	if f.outcomes == nil {
		f.outcomes = map[string]int{}
	}
	f.outcomes[outcome]++
}
