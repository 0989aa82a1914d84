package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakrent/peakrent-backend/internal/orders"
	"github.com/peakrent/peakrent-backend/internal/testdb"
	"github.com/peakrent/peakrent-backend/pkg/db/models"
	"github.com/peakrent/peakrent-backend/pkg/enums"
	"github.com/peakrent/peakrent-backend/pkg/logger"
	"github.com/peakrent/peakrent-backend/pkg/mailer"
	"github.com/peakrent/peakrent-backend/pkg/outbox"
	"github.com/peakrent/peakrent-backend/pkg/outbox/idempotency"
	"github.com/peakrent/peakrent-backend/pkg/outbox/payloads"
)

type memoryStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memoryStore) Get(context.Context, string) (string, error) { return "", nil }

func (m *memoryStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string { return scope + ":" + id }

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

type stubSender struct {
	sent []mailer.Message
	err  error
}

func (s *stubSender) Send(_ context.Context, msg mailer.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type harness struct {
	consumer *Consumer
	sender   *stubSender
	store    *memoryStore
	order    models.Order
	user     models.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	client := testdb.New(t)
	conn := client.DB()
	fx := testdb.Fixtures{T: t, DB: conn}
	user := fx.User()
	start := time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC)
	order := fx.Order(user.ID, enums.OrderStatusCompleted, [2]time.Time{start, start.AddDate(0, 0, 2)}, fx.Variant(4500, 2))

	store := &memoryStore{keys: map[string]bool{}}
	processed, err := idempotency.ConsumerGuard(store, ConsumerName, time.Hour)
	require.NoError(t, err)
	sender := &stubSender{}
	consumer, err := NewConsumer(orders.NewRepository(conn), sender, nil, processed, logger.Nop())
	require.NoError(t, err)
	return &harness{consumer: consumer, sender: sender, store: store, order: order, user: user}
}

func envelope(t *testing.T, eventID uuid.UUID, eventType enums.OutboxEventType, payload payloads.OrderEvent) []byte {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		EventType:  string(eventType),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	require.NoError(t, err)
	return raw
}

func (h *harness) payload() payloads.OrderEvent {
	return payloads.OrderEvent{
		OrderID:       h.order.ID,
		Reference:     h.order.Reference,
		UserID:        h.user.ID,
		Status:        enums.OrderStatusCompleted,
		ChargedAmount: h.order.ChargedAmount,
		Currency:      "eur",
	}
}

func TestHandleSendsPaymentEmail(t *testing.T) {
	h := newHarness(t)
	raw := envelope(t, uuid.New(), enums.EventOrderPaid, h.payload())

	result := h.consumer.Handle(context.Background(), string(enums.EventOrderPaid), raw)
	assert.Equal(t, Ack, result)
	require.Len(t, h.sender.sent, 1)
	msg := h.sender.sent[0]
	assert.Equal(t, h.user.Email, msg.To)
	assert.Equal(t, mailer.TemplateOrderPaid, msg.Template)
	assert.Contains(t, msg.Subject, h.order.Reference)

	data, ok := msg.Data.(mailer.OrderEmail)
	require.True(t, ok)
	assert.Equal(t, "Ana Skier", data.CustomerName)
	assert.Equal(t, "45.00 EUR", data.Total)
	require.Len(t, data.Items, 1)
	assert.Equal(t, "Race Ski 170", data.Items[0].Name)
	assert.Equal(t, "Sat 14 Feb 2026", data.Items[0].StartsOn)
}

func TestHandleSkipsDuplicates(t *testing.T) {
	h := newHarness(t)
	id := uuid.New()
	raw := envelope(t, id, enums.EventOrderCancelled, h.payload())

	assert.Equal(t, Ack, h.consumer.Handle(context.Background(), "", raw))
	assert.Equal(t, Ack, h.consumer.Handle(context.Background(), "", raw))
	require.Len(t, h.sender.sent, 1)
	assert.Equal(t, mailer.TemplateOrderCancelled, h.sender.sent[0].Template)
}

type countingMetrics struct {
	outcomes []string
}

func (c *countingMetrics) IncConsumed(consumer, eventType, outcome string) {
	c.outcomes = append(c.outcomes, consumer+"/"+eventType+"/"+outcome)
}

func TestHandleCountsOutcomes(t *testing.T) {
	h := newHarness(t)
	counter := &countingMetrics{}
	h.consumer.Instrument(counter)
	raw := envelope(t, uuid.New(), enums.EventOrderCancelled, h.payload())

	h.consumer.Handle(context.Background(), "", raw)
	h.consumer.Handle(context.Background(), "", raw)
	h.consumer.Handle(context.Background(), "", []byte("{not json"))

	assert.Equal(t, []string{
		"order-emails/" + string(enums.EventOrderCancelled) + "/sent",
		"order-emails/" + string(enums.EventOrderCancelled) + "/duplicate",
		"order-emails//malformed",
	}, counter.outcomes)
}

func TestHandleNacksAndReleasesOnSendFailure(t *testing.T) {
	h := newHarness(t)
	h.sender.err = errors.New("smtp down")
	raw := envelope(t, uuid.New(), enums.EventOrderCreated, h.payload())

	assert.Equal(t, Nack, h.consumer.Handle(context.Background(), string(enums.EventOrderCreated), raw))
	assert.Empty(t, h.store.keys)

	h.sender.err = nil
	assert.Equal(t, Ack, h.consumer.Handle(context.Background(), string(enums.EventOrderCreated), raw))
	assert.Len(t, h.sender.sent, 1)
}

func TestHandleIgnoresOtherEventsAndGarbage(t *testing.T) {
	h := newHarness(t)
	raw := envelope(t, uuid.New(), enums.EventOrderStatusChanged, h.payload())

	assert.Equal(t, Ack, h.consumer.Handle(context.Background(), string(enums.EventOrderStatusChanged), raw))
	assert.Equal(t, Ack, h.consumer.Handle(context.Background(), string(enums.EventOrderPaid), []byte("{not json")))
	assert.Empty(t, h.sender.sent)
	assert.Empty(t, h.store.keys)
}

func TestHandleDropsUnknownPayloadVersion(t *testing.T) {
	h := newHarness(t)
	data, err := json.Marshal(h.payload())
	require.NoError(t, err)
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:   2,
		EventID:   uuid.NewString(),
		EventType: string(enums.EventOrderPaid),
		Data:      data,
	})
	require.NoError(t, err)

	assert.Equal(t, Ack, h.consumer.Handle(context.Background(), string(enums.EventOrderPaid), raw))
	assert.Empty(t, h.sender.sent)
	assert.Empty(t, h.store.keys)
}

func TestHandleAcksMissingOrder(t *testing.T) {
	h := newHarness(t)
	payload := h.payload()
	payload.OrderID = uuid.New()
	raw := envelope(t, uuid.New(), enums.EventOrderPaymentFailed, payload)

	assert.Equal(t, Ack, h.consumer.Handle(context.Background(), string(enums.EventOrderPaymentFailed), raw))
	assert.Empty(t, h.sender.sent)
}

func TestNewConsumerRequiresDependencies(t *testing.T) {
	_, err := NewConsumer(nil, &stubSender{}, nil, nil, logger.Nop())
	require.Error(t, err)
}
