package stripewebhook

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/peakrent/peakrent-backend/internal/payments"
	"github.com/peakrent/peakrent-backend/pkg/enums"
	pkgerrors "github.com/peakrent/peakrent-backend/pkg/errors"
)

const testSecret = "whsec_test"

type memoryStore struct {
	mu   sync.Mutex
	keys map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: map[string]string{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = "1"
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

type stubReconciler struct {
	updates []payments.IntentUpdate
	err     error
}

func (s *stubReconciler) Reconcile(_ context.Context, update payments.IntentUpdate) (*payments.Outcome, error) {
	s.updates = append(s.updates, update)
	if s.err != nil {
		return nil, s.err
	}
	return &payments.Outcome{OrderStatus: payments.OrderStatusForPayment(update.Status, update.LastPaymentError != nil), StatusChanged: true}, nil
}

func newService(t *testing.T) (*Service, *stubReconciler, *memoryStore) {
	t.Helper()
	store := newMemoryStore()
	reconciler := &stubReconciler{}
	svc, err := NewService(ServiceParams{
		SigningSecret: testSecret,
		Store:         store,
		Reconciler:    reconciler,
	})
	require.NoError(t, err)
	return svc, reconciler, store
}

func signedEvent(t *testing.T, id, eventType string, object map[string]any) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":          id,
		"object":      "event",
		"type":        eventType,
		"created":     time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC).Unix(),
		"api_version": "2025-01-01",
		"data":        map[string]any{"object": object},
	})
	require.NoError(t, err)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func TestNewServiceValidatesParams(t *testing.T) {
	_, err := NewService(ServiceParams{Store: newMemoryStore(), Reconciler: &stubReconciler{}})
	require.Error(t, err)
	_, err = NewService(ServiceParams{SigningSecret: testSecret, Reconciler: &stubReconciler{}})
	require.Error(t, err)
}

func TestHandleEventReconcilesSucceededIntent(t *testing.T) {
	svc, reconciler, _ := newService(t)
	payload, header := signedEvent(t, "evt_1", "payment_intent.succeeded", map[string]any{
		"id":     "pi_1",
		"object": "payment_intent",
		"status": "succeeded",
	})

	result, err := svc.HandleEvent(context.Background(), payload, header)
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
	require.NotNil(t, result.Outcome)
	assert.Equal(t, enums.OrderStatusCompleted, result.Outcome.OrderStatus)

	require.Len(t, reconciler.updates, 1)
	update := reconciler.updates[0]
	assert.Equal(t, "pi_1", update.IntentID)
	assert.Equal(t, "succeeded", update.Status)
	assert.Nil(t, update.LastPaymentError)
	assert.Equal(t, time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC), update.EventTime)
}

func TestHandleEventPassesLastPaymentError(t *testing.T) {
	svc, reconciler, _ := newService(t)
	payload, header := signedEvent(t, "evt_2", "payment_intent.payment_failed", map[string]any{
		"id":                 "pi_2",
		"object":             "payment_intent",
		"status":             "requires_payment_method",
		"last_payment_error": map[string]any{"message": "Your card was declined."},
	})

	_, err := svc.HandleEvent(context.Background(), payload, header)
	require.NoError(t, err)
	require.Len(t, reconciler.updates, 1)
	require.NotNil(t, reconciler.updates[0].LastPaymentError)
	assert.Equal(t, "Your card was declined.", *reconciler.updates[0].LastPaymentError)
}

func TestHandleEventSkipsDuplicates(t *testing.T) {
	svc, reconciler, _ := newService(t)
	payload, header := signedEvent(t, "evt_3", "payment_intent.succeeded", map[string]any{
		"id": "pi_3", "object": "payment_intent", "status": "succeeded",
	})

	_, err := svc.HandleEvent(context.Background(), payload, header)
	require.NoError(t, err)
	result, err := svc.HandleEvent(context.Background(), payload, header)
	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	assert.Len(t, reconciler.updates, 1)
}

func TestHandleEventReleasesKeyOnFailure(t *testing.T) {
	svc, reconciler, store := newService(t)
	reconciler.err = pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	payload, header := signedEvent(t, "evt_4", "payment_intent.canceled", map[string]any{
		"id": "pi_4", "object": "payment_intent", "status": "canceled",
	})

	_, err := svc.HandleEvent(context.Background(), payload, header)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Empty(t, store.keys)

	reconciler.err = nil
	result, err := svc.HandleEvent(context.Background(), payload, header)
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
	assert.Len(t, reconciler.updates, 2)
}

func TestHandleEventIgnoresOtherTypes(t *testing.T) {
	svc, reconciler, store := newService(t)
	payload, header := signedEvent(t, "evt_5", "customer.created", map[string]any{"id": "cus_1", "object": "customer"})

	result, err := svc.HandleEvent(context.Background(), payload, header)
	require.NoError(t, err)
	assert.True(t, result.Ignored)
	assert.Empty(t, reconciler.updates)
	assert.Empty(t, store.keys)
}

func TestHandleEventRejectsBadSignature(t *testing.T) {
	svc, reconciler, _ := newService(t)
	payload, _ := signedEvent(t, "evt_6", "payment_intent.succeeded", map[string]any{
		"id": "pi_6", "object": "payment_intent", "status": "succeeded",
	})

	_, err := svc.HandleEvent(context.Background(), payload, "t=1,v1=deadbeef")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.HandleEvent(context.Background(), payload, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, reconciler.updates)
}
