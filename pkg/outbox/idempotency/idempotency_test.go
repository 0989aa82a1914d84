package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	values map[string]time.Duration
	err    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]time.Duration{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	return "", nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = ttl
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "pr:idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func TestConsumerGuardClaimsOnce(t *testing.T) {
	store := newMemoryStore()
	guard, err := ConsumerGuard(store, "order-emails", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "evt:processed:order-emails", guard.Scope())

	ctx := context.Background()
	claimed, err := guard.Claim(ctx, "f47ac10b-58cc-4372-a567-0e02b2c3d479")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, 24*time.Hour, store.values["pr:idempotency:evt:processed:order-emails:f47ac10b-58cc-4372-a567-0e02b2c3d479"])

	claimed, err = guard.Claim(ctx, "f47ac10b-58cc-4372-a567-0e02b2c3d479")
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestReleaseAllowsReclaim(t *testing.T) {
	guard, err := NewGuard(newMemoryStore(), "stripe-webhook", time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	claimed, err := guard.Claim(ctx, "evt_1")
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, guard.Release(ctx, "evt_1"))

	claimed, err = guard.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestClaimSurfacesStoreErrors(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("redis down")
	guard, err := NewGuard(store, "stripe-webhook", time.Hour)
	require.NoError(t, err)

	_, err = guard.Claim(context.Background(), "evt_1")
	assert.ErrorIs(t, err, store.err)
}

func TestGuardValidation(t *testing.T) {
	_, err := NewGuard(nil, "scope", time.Hour)
	assert.Error(t, err)
	_, err = NewGuard(newMemoryStore(), " ", time.Hour)
	assert.Error(t, err)
	_, err = NewGuard(newMemoryStore(), "scope", 0)
	assert.Error(t, err)
	_, err = ConsumerGuard(newMemoryStore(), "", time.Hour)
	assert.Error(t, err)

	guard, err := NewGuard(newMemoryStore(), "scope", time.Hour)
	require.NoError(t, err)
	_, err = guard.Claim(context.Background(), "")
	assert.Error(t, err)
	assert.Error(t, guard.Release(context.Background(), ""))
}
