package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakrent/peakrent-backend/pkg/config"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryStore) AccessSessionKey(accessID string) string {
	return "session:access:" + accessID
}

func newTestManager(t *testing.T, store *memoryStore) *Manager {
	t.Helper()
	manager, err := NewManager(store, config.JWTConfig{ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60 * 24})
	require.NoError(t, err)
	return manager
}

func TestNewManagerRejectsShortRefreshTTL(t *testing.T) {
	_, err := NewManager(newMemoryStore(), config.JWTConfig{ExpirationMinutes: 60, RefreshTokenTTLMinutes: 30})
	require.Error(t, err)

	_, err = NewManager(nil, config.JWTConfig{ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60})
	require.Error(t, err)
}

func TestGenerateStoresDigestOnly(t *testing.T) {
	store := newMemoryStore()
	manager := newTestManager(t, store)

	token, err := manager.Generate(context.Background(), "access-1")
	require.NoError(t, err)

	stored := store.data[store.AccessSessionKey("access-1")]
	assert.NotEqual(t, token, stored)
	assert.Equal(t, digest(token), stored)
	assert.Equal(t, 24*time.Hour, store.ttls[store.AccessSessionKey("access-1")])
}

func TestRotateIsSingleUse(t *testing.T) {
	store := newMemoryStore()
	manager := newTestManager(t, store)
	ctx := context.Background()

	token, err := manager.Generate(ctx, "access-1")
	require.NoError(t, err)

	_, _, err = manager.Rotate(ctx, "access-1", "wrong")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	newID, newToken, err := manager.Rotate(ctx, "access-1", token)
	require.NoError(t, err)
	assert.NotEqual(t, "access-1", newID)
	assert.Equal(t, digest(newToken), store.data[store.AccessSessionKey(newID)])

	_, _, err = manager.Rotate(ctx, "access-1", token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestHasSessionAndRevoke(t *testing.T) {
	store := newMemoryStore()
	manager := newTestManager(t, store)
	ctx := context.Background()

	_, err := manager.Generate(ctx, "access-1")
	require.NoError(t, err)

	ok, err := manager.HasSession(ctx, "access-1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, manager.Revoke(ctx, "access-1"))
	ok, err = manager.HasSession(ctx, "access-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasSessionSurfacesStoreErrors(t *testing.T) {
	store := newMemoryStore()
	manager := newTestManager(t, store)
	store.err = errors.New("redis down")

	_, err := manager.HasSession(context.Background(), "access-1")
	require.Error(t, err)
}
