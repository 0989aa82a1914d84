// Package idempotency claims event ids in Redis so consumers and webhooks
// handle each delivery at most once within a TTL.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/peakrent/peakrent-backend/pkg/redis"
)

const processedScopePrefix = "evt:processed:"

// Guard claims ids within a single scope. Claimed keys live under
// pr:idempotency:<scope>:<id> until the TTL lapses or Release is called.
type Guard struct {
	store redis.IdempotencyStore
	scope string
	ttl   time.Duration
}

func NewGuard(store redis.IdempotencyStore, scope string, ttl time.Duration) (*Guard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return nil, errors.New("idempotency scope is required")
	}
	if ttl <= 0 {
		return nil, errors.New("idempotency ttl must be positive")
	}
	return &Guard{store: store, scope: scope, ttl: ttl}, nil
}

// ConsumerGuard scopes a guard to the processed events of one consumer.
func ConsumerGuard(store redis.IdempotencyStore, consumer string, ttl time.Duration) (*Guard, error) {
	if strings.TrimSpace(consumer) == "" {
		return nil, errors.New("consumer name is required")
	}
	return NewGuard(store, processedScopePrefix+consumer, ttl)
}

func (g *Guard) Scope() string { return g.scope }

// Claim reports whether the caller is the first to see id. A false result
// with a nil error means another delivery already claimed it.
func (g *Guard) Claim(ctx context.Context, id string) (bool, error) {
	key, err := g.key(id)
	if err != nil {
		return false, err
	}
	claimed, err := g.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), g.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return claimed, nil
}

// Release drops a claim so a redelivery of id is handled again.
func (g *Guard) Release(ctx context.Context, id string) error {
	key, err := g.key(id)
	if err != nil {
		return err
	}
	if err := g.store.Del(ctx, key); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

func (g *Guard) key(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("idempotency id is required")
	}
	return g.store.IdempotencyKey(g.scope, id), nil
}
