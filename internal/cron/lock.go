package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLockTTL = 10 * time.Minute

// Lock makes sure a single cron-worker instance runs a cycle at a time.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
	Holder(ctx context.Context) (string, error)
}

type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	DelIfEquals(ctx context.Context, key, value string) (bool, error)
}

// RedisLock is a SETNX lock whose value names the holding instance. The TTL
// bounds how long a crashed holder blocks the other instances.
type RedisLock struct {
	client   redisStore
	key      string
	ttl      time.Duration
	instance string
	owner    string
}

func NewRedisLock(client redisStore, key, instance string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if instance == "" {
		instance = "cron-worker"
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, key: key, ttl: ttl, instance: instance}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	owner := l.instance + "/" + uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

// Release deletes the key only while this lock still owns it, so a cycle
// that outlived its TTL cannot free a lock another instance took over.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	owner := l.owner
	l.owner = ""
	if _, err := l.client.DelIfEquals(ctx, l.key, owner); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// Holder returns the owner value currently stored, or "" when free.
func (l *RedisLock) Holder(ctx context.Context) (string, error) {
	value, err := l.client.Get(ctx, l.key)
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return value, err
}
