package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/merchdrop-backend/pkg/instance"
)

const defaultLockTTL = 50 * time.Minute

// Lock keeps scheduled cycles from overlapping across worker replicas.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock is a SET NX lease whose value names the holding instance, so a
// stuck lock can be traced back to a dyno from redis-cli.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	held  string
	owner func() string
}

func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, errors.New("redis client required for lock")
	case key == "":
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{
		store: store,
		key:   key,
		ttl:   ttl,
		owner: func() string { return instance.GetID() + "/" + uuid.NewString() },
	}, nil
}

// Holder reports the owner token of the current lease, if this process holds it.
func (l *RedisLock) Holder() string {
	return l.held
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := l.owner()
	ok, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if ok {
		l.held = token
	}
	return ok, nil
}

// Release deletes the lease only while it still carries our token; an expired
// lease picked up by another replica is left alone.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.held == "" {
		return nil
	}
	defer func() { l.held = "" }()

	current, err := l.store.Get(ctx, l.key)
	switch {
	case errors.Is(err, redis.Nil):
		return nil
	case err != nil:
		return fmt.Errorf("read %s owner: %w", l.key, err)
	case current != l.held:
		return nil
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
