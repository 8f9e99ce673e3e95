// Package redis holds the shared go-redis connection and the small set of
// key-value operations the API and cron worker rely on: idempotency records,
// rate-limit windows, admin sessions and the cron lease.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/merchdrop-backend/pkg/config"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
)

var errNotConnected = errors.New("redis client not initialized")

// ErrNil is returned by Get for a missing key.
var ErrNil = redis.Nil

// cmdable is the subset of go-redis commands in use; tests swap in a map.
type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	Incr(context.Context, string) *redis.IntCmd
	Expire(context.Context, string, time.Duration) *redis.BoolCmd
	Del(context.Context, ...string) *redis.IntCmd
	Exists(context.Context, ...string) *redis.IntCmd
}

type Client struct {
	store cmdable
	raw   *redis.Client
	keys  keyspace
	now   func() time.Time
}

// IdempotencyStore is what idempotency middleware and webhook dedupe need.
type IdempotencyStore interface {
	Get(context.Context, string) (string, error)
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(context.Context, ...string) error
}

// New dials redis and fails fast when the first ping does not answer.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"redis_addr": opts.Addr, "redis_db": opts.DB}), "redis.connected")
	}
	return newClient(raw, raw), nil
}

func newClient(store cmdable, raw *redis.Client) *Client {
	return &Client{store: store, raw: raw, keys: keyspace(defaultNamespace), now: time.Now}
}

// optionsFromConfig prefers MERCHDROP_REDIS_URL; pool and timeout settings
// fill whatever the URL left unset.
func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
		if opts.DB == 0 {
			opts.DB = cfg.DB
		}
	case cfg.Address != "":
		opts = &redis.Options{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB}
	default:
		return nil, errors.New("redis url or address is required")
	}

	fillInt(&opts.PoolSize, cfg.PoolSize)
	fillInt(&opts.MinIdleConns, cfg.MinIdleConns)
	fillDuration(&opts.DialTimeout, cfg.DialTimeout)
	fillDuration(&opts.ReadTimeout, cfg.ReadTimeout)
	fillDuration(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func fillInt(dst *int, v int) {
	if *dst == 0 {
		*dst = v
	}
}

func fillDuration(dst *time.Duration, v time.Duration) {
	if *dst == 0 {
		*dst = v
	}
}

// cmd returns the live command set, or one that fails every call with
// errNotConnected for a zero Client.
func (c *Client) cmd() cmdable {
	if c == nil || c.store == nil {
		return disconnected{}
	}
	return c.store
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return c.cmd().Set(ctx, key, value, ttl).Err()
}

// Get returns ErrNil when the key is absent.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.cmd().Get(ctx, key).Result()
}

func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	return c.cmd().SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.cmd().Del(ctx, keys...).Err()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.cmd().Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

type disconnected struct{}

func (disconnected) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("", errNotConnected)
}

func (disconnected) Set(context.Context, string, any, time.Duration) *redis.StatusCmd {
	return redis.NewStatusResult("", errNotConnected)
}

func (disconnected) Get(context.Context, string) *redis.StringCmd {
	return redis.NewStringResult("", errNotConnected)
}

func (disconnected) SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(false, errNotConnected)
}

func (disconnected) Incr(context.Context, string) *redis.IntCmd {
	return redis.NewIntResult(0, errNotConnected)
}

func (disconnected) Expire(context.Context, string, time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(false, errNotConnected)
}

func (disconnected) Del(context.Context, ...string) *redis.IntCmd {
	return redis.NewIntResult(0, errNotConnected)
}

func (disconnected) Exists(context.Context, ...string) *redis.IntCmd {
	return redis.NewIntResult(0, errNotConnected)
}
