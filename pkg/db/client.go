package db

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/merchdrop-backend/pkg/config"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
)

const connectBackoff = 500 * time.Millisecond

// Client owns the pooled gorm connection shared by repositories.
type Client struct {
	conn *gorm.DB
}

func dialectorFor(cfg config.DBConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "postgres":
		// simple protocol keeps pgbouncer in transaction mode happy
		return postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true}), nil
	case "sqlite":
		return sqlite.Open(cfg.DSN), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// New opens the pool and waits for the database to answer a ping, retrying
// with a fibonacci backoff up to cfg.ConnectRetries times.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 newQueryLogger(logg, cfg.SlowQuery),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialector.Name(), err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	setIfPositive(cfg.MaxOpenConns, sqlDB.SetMaxOpenConns)
	setIfPositive(cfg.MaxIdleConns, sqlDB.SetMaxIdleConns)
	setIfPositive(cfg.ConnMaxLifetime, sqlDB.SetConnMaxLifetime)
	setIfPositive(cfg.ConnMaxIdleTime, sqlDB.SetConnMaxIdleTime)

	attempts := 0
	backoff := retry.WithMaxRetries(cfg.ConnectRetries, retry.NewFibonacci(connectBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		if pingErr := sqlDB.PingContext(ctx); pingErr != nil {
			if logg != nil {
				logg.Warn(logg.WithFields(ctx, map[string]any{"attempt": attempts, "error": pingErr.Error()}), "db.connect.retry")
			}
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("reach %s after %d attempts: %w", dialector.Name(), attempts, err)
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"driver": dialector.Name(), "attempts": attempts}), "db.connected")
	}
	return &Client{conn: conn}, nil
}

func setIfPositive[T int | time.Duration](v T, set func(T)) {
	if v > 0 {
		set(v)
	}
}

// NewFromConn wraps a connection opened elsewhere, mostly by tests.
func NewFromConn(conn *gorm.DB) *Client {
	return &Client{conn: conn}
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx runs fn in a transaction. A returned error or a panic rolls back;
// the panic is re-raised after rollback.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}
