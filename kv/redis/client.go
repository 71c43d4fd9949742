package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	rclient "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/codes"

	"github.com/pure-golang/emails/logger"
)

// Client wraps a go-redis client with tracing and error wrapping.
type Client struct {
	rdb    *rclient.Client
	cfg    Config
	logger *slog.Logger
}

// Connect dials Redis and verifies the connection with PING.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	l := logger.Named(nil, "redis")
	l.Debug("connecting to redis", "addr", cfg.Addr)

	client := newClient(rclient.NewClient(&rclient.Options{
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		DB:              cfg.DB,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: cfg.MinRetryBackoff,
		MaxRetryBackoff: cfg.MaxRetryBackoff,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		PoolSize:        cfg.PoolSize,
	}), cfg, l)

	if err := client.Ping(ctx); err != nil {
		_ = client.rdb.Close()
		return nil, err
	}

	l.Info("connected to redis", "addr", cfg.Addr)
	return client, nil
}

func newClient(rdb *rclient.Client, cfg Config, l *slog.Logger) *Client {
	return &Client{rdb: rdb, cfg: cfg, logger: l}
}

// Close closes the connection pool. Closing twice is not an error.
func (c *Client) Close() error {
	if c.rdb == nil {
		return nil
	}

	if err := c.rdb.Close(); err != nil && !errors.Is(err, rclient.ErrClosed) {
		return errors.Wrap(err, "failed to close redis connection")
	}

	c.rdb = nil
	c.logger.Debug("redis connection closed")
	return nil
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := startSpan(ctx, "Ping", "", c.cfg.DB)
	defer span.End()

	err := c.rdb.Ping(ctx).Err()
	recordError(span, err)
	return errors.Wrap(err, "failed to ping redis")
}

// Get returns the value stored at key or ErrKeyNotFound.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	ctx, span := startSpan(ctx, "Get", key, c.cfg.DB)
	defer span.End()

	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, rclient.Nil) {
		// A miss is not a failure of the operation.
		span.SetStatus(codes.Ok, "miss")
		return "", ErrKeyNotFound
	}
	recordError(span, err)
	if err != nil {
		return "", errors.Wrapf(err, "failed to get key %q", key)
	}
	return val, nil
}

// Set stores value at key. Zero expiration keeps the key forever.
func (c *Client) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	ctx, span := startSpan(ctx, "Set", key, c.cfg.DB)
	defer span.End()

	err := c.rdb.Set(ctx, key, value, expiration).Err()
	recordError(span, err)
	return errors.Wrapf(err, "failed to set key %q", key)
}

// Delete removes keys.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	ctx, span := startSpan(ctx, "Delete", "", c.cfg.DB)
	defer span.End()

	err := c.rdb.Del(ctx, keys...).Err()
	recordError(span, err)
	return errors.Wrap(err, "failed to delete keys")
}
