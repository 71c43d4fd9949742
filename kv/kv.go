package kv

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/pure-golang/emails/env"
	"github.com/pure-golang/emails/kv/noop"
	"github.com/pure-golang/emails/kv/redis"
)

// Provider selects the key-value backend.
type Provider string

const (
	ProviderRedis Provider = "redis"
	ProviderNoop  Provider = "noop" // caching disabled
)

// Config contains the key-value store configuration.
type Config struct {
	Provider Provider `envconfig:"KV_PROVIDER" default:"noop"`
	// Redis settings, used with ProviderRedis.
	RedisAddr         string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword     string        `envconfig:"REDIS_PASSWORD"`
	RedisDB           int           `envconfig:"REDIS_DB" default:"0"`
	RedisMaxRetries   int           `envconfig:"REDIS_MAX_RETRIES" default:"3"`
	RedisDialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	RedisReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s"`
	RedisWriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s"`
	RedisPoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
}

// Store is the subset of key-value operations the template cache relies on.
// Get returns an error when the key is missing.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*redis.Client)(nil)
	_ Store = (*noop.Store)(nil)
)

// New creates a Store for cfg.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Provider {
	case ProviderRedis:
		return redis.Connect(ctx, redis.Config{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			MaxRetries:   cfg.RedisMaxRetries,
			DialTimeout:  cfg.RedisDialTimeout,
			ReadTimeout:  cfg.RedisReadTimeout,
			WriteTimeout: cfg.RedisWriteTimeout,
			PoolSize:     cfg.RedisPoolSize,
		})
	case ProviderNoop, "":
		return noop.NewStore(), nil
	default:
		return nil, errors.Errorf("unknown kv provider: %s", cfg.Provider)
	}
}

// NewDefault creates a Store reading Config from the environment.
func NewDefault(ctx context.Context) (Store, error) {
	var cfg Config
	if err := env.InitConfig(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to init kv config")
	}
	return New(ctx, cfg)
}
