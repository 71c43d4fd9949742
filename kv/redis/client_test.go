package redis

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_withDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	assert.Equal(t, "localhost:6379", cfg.Addr)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
	assert.Equal(t, 10, cfg.PoolSize)
}

func TestConfig_withDefaults_KeepsExplicit(t *testing.T) {
	cfg := Config{Addr: "redis:6380", PoolSize: 2}.withDefaults()

	assert.Equal(t, "redis:6380", cfg.Addr)
	assert.Equal(t, 2, cfg.PoolSize)
}

func TestConnect_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Connect(ctx, Config{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping redis")
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(ErrKeyNotFound))
	assert.True(t, IsNotFound(errors.Wrap(ErrKeyNotFound, "get")))
	assert.False(t, IsNotFound(errors.New("other")))
}
