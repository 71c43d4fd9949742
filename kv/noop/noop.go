package noop

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrKeyNotFound is returned by every Get.
var ErrKeyNotFound = errors.New("key not found")

// Store keeps nothing: every Get misses and every write succeeds.
type Store struct{}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	return "", ErrKeyNotFound
}

func (s *Store) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}
