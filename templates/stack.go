package templates

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/pure-golang/emails/env"
	"github.com/pure-golang/emails/kv"
	"github.com/pure-golang/emails/storage"
	"github.com/pure-golang/emails/storage/minio"
)

// Config selects where template overrides come from. Embedded defaults are
// always consulted last.
type Config struct {
	Dir      string        `envconfig:"TEMPLATES_DIR"`    // local override directory
	Bucket   string        `envconfig:"TEMPLATES_BUCKET"` // object storage overrides, S3_* settings
	Prefix   string        `envconfig:"TEMPLATES_PREFIX"` // key prefix inside Bucket
	CacheTTL time.Duration `envconfig:"TEMPLATES_CACHE_TTL" default:"5m"`
}

// Stack is a Registry together with the backends its loaders use.
type Stack struct {
	Registry *Registry

	// Storage and Cache are nil unless a bucket is configured.
	Storage storage.Storage
	Cache   *CachedLoader
	Bucket  string
	Prefix  string

	closers []io.Closer
}

// StackOptions contains options for Stack creation.
type StackOptions struct {
	Logger *slog.Logger
	// Storage and Store replace the backends built from the environment.
	Storage storage.Storage
	Store   kv.Store
}

// NewDefaultStack reads Config from the environment.
func NewDefaultStack(ctx context.Context, l *slog.Logger) (*Stack, error) {
	var cfg Config
	if err := env.InitConfig(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to init templates config")
	}
	return NewStack(ctx, cfg, &StackOptions{Logger: l})
}

// NewStack builds the loader chain: bucket (cached), then Dir, then Defaults.
func NewStack(ctx context.Context, cfg Config, opts *StackOptions) (*Stack, error) {
	if opts == nil {
		opts = &StackOptions{}
	}
	s := &Stack{Bucket: cfg.Bucket, Prefix: cfg.Prefix}

	var chain ChainLoader
	if cfg.Bucket != "" {
		st := opts.Storage
		if st == nil {
			var scfg minio.Config
			if err := env.InitConfig(&scfg); err != nil {
				return nil, errors.Wrap(err, "failed to init storage config")
			}
			client, err := minio.NewClient(ctx, scfg, &minio.ClientOptions{Logger: opts.Logger})
			if err != nil {
				return nil, err
			}
			st = minio.NewStorage(client, &minio.StorageOptions{Logger: opts.Logger})
			s.closers = append(s.closers, st)
		}

		store := opts.Store
		if store == nil {
			var err error
			if store, err = kv.NewDefault(ctx); err != nil {
				_ = s.Close()
				return nil, err
			}
			s.closers = append(s.closers, store)
		}

		s.Storage = st
		s.Cache = NewCachedLoader(store, NewStorageLoader(st, cfg.Bucket, cfg.Prefix), cfg.CacheTTL,
			&CachedLoaderOptions{Logger: opts.Logger})
		chain = append(chain, s.Cache)
	}
	if cfg.Dir != "" {
		chain = append(chain, NewFSLoader(os.DirFS(cfg.Dir)))
	}
	chain = append(chain, NewFSLoader(Defaults))

	s.Registry = NewRegistry(chain, &RegistryOptions{Logger: opts.Logger})
	return s, nil
}

// Close releases the backends created by NewStack.
func (s *Stack) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}
