package templates

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"time"

	"github.com/pkg/errors"

	"github.com/pure-golang/emails/kv"
	"github.com/pure-golang/emails/logger"
	"github.com/pure-golang/emails/storage"
)

var (
	_ Loader = (*FSLoader)(nil)
	_ Loader = (*StorageLoader)(nil)
	_ Loader = (*CachedLoader)(nil)
	_ Loader = ChainLoader(nil)
)

// FSLoader reads templates from a file system, e.g. os.DirFS or Defaults.
type FSLoader struct {
	fsys fs.FS
}

func NewFSLoader(fsys fs.FS) *FSLoader {
	return &FSLoader{fsys: fsys}
}

func (l *FSLoader) Load(_ context.Context, name string) ([]byte, error) {
	b, err := fs.ReadFile(l.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(ErrTemplateNotFound, name)
	}
	return b, errors.Wrapf(err, "failed to read template %q", name)
}

// StorageLoader reads templates from an object storage bucket under prefix.
type StorageLoader struct {
	st     storage.Storage
	bucket string
	prefix string
}

func NewStorageLoader(st storage.Storage, bucket, prefix string) *StorageLoader {
	return &StorageLoader{st: st, bucket: bucket, prefix: prefix}
}

func (l *StorageLoader) Load(ctx context.Context, name string) ([]byte, error) {
	key := path.Join(l.prefix, name)
	rc, _, err := l.st.Get(ctx, l.bucket, key)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, errors.Wrap(ErrTemplateNotFound, key)
		}
		return nil, errors.Wrapf(err, "failed to get template %q", key)
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	return b, errors.Wrapf(err, "failed to read template %q", key)
}

// CachedLoader keeps template sources in a key-value store for ttl.
// Store failures are treated as misses so a cache outage never blocks rendering.
type CachedLoader struct {
	store  kv.Store
	next   Loader
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// CachedLoaderOptions contains options for CachedLoader creation.
type CachedLoaderOptions struct {
	Prefix string // key prefix, "emails:tpl:" by default
	Logger *slog.Logger
}

func NewCachedLoader(store kv.Store, next Loader, ttl time.Duration, opts *CachedLoaderOptions) *CachedLoader {
	if opts == nil {
		opts = &CachedLoaderOptions{}
	}
	if opts.Prefix == "" {
		opts.Prefix = "emails:tpl:"
	}
	return &CachedLoader{
		store:  store,
		next:   next,
		ttl:    ttl,
		prefix: opts.Prefix,
		logger: logger.Named(opts.Logger, "template_cache"),
	}
}

func (l *CachedLoader) Load(ctx context.Context, name string) ([]byte, error) {
	key := l.prefix + name
	if val, err := l.store.Get(ctx, key); err == nil && val != "" {
		return []byte(val), nil
	}

	b, err := l.next.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := l.store.Set(ctx, key, string(b), l.ttl); err != nil {
		l.logger.Warn("failed to cache template", "key", key, "error", err)
	}
	return b, nil
}

// Invalidate drops cached sources for names.
func (l *CachedLoader) Invalidate(ctx context.Context, names ...string) error {
	keys := make([]string, 0, len(names))
	for _, n := range names {
		keys = append(keys, l.prefix+n)
	}
	return errors.Wrap(l.store.Delete(ctx, keys...), "failed to invalidate templates")
}

// ChainLoader tries loaders in order; the first hit wins.
// Overrides go first, embedded defaults last.
type ChainLoader []Loader

func (c ChainLoader) Load(ctx context.Context, name string) ([]byte, error) {
	var firstErr error
	for _, l := range c {
		b, err := l.Load(ctx, name)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, ErrTemplateNotFound) {
			logger.FromContext(ctx).Warn("template loader failed, trying next", "template", name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, errors.Wrap(ErrTemplateNotFound, name)
}
