package templates

import (
	"bytes"
	"context"
	"io/fs"
	"mime"
	"path"

	"github.com/pkg/errors"

	"github.com/pure-golang/emails/storage"
)

var ErrNoStorage = errors.New("templates bucket is not configured")

// Push uploads every regular file of fsys to the overrides bucket, keyed
// by its slash path under the stack prefix, and drops the cached copies.
// fsys uses the same layout as TEMPLATES_DIR, e.g. emails/welcome.html.
func (s *Stack) Push(ctx context.Context, fsys fs.FS) ([]string, error) {
	if s.Storage == nil {
		return nil, ErrNoStorage
	}

	var pushed []string
	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			return errors.Wrapf(err, "failed to read %q", name)
		}

		key := path.Join(s.Prefix, name)
		opts := &storage.PutOptions{ContentType: mime.TypeByExtension(path.Ext(name))}
		if err := s.Storage.Put(ctx, s.Bucket, key, bytes.NewReader(b), opts); err != nil {
			return errors.Wrapf(err, "failed to upload %q", key)
		}
		pushed = append(pushed, name)
		return nil
	})
	if err != nil {
		return pushed, err
	}

	if s.Cache != nil && len(pushed) > 0 {
		if err := s.Cache.Invalidate(ctx, pushed...); err != nil {
			return pushed, err
		}
	}
	return pushed, nil
}
