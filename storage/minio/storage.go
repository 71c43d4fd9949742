package minio

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pure-golang/emails/storage"
)

var _ storage.Storage = (*Storage)(nil)

var tracer = otel.Tracer("github.com/pure-golang/emails/storage/minio")

// Storage implements storage.Storage on an S3-compatible endpoint.
type Storage struct {
	client *Client
	logger *slog.Logger
}

// StorageOptions contains options for Storage creation.
type StorageOptions struct {
	Logger *slog.Logger
}

func NewStorage(client *Client, opts *StorageOptions) *Storage {
	if opts == nil {
		opts = &StorageOptions{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Storage{
		client: client,
		logger: opts.Logger.WithGroup("storage").With("backend", "s3"),
	}
}

// NewDefault connects with cfg and wraps the client.
func NewDefault(ctx context.Context, cfg Config) (*Storage, error) {
	client, err := NewClient(ctx, cfg, nil)
	if err != nil {
		return nil, err
	}
	return NewStorage(client, nil), nil
}

func (s *Storage) start(ctx context.Context, op, bucket, key string) (context.Context, trace.Span, string) {
	if bucket == "" {
		bucket = s.client.cfg.DefaultBucket
	}
	ctx, span := tracer.Start(ctx, "S3."+op, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("bucket", bucket),
		attribute.String("key", key),
	)
	return ctx, span, bucket
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *Storage) raw() (*minio.Client, error) {
	if s.client == nil || s.client.client == nil || s.client.IsClosed() {
		return nil, &storage.Error{Code: storage.CodeInternalError, Err: errors.New("S3 client is closed")}
	}
	return s.client.client, nil
}

func (s *Storage) Put(ctx context.Context, bucket, key string, reader io.Reader, opts *storage.PutOptions) error {
	ctx, span, bucket := s.start(ctx, "Put", bucket, key)
	defer span.End()

	if opts == nil {
		opts = &storage.PutOptions{}
	}
	client, err := s.raw()
	if err != nil {
		return fail(span, err)
	}

	info, err := client.PutObject(ctx, bucket, key, reader, -1, minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		UserMetadata: opts.Metadata,
	})
	if err != nil {
		return fail(span, errors.Wrapf(err, "failed to put object %s/%s", bucket, key))
	}

	span.SetAttributes(attribute.Int64("size", info.Size))
	span.SetStatus(codes.Ok, "")
	s.logger.Debug("object stored", "bucket", bucket, "key", key, "size", info.Size)
	return nil
}

func (s *Storage) Get(ctx context.Context, bucket, key string) (io.ReadCloser, *storage.ObjectInfo, error) {
	ctx, span, bucket := s.start(ctx, "Get", bucket, key)
	defer span.End()

	client, err := s.raw()
	if err != nil {
		return nil, nil, fail(span, err)
	}

	obj, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, fail(span, toStorageError(err, bucket, key))
	}

	// GetObject is lazy; Stat surfaces NoSuchKey.
	stat, err := obj.Stat()
	if err != nil {
		if closeErr := obj.Close(); closeErr != nil {
			s.logger.Error("failed to close object after stat error", "error", closeErr)
		}
		return nil, nil, fail(span, toStorageError(err, bucket, key))
	}

	span.SetAttributes(attribute.Int64("size", stat.Size))
	span.SetStatus(codes.Ok, "")
	return obj, &storage.ObjectInfo{
		Key:          key,
		Size:         stat.Size,
		LastModified: stat.LastModified,
		ETag:         stat.ETag,
		ContentType:  stat.ContentType,
	}, nil
}

func (s *Storage) Delete(ctx context.Context, bucket, key string) error {
	ctx, span, bucket := s.start(ctx, "Delete", bucket, key)
	defer span.End()

	client, err := s.raw()
	if err != nil {
		return fail(span, err)
	}
	if err := client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fail(span, toStorageError(err, bucket, key))
	}

	span.SetStatus(codes.Ok, "")
	s.logger.Debug("object deleted", "bucket", bucket, "key", key)
	return nil
}

func (s *Storage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	ctx, span, bucket := s.start(ctx, "Exists", bucket, key)
	defer span.End()

	client, err := s.raw()
	if err != nil {
		return false, fail(span, err)
	}

	if _, err := client.StatObject(ctx, bucket, key, minio.StatObjectOptions{}); err != nil {
		if classify(err) == storage.CodeNotFound {
			span.SetStatus(codes.Ok, "")
			return false, nil
		}
		return false, fail(span, toStorageError(err, bucket, key))
	}

	span.SetStatus(codes.Ok, "")
	return true, nil
}

func (s *Storage) List(ctx context.Context, bucket string, opts *storage.ListOptions) ([]storage.ObjectInfo, error) {
	if opts == nil {
		opts = &storage.ListOptions{}
	}
	ctx, span, bucket := s.start(ctx, "List", bucket, opts.Prefix)
	defer span.End()

	client, err := s.raw()
	if err != nil {
		return nil, fail(span, err)
	}

	var objects []storage.ObjectInfo
	for object := range client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    opts.Prefix,
		Recursive: opts.Recursive,
	}) {
		if object.Err != nil {
			return nil, fail(span, errors.Wrap(object.Err, "failed to list objects"))
		}
		// directory markers
		if strings.HasSuffix(object.Key, "/") && object.Size == 0 {
			continue
		}
		objects = append(objects, storage.ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ETag:         object.ETag,
			ContentType:  object.ContentType,
		})
	}

	span.SetAttributes(attribute.Int("object_count", len(objects)))
	span.SetStatus(codes.Ok, "")
	return objects, nil
}

func (s *Storage) Close() error {
	return s.client.Close()
}
