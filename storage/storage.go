package storage

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
	ContentType  string
}

// PutOptions contains optional parameters for Put.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// ListOptions narrows List to keys under Prefix.
type ListOptions struct {
	Prefix    string
	Recursive bool
}

// Storage is the object store that holds template overrides.
// An empty bucket means the backend's default bucket.
type Storage interface {
	Put(ctx context.Context, bucket, key string, reader io.Reader, opts *PutOptions) error
	// Get returns an error satisfying IsNotFound when the key is absent.
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, *ObjectInfo, error)
	Delete(ctx context.Context, bucket, key string) error
	Exists(ctx context.Context, bucket, key string) (bool, error)
	List(ctx context.Context, bucket string, opts *ListOptions) ([]ObjectInfo, error)

	io.Closer
}
