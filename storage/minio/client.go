package minio

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

// Client wraps minio.Client and verifies the default bucket on startup.
type Client struct {
	client *minio.Client
	cfg    Config
	logger *slog.Logger
	mu     sync.RWMutex
	closed bool
}

// ClientOptions contains options for client creation.
type ClientOptions struct {
	Logger *slog.Logger
	// CreateBucket creates DefaultBucket when it does not exist.
	CreateBucket bool
}

// NewClient connects to the endpoint and checks that DefaultBucket is reachable.
func NewClient(ctx context.Context, cfg Config, options *ClientOptions) (*Client, error) {
	if options == nil {
		options = &ClientOptions{}
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	logger := options.Logger.WithGroup("s3")

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Region: cfg.Region,
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create S3 client")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if cfg.DefaultBucket != "" {
		ok, err := client.BucketExists(ctx, cfg.DefaultBucket)
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to S3 storage")
		}
		if !ok {
			if !options.CreateBucket {
				return nil, errors.Errorf("bucket %q does not exist", cfg.DefaultBucket)
			}
			if err := client.MakeBucket(ctx, cfg.DefaultBucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
				return nil, errors.Wrapf(err, "failed to create bucket %q", cfg.DefaultBucket)
			}
			logger.Info("bucket created", "bucket", cfg.DefaultBucket)
		}
	}

	logger.Info("S3 client initialized", "endpoint", cfg.Endpoint, "bucket", cfg.DefaultBucket)

	return &Client{
		client: client,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Close marks the client closed. minio-go keeps no persistent connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.logger.Info("S3 client closed")
	return nil
}

func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
