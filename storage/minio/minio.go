package minio

import "time"

// Config contains S3-compatible storage settings. Works with MinIO and AWS S3.
type Config struct {
	Endpoint      string        `envconfig:"S3_ENDPOINT" default:"localhost:9000"`
	AccessKey     string        `envconfig:"S3_ACCESS_KEY" required:"true"`
	SecretKey     string        `envconfig:"S3_SECRET_KEY" required:"true"`
	Region        string        `envconfig:"S3_REGION" default:"us-east-1"`
	DefaultBucket string        `envconfig:"S3_BUCKET" default:"email-templates"`
	Secure        bool          `envconfig:"S3_SECURE" default:"false"`
	Timeout       time.Duration `envconfig:"S3_TIMEOUT" default:"30s"`
}
