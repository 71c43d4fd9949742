package minio

import (
	"net/http"

	"github.com/minio/minio-go/v7"

	"github.com/pure-golang/emails/storage"
)

// toStorageError classifies err by the S3 error response it carries.
func toStorageError(err error, bucket, key string) error {
	if err == nil {
		return nil
	}
	return &storage.Error{
		Code:   classify(err),
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}
}

func classify(err error) storage.ErrorCode {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchBucket":
		return storage.CodeBucketNotFound
	case "NoSuchKey", "NotFound":
		return storage.CodeNotFound
	case "AccessDenied":
		return storage.CodeAccessDenied
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return storage.CodeNotFound
	case http.StatusForbidden:
		return storage.CodeAccessDenied
	}
	return storage.CodeInternalError
}
