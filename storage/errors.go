package storage

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotFound       = errors.New("object not found")
	ErrAccessDenied   = errors.New("access denied")
	ErrBucketNotFound = errors.New("bucket not found")
)

// ErrorCode classifies a storage failure.
type ErrorCode string

const (
	CodeNotFound       ErrorCode = "NotFound"
	CodeAccessDenied   ErrorCode = "AccessDenied"
	CodeBucketNotFound ErrorCode = "BucketNotFound"
	CodeInternalError  ErrorCode = "InternalError"
)

// Error is a classified failure for one object.
type Error struct {
	Code   ErrorCode
	Bucket string
	Key    string
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("storage %s: %s/%s", e.Code, e.Bucket, e.Key)
	}
	return fmt.Sprintf("storage %s: %s/%s: %v", e.Code, e.Bucket, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode, sentinel error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return errors.Is(err, sentinel)
}

func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound, ErrNotFound)
}

func IsAccessDenied(err error) bool {
	return hasCode(err, CodeAccessDenied, ErrAccessDenied)
}

func IsBucketNotFound(err error) bool {
	return hasCode(err, CodeBucketNotFound, ErrBucketNotFound)
}
