package minio

import (
	"net/http"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pure-golang/emails/storage"
)

func TestToStorageError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want storage.ErrorCode
	}{
		{"no such key", minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}, storage.CodeNotFound},
		{"no such bucket", minio.ErrorResponse{Code: "NoSuchBucket", StatusCode: http.StatusNotFound}, storage.CodeBucketNotFound},
		{"access denied", minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}, storage.CodeAccessDenied},
		{"bare 404", minio.ErrorResponse{StatusCode: http.StatusNotFound}, storage.CodeNotFound},
		{"other", errors.New("connection reset"), storage.CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := toStorageError(tt.err, "b", "k")
			var se *storage.Error
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.want, se.Code)
			assert.Equal(t, "b", se.Bucket)
			assert.Equal(t, "k", se.Key)
		})
	}
}

func TestToStorageError_Nil(t *testing.T) {
	assert.NoError(t, toStorageError(nil, "b", "k"))
}

func TestStorage_ClosedClient(t *testing.T) {
	c := &Client{cfg: Config{DefaultBucket: "tpl"}, logger: discardLogger()}
	s := NewStorage(c, nil)
	require.NoError(t, s.Close())

	_, _, err := s.Get(t.Context(), "", "emails/x.html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}
