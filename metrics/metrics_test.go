package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveSend(t *testing.T) {
	sent := testutil.ToFloat64(emailsSent.WithLabelValues("html", StatusSent))
	failed := testutil.ToFloat64(emailsSent.WithLabelValues("html", StatusFailed))

	ObserveSend("html", nil, 10*time.Millisecond)
	ObserveSend("html", errors.New("smtp down"), time.Millisecond)

	assert.Equal(t, sent+1, testutil.ToFloat64(emailsSent.WithLabelValues("html", StatusSent)))
	assert.Equal(t, failed+1, testutil.ToFloat64(emailsSent.WithLabelValues("html", StatusFailed)))
}

func TestNewHttpServer(t *testing.T) {
	srv := NewHttpServer(Config{Host: "127.0.0.1", Port: 9999, ReadTimeout: 5 * time.Second})

	assert.Equal(t, "127.0.0.1:9999", srv.Addr)
	assert.Equal(t, 5*time.Second, srv.ReadTimeout)

	ObserveSend("plain", nil, time.Millisecond)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "emails_sent_total")
	assert.Contains(t, rec.Body.String(), "emails_send_duration_seconds")
}

func TestNewHttpServer_Healthz(t *testing.T) {
	srv := NewHttpServer(Config{})

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMetrics_StartClose(t *testing.T) {
	m := New(Config{Host: "127.0.0.1", Port: 0}, nil)
	require.NoError(t, m.Start())
	assert.NoError(t, m.Close())
}

func TestInitPrometheus_Idempotent(t *testing.T) {
	require.NoError(t, InitPrometheus())
	require.NoError(t, InitPrometheus())
}
