package std

import (
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	cfg := Config{Host: "127.0.0.1", Port: 8025, ReadTimeout: 5 * time.Second}
	s := New(cfg, http.NotFoundHandler(), nil)

	require.NotNil(t, s)
	assert.Equal(t, "127.0.0.1:8025", s.server.Addr)
	assert.Equal(t, 5*time.Second, s.server.ReadTimeout)
	assert.Equal(t, 10*time.Second, s.server.ReadHeaderTimeout)
	assert.NotNil(t, s.server.ErrorLog)
	assert.NotNil(t, s.logger)
}

func TestServer_ServeAndClose(t *testing.T) {
	s := New(Config{}, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong"))
	}), nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Serve(ln) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + ln.Addr().String())
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, "pong", string(body))

	require.NoError(t, s.Close())
	select {
	case err := <-done:
		assert.NoError(t, err, "closing is not a serve failure")
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Close")
	}
}

func TestServer_StartInvalidAddr(t *testing.T) {
	s := New(Config{Host: "256.0.0.1", Port: 1}, http.NotFoundHandler(), nil)
	assert.Error(t, s.Start())
}
