// Package metrics exposes the email counters and the otel runtime metrics
// on a Prometheus scrape endpoint.
package metrics

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pure-golang/emails/logger"
)

type Config struct {
	Host        string        `envconfig:"METRICS_HOST" default:"0.0.0.0"`
	Port        int           `envconfig:"METRICS_PORT" default:"9090"`
	ReadTimeout time.Duration `envconfig:"METRICS_READ_TIMEOUT" default:"30s"`
}

// Metrics serves /metrics for the Prometheus default registry and a
// liveness probe on /healthz.
type Metrics struct {
	server *http.Server
	logger *slog.Logger
}

var _ io.Closer = (*Metrics)(nil)

// InitDefault installs the Prometheus meter provider and starts serving.
func InitDefault(config Config) (io.Closer, error) {
	m := New(config, nil)
	if err := m.Start(); err != nil {
		return nil, err
	}
	return m, nil
}

func New(config Config, l *slog.Logger) *Metrics {
	return &Metrics{
		server: NewHttpServer(config),
		logger: logger.Named(l, "metrics"),
	}
}

// Start binds the listen address and serves in the background.
func (s *Metrics) Start() error {
	if err := InitPrometheus(); err != nil {
		return errors.Wrap(err, "failed to init prometheus")
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.server.Addr)
	}
	s.logger.Info("metrics server starting", "addr", ln.Addr().String())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("metrics server failed", "error", err.Error())
		}
	}()
	return nil
}

func (s *Metrics) Close() error {
	return errors.Wrap(s.server.Close(), "failed to close metrics")
}

func NewHttpServer(conf Config) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", conf.Host, conf.Port),
		Handler:           mux,
		ReadTimeout:       conf.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
