package std

import (
	"context"
	stdErr "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/pure-golang/emails/httpserver"
	"github.com/pure-golang/emails/logger"
)

const ShutdownTimeout = 15 * time.Second

var _ httpserver.RunableProvider = (*Server)(nil)

type Config struct {
	Host        string        `envconfig:"MAIL_API_HOST" default:"127.0.0.1"`
	Port        int           `envconfig:"MAIL_API_PORT" default:"8025"`
	TLSCertPath string        `envconfig:"MAIL_API_TLS_CERT_PATH"`
	TLSKeyPath  string        `envconfig:"MAIL_API_TLS_KEY_PATH"`
	ReadTimeout time.Duration `envconfig:"MAIL_API_READ_TIMEOUT" default:"30s"`
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type ServerOptions struct {
	Logger *slog.Logger
}

type Server struct {
	logger *slog.Logger
	server *http.Server
	config Config
}

func New(c Config, h http.Handler, opts *ServerOptions) *Server {
	if opts == nil {
		opts = &ServerOptions{}
	}
	l := logger.Named(opts.Logger, "mail-api")

	return &Server{
		server: &http.Server{
			Addr:              c.Addr(),
			Handler:           h,
			ReadTimeout:       c.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			ErrorLog:          slog.NewLogLogger(l.Handler(), slog.LevelError),
		},
		logger: l,
		config: c,
	}
}

// Start listens on the configured address and serves until Close.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.server.Addr)
	}
	return s.Serve(ln)
}

// Serve serves on ln, which is closed when serving stops.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("server starting", slog.String("addr", ln.Addr().String()))

	var err error
	if s.config.TLSCertPath == "" {
		err = s.server.Serve(ln)
	} else {
		err = s.server.ServeTLS(ln, s.config.TLSCertPath, s.config.TLSKeyPath)
	}

	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return errors.Wrap(err, "serve failed")
}

func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	err := s.server.Shutdown(ctx)
	if err != nil {
		err = stdErr.Join(err, errors.Wrap(s.server.Close(), "failed to close server"))
	}

	s.logger.Info("server closed")

	return errors.Wrap(err, "server shutdown failed")
}

func (s *Server) Run() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("mail api server crashed", "error", err.Error())
		}
	}()
}
