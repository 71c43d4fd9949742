package logger

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/pure-golang/emails/logger/devslog"
	"github.com/pure-golang/emails/logger/noop"
	"github.com/pure-golang/emails/logger/stdjson"
)

type Level string
type Provider string
type contextKeyT string

var contextKey = contextKeyT("github.com/pure-golang/emails/logger")

const (
	INFO  Level = "info"
	ERROR Level = "error"
	WARN  Level = "warn"
	DEBUG Level = "debug"

	ProviderDevSlog Provider = "dev"      // for dev
	ProviderStdJson Provider = "std_json" // for production
	ProviderNoop    Provider = "noop"     // for unit tests
)

// Config selects the handler. Service, when set, is attached to every
// record so mail logs can be told apart in a shared sink.
type Config struct {
	Provider Provider `envconfig:"LOG_PROVIDER" default:"std_json"`
	Level    Level    `envconfig:"LOG_LEVEL" default:"info"`
	Service  string   `envconfig:"LOG_SERVICE" default:"emails"`
}

// NewDefault builds the slog.Logger described by c.
func NewDefault(c Config) *slog.Logger {
	var l *slog.Logger
	switch c.Provider {
	case ProviderNoop:
		return noop.NewNoop()
	case ProviderDevSlog:
		l = devslog.NewDefault(convertLevel(c.Level))
	default:
		l = stdjson.NewDefault(convertLevel(c.Level))
	}
	return withService(l, c.Service)
}

func withService(l *slog.Logger, service string) *slog.Logger {
	if service == "" {
		return l
	}
	return l.With("service", service)
}

// InitDefault installs NewDefault(c) as slog.Default and routes otel
// exporter errors through it.
func InitDefault(c Config) {
	slog.SetDefault(NewDefault(c))
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		WithErr(err).Warn("telemetry export failed")
	}))
}

// Named returns base (slog.Default when nil) grouped under name.
// Every component of the module logs through a named logger.
func Named(base *slog.Logger, name string) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	return base.WithGroup(name)
}

// FromContext extracts logger from context or returns default.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(contextKey).(*slog.Logger); ok {
		return l
	}

	return slog.Default()
}

// NewContext packs logger into context.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey, l)
}

// WithErr returns the default logger with err attached.
func WithErr(err error) *slog.Logger {
	return appendErr(slog.Default(), err)
}

// FromContextWithErr returns the context logger with err and, for
// pkg/errors values, its stack attached.
func FromContextWithErr(ctx context.Context, err error) *slog.Logger {
	return appendErr(FromContext(ctx), err)
}

func appendErr(l *slog.Logger, err error) *slog.Logger {
	var stackTracer interface {
		StackTrace() errors.StackTrace
	}

	if errors.As(err, &stackTracer) {
		l = l.With("stack", stackTracer.StackTrace())
	}

	return l.With("error", err.Error())
}

func convertLevel(level Level) slog.Level {
	switch level {
	case INFO:
		return slog.LevelInfo
	case ERROR:
		return slog.LevelError
	case WARN:
		return slog.LevelWarn
	case DEBUG:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
