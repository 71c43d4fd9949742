// Command emailctl sends templated emails and runs the mail service
// processes.
//
//	emailctl send -to a@b.com -subject "Hi" -template welcome -arg name=Ann
//	emailctl serve               # HTTP send API
//	emailctl relay               # deliver queued outbox envelopes
//	emailctl templates push -dir ./overrides
//
// Configuration comes from the environment and .env.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	"github.com/pure-golang/emails/env"
	"github.com/pure-golang/emails/logger"
	"github.com/pure-golang/emails/metrics"
	"github.com/pure-golang/emails/tracing"
	"github.com/pure-golang/emails/tracing/jaeger"
)

const usage = `usage: emailctl <command> [flags]

commands:
  send             render and send one email
  serve            run the HTTP send API
  relay            deliver envelopes queued by the outbox provider
  templates push   upload template overrides to the templates bucket
`

type observabilityConfig struct {
	Metrics bool   `envconfig:"METRICS_ENABLED" default:"false"`
	Tracing string `envconfig:"TRACING_ENDPOINT"`
}

type command func(ctx context.Context, args []string) error

var commands = map[string]command{
	"send":      runSend,
	"serve":     runServe,
	"relay":     runRelay,
	"templates": runTemplates,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	var lcfg logger.Config
	env.MustInitConfig(&lcfg)
	logger.InitDefault(lcfg)

	closers, err := initObservability()
	if err != nil {
		slog.Default().Warn("observability disabled", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = cmd(ctx, os.Args[2:])
	stop()

	for i := len(closers) - 1; i >= 0; i-- {
		if cerr := closers[i].Close(); cerr != nil {
			slog.Default().Warn("failed to close", "error", cerr.Error())
		}
	}

	if err != nil {
		logger.WithErr(err).Error("emailctl failed", "command", os.Args[1])
		os.Exit(1)
	}
}

// initObservability starts tracing when TRACING_ENDPOINT is set and the
// metrics endpoint when METRICS_ENABLED is true.
func initObservability() ([]io.Closer, error) {
	var cfg observabilityConfig
	if err := env.InitConfig(&cfg); err != nil {
		return nil, err
	}

	var closers []io.Closer
	if cfg.Tracing != "" {
		var jcfg jaeger.Config
		if err := env.InitConfig(&jcfg); err != nil {
			return closers, errors.Wrap(err, "failed to init tracing config")
		}
		provider, err := tracing.Init(jaeger.NewProviderBuilder(jcfg))
		if err != nil {
			return closers, err
		}
		closers = append(closers, provider)
	}

	if cfg.Metrics {
		var mcfg metrics.Config
		if err := env.InitConfig(&mcfg); err != nil {
			return closers, errors.Wrap(err, "failed to init metrics config")
		}
		m, err := metrics.InitDefault(mcfg)
		if err != nil {
			return closers, err
		}
		closers = append(closers, m)
	}
	return closers, nil
}
