// Package sendmail delivers messages by piping them to a local
// sendmail-compatible binary.
package sendmail

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/pure-golang/emails/executor"
	"github.com/pure-golang/emails/executor/cli"
	"github.com/pure-golang/emails/logger"
	"github.com/pure-golang/emails/mail"
	"github.com/pure-golang/emails/mail/mime"
)

var tracer = otel.Tracer("github.com/pure-golang/emails/mail/sendmail")

var _ mail.Sender = (*Sender)(nil)

type Config struct {
	Path    string        `envconfig:"SENDMAIL_PATH" default:"/usr/sbin/sendmail"`
	From    string        `envconfig:"SENDMAIL_FROM"`
	Timeout time.Duration `envconfig:"SENDMAIL_TIMEOUT" default:"30s"`
}

// Sender runs "sendmail -t -i" once per message.
type Sender struct {
	exec   executor.Executor
	from   string
	logger *slog.Logger

	mx     sync.Mutex
	closed bool
}

type SenderOptions struct {
	// Executor overrides the command runner built from Config.
	Executor executor.Executor
	Logger   *slog.Logger
}

func NewSender(cfg Config, options *SenderOptions) (*Sender, error) {
	if options == nil {
		options = &SenderOptions{}
	}

	exec := options.Executor
	if exec == nil {
		c := cli.New(cli.Config{Command: cfg.Path, Timeout: cfg.Timeout})
		if err := c.Start(); err != nil {
			return nil, errors.Wrap(err, "sendmail is not available")
		}
		exec = c
	}

	return &Sender{
		exec:   exec,
		from:   cfg.From,
		logger: logger.Named(options.Logger, "sendmail"),
	}, nil
}

func (s *Sender) Send(ctx context.Context, emails ...mail.Email) error {
	s.mx.Lock()
	closed := s.closed
	s.mx.Unlock()
	if closed {
		return errors.New("sender is closed")
	}

	for _, email := range emails {
		if err := s.send(ctx, email); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sender) send(ctx context.Context, email mail.Email) error {
	ctx, span := tracer.Start(ctx, "Sendmail.Send")
	defer span.End()

	if email.From.Address == "" {
		email.From.Address = s.from
	}
	if email.From.Address == "" {
		span.SetStatus(codes.Error, "no from address")
		return errors.New("no from address specified")
	}
	if len(email.Recipients()) == 0 {
		span.SetStatus(codes.Error, "no recipients")
		return errors.New("no recipients specified")
	}
	span.SetAttributes(
		attribute.String("sendmail.from", email.From.Address),
		attribute.Int("sendmail.recipients", len(email.Recipients())),
	)

	raw, err := mime.Render(email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to render message")
		return errors.Wrap(err, "failed to render message")
	}

	if _, err := s.exec.Execute(ctx, bytes.NewReader(raw), "-t", "-i", "-f", email.From.Address); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.Wrap(err, "failed to send email")
	}

	s.logger.DebugContext(ctx, "email piped to sendmail", "subject", email.Subject, "size", len(raw))
	span.SetStatus(codes.Ok, "")
	return nil
}

// Close closes the underlying executor. Safe to call twice.
func (s *Sender) Close() error {
	s.mx.Lock()
	defer s.mx.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.exec.Close()
}
