package smtp

import (
	"context"
	"crypto/tls"
	"log/slog"
	"sync"

	"github.com/pkg/errors"
	gomail "github.com/wneessen/go-mail"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pure-golang/emails/logger"
	"github.com/pure-golang/emails/mail"
	"github.com/pure-golang/emails/mail/mime"
)

var tracer = otel.Tracer("github.com/pure-golang/emails/mail/smtp")

var _ mail.Sender = (*Sender)(nil)

// Sender implements mail.Sender over SMTP.
type Sender struct {
	mx     sync.Mutex
	cfg    Config
	client *gomail.Client
	logger *slog.Logger
	closed bool
}

// SenderOptions contains options for creating a Sender.
type SenderOptions struct {
	Logger *slog.Logger
}

// NewSender creates a new SMTP Sender. No connection is made until Send.
func NewSender(cfg Config, options *SenderOptions) (*Sender, error) {
	if options == nil {
		options = &SenderOptions{}
	}

	policy, err := cfg.tlsPolicy()
	if err != nil {
		return nil, err
	}

	opts := []gomail.Option{
		gomail.WithTLSPortPolicy(policy),
		gomail.WithPort(cfg.Port),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, gomail.WithTimeout(cfg.Timeout))
	}
	if cfg.SSL {
		opts = append(opts, gomail.WithSSL())
	}
	if cfg.Insecure {
		opts = append(opts, gomail.WithTLSConfig(&tls.Config{
			ServerName:         cfg.Host,
			InsecureSkipVerify: true, // #nosec G402 -- controlled by config
		}))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create smtp client")
	}

	return &Sender{
		cfg:    cfg,
		client: client,
		logger: logger.Named(options.Logger, "smtp"),
	}, nil
}

// Send delivers emails over one connection.
func (s *Sender) Send(ctx context.Context, emails ...mail.Email) error {
	if len(emails) == 0 {
		return nil
	}

	ctx, span := tracer.Start(ctx, "SMTP.Send", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("smtp.host", s.cfg.Host),
		attribute.Int("smtp.port", s.cfg.Port),
		attribute.String("smtp.tls_policy", s.cfg.TLSPolicy),
		attribute.Int("smtp.messages", len(emails)),
	)

	s.mx.Lock()
	defer s.mx.Unlock()

	if s.closed {
		span.SetStatus(codes.Error, "sender is closed")
		return errors.New("sender is closed")
	}

	msgs := make([]*gomail.Msg, 0, len(emails))
	for _, email := range emails {
		if email.From.Address == "" {
			email.From.Address = s.cfg.From
		}
		if email.From.Address == "" {
			span.SetStatus(codes.Error, "no from address")
			return errors.New("no from address specified")
		}
		if len(email.Recipients()) == 0 {
			span.SetStatus(codes.Error, "no recipients")
			return errors.New("no recipients specified")
		}

		msg, err := mime.Build(email)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to build message")
			return errors.Wrap(err, "failed to build message")
		}
		msgs = append(msgs, msg)
	}

	if err := s.client.DialAndSendWithContext(ctx, msgs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.Wrap(err, "failed to send email")
	}

	s.logger.DebugContext(ctx, "emails sent", "count", len(msgs), "host", s.cfg.Host)
	span.SetStatus(codes.Ok, "")
	return nil
}

// Close closes the sender.
func (s *Sender) Close() error {
	s.mx.Lock()
	defer s.mx.Unlock()

	s.closed = true
	return nil
}
