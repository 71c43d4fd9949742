// Package resend delivers messages through the Resend HTTP API.
package resend

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/resend/resend-go/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pure-golang/emails/logger"
	"github.com/pure-golang/emails/mail"
)

var tracer = otel.Tracer("github.com/pure-golang/emails/mail/resend")

var _ mail.Sender = (*Sender)(nil)

type Config struct {
	APIKey string `envconfig:"RESEND_API_KEY" required:"true"`
	From   string `envconfig:"RESEND_FROM"`
}

// emailsAPI is the part of resend.EmailsSvc the Sender uses.
type emailsAPI interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type Sender struct {
	api    emailsAPI
	from   string
	logger *slog.Logger

	mx     sync.Mutex
	closed bool
}

type SenderOptions struct {
	Logger *slog.Logger
}

func NewSender(cfg Config, options *SenderOptions) (*Sender, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("resend api key is required")
	}
	if options == nil {
		options = &SenderOptions{}
	}
	return newSender(resend.NewClient(cfg.APIKey).Emails, cfg.From, options.Logger), nil
}

func newSender(api emailsAPI, from string, l *slog.Logger) *Sender {
	return &Sender{
		api:    api,
		from:   from,
		logger: logger.Named(l, "resend"),
	}
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
	ctx, span := tracer.Start(ctx, "Resend.Send", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	req, err := s.request(email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(
		attribute.String("resend.from", req.From),
		attribute.Int("resend.to_count", len(req.To)),
		attribute.Int("resend.attachments", len(req.Attachments)),
	)

	resp, err := s.api.SendWithContext(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.Wrap(err, "resend send failed")
	}

	span.SetAttributes(attribute.String("resend.id", resp.Id))
	span.SetStatus(codes.Ok, "")
	s.logger.DebugContext(ctx, "email accepted", "id", resp.Id, "subject", email.Subject)
	return nil
}

func (s *Sender) request(email mail.Email) (*resend.SendEmailRequest, error) {
	if email.From.Address == "" {
		email.From.Address = s.from
	}
	if email.From.Address == "" {
		return nil, errors.New("no from address specified")
	}
	if len(email.Recipients()) == 0 {
		return nil, errors.New("no recipients specified")
	}

	req := &resend.SendEmailRequest{
		From:    email.From.String(),
		To:      formatList(email.To),
		Cc:      formatList(email.Cc),
		Bcc:     formatList(email.Bcc),
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Body,
		Headers: email.Headers,
	}
	if len(email.ReplyTo) > 0 {
		req.ReplyTo = email.ReplyTo[0].String()
	}

	for _, p := range email.Attachments {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "attachment %q", p)
		}
		req.Attachments = append(req.Attachments, &resend.Attachment{
			Content:  data,
			Filename: filepath.Base(p),
		})
	}
	return req, nil
}

func formatList(addrs []mail.Address) []string {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.String()
	}
	return out
}

func (s *Sender) Close() error {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.closed = true
	return nil
}
