package outbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pure-golang/emails/logger"
	"github.com/pure-golang/emails/mail"
	"github.com/pure-golang/emails/queue"
)

// Relay forwards envelopes from a Subscriber to a Sender.
type Relay struct {
	sub    queue.Subscriber
	sender mail.Sender
	tmpDir string
	logger *slog.Logger
}

type RelayOptions struct {
	// TempDir is where attachments are written, os.TempDir by default.
	TempDir string
	Logger  *slog.Logger
}

func NewRelay(sub queue.Subscriber, sender mail.Sender, options *RelayOptions) *Relay {
	if options == nil {
		options = &RelayOptions{}
	}
	return &Relay{
		sub:    sub,
		sender: sender,
		tmpDir: options.TempDir,
		logger: logger.Named(options.Logger, "relay"),
	}
}

// Run blocks until Close.
func (r *Relay) Run() {
	r.sub.Listen(r.Handle)
}

// Handle delivers one envelope. Malformed payloads are dropped; delivery
// failures are retried.
func (r *Relay) Handle(ctx context.Context, d queue.Delivery) (bool, error) {
	ctx, span := tracer.Start(ctx, "Outbox.Relay", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var env Envelope
	if err := json.Unmarshal(d.Body, &env); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed envelope")
		r.logger.ErrorContext(ctx, "dropping malformed envelope", "error", err, "id", d.Headers[HeaderEnvelopeID])
		return false, errors.Wrap(err, "failed to decode envelope")
	}
	span.SetAttributes(
		attribute.String("outbox.id", env.ID),
		attribute.Int("outbox.files", len(env.Files)),
	)

	email := env.Email
	if len(env.Files) > 0 {
		dir, err := os.MkdirTemp(r.tmpDir, "outbox-")
		if err != nil {
			span.RecordError(err)
			return true, errors.Wrap(err, "failed to create temp dir")
		}
		defer os.RemoveAll(dir) // nolint:errcheck

		email, err = env.materialize(dir)
		if err != nil {
			span.RecordError(err)
			return true, err
		}
	}

	if err := r.sender.Send(ctx, email); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.WarnContext(ctx, "relay delivery failed", "id", env.ID, "error", err)
		return true, errors.Wrapf(err, "failed to deliver envelope %s", env.ID)
	}

	r.logger.InfoContext(ctx, "envelope delivered", "id", env.ID, "subject", email.Subject)
	span.SetStatus(codes.Ok, "")
	return false, nil
}

// Close stops the subscriber and the downstream sender.
func (r *Relay) Close() error {
	err := r.sub.Close()
	if serr := r.sender.Close(); serr != nil && err == nil {
		err = serr
	}
	return err
}
