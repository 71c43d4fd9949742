// Package outbox decouples composing mail from delivering it. Sender
// publishes envelopes to a broker; Relay consumes them and hands them to a
// real transport.
package outbox

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pure-golang/emails/logger"
	"github.com/pure-golang/emails/mail"
	"github.com/pure-golang/emails/queue"
)

var tracer = otel.Tracer("github.com/pure-golang/emails/mail/outbox")

// HeaderEnvelopeID carries Envelope.ID on the broker message.
const HeaderEnvelopeID = "x-envelope-id"

// Envelope is the broker payload. Attachments travel inline as Files and
// Email.Attachments is empty on the wire.
type Envelope struct {
	ID    string     `json:"id"`
	Email mail.Email `json:"email"`
	Files []File     `json:"files,omitempty"`
}

// File is an inlined attachment.
type File struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

var _ mail.Sender = (*Sender)(nil)

// Sender publishes every email as an Envelope.
type Sender struct {
	pub    queue.Publisher
	topic  string
	logger *slog.Logger

	mx     sync.Mutex
	closed bool
}

type SenderOptions struct {
	// Topic overrides the publisher's default topic.
	Topic  string
	Logger *slog.Logger
}

func NewSender(pub queue.Publisher, options *SenderOptions) *Sender {
	if options == nil {
		options = &SenderOptions{}
	}
	return &Sender{
		pub:    pub,
		topic:  options.Topic,
		logger: logger.Named(options.Logger, "outbox"),
	}
}

func (s *Sender) Send(ctx context.Context, emails ...mail.Email) error {
	s.mx.Lock()
	closed := s.closed
	s.mx.Unlock()
	if closed {
		return errors.New("sender is closed")
	}

	ctx, span := tracer.Start(ctx, "Outbox.Send", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()
	span.SetAttributes(attribute.Int("outbox.messages", len(emails)))

	msgs := make([]queue.Message, 0, len(emails))
	for _, email := range emails {
		env, err := NewEnvelope(email)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		msgs = append(msgs, queue.Message{
			Topic:   s.topic,
			Key:     env.ID,
			Headers: map[string]string{HeaderEnvelopeID: env.ID},
			Body:    env,
		})
	}

	if err := s.pub.Publish(ctx, msgs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.Wrap(err, "failed to publish to outbox")
	}

	s.logger.DebugContext(ctx, "emails queued", "count", len(msgs))
	span.SetStatus(codes.Ok, "")
	return nil
}

// Close closes the publisher when it is an io.Closer.
func (s *Sender) Close() error {
	s.mx.Lock()
	defer s.mx.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if c, ok := s.pub.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NewEnvelope inlines the attachments of email.
func NewEnvelope(email mail.Email) (Envelope, error) {
	env := Envelope{ID: uuid.NewString(), Email: email}
	for _, p := range email.Attachments {
		data, err := os.ReadFile(p)
		if err != nil {
			return Envelope{}, errors.Wrapf(err, "attachment %q", p)
		}
		env.Files = append(env.Files, File{Name: filepath.Base(p), Data: data})
	}
	env.Email.Attachments = nil
	return env, nil
}

// materialize writes Files into dir and returns the email with
// Attachments pointing at them.
func (e Envelope) materialize(dir string) (mail.Email, error) {
	email := e.Email
	email.Attachments = nil
	for i, f := range e.Files {
		// Each file gets its own subdirectory so equal names don't collide.
		sub := filepath.Join(dir, uuid.NewString())
		if err := os.Mkdir(sub, 0o700); err != nil {
			return mail.Email{}, errors.Wrap(err, "failed to create attachment dir")
		}
		name := filepath.Base(f.Name)
		if name == "." || name == string(filepath.Separator) {
			name = "attachment-" + uuid.NewString()[:8]
		}
		p := filepath.Join(sub, name)
		if err := os.WriteFile(p, f.Data, 0o600); err != nil {
			return mail.Email{}, errors.Wrapf(err, "failed to write attachment %d", i)
		}
		email.Attachments = append(email.Attachments, p)
	}
	return email, nil
}
