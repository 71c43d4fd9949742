// Package log is a Sender that writes messages to the logger instead of
// delivering them. Useful for local development.
package log

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/pure-golang/emails/logger"
	"github.com/pure-golang/emails/mail"
)

var _ mail.Sender = (*Sender)(nil)

type Sender struct {
	logger   *slog.Logger
	withBody bool
	lastIDs  []string
}

type SenderOptions struct {
	Logger *slog.Logger
	// WithBody logs the text and HTML bodies as separate records.
	WithBody bool
}

func NewSender(options *SenderOptions) *Sender {
	if options == nil {
		options = &SenderOptions{}
	}
	return &Sender{
		logger:   logger.Named(options.Logger, "mail_log"),
		withBody: options.WithBody,
	}
}

// Send logs every email and never fails.
func (s *Sender) Send(ctx context.Context, emails ...mail.Email) error {
	ids := make([]string, 0, len(emails))
	for _, email := range emails {
		id := "log-" + uuid.New().String()
		ids = append(ids, id)

		s.logger.InfoContext(ctx, "email logged (not sent)",
			"id", id,
			"from", email.From.String(),
			"to", strings.Join(email.Recipients(), ", "),
			"subject", email.Subject,
			"text_length", len(email.Body),
			"html_length", len(email.HTML),
			"attachments", len(email.Attachments),
		)
		if !s.withBody {
			continue
		}
		if email.Body != "" {
			s.logger.InfoContext(ctx, "email text body", "id", id, "text", email.Body)
		}
		if email.HTML != "" {
			s.logger.InfoContext(ctx, "email HTML body", "id", id, "html", email.HTML)
		}
	}
	s.lastIDs = ids
	return nil
}

// LastIDs returns the ids assigned by the most recent Send.
func (s *Sender) LastIDs() []string {
	return s.lastIDs
}

func (s *Sender) Close() error {
	return nil
}
