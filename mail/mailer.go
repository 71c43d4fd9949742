package mail

import (
	"context"
	"log/slog"
	"mime"
	"net/textproto"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/pure-golang/emails/logger"
	"github.com/pure-golang/emails/textutil"
)

var tracer = otel.Tracer("github.com/pure-golang/emails/mail")

// Content types understood by Mailer.Send.
const (
	ContentTypePlain       = "text/plain"
	ContentTypeHTML        = "text/html"
	ContentTypeAlternative = "multipart/alternative"
)

// Hook names a value Mailer.Send passes through installed filters.
type Hook int

const (
	HookFrom Hook = iota
	HookFromName
	HookContentType
)

func (h Hook) String() string {
	switch h {
	case HookFrom:
		return "from"
	case HookFromName:
		return "from_name"
	case HookContentType:
		return "content_type"
	}
	return "unknown"
}

// Filter receives the current value of a hook and returns the replacement.
type Filter func(value string) string

type filterEntry struct {
	f Filter
}

// Mailer composes messages from loosely structured arguments and hands them
// to a Sender. Filters are shared by every caller of the Mailer; callers that
// install filters for one message should use a Mailer of their own when
// sending concurrently with different identities.
type Mailer struct {
	sender   Sender
	fromAddr string
	fromName string
	logger   *slog.Logger

	mu      sync.RWMutex
	filters map[Hook][]*filterEntry
}

// MailerOptions contains options for Mailer creation.
type MailerOptions struct {
	// FromAddress and FromName are used when neither headers nor filters
	// provide a sender.
	FromAddress string
	FromName    string
	Logger      *slog.Logger
}

func NewMailer(sender Sender, opts *MailerOptions) *Mailer {
	if opts == nil {
		opts = &MailerOptions{}
	}
	return &Mailer{
		sender:   sender,
		fromAddr: opts.FromAddress,
		fromName: opts.FromName,
		logger:   logger.Named(opts.Logger, "mailer"),
		filters:  make(map[Hook][]*filterEntry),
	}
}

// AddFilter installs f on hook. Filters run in install order. The returned
// func removes exactly this filter and may be called more than once.
func (m *Mailer) AddFilter(hook Hook, f Filter) (remove func()) {
	entry := &filterEntry{f: f}

	m.mu.Lock()
	m.filters[hook] = append(m.filters[hook], entry)
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			list := m.filters[hook]
			for i, e := range list {
				if e == entry {
					m.filters[hook] = append(list[:i:i], list[i+1:]...)
					return
				}
			}
		})
	}
}

// HasFilters reports whether any filter is installed on hook.
func (m *Mailer) HasFilters(hook Hook) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.filters[hook]) > 0
}

// Apply runs value through the filters installed on hook.
func (m *Mailer) Apply(hook Hook, value string) string {
	m.mu.RLock()
	list := append([]*filterEntry(nil), m.filters[hook]...)
	m.mu.RUnlock()

	for _, e := range list {
		value = e.f(value)
	}
	return value
}

// Send composes the message and delivers it, see Compose and Deliver.
func (m *Mailer) Send(ctx context.Context, to, subject, body string, headers []string, attachments []string) error {
	email, err := m.Compose(to, subject, body, headers, attachments)
	if err != nil {
		return err
	}
	return m.Deliver(ctx, email)
}

// Compose parses to and headers and applies the filters. Filters are read
// only here, so a caller scoping filters to one message may remove them
// once Compose returns.
//
// Recognized header lines are Content-Type, Reply-To, From, Cc and Bcc, matched
// case-insensitively. Other lines are passed through as extra headers. The
// body is treated as HTML for text/html, as HTML with a derived plain text
// part for multipart/alternative, and as plain text otherwise.
func (m *Mailer) Compose(to, subject, body string, headers []string, attachments []string) (Email, error) {
	return m.compose(to, subject, body, headers, attachments)
}

// Deliver hands a composed message to the transport.
func (m *Mailer) Deliver(ctx context.Context, email Email) error {
	ctx, span := tracer.Start(ctx, "Mailer.Deliver")
	defer span.End()

	span.SetAttributes(
		attribute.Int("mail.recipients", len(email.Recipients())),
		attribute.Int("mail.attachments", len(email.Attachments)),
		attribute.Bool("mail.html", email.HTML != ""),
	)

	if err := m.sender.Send(ctx, email); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.FromContext(ctx).Error("failed to send email", "error", err, "to", email.Recipients(), "subject", email.Subject)
		return errors.Wrap(err, "failed to send email")
	}

	span.SetStatus(codes.Ok, "")
	m.logger.Debug("email sent", "to", email.Recipients(), "subject", email.Subject)
	return nil
}

func (m *Mailer) compose(to, subject, body string, headers []string, attachments []string) (Email, error) {
	recipients, err := ParseAddressList(to)
	if err != nil {
		return Email{}, errors.Wrap(err, "invalid recipient")
	}
	if len(recipients) == 0 {
		return Email{}, errors.New("no recipients specified")
	}

	email := Email{
		To:          recipients,
		Subject:     subject,
		Attachments: attachments,
	}

	from := Address{Name: m.fromName, Address: m.fromAddr}
	contentType := ""

	for _, line := range splitHeaderLines(headers) {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)

		switch strings.ToLower(name) {
		case "content-type":
			if mt, _, err := mime.ParseMediaType(value); err == nil {
				contentType = mt
			} else {
				contentType = strings.ToLower(strings.TrimSpace(strings.Split(value, ";")[0]))
			}
		case "from":
			if a, err := ParseAddress(value); err == nil {
				from = a
			}
		case "reply-to":
			if list, err := ParseAddressList(value); err == nil {
				email.ReplyTo = append(email.ReplyTo, list...)
			} else if a, ok := parseUnquotedMailbox(value); ok {
				email.ReplyTo = append(email.ReplyTo, a)
			} else {
				m.logger.Warn("ignoring invalid Reply-To header", "value", value, "error", err)
			}
		case "cc":
			if list, err := ParseAddressList(value); err == nil {
				email.Cc = append(email.Cc, list...)
			}
		case "bcc":
			if list, err := ParseAddressList(value); err == nil {
				email.Bcc = append(email.Bcc, list...)
			}
		default:
			if email.Headers == nil {
				email.Headers = make(map[string]string)
			}
			email.Headers[textproto.CanonicalMIMEHeaderKey(name)] = value
		}
	}

	// An empty from address is left to the transport's configured default.
	email.From = Address{
		Address: m.Apply(HookFrom, from.Address),
		Name:    m.Apply(HookFromName, from.Name),
	}

	if contentType == "" {
		contentType = ContentTypePlain
	}
	switch strings.ToLower(m.Apply(HookContentType, contentType)) {
	case ContentTypeHTML:
		email.HTML = body
	case ContentTypeAlternative:
		email.HTML = body
		email.Body = textutil.PlainText(body)
	default:
		email.Body = body
	}

	return email, nil
}

// parseUnquotedMailbox accepts a single "name <addr>" whose display name
// was not quoted, e.g. "Smith, Jones & Co <a@example.com>".
func parseUnquotedMailbox(value string) (Address, bool) {
	lt := strings.LastIndex(value, "<")
	if lt < 0 || !strings.HasSuffix(value, ">") {
		return Address{}, false
	}
	addr, err := ParseAddress(value[lt+1 : len(value)-1])
	if err != nil || addr.Name != "" {
		return Address{}, false
	}
	addr.Name = strings.Trim(strings.TrimSpace(value[:lt]), `"`)
	return addr, true
}

// splitHeaderLines accepts both one header per element and newline
// separated blocks.
func splitHeaderLines(headers []string) []string {
	var out []string
	for _, h := range headers {
		for _, line := range strings.Split(strings.ReplaceAll(h, "\r\n", "\n"), "\n") {
			if strings.TrimSpace(line) != "" {
				out = append(out, line)
			}
		}
	}
	return out
}

// Sender returns the underlying transport.
func (m *Mailer) Sender() Sender {
	return m.sender
}

// Close closes the underlying transport.
func (m *Mailer) Close() error {
	return m.sender.Close()
}
