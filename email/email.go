// Package email composes templated emails and sends them through a
// mail.Mailer on behalf of a Manager's sender identity.
//
// An Email renders its body from the "emails" template namespace, replaces
// placeholder tokens such as {site_title}, wraps the body in the
// email-header and email-footer templates and hands the result to the
// Mailer. Kinds of email customize content and attachments through the
// Content interface.
package email

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/pure-golang/emails/logger"
	"github.com/pure-golang/emails/mail"
	"github.com/pure-golang/emails/textutil"
)

var tracer = otel.Tracer("github.com/pure-golang/emails/email")

// Type is the MIME rendering mode of an email.
type Type int

const (
	TypeHTML Type = iota
	TypePlain
	TypeMultipart
)

func (t Type) String() string {
	switch t {
	case TypeHTML:
		return "html"
	case TypeMultipart:
		return "multipart"
	}
	return "plain"
}

// ParseType maps "html" and "multipart" to their types and anything else
// to TypePlain.
func ParseType(s string) Type {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "html":
		return TypeHTML
	case "multipart":
		return TypeMultipart
	}
	return TypePlain
}

// Content types produced by ContentType.
const (
	ContentTypeHTML      = "text/html"
	ContentTypePlain     = "text/plain"
	ContentTypeMultipart = "multipart/alternative"
)

// Args are passed to every template an Email renders.
type Args map[string]any

// Options configure an Email.
type Options struct {
	Type          Type
	Subject       string
	Heading       string
	TemplatePlain string
	TemplateHTML  string
	Recipient     string // informational
	// Placeholders are merged over the site defaults.
	Placeholders *Placeholders
	// Content supplies bodies and attachments, TemplateContent by default.
	Content Content
	// HTMLSupport overrides textutil.HTMLDocumentSupport.
	HTMLSupport func() bool
}

// Email is one sending occasion. It is not safe for concurrent use.
type Email struct {
	manager *Manager
	opts    Options
	content Content

	placeholders *Placeholders
	args         Args
}

// New creates an Email sending on behalf of m.
func New(m *Manager, opts Options) *Email {
	if opts.Content == nil {
		opts.Content = TemplateContent{}
	}
	if opts.HTMLSupport == nil {
		opts.HTMLSupport = textutil.HTMLDocumentSupport
	}

	domain := m.Site().Domain()
	p := NewPlaceholders(
		"{site_address}", domain,
		"{site_url}", domain,
		"{site_title}", m.BlogName(),
	)
	p.Merge(opts.Placeholders)

	return &Email{
		manager:      m,
		opts:         opts,
		content:      opts.Content,
		placeholders: p,
	}
}

func (e *Email) Manager() *Manager {
	return e.manager
}

func (e *Email) Placeholders() *Placeholders {
	return e.placeholders
}

// Args returns the arguments stored by the last Send. Nil before that.
func (e *Email) Args() Args {
	return e.args
}

// SetArgs stores args for rendering outside of Send.
func (e *Email) SetArgs(args Args) {
	e.args = args
}

func (e *Email) Recipient() string {
	return e.opts.Recipient
}

func (e *Email) TemplatePlain() string {
	return e.opts.TemplatePlain
}

func (e *Email) TemplateHTML() string {
	return e.opts.TemplateHTML
}

// FormatString replaces every known placeholder token in text.
func (e *Email) FormatString(text string) string {
	return e.placeholders.Replace(text)
}

// EmailType is the configured type, or TypePlain when HTML documents
// cannot be handled.
func (e *Email) EmailType() Type {
	if !e.opts.HTMLSupport() {
		return TypePlain
	}
	return e.opts.Type
}

// Plain reports whether the email is sent as plain text.
func (e *Email) Plain() bool {
	return e.EmailType() == TypePlain
}

func (e *Email) Subject() string {
	return e.FormatString(e.opts.Subject)
}

func (e *Email) Heading() string {
	return e.FormatString(e.opts.Heading)
}

// Content returns the main body: sanitized and wrapped plain text for
// plain emails, the HTML render otherwise.
func (e *Email) Content(ctx context.Context) string {
	if e.Plain() {
		return textutil.PlainText(e.ContentPlain(ctx))
	}
	return e.ContentHTML(ctx)
}

func (e *Email) ContentPlain(ctx context.Context) string {
	return e.content.ContentPlain(ctx, e)
}

func (e *Email) ContentHTML(ctx context.Context) string {
	return e.content.ContentHTML(ctx, e)
}

func (e *Email) Attachments() []string {
	return e.content.Attachments(e)
}

// ContentType maps the email type to its MIME type.
func (e *Email) ContentType() string {
	switch e.EmailType() {
	case TypeHTML:
		return ContentTypeHTML
	case TypeMultipart:
		return ContentTypeMultipart
	}
	return ContentTypePlain
}

// ContentTypeFilter is ContentType shaped as a mail.Filter; the incoming
// value is ignored.
func (e *Email) ContentTypeFilter(string) string {
	return e.ContentType()
}

// Headers returns the Content-Type and Reply-to header lines.
func (e *Email) Headers() []string {
	return []string{
		"Content-Type: " + e.ContentType(),
		"Reply-to: " + mail.FormatAddress(e.manager.FromName(), e.manager.FromEmail()),
	}
}

// HomeURL is the absolute site URL, for links in templates. Sites that do
// not expose a URL are assumed to be served over https.
func (e *Email) HomeURL() string {
	site := e.manager.Site()
	if u, ok := site.(interface{ URL() string }); ok && u.URL() != "" {
		return u.URL()
	}
	return "https://" + site.Domain()
}

// Render renders name from the emails namespace. Failures are logged and
// yield "".
func (e *Email) Render(ctx context.Context, name string, data any) string {
	if name == "" {
		return ""
	}
	out, err := e.manager.Templates().Render(ctx, Namespace, name, data)
	if err != nil {
		logger.FromContextWithErr(ctx, err).Warn("failed to render email template", "template", name)
		return ""
	}
	return out
}

// WrapMessage joins the header, the formatted content and the footer,
// stages the styles and resolves placeholders over the whole body.
func (e *Email) WrapMessage(ctx context.Context) string {
	header := e.Render(ctx, "email-header", e.args)
	footer := e.Render(ctx, "email-footer", e.args)
	if e.Plain() {
		// header and footer are html templates; undo their escaping
		header = textutil.NormalizeEntities(header)
		footer = textutil.NormalizeEntities(footer)
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString(textutil.Autop(textutil.Texturize(e.Content(ctx))))
	b.WriteString(footer)

	e.StyleInline(ctx)

	return e.FormatString(b.String())
}

// StyleInline stores the email stylesheet under {styles}. Plain emails are
// left untouched. Styles are not inlined into element attributes.
func (e *Email) StyleInline(ctx context.Context) {
	if e.Plain() {
		return
	}
	css := e.Render(ctx, "email-styles.css", nil)
	e.placeholders.Set("{styles}", `<style type="text/css">`+css+`</style>`)
}
