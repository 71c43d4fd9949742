package email

import (
	"context"
	"path"
	"strings"

	"github.com/pkg/errors"

	"github.com/pure-golang/emails/textutil"
)

var (
	ErrNoRecipients = errors.New("no recipients specified")
	ErrNoTemplate   = errors.New("no template specified")
)

// Request is an ad-hoc templated email, as accepted by emailctl and the
// HTTP API. Template names a file pair under the emails namespace:
// <template>.html for the HTML body and <template>.txt for plain text.
// An empty Type means html.
type Request struct {
	To       []string `json:"to"`
	Subject  string   `json:"subject"`
	Heading  string   `json:"heading"`
	Template string   `json:"template"`
	Type     string   `json:"type"`
	Args     Args     `json:"args,omitempty"`
}

func (r Request) Validate() error {
	if len(r.To) == 0 {
		return ErrNoRecipients
	}
	for _, to := range r.To {
		if textutil.SanitizeEmail(to) == "" {
			return errors.Errorf("invalid recipient %q", to)
		}
	}
	if strings.TrimSpace(r.Template) == "" {
		return ErrNoTemplate
	}
	if strings.ContainsAny(r.Template, `\`) || strings.Contains(r.Template, "..") {
		return errors.Errorf("invalid template name %q", r.Template)
	}
	return nil
}

// Email builds the Email described by r. The request is not validated.
func (r Request) Email(m *Manager) *Email {
	name := strings.TrimSpace(r.Template)
	name = strings.TrimSuffix(name, path.Ext(name))
	typ := TypeHTML
	if r.Type != "" {
		typ = ParseType(r.Type)
	}
	return New(m, Options{
		Type:          typ,
		Subject:       r.Subject,
		Heading:       r.Heading,
		TemplateHTML:  name + ".html",
		TemplatePlain: name + ".txt",
		Recipient:     strings.Join(r.To, ", "),
	})
}

// Send validates r and sends it through m.
func (r Request) Send(ctx context.Context, m *Manager) error {
	if err := r.Validate(); err != nil {
		return errors.Wrap(err, "invalid email request")
	}
	return r.Email(m).Send(ctx, strings.Join(r.To, ","), r.Args)
}
