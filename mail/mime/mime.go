// Package mime builds RFC 5322 messages from mail.Email with go-mail.
package mime

import (
	"bytes"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	gomail "github.com/wneessen/go-mail"

	"github.com/pure-golang/emails/mail"
)

var headerInjection = strings.NewReplacer("\r", "", "\n", "")

// Build converts e into a go-mail message. Attachments must exist on disk.
func Build(e mail.Email) (*gomail.Msg, error) {
	m := gomail.NewMsg()

	if err := m.FromFormat(e.From.Name, e.From.Address); err != nil {
		return nil, errors.Wrap(err, "failed to set from")
	}
	for _, a := range e.To {
		if err := m.AddToFormat(a.Name, a.Address); err != nil {
			return nil, errors.Wrapf(err, "failed to add recipient %q", a.Address)
		}
	}
	for _, a := range e.Cc {
		if err := m.AddCcFormat(a.Name, a.Address); err != nil {
			return nil, errors.Wrapf(err, "failed to add cc %q", a.Address)
		}
	}
	for _, a := range e.Bcc {
		if err := m.AddBccFormat(a.Name, a.Address); err != nil {
			return nil, errors.Wrapf(err, "failed to add bcc %q", a.Address)
		}
	}
	if len(e.ReplyTo) > 0 {
		r := e.ReplyTo[0]
		if err := m.ReplyToFormat(r.Name, r.Address); err != nil {
			return nil, errors.Wrap(err, "failed to set reply-to")
		}
	}

	m.Subject(headerInjection.Replace(e.Subject))

	keys := make([]string, 0, len(e.Headers))
	for k := range e.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		m.SetGenHeader(gomail.Header(k), headerInjection.Replace(e.Headers[k]))
	}

	switch {
	case e.HTML != "" && e.Body != "":
		m.SetBodyString(gomail.TypeTextPlain, e.Body)
		m.AddAlternativeString(gomail.TypeTextHTML, e.HTML)
	case e.HTML != "":
		m.SetBodyString(gomail.TypeTextHTML, e.HTML)
	default:
		m.SetBodyString(gomail.TypeTextPlain, e.Body)
	}

	for _, p := range e.Attachments {
		if _, err := os.Stat(p); err != nil {
			return nil, errors.Wrapf(err, "attachment %q", p)
		}
		m.AttachFile(p)
	}

	m.SetMessageID()
	m.SetDate()
	return m, nil
}

// Render builds e and returns the wire form of the message.
func Render(e mail.Email) ([]byte, error) {
	m, err := Build(e)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "failed to write message")
	}
	return buf.Bytes(), nil
}
