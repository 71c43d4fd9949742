// Package mail defines the message model, the Sender interface implemented
// by transports, and the Mailer that turns raw send arguments into a message.
package mail

import (
	"context"
	"io"
	netmail "net/mail"
	"strings"

	"github.com/pkg/errors"
)

// Sender delivers composed messages.
type Sender interface {
	Send(ctx context.Context, emails ...Email) error
	io.Closer
}

// Email is a composed message.
type Email struct {
	From    Address   `json:"from"`
	To      []Address `json:"to"`
	Cc      []Address `json:"cc,omitempty"`
	Bcc     []Address `json:"bcc,omitempty"`
	ReplyTo []Address `json:"reply_to,omitempty"`
	Subject string    `json:"subject"`

	// Headers holds extra header fields, e.g. X-Mailer.
	Headers map[string]string `json:"headers,omitempty"`

	Body string `json:"body,omitempty"` // plain text
	HTML string `json:"html,omitempty"`

	// Attachments are local file paths.
	Attachments []string `json:"attachments,omitempty"`
}

// Recipients returns every envelope recipient address.
func (e Email) Recipients() []string {
	out := make([]string, 0, len(e.To)+len(e.Cc)+len(e.Bcc))
	for _, list := range [][]Address{e.To, e.Cc, e.Bcc} {
		for _, a := range list {
			out = append(out, a.Address)
		}
	}
	return out
}

// Address is a mailbox with an optional display name.
type Address struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

// String formats a as an RFC 5322 mailbox.
func (a Address) String() string {
	if a.Name == "" {
		return a.Address
	}
	return (&netmail.Address{Name: a.Name, Address: a.Address}).String()
}

// FormatAddress renders "name <addr>". The name is quoted only when it
// holds characters that would break header parsing, so plain display
// names stay as typed.
func FormatAddress(name, addr string) string {
	if name == "" {
		return "<" + addr + ">"
	}
	if !strings.ContainsAny(name, "()<>[]:;@\\,\"") && !hasControl(name) {
		return name + " <" + addr + ">"
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range name {
		if isControl(r) {
			continue
		}
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteString(`" <`)
	b.WriteString(addr)
	b.WriteByte('>')
	return b.String()
}

func hasControl(s string) bool {
	return strings.IndexFunc(s, isControl) >= 0
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}

// ParseAddress parses "Name <addr>" or a bare address.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Address{}, errors.New("empty address")
	}
	a, err := netmail.ParseAddress(s)
	if err != nil {
		return Address{}, errors.Wrapf(err, "invalid address %q", s)
	}
	return Address{Name: a.Name, Address: a.Address}, nil
}

// ParseAddressList parses a comma separated list. Empty items are skipped.
func ParseAddressList(s string) ([]Address, error) {
	var out []Address
	for _, part := range splitAddresses(s) {
		a, err := ParseAddress(part)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// splitAddresses splits on commas outside quoted display names.
func splitAddresses(s string) []string {
	var (
		parts  []string
		quoted bool
		start  int
	)
	escaped := false
	for i, r := range s {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = quoted
		case '"':
			quoted = !quoted
		case ',':
			if !quoted {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])

	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
