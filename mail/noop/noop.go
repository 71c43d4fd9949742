package noop

import (
	"context"

	"github.com/pure-golang/emails/mail"
)

var _ mail.Sender = (*Sender)(nil)

// Sender discards messages and counts them.
type Sender struct {
	sent   int
	closed bool
}

func NewSender() *Sender {
	return &Sender{}
}

// Send silently discards emails.
func (n *Sender) Send(_ context.Context, emails ...mail.Email) error {
	n.sent += len(emails)
	return nil
}

// Sent returns how many emails were discarded.
func (n *Sender) Sent() int {
	return n.sent
}

func (n *Sender) Close() error {
	n.closed = true
	return nil
}
