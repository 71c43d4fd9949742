package noop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pure-golang/emails/mail"
)

func TestSender_Send(t *testing.T) {
	sender := NewSender()
	ctx := context.Background()

	assert.NoError(t, sender.Send(ctx,
		mail.Email{To: []mail.Address{{Address: "to@example.com"}}, Subject: "a"},
		mail.Email{To: []mail.Address{{Address: "to@example.com"}}, Subject: "b"},
	))
	assert.NoError(t, sender.Send(ctx))
	assert.Equal(t, 2, sender.Sent())
}

func TestSender_Close(t *testing.T) {
	sender := NewSender()
	assert.NoError(t, sender.Close())
	assert.NoError(t, sender.Close())
}
