package resend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pure-golang/emails/mail"
)

type fakeAPI struct {
	requests []*resend.SendEmailRequest
	err      error
}

func (f *fakeAPI) SendWithContext(_ context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	f.requests = append(f.requests, params)
	if f.err != nil {
		return nil, f.err
	}
	return &resend.SendEmailResponse{Id: "re_123"}, nil
}

func TestSender_Send(t *testing.T) {
	api := &fakeAPI{}
	s := newSender(api, "", nil)

	path := filepath.Join(t.TempDir(), "receipt.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o600))

	err := s.Send(context.Background(), mail.Email{
		From:        mail.Address{Name: "Shop", Address: "shop@example.com"},
		To:          []mail.Address{{Address: "a@example.com"}, {Name: "Bee", Address: "b@example.com"}},
		Bcc:         []mail.Address{{Address: "audit@example.com"}},
		ReplyTo:     []mail.Address{{Address: "support@example.com"}},
		Subject:     "Receipt",
		Body:        "plain",
		HTML:        "<p>html</p>",
		Headers:     map[string]string{"X-Campaign": "q3"},
		Attachments: []string{path},
	})
	require.NoError(t, err)

	require.Len(t, api.requests, 1)
	req := api.requests[0]
	assert.Equal(t, `"Shop" <shop@example.com>`, req.From)
	assert.Equal(t, []string{"a@example.com", `"Bee" <b@example.com>`}, req.To)
	assert.Nil(t, req.Cc)
	assert.Equal(t, []string{"audit@example.com"}, req.Bcc)
	assert.Equal(t, "support@example.com", req.ReplyTo)
	assert.Equal(t, "plain", req.Text)
	assert.Equal(t, "<p>html</p>", req.Html)
	assert.Equal(t, "q3", req.Headers["X-Campaign"])
	require.Len(t, req.Attachments, 1)
	assert.Equal(t, "receipt.pdf", req.Attachments[0].Filename)
	assert.Equal(t, []byte("%PDF"), req.Attachments[0].Content)
}

func TestSender_Send_DefaultFrom(t *testing.T) {
	api := &fakeAPI{}
	s := newSender(api, "noreply@example.com", nil)

	require.NoError(t, s.Send(context.Background(), mail.Email{To: []mail.Address{{Address: "a@example.com"}}}))
	assert.Equal(t, "noreply@example.com", api.requests[0].From)
}

func TestSender_Send_Errors(t *testing.T) {
	api := &fakeAPI{err: errors.New("rate limited")}
	s := newSender(api, "", nil)
	ctx := context.Background()

	assert.ErrorContains(t, s.Send(ctx, mail.Email{To: []mail.Address{{Address: "a@example.com"}}}), "no from address")
	assert.ErrorContains(t, s.Send(ctx, mail.Email{From: mail.Address{Address: "x@example.com"}}), "no recipients")
	assert.ErrorContains(t, s.Send(ctx, mail.Email{
		From:        mail.Address{Address: "x@example.com"},
		To:          []mail.Address{{Address: "a@example.com"}},
		Attachments: []string{"/nonexistent/a.txt"},
	}), "a.txt")
	assert.Empty(t, api.requests)

	err := s.Send(ctx, mail.Email{
		From: mail.Address{Address: "x@example.com"},
		To:   []mail.Address{{Address: "a@example.com"}},
	})
	assert.ErrorContains(t, err, "rate limited")

	require.NoError(t, s.Close())
	assert.ErrorContains(t, s.Send(ctx), "sender is closed")
}

func TestNewSender_RequiresKey(t *testing.T) {
	_, err := NewSender(Config{}, nil)
	assert.Error(t, err)

	s, err := NewSender(Config{APIKey: "re_test"}, nil)
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}
