package mime

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pure-golang/emails/mail"
)

func TestRender_Plain(t *testing.T) {
	raw, err := Render(mail.Email{
		From:    mail.Address{Name: "Shop", Address: "shop@example.com"},
		To:      []mail.Address{{Address: "a@example.com"}},
		ReplyTo: []mail.Address{{Name: "Support", Address: "support@example.com"}},
		Subject: "Order\r\nBcc: evil@example.com",
		Headers: map[string]string{"X-Campaign": "spring"},
		Body:    "Hello",
	})
	require.NoError(t, err)

	s := string(raw)
	assert.Contains(t, s, `From: "Shop" <shop@example.com>`)
	assert.Contains(t, s, "To: <a@example.com>")
	assert.Contains(t, s, `Reply-To: "Support" <support@example.com>`)
	assert.Contains(t, s, "Subject: OrderBcc: evil@example.com")
	assert.NotContains(t, s, "\r\nBcc:")
	assert.Contains(t, s, "X-Campaign: spring")
	assert.Contains(t, s, "Content-Type: text/plain")
	assert.Contains(t, s, "Message-ID:")
	assert.Contains(t, s, "Hello")
}

func TestRender_Alternative(t *testing.T) {
	raw, err := Render(mail.Email{
		From: mail.Address{Address: "shop@example.com"},
		To:   []mail.Address{{Address: "a@example.com"}},
		Body: "Hello",
		HTML: "<p>Hello</p>",
	})
	require.NoError(t, err)

	s := string(raw)
	assert.Contains(t, s, "multipart/alternative")
	assert.Contains(t, s, "text/plain")
	assert.Contains(t, s, "text/html")
}

func TestRender_HTMLOnly(t *testing.T) {
	raw, err := Render(mail.Email{
		From: mail.Address{Address: "shop@example.com"},
		To:   []mail.Address{{Address: "a@example.com"}},
		HTML: "<p>Hello</p>",
	})
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Content-Type: text/html")
	assert.NotContains(t, string(raw), "multipart/alternative")
}

func TestRender_Attachment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoice.txt")
	require.NoError(t, os.WriteFile(path, []byte("total: 10"), 0o600))

	raw, err := Render(mail.Email{
		From:        mail.Address{Address: "shop@example.com"},
		To:          []mail.Address{{Address: "a@example.com"}},
		Body:        "See attached",
		Attachments: []string{path},
	})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `filename="invoice.txt"`)
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(mail.Email{
		From:        mail.Address{Address: "shop@example.com"},
		To:          []mail.Address{{Address: "a@example.com"}},
		Attachments: []string{"/nonexistent/file.pdf"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file.pdf")

	_, err = Build(mail.Email{From: mail.Address{Address: "not-an-address"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to set from")
}
