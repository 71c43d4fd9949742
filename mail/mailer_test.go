package mail

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []Email
	err  error
}

func (r *recordingSender) Send(_ context.Context, emails ...Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, emails...)
	return nil
}

func (r *recordingSender) Close() error { return nil }

func (r *recordingSender) last(t *testing.T) Email {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.sent)
	return r.sent[len(r.sent)-1]
}

func newTestMailer() (*Mailer, *recordingSender) {
	rec := &recordingSender{}
	return NewMailer(rec, &MailerOptions{FromAddress: "noreply@example.com", FromName: "Example"}), rec
}

func TestMailer_Send_Plain(t *testing.T) {
	m, rec := newTestMailer()

	err := m.Send(context.Background(), "a@example.com, Bob <b@example.com>", "Hi", "Hello", nil, nil)
	require.NoError(t, err)

	e := rec.last(t)
	assert.Equal(t, []Address{{Address: "a@example.com"}, {Name: "Bob", Address: "b@example.com"}}, e.To)
	assert.Equal(t, Address{Name: "Example", Address: "noreply@example.com"}, e.From)
	assert.Equal(t, "Hello", e.Body)
	assert.Empty(t, e.HTML)
}

func TestMailer_Send_Headers(t *testing.T) {
	m, rec := newTestMailer()

	headers := []string{
		"Content-Type: text/html; charset=UTF-8",
		"reply-to: Shop <shop@example.com>",
		"CC: c@example.com",
		"Bcc: d@example.com",
		"x-campaign: spring",
		"not a header",
	}
	err := m.Send(context.Background(), "a@example.com", "Hi", "<p>Hello</p>", headers, []string{"/tmp/invoice.pdf"})
	require.NoError(t, err)

	e := rec.last(t)
	assert.Equal(t, "<p>Hello</p>", e.HTML)
	assert.Empty(t, e.Body)
	assert.Equal(t, []Address{{Name: "Shop", Address: "shop@example.com"}}, e.ReplyTo)
	assert.Equal(t, []Address{{Address: "c@example.com"}}, e.Cc)
	assert.Equal(t, []Address{{Address: "d@example.com"}}, e.Bcc)
	assert.Equal(t, map[string]string{"X-Campaign": "spring"}, e.Headers)
	assert.Equal(t, []string{"/tmp/invoice.pdf"}, e.Attachments)
	assert.ElementsMatch(t, []string{"a@example.com", "c@example.com", "d@example.com"}, e.Recipients())
}

func TestMailer_Send_HeaderBlock(t *testing.T) {
	m, rec := newTestMailer()

	err := m.Send(context.Background(), "a@example.com", "Hi", "x", []string{"Content-Type: text/html\r\nReply-to: r@example.com\n"}, nil)
	require.NoError(t, err)

	e := rec.last(t)
	assert.Equal(t, "x", e.HTML)
	assert.Equal(t, "r@example.com", e.ReplyTo[0].Address)
}

func TestMailer_Send_Multipart(t *testing.T) {
	m, rec := newTestMailer()

	err := m.Send(context.Background(), "a@example.com", "Hi", "<p>Fish &amp; chips</p>", []string{"Content-Type: multipart/alternative"}, nil)
	require.NoError(t, err)

	e := rec.last(t)
	assert.Equal(t, "<p>Fish &amp; chips</p>", e.HTML)
	assert.Equal(t, "Fish & chips", e.Body)
}

func TestMailer_Send_FromHeader(t *testing.T) {
	m, rec := newTestMailer()

	err := m.Send(context.Background(), "a@example.com", "Hi", "x", []string{"From: Support <support@example.com>"}, nil)
	require.NoError(t, err)
	assert.Equal(t, Address{Name: "Support", Address: "support@example.com"}, rec.last(t).From)
}

func TestMailer_Send_Filters(t *testing.T) {
	m, rec := newTestMailer()
	ctx := context.Background()

	removeFrom := m.AddFilter(HookFrom, func(string) string { return "shop@example.com" })
	removeName := m.AddFilter(HookFromName, func(string) string { return "Shop" })
	removeType := m.AddFilter(HookContentType, func(string) string { return ContentTypeHTML })

	require.NoError(t, m.Send(ctx, "a@example.com", "Hi", "<b>x</b>", nil, nil))
	e := rec.last(t)
	assert.Equal(t, Address{Name: "Shop", Address: "shop@example.com"}, e.From)
	assert.Equal(t, "<b>x</b>", e.HTML)

	removeFrom()
	removeName()
	removeType()
	removeType()

	require.NoError(t, m.Send(ctx, "a@example.com", "Hi", "<b>x</b>", nil, nil))
	e = rec.last(t)
	assert.Equal(t, Address{Name: "Example", Address: "noreply@example.com"}, e.From)
	assert.Equal(t, "<b>x</b>", e.Body)
	assert.False(t, m.HasFilters(HookFrom))
}

func TestMailer_Apply_Order(t *testing.T) {
	m, _ := newTestMailer()

	m.AddFilter(HookFromName, func(v string) string { return v + "a" })
	removeB := m.AddFilter(HookFromName, func(v string) string { return v + "b" })
	m.AddFilter(HookFromName, func(v string) string { return v + "c" })

	assert.Equal(t, "xabc", m.Apply(HookFromName, "x"))
	removeB()
	assert.Equal(t, "xac", m.Apply(HookFromName, "x"))
}

func TestMailer_Send_Errors(t *testing.T) {
	m, rec := newTestMailer()
	ctx := context.Background()

	err := m.Send(ctx, "", "Hi", "x", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no recipients")

	err = m.Send(ctx, "not an address", "Hi", "x", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid recipient")

	rec.err = errors.New("connection refused")
	err = m.Send(ctx, "a@example.com", "Hi", "x", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHook_String(t *testing.T) {
	assert.Equal(t, "from", HookFrom.String())
	assert.Equal(t, "from_name", HookFromName.String())
	assert.Equal(t, "content_type", HookContentType.String())
}

func TestMailer_Send_UnquotedReplyToName(t *testing.T) {
	m, rec := newTestMailer()

	err := m.Send(context.Background(), "a@example.com", "Hi", "x", []string{"Reply-to: Smith, Jones & Co <r@example.com>"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []Address{{Name: "Smith, Jones & Co", Address: "r@example.com"}}, rec.last(t).ReplyTo)
}

func TestMailer_ComposeThenDeliver_FiltersReadAtCompose(t *testing.T) {
	m, rec := newTestMailer()

	remove := m.AddFilter(HookFromName, func(string) string { return "Scoped" })
	email, err := m.Compose("a@example.com", "Hi", "Hello", nil, nil)
	remove()
	require.NoError(t, err)
	assert.Empty(t, rec.sent)

	require.NoError(t, m.Deliver(context.Background(), email))
	assert.Equal(t, Address{Name: "Scoped", Address: "noreply@example.com"}, rec.last(t).From)

	rec.err = errors.New("boom")
	err = m.Deliver(context.Background(), email)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send email")
}

func TestMailer_Send_EmptyFromLeftToTransport(t *testing.T) {
	rec := &recordingSender{}
	m := NewMailer(rec, nil)

	require.NoError(t, m.Send(context.Background(), "a@example.com", "Hi", "x", nil, nil))
	assert.Empty(t, rec.last(t).From.Address)
}
