package email

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pure-golang/emails/mail"
	"github.com/pure-golang/emails/templates"
)

func assertNoHooks(t *testing.T, m *Manager) {
	t.Helper()
	for _, h := range []mail.Hook{mail.HookFrom, mail.HookFromName, mail.HookContentType} {
		assert.False(t, m.Mailer().HasFilters(h), "hook %s left installed", h)
	}
}

func TestSend_HTML(t *testing.T) {
	sender := &recordingSender{}
	m, _ := newTestManager(t, sender)
	e := New(m, Options{
		Type:         TypeHTML,
		Subject:      "Welcome to {site_title}",
		Heading:      "Welcome",
		TemplateHTML: "welcome",
		HTMLSupport:  always(true),
	})

	err := e.Send(context.Background(), "a@b.com", Args{"heading": "Custom", "name": "Ann"})
	require.NoError(t, err)

	assert.Equal(t, "Custom", e.Args()["heading"])
	assert.Same(t, e, e.Args()["email"])
	assert.Equal(t, "Ann", e.Args()["name"])

	require.Len(t, sender.emails, 1)
	got := sender.emails[0]
	assert.Equal(t, "Welcome to Tom & Jerry", got.Subject)
	assert.Equal(t, mail.Address{Name: "Tom & Jerry", Address: "admin@shop.example.com"}, got.From)
	assert.Equal(t, []mail.Address{{Address: "a@b.com"}}, got.To)
	assert.Equal(t, []mail.Address{{Name: "Tom & Jerry", Address: "admin@shop.example.com"}}, got.ReplyTo)
	assert.Empty(t, got.Body)
	assert.Contains(t, got.HTML, "<header>Tom & Jerry|Custom|<style")
	assert.Contains(t, got.HTML, "<p>Hi Ann, welcome to Tom & Jerry</p>")
	assert.Contains(t, got.HTML, "<footer>shop.example.com</footer>")

	assertNoHooks(t, m)
}

func TestSend_DefaultArgs(t *testing.T) {
	m, _ := newTestManager(t, &recordingSender{})
	e := New(m, Options{Heading: "Order from {site_title}", HTMLSupport: always(true)})

	require.NoError(t, e.Send(context.Background(), "a@b.com", nil))
	assert.Equal(t, "Order from Tom & Jerry", e.Args()["heading"])
	assert.Same(t, e, e.Args()["email"])
}

func TestSend_PlainAndMultipart(t *testing.T) {
	sender := &recordingSender{}
	m, _ := newTestManager(t, sender)
	ctx := context.Background()

	plain := New(m, Options{Type: TypePlain, TemplatePlain: "welcome.txt"})
	require.NoError(t, plain.Send(ctx, "a@b.com", Args{"name": "World"}))

	multi := New(m, Options{Type: TypeMultipart, TemplateHTML: "welcome", HTMLSupport: always(true)})
	require.NoError(t, multi.Send(ctx, "a@b.com, c@d.com", Args{"name": "Ann"}))

	require.Len(t, sender.emails, 2)
	assert.Contains(t, sender.emails[0].Body, "Hello World Test")
	assert.Empty(t, sender.emails[0].HTML)

	assert.Len(t, sender.emails[1].To, 2)
	assert.Contains(t, sender.emails[1].HTML, "<p>Hi Ann")
	assert.Contains(t, sender.emails[1].Body, "Hi Ann, welcome to Tom & Jerry")
	assert.NotContains(t, sender.emails[1].Body, "<p>")
}

func TestSend_TransportFailure(t *testing.T) {
	sender := &recordingSender{err: errors.New("connection refused")}
	m, _ := newTestManager(t, sender)
	e := New(m, Options{HTMLSupport: always(true)})

	err := e.Send(context.Background(), "a@b.com", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assertNoHooks(t, m)
}

func TestSend_InvalidRecipient(t *testing.T) {
	m, _ := newTestManager(t, &recordingSender{})
	e := New(m, Options{HTMLSupport: always(true)})

	assert.Error(t, e.Send(context.Background(), "", nil))
	assertNoHooks(t, m)
}

func TestSend_UsesManagerIdentityOverridingMailerDefaults(t *testing.T) {
	sender := &recordingSender{}
	m, _ := newTestManager(t, sender)
	m.SetFromName("Support &amp; Sales").SetFromEmail("help@shop.example.com")

	e := New(m, Options{HTMLSupport: always(true)})
	require.NoError(t, e.Send(context.Background(), "a@b.com", nil))

	assert.Equal(t, mail.Address{Name: "Support & Sales", Address: "help@shop.example.com"}, sender.emails[0].From)
}

func TestSend_ConcurrentEmailsKeepTheirContentType(t *testing.T) {
	sender := &recordingSender{}
	m, _ := newTestManager(t, sender)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			typ := TypeHTML
			if i%2 == 1 {
				typ = TypePlain
			}
			e := New(m, Options{Type: typ, Subject: fmt.Sprintf("%s-%d", typ, i), HTMLSupport: always(true)})
			assert.NoError(t, e.Send(context.Background(), "a@b.com", nil))
		}(i)
	}
	wg.Wait()

	require.Len(t, sender.emails, 20)
	for _, got := range sender.emails {
		if strings.HasPrefix(got.Subject, "html-") {
			assert.NotEmpty(t, got.HTML, got.Subject)
			assert.Empty(t, got.Body, got.Subject)
		} else {
			assert.Empty(t, got.HTML, got.Subject)
		}
	}
}

func TestSend_ReplyToNameWithComma(t *testing.T) {
	sender := &recordingSender{}
	s := &fakeSite{domain: "shop.example.com", title: "Smith, Jones &amp; Co", admin: "admin@shop.example.com"}
	reg := templates.NewRegistry(templates.NewFSLoader(testTemplates), nil)
	m := NewManager(s, reg, mail.NewMailer(sender, nil), nil)
	e := New(m, Options{Type: TypePlain, TemplatePlain: "welcome.txt"})

	assert.Contains(t, e.Headers(), `Reply-to: "Smith, Jones & Co" <admin@shop.example.com>`)

	require.NoError(t, e.Send(context.Background(), "a@b.com", nil))
	require.Len(t, sender.emails, 1)
	assert.Equal(t, []mail.Address{{Name: "Smith, Jones & Co", Address: "admin@shop.example.com"}}, sender.emails[0].ReplyTo)
}

// gatedSender blocks its first delivery until release is closed.
type gatedSender struct {
	recordingSender
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSender) Send(ctx context.Context, emails ...mail.Email) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.recordingSender.Send(ctx, emails...)
}

func TestSend_SlowDeliveryDoesNotBlockOtherSends(t *testing.T) {
	sender := &gatedSender{entered: make(chan struct{}), release: make(chan struct{})}
	s := &fakeSite{domain: "shop.example.com", title: "Tom &amp; Jerry", admin: "admin@shop.example.com"}
	reg := templates.NewRegistry(templates.NewFSLoader(testTemplates), nil)
	m := NewManager(s, reg, mail.NewMailer(sender, nil), nil)
	ctx := context.Background()

	slow := make(chan error, 1)
	go func() {
		slow <- New(m, Options{Subject: "slow", HTMLSupport: always(true)}).Send(ctx, "a@b.com", nil)
	}()
	<-sender.entered
	assertNoHooks(t, m)

	fast := make(chan error, 1)
	go func() {
		fast <- New(m, Options{Type: TypePlain, Subject: "fast"}).Send(ctx, "c@d.com", nil)
	}()
	select {
	case err := <-fast:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("send blocked behind a pending delivery")
	}

	close(sender.release)
	require.NoError(t, <-slow)

	require.Len(t, sender.emails, 2)
	assert.Equal(t, "fast", sender.emails[0].Subject)
	assert.Empty(t, sender.emails[0].HTML)
	assert.Equal(t, "slow", sender.emails[1].Subject)
	assert.NotEmpty(t, sender.emails[1].HTML)
}
