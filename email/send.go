package email

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/pure-golang/emails/mail"
	"github.com/pure-golang/emails/metrics"
)

// Send renders the email with args and delivers it to to, a comma
// separated recipient list. Caller args override the defaults "email"
// (this Email) and "heading". The Mailer's from, from name and content
// type hooks are bound to this Email while the message is composed.
func (e *Email) Send(ctx context.Context, to string, args Args) (err error) {
	ctx, span := tracer.Start(ctx, "Email.Send")
	defer span.End()

	start := time.Now()
	typ := e.EmailType().String()
	span.SetAttributes(attribute.String("email.type", typ))
	defer func() {
		metrics.ObserveSend(typ, err, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}()

	m := e.manager
	mailer := m.Mailer()

	msg, err := e.compose(ctx, mailer, to, args)
	if err != nil {
		return err
	}
	return mailer.Deliver(ctx, msg)
}

// compose renders the message with the Mailer's from, from name and content
// type hooks bound to e. Hooks are global to the Mailer, so composition is serialized
// per Manager while delivery runs unlocked.
func (e *Email) compose(ctx context.Context, mailer *mail.Mailer, to string, args Args) (mail.Email, error) {
	m := e.manager

	m.sendMu.Lock()
	defer m.sendMu.Unlock()

	defer mailer.AddFilter(mail.HookFrom, func(string) string { return m.FromEmail() })()
	defer mailer.AddFilter(mail.HookFromName, func(string) string { return m.FromName() })()
	defer mailer.AddFilter(mail.HookContentType, e.ContentTypeFilter)()

	merged := Args{
		"email":   e,
		"heading": e.Heading(),
	}
	for k, v := range args {
		merged[k] = v
	}
	e.args = merged

	return mailer.Compose(to, e.Subject(), e.WrapMessage(ctx), e.Headers(), e.Attachments())
}
