package email

import "context"

// Content supplies what differs between kinds of email.
type Content interface {
	ContentPlain(ctx context.Context, e *Email) string
	ContentHTML(ctx context.Context, e *Email) string
	Attachments(e *Email) []string
}

// TemplateContent renders the Email's plain and HTML templates with its
// Args and has no attachments.
type TemplateContent struct{}

func (TemplateContent) ContentPlain(ctx context.Context, e *Email) string {
	return e.Render(ctx, e.TemplatePlain(), e.Args())
}

func (TemplateContent) ContentHTML(ctx context.Context, e *Email) string {
	return e.Render(ctx, e.TemplateHTML(), e.Args())
}

func (TemplateContent) Attachments(*Email) []string {
	return nil
}

// WithAttachments is TemplateContent with a fixed attachment list.
type WithAttachments []string

func (WithAttachments) ContentPlain(ctx context.Context, e *Email) string {
	return TemplateContent{}.ContentPlain(ctx, e)
}

func (WithAttachments) ContentHTML(ctx context.Context, e *Email) string {
	return TemplateContent{}.ContentHTML(ctx, e)
}

func (a WithAttachments) Attachments(*Email) []string {
	return append([]string(nil), a...)
}
