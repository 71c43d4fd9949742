// Package templates resolves and renders email templates by namespace.
//
// A namespace maps a short name such as "emails" to a base directory inside
// the configured Loader. Templates ending in .html are rendered with
// html/template, everything else with text/template. Names without an
// extension get .html.
package templates

import (
	"context"
	"embed"
	"io/fs"

	"github.com/pkg/errors"
)

var (
	ErrNamespaceNotRegistered = errors.New("template namespace is not registered")
	ErrTemplateNotFound       = errors.New("template not found")
)

// Loader returns raw template source for a slash-separated path.
// A missing template is reported as ErrTemplateNotFound.
type Loader interface {
	Load(ctx context.Context, path string) ([]byte, error)
}

//go:embed defaults
var defaults embed.FS

// Defaults holds the built-in emails/email-header.html, emails/email-footer.html
// and emails/email-styles.css.
var Defaults fs.FS

func init() {
	sub, err := fs.Sub(defaults, "defaults")
	if err != nil {
		panic(err)
	}
	Defaults = sub
}
