package templates

import (
	"bytes"
	"context"
	"hash/fnv"
	htmltemplate "html/template"
	"log/slog"
	"path"
	"strings"
	"sync"
	texttemplate "text/template"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/pure-golang/emails/logger"
	"github.com/pure-golang/emails/textutil"
)

var tracer = otel.Tracer("github.com/pure-golang/emails/templates")

type executor interface {
	Execute(w *bytes.Buffer, data any) error
}

type htmlExec struct{ t *htmltemplate.Template }

func (e htmlExec) Execute(w *bytes.Buffer, data any) error { return e.t.Execute(w, data) }

type textExec struct{ t *texttemplate.Template }

func (e textExec) Execute(w *bytes.Buffer, data any) error { return e.t.Execute(w, data) }

// Registry maps namespaces to base paths and renders templates found there.
// Parsed templates are cached by path and source hash, so a changed override
// is picked up on the next render.
type Registry struct {
	loader Loader
	logger *slog.Logger

	mu         sync.RWMutex
	namespaces map[string]string
	parsed     map[string]cached
}

type cached struct {
	sum  uint64
	exec executor
}

// RegistryOptions contains options for Registry creation.
type RegistryOptions struct {
	Logger *slog.Logger
}

func NewRegistry(loader Loader, opts *RegistryOptions) *Registry {
	if opts == nil {
		opts = &RegistryOptions{}
	}
	return &Registry{
		loader:     loader,
		logger:     logger.Named(opts.Logger, "templates"),
		namespaces: make(map[string]string),
		parsed:     make(map[string]cached),
	}
}

// NewDefaultRegistry renders from the embedded defaults only.
func NewDefaultRegistry() *Registry {
	return NewRegistry(NewFSLoader(Defaults), nil)
}

// Register binds namespace to base. Registering again replaces base.
func (r *Registry) Register(namespace, base string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.namespaces[namespace] = base
	r.logger.Debug("namespace registered", "namespace", namespace, "base", base)
}

func (r *Registry) Registered(namespace string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.namespaces[namespace]
	return ok
}

// Render executes namespace/name with data and returns the output.
func (r *Registry) Render(ctx context.Context, namespace, name string, data any) (string, error) {
	ctx, span := tracer.Start(ctx, "Templates.Render")
	defer span.End()

	p, err := r.resolve(namespace, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.String("template.path", p))

	out, err := r.render(ctx, p, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetStatus(codes.Ok, "")
	return out, nil
}

func (r *Registry) resolve(namespace, name string) (string, error) {
	r.mu.RLock()
	base, ok := r.namespaces[namespace]
	r.mu.RUnlock()
	if !ok {
		return "", errors.Wrap(ErrNamespaceNotRegistered, namespace)
	}
	if name == "" {
		return "", errors.Wrap(ErrTemplateNotFound, "empty template name")
	}
	if path.Ext(name) == "" {
		name += ".html"
	}
	return path.Join(base, strings.TrimPrefix(name, "/")), nil
}

func (r *Registry) render(ctx context.Context, p string, data any) (string, error) {
	src, err := r.loader.Load(ctx, p)
	if err != nil {
		return "", err
	}

	exec, err := r.parse(p, src)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := exec.Execute(&buf, data); err != nil {
		return "", errors.Wrapf(err, "failed to execute template %q", p)
	}
	return buf.String(), nil
}

func (r *Registry) parse(p string, src []byte) (executor, error) {
	h := fnv.New64a()
	_, _ = h.Write(src)
	sum := h.Sum64()

	r.mu.RLock()
	c, ok := r.parsed[p]
	r.mu.RUnlock()
	if ok && c.sum == sum {
		return c.exec, nil
	}

	var exec executor
	if path.Ext(p) == ".html" {
		t, err := htmltemplate.New(path.Base(p)).Funcs(htmlFuncs).Parse(string(src))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse template %q", p)
		}
		exec = htmlExec{t}
	} else {
		t, err := texttemplate.New(path.Base(p)).Funcs(textFuncs).Parse(string(src))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse template %q", p)
		}
		exec = textExec{t}
	}

	r.mu.Lock()
	r.parsed[p] = cached{sum: sum, exec: exec}
	r.mu.Unlock()
	return exec, nil
}

var textFuncs = texttemplate.FuncMap{
	"autop":      textutil.Autop,
	"texturize":  textutil.Texturize,
	"strip_tags": textutil.StripTags,
	"esc_html":   textutil.EscapeHTML,
}

// In HTML templates the formatting helpers return markup that must not be
// escaped again. "raw" marks trusted markup such as pre-rendered content.
var htmlFuncs = htmltemplate.FuncMap{
	"autop":      func(s string) htmltemplate.HTML { return htmltemplate.HTML(textutil.Autop(s)) },
	"texturize":  func(s string) htmltemplate.HTML { return htmltemplate.HTML(textutil.Texturize(s)) },
	"strip_tags": textutil.StripTags,
	"esc_html":   func(s string) htmltemplate.HTML { return htmltemplate.HTML(textutil.EscapeHTML(s)) },
	"raw":        func(s string) htmltemplate.HTML { return htmltemplate.HTML(s) },
}
