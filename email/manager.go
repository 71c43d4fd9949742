package email

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/pure-golang/emails/logger"
	"github.com/pure-golang/emails/mail"
	"github.com/pure-golang/emails/textutil"
)

// Namespace is the template namespace every Email renders from.
const Namespace = "emails"

// Site is the host configuration a Manager derives its identity from.
type Site interface {
	Domain() string
	Title() string
	AdminEmail() string
}

// TemplateRegistry renders namespaced templates.
type TemplateRegistry interface {
	Register(namespace, base string)
	Render(ctx context.Context, namespace, name string, data any) (string, error)
}

// Manager owns the sender identity shared by emails. The from name and
// address are computed from Site on first use and cached until a setter
// replaces them.
type Manager struct {
	site      Site
	templates TemplateRegistry
	mailer    *mail.Mailer
	logger    *slog.Logger

	setupOnce sync.Once
	base      string

	mu        sync.Mutex
	fromName  *string
	fromEmail *string

	// sendMu serializes message composition in Email.Send; hooks are global
	// to the Mailer. Delivery runs outside it.
	sendMu sync.Mutex

	closers []io.Closer
}

// ManagerOptions contains options for Manager creation.
type ManagerOptions struct {
	// Base is the directory the emails namespace maps to, "emails" by default.
	Base   string
	Logger *slog.Logger
}

func NewManager(site Site, registry TemplateRegistry, mailer *mail.Mailer, opts *ManagerOptions) *Manager {
	if opts == nil {
		opts = &ManagerOptions{}
	}
	if opts.Base == "" {
		opts.Base = Namespace
	}

	m := &Manager{
		site:      site,
		templates: registry,
		mailer:    mailer,
		base:      opts.Base,
		logger:    logger.Named(opts.Logger, "email"),
	}
	m.setup()
	return m
}

func (m *Manager) setup() {
	m.setupOnce.Do(func() {
		m.templates.Register(Namespace, m.base)
	})
}

// FromName returns the sender display name, the blog name by default.
func (m *Manager) FromName() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fromName == nil {
		m.setFromNameLocked(m.BlogName())
	}
	return *m.fromName
}

// SetFromName decodes entities in name and drops invalid UTF-8.
func (m *Manager) SetFromName(name string) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setFromNameLocked(name)
	return m
}

func (m *Manager) setFromNameLocked(name string) {
	v := textutil.DecodeEntities(name)
	m.fromName = &v
}

// FromEmail returns the sender address, the sanitized admin email by default.
func (m *Manager) FromEmail() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fromEmail == nil {
		m.setFromEmailLocked(m.site.AdminEmail())
	}
	return *m.fromEmail
}

// SetFromEmail sanitizes addr. Input that cannot be repaired becomes "".
func (m *Manager) SetFromEmail(addr string) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setFromEmailLocked(addr)
	return m
}

func (m *Manager) setFromEmailLocked(addr string) {
	v := textutil.SanitizeEmail(addr)
	if v == "" && strings.TrimSpace(addr) != "" {
		m.logger.Warn("discarding invalid from address", "address", addr)
	}
	m.fromEmail = &v
}

// BlogName returns the site title with entities decoded.
func (m *Manager) BlogName() string {
	return textutil.DecodeEntities(m.site.Title())
}

func (m *Manager) Site() Site {
	return m.site
}

func (m *Manager) Templates() TemplateRegistry {
	return m.templates
}

func (m *Manager) Mailer() *mail.Mailer {
	return m.mailer
}

// Close closes the mail transport and any backends the Manager was built
// with by InitDefault.
func (m *Manager) Close() error {
	err := m.mailer.Close()
	for i := len(m.closers) - 1; i >= 0; i-- {
		if cerr := m.closers[i].Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	m.closers = nil
	return err
}
