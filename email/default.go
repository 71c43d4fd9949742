package email

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"github.com/pure-golang/emails/env"
	"github.com/pure-golang/emails/logger"
	"github.com/pure-golang/emails/mail"
	"github.com/pure-golang/emails/mail/noop"
	"github.com/pure-golang/emails/mail/transport"
	"github.com/pure-golang/emails/site"
	"github.com/pure-golang/emails/templates"
)

var (
	defaultMu      sync.Mutex
	defaultManager *Manager
)

// Config wires a Manager from the environment. Each part is read with its
// own variables, see LoadConfig.
type Config struct {
	Site      site.Config
	Templates templates.Config
	Provider  transport.Provider
	Logger    *slog.Logger
}

// LoadConfig reads SITE_*, TEMPLATES_* and MAIL_PROVIDER.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.InitConfig(&cfg.Site); err != nil {
		return cfg, errors.Wrap(err, "failed to init site config")
	}
	if err := env.InitConfig(&cfg.Templates); err != nil {
		return cfg, errors.Wrap(err, "failed to init templates config")
	}
	var tcfg transport.Config
	if err := env.InitConfig(&tcfg); err != nil {
		return cfg, errors.Wrap(err, "failed to init transport config")
	}
	cfg.Provider = tcfg.Provider
	return cfg, nil
}

// NewFromConfig builds a Manager with its template stack and mail transport.
func NewFromConfig(ctx context.Context, cfg Config) (*Manager, error) {
	stack, err := templates.NewStack(ctx, cfg.Templates, &templates.StackOptions{Logger: cfg.Logger})
	if err != nil {
		return nil, err
	}

	sender, err := transport.New(ctx, cfg.Provider, cfg.Logger)
	if err != nil {
		_ = stack.Close()
		return nil, err
	}

	m := NewManager(site.New(cfg.Site), stack.Registry,
		mail.NewMailer(sender, &mail.MailerOptions{Logger: cfg.Logger}),
		&ManagerOptions{Logger: cfg.Logger})
	m.closers = append(m.closers, stack)
	return m, nil
}

// InitDefault builds a Manager from cfg and makes it the default.
func InitDefault(ctx context.Context, cfg Config) (*Manager, error) {
	m, err := NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	SetDefault(m)
	return m, nil
}

// SetDefault replaces the Manager returned by Default.
func SetDefault(m *Manager) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultManager = m
}

// Default returns the process-wide Manager, building it from the
// environment on first use. When the environment is incomplete it falls
// back to embedded templates and a transport that discards mail.
func Default() *Manager {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultManager != nil {
		return defaultManager
	}

	ctx := context.Background()
	cfg, err := LoadConfig()
	if err == nil {
		defaultManager, err = NewFromConfig(ctx, cfg)
	}
	if err != nil {
		logger.WithErr(err).Warn("email: environment incomplete, using fallback manager")
		defaultManager = NewManager(site.New(cfg.Site), templates.NewDefaultRegistry(),
			mail.NewMailer(noop.NewSender(), nil), nil)
	}
	return defaultManager
}
