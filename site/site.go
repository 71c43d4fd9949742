// Package site describes the host site emails are sent on behalf of.
package site

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/pure-golang/emails/env"
)

// Config contains the host site settings.
type Config struct {
	URL        string `envconfig:"SITE_URL" required:"true"`         // https://example.com
	Title      string `envconfig:"SITE_TITLE"`                       // may contain HTML entities
	AdminEmail string `envconfig:"SITE_ADMIN_EMAIL" required:"true"` // default sender address
}

// Site exposes the host settings through getters.
type Site struct {
	cfg Config
}

// New creates a Site from cfg.
func New(cfg Config) *Site {
	return &Site{cfg: cfg}
}

// NewDefault reads Config from the environment.
func NewDefault() (*Site, error) {
	var cfg Config
	if err := env.InitConfig(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to init site config")
	}
	return New(cfg), nil
}

// Domain returns the host part of the site URL, without scheme, port or path.
func (s *Site) Domain() string {
	raw := strings.TrimSpace(s.cfg.URL)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "//" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// URL returns the configured site URL.
func (s *Site) URL() string {
	return s.cfg.URL
}

// Title returns the site title as configured, entities included.
func (s *Site) Title() string {
	return s.cfg.Title
}

// AdminEmail returns the configured administrator address, unsanitized.
func (s *Site) AdminEmail() string {
	return s.cfg.AdminEmail
}
