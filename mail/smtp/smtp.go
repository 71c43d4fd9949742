package smtp

import (
	"time"

	"github.com/pkg/errors"
	gomail "github.com/wneessen/go-mail"
)

// TLS policies accepted by SMTP_TLS_POLICY.
const (
	TLSMandatory     = "mandatory"
	TLSOpportunistic = "opportunistic"
	TLSNone          = "none"
)

// Config contains SMTP connection parameters.
type Config struct {
	Host      string        `envconfig:"SMTP_HOST" required:"true"`               // smtp.gmail.com
	Port      int           `envconfig:"SMTP_PORT" default:"587"`                 // 587 for STARTTLS, 465 for SSL
	Username  string        `envconfig:"SMTP_USER"`                               // username or email, empty disables auth
	Password  string        `envconfig:"SMTP_PASSWORD"`                           // password or app password
	From      string        `envconfig:"SMTP_FROM"`                               // default from address (optional)
	TLSPolicy string        `envconfig:"SMTP_TLS_POLICY" default:"opportunistic"` // mandatory, opportunistic or none
	SSL       bool          `envconfig:"SMTP_SSL" default:"false"`                // implicit TLS
	Insecure  bool          `envconfig:"SMTP_INSECURE" default:"false"`           // skip certificate verification
	Timeout   time.Duration `envconfig:"SMTP_TIMEOUT" default:"15s"`
}

func (c Config) tlsPolicy() (gomail.TLSPolicy, error) {
	switch c.TLSPolicy {
	case TLSMandatory:
		return gomail.TLSMandatory, nil
	case TLSOpportunistic, "":
		return gomail.TLSOpportunistic, nil
	case TLSNone:
		return gomail.NoTLS, nil
	}
	return gomail.NoTLS, errors.Errorf("unknown tls policy %q", c.TLSPolicy)
}
