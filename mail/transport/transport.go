// Package transport selects and configures a mail.Sender from the
// environment.
package transport

import (
	"context"
	"io"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/pure-golang/emails/env"
	"github.com/pure-golang/emails/mail"
	maillog "github.com/pure-golang/emails/mail/log"
	"github.com/pure-golang/emails/mail/noop"
	"github.com/pure-golang/emails/mail/outbox"
	"github.com/pure-golang/emails/mail/resend"
	"github.com/pure-golang/emails/mail/sendmail"
	"github.com/pure-golang/emails/mail/smtp"
	"github.com/pure-golang/emails/queue"
	"github.com/pure-golang/emails/queue/kafka"
	"github.com/pure-golang/emails/queue/rabbitmq"
)

type Provider string

const (
	ProviderSMTP     Provider = "smtp"
	ProviderSendmail Provider = "sendmail"
	ProviderResend   Provider = "resend"
	ProviderOutbox   Provider = "outbox"
	ProviderLog      Provider = "log"
	ProviderNoop     Provider = "noop"
)

type Broker string

const (
	BrokerKafka    Broker = "kafka"
	BrokerRabbitMQ Broker = "rabbitmq"
)

type Config struct {
	Provider Provider `envconfig:"MAIL_PROVIDER" default:"log"`
}

// OutboxConfig selects the broker behind the outbox provider and the relay.
type OutboxConfig struct {
	Broker Broker `envconfig:"OUTBOX_BROKER" default:"kafka"`
	Topic  string `envconfig:"OUTBOX_TOPIC"` // broker default when empty
}

// RelayConfig names the provider the relay delivers through.
type RelayConfig struct {
	Provider Provider `envconfig:"RELAY_MAIL_PROVIDER" default:"smtp"`
	TempDir  string   `envconfig:"RELAY_TEMP_DIR"`
}

// NewDefault builds the sender named by MAIL_PROVIDER.
func NewDefault(ctx context.Context, l *slog.Logger) (mail.Sender, error) {
	var cfg Config
	if err := env.InitConfig(&cfg); err != nil {
		return nil, err
	}
	return New(ctx, cfg.Provider, l)
}

// New builds a sender for p. Only the selected provider's variables are
// read, so SMTP_HOST is not required when MAIL_PROVIDER=log.
func New(ctx context.Context, p Provider, l *slog.Logger) (mail.Sender, error) {
	switch p {
	case ProviderSMTP:
		var cfg smtp.Config
		if err := env.InitConfig(&cfg); err != nil {
			return nil, err
		}
		return smtp.NewSender(cfg, &smtp.SenderOptions{Logger: l})
	case ProviderSendmail:
		var cfg sendmail.Config
		if err := env.InitConfig(&cfg); err != nil {
			return nil, err
		}
		return sendmail.NewSender(cfg, &sendmail.SenderOptions{Logger: l})
	case ProviderResend:
		var cfg resend.Config
		if err := env.InitConfig(&cfg); err != nil {
			return nil, err
		}
		return resend.NewSender(cfg, &resend.SenderOptions{Logger: l})
	case ProviderOutbox:
		var cfg OutboxConfig
		if err := env.InitConfig(&cfg); err != nil {
			return nil, err
		}
		pub, err := NewPublisher(ctx, cfg.Broker, cfg.Topic, l)
		if err != nil {
			return nil, err
		}
		return outbox.NewSender(pub, &outbox.SenderOptions{Topic: cfg.Topic, Logger: l}), nil
	case ProviderLog:
		return maillog.NewSender(&maillog.SenderOptions{Logger: l}), nil
	case ProviderNoop:
		return noop.NewSender(), nil
	}
	return nil, errors.Errorf("unknown mail provider %q", p)
}

// NewRelay builds an outbox relay delivering through RELAY_MAIL_PROVIDER.
func NewRelay(ctx context.Context, l *slog.Logger) (*outbox.Relay, error) {
	var cfg RelayConfig
	if err := env.InitConfig(&cfg); err != nil {
		return nil, err
	}
	if cfg.Provider == ProviderOutbox {
		return nil, errors.New("relay cannot deliver to the outbox it consumes")
	}
	var ocfg OutboxConfig
	if err := env.InitConfig(&ocfg); err != nil {
		return nil, err
	}

	sender, err := New(ctx, cfg.Provider, l)
	if err != nil {
		return nil, errors.Wrap(err, "relay sender")
	}
	sub, err := NewSubscriber(ctx, ocfg.Broker, ocfg.Topic, l)
	if err != nil {
		_ = sender.Close()
		return nil, err
	}
	return outbox.NewRelay(sub, sender, &outbox.RelayOptions{TempDir: cfg.TempDir, Logger: l}), nil
}

// brokerPublisher closes the publisher and then the connection behind it.
type brokerPublisher struct {
	queue.Publisher
	closers []io.Closer
}

func (p *brokerPublisher) Close() error {
	var first error
	for _, c := range p.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// brokerSubscriber closes the subscriber and then its connection.
type brokerSubscriber struct {
	queue.Subscriber
	conn io.Closer
}

func (s *brokerSubscriber) Close() error {
	err := s.Subscriber.Close()
	if cerr := s.conn.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// NewPublisher connects to broker using KAFKA_* or RABBITMQ_* variables.
// An empty topic means the broker default.
func NewPublisher(_ context.Context, b Broker, topic string, l *slog.Logger) (queue.Publisher, error) {
	switch b {
	case BrokerKafka:
		var cfg kafka.Config
		if err := env.InitConfig(&cfg); err != nil {
			return nil, err
		}
		pub := kafka.NewPublisher(kafka.NewDialer(cfg, &kafka.DialerOptions{Logger: l}), kafka.PublisherConfig{})
		return &brokerPublisher{Publisher: pub, closers: []io.Closer{pub}}, nil
	case BrokerRabbitMQ:
		var cfg rabbitmq.Config
		if err := env.InitConfig(&cfg); err != nil {
			return nil, err
		}
		if topic != "" {
			cfg.Queue = topic
		}
		dialer, err := dialRabbitMQ(cfg, l)
		if err != nil {
			return nil, err
		}
		pub := rabbitmq.NewPublisher(dialer, rabbitmq.PublisherConfig{RoutingKey: cfg.Queue})
		return &brokerPublisher{Publisher: pub, closers: []io.Closer{pub, dialer}}, nil
	}
	return nil, errors.Errorf("unknown outbox broker %q", b)
}

// NewSubscriber connects to broker; an empty topic means the broker default.
func NewSubscriber(_ context.Context, b Broker, topic string, l *slog.Logger) (queue.Subscriber, error) {
	switch b {
	case BrokerKafka:
		var cfg kafka.Config
		if err := env.InitConfig(&cfg); err != nil {
			return nil, err
		}
		return kafka.NewSubscriber(kafka.NewDialer(cfg, &kafka.DialerOptions{Logger: l}), topic,
			kafka.SubscriberConfig{Name: "emails-relay"}), nil
	case BrokerRabbitMQ:
		var cfg rabbitmq.Config
		if err := env.InitConfig(&cfg); err != nil {
			return nil, err
		}
		if topic != "" {
			cfg.Queue = topic
		}
		dialer, err := dialRabbitMQ(cfg, l)
		if err != nil {
			return nil, err
		}
		sub := rabbitmq.NewSubscriber(dialer, cfg.Queue, rabbitmq.SubscriberOptions{Name: "emails-relay"})
		return &brokerSubscriber{Subscriber: sub, conn: dialer}, nil
	}
	return nil, errors.Errorf("unknown outbox broker %q", b)
}

func dialRabbitMQ(cfg rabbitmq.Config, l *slog.Logger) (*rabbitmq.Dialer, error) {
	dialer := rabbitmq.NewDialer(cfg.URL, &rabbitmq.DialerOptions{Logger: l})
	if err := dialer.Connect(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to rabbitmq")
	}
	if err := dialer.DeclareQueue(cfg.Queue); err != nil {
		_ = dialer.Close()
		return nil, err
	}
	return dialer, nil
}
