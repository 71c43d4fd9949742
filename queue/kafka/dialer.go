package kafka

import (
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Dialer holds the connection settings shared by publishers and subscribers.
type Dialer struct {
	dialer *kafka.Dialer
	cfg    Config
	logger *slog.Logger
}

// DialerOptions contains options for Dialer creation.
type DialerOptions struct {
	Logger *slog.Logger
}

func NewDialer(cfg Config, options *DialerOptions) *Dialer {
	if options == nil {
		options = new(DialerOptions)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}

	return &Dialer{
		cfg:    cfg,
		logger: options.Logger.WithGroup("kafka"),
		dialer: &kafka.Dialer{
			Timeout:   cfg.DialTimeout,
			DualStack: true,
		},
	}
}

func NewDefaultDialer(brokers []string) *Dialer {
	return NewDialer(Config{Brokers: brokers}, nil)
}

func (d *Dialer) Brokers() []string {
	return d.cfg.Brokers
}

// Topic returns the default topic for messages without one.
func (d *Dialer) Topic() string {
	return d.cfg.Topic
}
