package kafka

import "time"

// Config contains Kafka connection settings.
type Config struct {
	Brokers     []string      `envconfig:"KAFKA_BROKERS" required:"true"`
	GroupID     string        `envconfig:"KAFKA_GROUP_ID" default:"emails-relay"`
	Topic       string        `envconfig:"KAFKA_TOPIC" default:"emails.outbox"`
	DialTimeout time.Duration `envconfig:"KAFKA_DIAL_TIMEOUT" default:"10s"`
}
