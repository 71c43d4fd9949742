package rabbitmq

// Config contains RabbitMQ connection settings.
type Config struct {
	URL   string `envconfig:"RABBITMQ_URL" required:"true"`
	Queue string `envconfig:"RABBITMQ_QUEUE" default:"emails.outbox"`
}
