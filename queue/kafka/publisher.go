package kafka

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pure-golang/emails/queue"
	"github.com/pure-golang/emails/queue/encoders"
)

var _ queue.Publisher = (*Publisher)(nil)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes messages synchronously; each message names its topic.
type Publisher struct {
	mx     sync.Mutex
	dialer *Dialer
	cfg    PublisherConfig
	writer messageWriter
	closed bool
}

// PublisherConfig contains Publisher parameters.
type PublisherConfig struct {
	Balancer kafka.Balancer // LeastBytes by default
	Encoder  queue.Encoder  // JSON by default
}

func NewPublisher(dialer *Dialer, cfg PublisherConfig) *Publisher {
	if cfg.Encoder == nil {
		cfg.Encoder = encoders.JSON{}
	}
	if cfg.Balancer == nil {
		cfg.Balancer = &kafka.LeastBytes{}
	}

	return &Publisher{
		dialer: dialer,
		cfg:    cfg,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(dialer.cfg.Brokers...),
			Balancer:               cfg.Balancer,
			Transport:              &kafka.Transport{DialTimeout: dialer.cfg.DialTimeout},
			AllowAutoTopicCreation: true,
			Logger:                 kafka.LoggerFunc(dialer.logger.Debug),
			ErrorLogger:            kafka.LoggerFunc(dialer.logger.Error),
		},
	}
}

// Publish writes messages in order and stops at the first failure.
func (p *Publisher) Publish(ctx context.Context, messages ...queue.Message) error {
	p.mx.Lock()
	closed := p.closed
	p.mx.Unlock()
	if closed {
		return errors.New("publisher is closed")
	}

	for _, msg := range messages {
		if err := p.publish(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, msg queue.Message) error {
	ctx, span := tracer.Start(ctx, "Kafka.Publish", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()

	body, err := msg.EncodeValue(p.cfg.Encoder)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.Wrap(err, "failed to encode message body")
	}

	topic := msg.Topic
	if topic == "" {
		topic = p.dialer.Topic()
	}
	if topic == "" {
		return errors.New("message topic is empty and no default topic is configured")
	}

	key := msg.Key
	if key == "" {
		key = uuid.NewString()
	}

	headers := make(map[string]string, len(msg.Headers)+2)
	maps.Copy(headers, msg.Headers)
	headers["content-type"] = p.cfg.Encoder.ContentType()
	otel.GetTextMapPropagator().Inject(ctx, headersCarrier(headers))

	kmsg := kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   body,
		Headers: toKafkaHeaders(headers),
	}

	span.SetAttributes(
		attribute.String("topic", topic),
		attribute.String("key", key),
		attribute.Int("body_size", len(body)),
	)

	if err := p.writer.WriteMessages(ctx, kmsg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.Wrap(err, "failed to publish message to Kafka")
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Close flushes and closes the writer. Closing twice is not an error.
func (p *Publisher) Close() error {
	p.mx.Lock()
	defer p.mx.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if err := p.writer.Close(); err != nil {
		return errors.Wrap(err, "failed to close Kafka writer")
	}
	p.dialer.logger.Info("Kafka publisher closed")
	return nil
}
