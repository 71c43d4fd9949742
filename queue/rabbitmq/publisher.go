package rabbitmq

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pure-golang/emails/queue"
	"github.com/pure-golang/emails/queue/encoders"
)

var _ queue.Publisher = (*Publisher)(nil)

type Publisher struct {
	mx      sync.Mutex
	dialer  *Dialer
	cfg     PublisherConfig
	channel *amqp.Channel
	closed  <-chan *amqp.Error
}

type DeliveryMode uint8

const (
	Transient  = DeliveryMode(amqp.Transient)
	Persistent = DeliveryMode(amqp.Persistent)
)

// PublisherConfig - config that can be passed to Publisher constructor.
// Message.Topic overrides RoutingKey.
type PublisherConfig struct {
	Exchange, RoutingKey string
	DeliveryMode         DeliveryMode
	Encoder              queue.Encoder
	MessageTTL           time.Duration // precision to milliseconds
}

func NewPublisher(dialer *Dialer, cfg PublisherConfig) *Publisher {
	if cfg.Encoder == nil {
		cfg.Encoder = encoders.JSON{}
	}
	if cfg.DeliveryMode == 0 {
		cfg.DeliveryMode = Persistent
	}

	// closed channel forces the first Publish to open a channel
	closed := make(chan *amqp.Error, 1)
	close(closed)

	return &Publisher{
		dialer: dialer,
		cfg:    cfg,
		closed: closed,
	}
}

// Publish messages to the queue. Method is sync.
func (p *Publisher) Publish(ctx context.Context, messages ...queue.Message) error {
	p.mx.Lock()
	defer p.mx.Unlock()

	select {
	case <-p.closed:
		channel, err := p.dialer.Channel()
		if err != nil {
			return err
		}
		p.channel = channel
		p.closed = channel.NotifyClose(make(chan *amqp.Error, 1))
	default:
	}

	for _, msg := range messages {
		if err := p.publish(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, msg queue.Message) error {
	ctx, span := tracer.Start(ctx, "RabbitMQ.Publish", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()

	body, err := msg.EncodeValue(p.cfg.Encoder)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.Wrap(err, "failed to encode message body")
	}

	id := msg.Key
	if id == "" {
		id = uuid.NewString()
	}

	amqpMsg := amqp.Publishing{
		ContentType:  p.cfg.Encoder.ContentType(),
		MessageId:    id,
		DeliveryMode: uint8(p.cfg.DeliveryMode),
		Body:         body,
		Headers:      amqp.Table{},
	}
	for k, v := range msg.Headers {
		amqpMsg.Headers[k] = v
	}
	if p.cfg.MessageTTL > 0 {
		amqpMsg.Expiration = strconv.FormatInt(p.cfg.MessageTTL.Milliseconds(), 10)
	}
	if msg.TTL > 0 {
		amqpMsg.Expiration = strconv.FormatInt(msg.TTL.Milliseconds(), 10)
	}

	otel.GetTextMapPropagator().Inject(ctx, tableCarrier(amqpMsg.Headers))

	routingKey := p.cfg.RoutingKey
	if msg.Topic != "" {
		routingKey = msg.Topic
	}

	span.SetAttributes(
		attribute.String("id", id),
		attribute.String("exchange", p.cfg.Exchange),
		attribute.String("key", routingKey),
		attribute.Int("body_size", len(body)),
	)

	if err := p.channel.PublishWithContext(ctx, p.cfg.Exchange, routingKey, false, false, amqpMsg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.Wrap(err, "failed to publish message to RabbitMQ")
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Close closes the publishing channel.
func (p *Publisher) Close() error {
	p.mx.Lock()
	defer p.mx.Unlock()

	if p.channel == nil {
		return nil
	}
	err := p.channel.Close()
	p.channel = nil
	if err != nil && !errors.Is(err, amqp.ErrClosed) {
		return errors.Wrap(err, "failed to close channel")
	}
	return nil
}
