package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
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
)

const (
	ConsumeRetryInterval     = 5 * time.Second
	InfiniteRetriesIndicator = -1
	KeyCountRetries          = "x-count-retries"
)

var _ queue.Subscriber = (*Subscriber)(nil)

// Subscriber implements queue.Subscriber and handles one message at a time.
// A retryable failure re-publishes the message with an incremented
// x-count-retries header until MaxTryNum is reached.
type Subscriber struct {
	name      string
	queueName string
	wg        sync.WaitGroup
	cfg       SubscriberOptions
	dialer    *Dialer
	close     chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
}

type SubscriberOptions struct {
	Name          string
	PrefetchCount int
	MaxTryNum     int // InfiniteRetriesIndicator to retry forever
	Backoff       time.Duration
}

func NewDefaultSubscriber(dialer *Dialer, queueName string) *Subscriber {
	return NewSubscriber(dialer, queueName, SubscriberOptions{})
}

func NewSubscriber(dialer *Dialer, queueName string, cfg SubscriberOptions) *Subscriber {
	if cfg.Name == "" {
		cfg.Name = uuid.NewString()
	}
	if cfg.PrefetchCount <= 0 {
		cfg.PrefetchCount = 1
	}
	if cfg.MaxTryNum == 0 {
		cfg.MaxTryNum = 3
	}
	if cfg.Backoff == 0 {
		cfg.Backoff = 5 * time.Second
	}

	return &Subscriber{
		name:      cfg.Name,
		queueName: queueName,
		dialer:    dialer,
		logger:    dialer.options.Logger.With("subscriber", cfg.Name, "queue", queueName),
		close:     make(chan struct{}),
		cfg:       cfg,
	}
}

func (s *Subscriber) Listen(handler queue.Handler) {
	s.wg.Add(1)
	defer s.wg.Done()

	s.logger.Info("listening...")
	for {
		needRestart, err := s.listen(handler)
		if !needRestart {
			return
		}
		if err != nil {
			s.logger.Error("listen error", "error", err)
		}

		select {
		case <-s.close:
			return
		case <-time.After(ConsumeRetryInterval):
		}
	}
}

func (s *Subscriber) listen(handler queue.Handler) (bool, error) {
	channel, err := s.dialer.Channel()
	if err != nil {
		return true, errors.Wrap(err, "failed to make channel")
	}
	defer func() {
		// the broker cleans up server-side state anyway
		_ = channel.Close()
	}()
	notifyClose := channel.NotifyClose(make(chan *amqp.Error, 1))

	if err := channel.Qos(s.cfg.PrefetchCount, 0, false); err != nil {
		return true, errors.Wrap(err, "failed to set prefetch count")
	}

	deliveries, err := channel.Consume(s.queueName, s.name, false, false, false, false, nil)
	if err != nil {
		return true, errors.Wrapf(err, "failed to start consuming from %q", s.queueName)
	}

	closing := s.close
	for {
		select {
		case <-closing:
			if err := channel.Cancel(s.name, false); err != nil {
				return false, errors.Wrapf(err, "cancel consumer %q", s.name)
			}
			// drain what was already delivered
			closing = nil
		case amqpErr := <-notifyClose:
			if amqpErr != nil {
				return true, errors.Wrap(amqpErr, "channel is closed")
			}
			return closing != nil, nil
		case delivery, ok := <-deliveries:
			if !ok {
				return false, nil
			}
			if err := s.handleDelivery(channel, delivery, handler); err != nil {
				return true, err
			}
		}
	}
}

func (s *Subscriber) Close() error {
	s.logger.Info("closing subscriber...")
	s.closeOnce.Do(func() { close(s.close) })
	s.wg.Wait()
	return nil
}

func (s *Subscriber) handleDelivery(channel *amqp.Channel, delivery amqp.Delivery, handler queue.Handler) error {
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), tableCarrier(delivery.Headers))
	ctx, span := tracer.Start(ctx, "RabbitMQ.Consume", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	span.SetAttributes(
		attribute.String("id", delivery.MessageId),
		attribute.String("queue", s.queueName),
		attribute.String("consumer_name", s.name),
	)

	retry, err := handler(ctx, newDelivery(delivery))
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return errors.Wrap(channel.Ack(delivery.DeliveryTag, false), "failed to ack")
	}

	s.logger.Error("handle message", "error", err, "id", delivery.MessageId)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if !retry {
		return errors.Wrap(channel.Reject(delivery.DeliveryTag, false), "failed to reject")
	}

	headers := delivery.Headers
	if headers == nil {
		headers = amqp.Table{}
	}
	count := retryCount(headers) + 1
	if s.cfg.MaxTryNum != InfiniteRetriesIndicator && int(count) >= s.cfg.MaxTryNum {
		return errors.Wrap(channel.Reject(delivery.DeliveryTag, false), "failed to reject")
	}

	headers[KeyCountRetries] = count
	msg := amqp.Publishing{
		MessageId:    delivery.MessageId,
		ContentType:  delivery.ContentType,
		DeliveryMode: delivery.DeliveryMode,
		Body:         delivery.Body,
		Headers:      headers,
	}
	if err := channel.PublishWithContext(ctx, "", s.queueName, false, false, msg); err != nil {
		return errors.Wrap(err, "failed to publish")
	}
	if err := channel.Ack(delivery.DeliveryTag, false); err != nil {
		return errors.Wrap(err, "failed to ack")
	}

	select {
	case <-s.close:
	case <-time.After(s.cfg.Backoff):
	}
	return nil
}

// retryCount reads x-count-retries; AMQP may decode it as any integer width.
func retryCount(h amqp.Table) int32 {
	switch v := h[KeyCountRetries].(type) {
	case int32:
		return v
	case int64:
		return int32(v)
	case int:
		return int32(v)
	case int16:
		return int32(v)
	case int8:
		return int32(v)
	}
	return 0
}

func newDelivery(msg amqp.Delivery) queue.Delivery {
	headers := make(map[string]string, len(msg.Headers))
	for k, v := range msg.Headers {
		headers[k] = fmt.Sprintf("%v", v)
	}
	return queue.Delivery{
		Headers: headers,
		Body:    msg.Body,
	}
}
