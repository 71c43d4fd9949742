package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pure-golang/emails/queue"
)

// ConsumeRetryInterval is the pause before a failed read session restarts.
const ConsumeRetryInterval = 5 * time.Second

var _ queue.Subscriber = (*Subscriber)(nil)

// messageReader is the part of *kafka.Reader the subscriber uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Subscriber consumes one topic within a consumer group. Offsets are
// committed after the handler finishes, successfully or not.
type Subscriber struct {
	topic  string
	dialer *Dialer
	cfg    SubscriberConfig
	logger *slog.Logger

	newReader func() messageReader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// SubscriberConfig contains Subscriber parameters.
type SubscriberConfig struct {
	Name      string        // consumer name for logs; random by default
	MaxTryNum int           // handler attempts per message, 3 by default
	Backoff   time.Duration // pause between attempts
}

func NewDefaultSubscriber(dialer *Dialer, topic string) *Subscriber {
	return NewSubscriber(dialer, topic, SubscriberConfig{})
}

func NewSubscriber(dialer *Dialer, topic string, cfg SubscriberConfig) *Subscriber {
	if cfg.Name == "" {
		cfg.Name = uuid.NewString()
	}
	if cfg.MaxTryNum <= 0 {
		cfg.MaxTryNum = 3
	}
	if cfg.Backoff == 0 {
		cfg.Backoff = time.Second
	}
	if topic == "" {
		topic = dialer.Topic()
	}

	groupID := dialer.cfg.GroupID
	if groupID == "" {
		groupID = cfg.Name
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Subscriber{
		topic:  topic,
		dialer: dialer,
		cfg:    cfg,
		logger: dialer.logger.With("subscriber", cfg.Name, "topic", topic),
		ctx:    ctx,
		cancel: cancel,
	}
	s.newReader = func() messageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:     dialer.cfg.Brokers,
			GroupID:     groupID,
			Topic:       topic,
			Dialer:      dialer.dialer,
			MinBytes:    1,
			MaxBytes:    10e6,
			MaxWait:     time.Second,
			Logger:      kafka.LoggerFunc(dialer.logger.Debug),
			ErrorLogger: kafka.LoggerFunc(dialer.logger.Error),
		})
	}
	return s
}

// Listen consumes messages until Close is called.
func (s *Subscriber) Listen(handler queue.Handler) {
	s.wg.Add(1)
	defer s.wg.Done()

	s.logger.Info("listening...")
	for {
		err := s.listen(handler)
		if s.ctx.Err() != nil {
			return
		}
		if err != nil {
			s.logger.Error("listen error", "error", err)
		}

		select {
		case <-s.ctx.Done():
			return
		case <-time.After(ConsumeRetryInterval):
		}
	}
}

func (s *Subscriber) listen(handler queue.Handler) error {
	reader := s.newReader()
	defer func() {
		if err := reader.Close(); err != nil {
			s.logger.Error("failed to close reader", "error", err)
		}
	}()

	for {
		msg, err := reader.FetchMessage(s.ctx)
		if err != nil {
			return errors.Wrap(err, "failed to fetch message")
		}

		s.handle(msg, handler)

		if err := reader.CommitMessages(s.ctx, msg); err != nil {
			return errors.Wrap(err, "failed to commit message")
		}
	}
}

// handle runs handler up to MaxTryNum times while it asks for a retry.
func (s *Subscriber) handle(msg kafka.Message, handler queue.Handler) {
	headers := fromKafkaHeaders(msg.Headers)

	for attempt := 1; attempt <= s.cfg.MaxTryNum; attempt++ {
		ctx := otel.GetTextMapPropagator().Extract(s.ctx, headersCarrier(headers))
		ctx, span := tracer.Start(ctx, "Kafka.Consume", trace.WithSpanKind(trace.SpanKindConsumer))
		span.SetAttributes(
			attribute.String("topic", msg.Topic),
			attribute.Int("partition", msg.Partition),
			attribute.Int64("offset", msg.Offset),
			attribute.Int("attempt", attempt),
		)

		retry, err := handler(ctx, queue.Delivery{Headers: headers, Body: msg.Value})
		if err == nil {
			span.SetStatus(codes.Ok, "")
			span.End()
			return
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		s.logger.Error("handle message error", "error", err, "attempt", attempt, "retry", retry)

		if !retry || attempt == s.cfg.MaxTryNum {
			return
		}

		select {
		case <-s.ctx.Done():
			return
		case <-time.After(s.cfg.Backoff):
		}
	}
}

// Close stops Listen and waits for the in-flight message.
func (s *Subscriber) Close() error {
	s.logger.Info("closing subscriber...")
	s.cancel()
	s.wg.Wait()
	s.logger.Info("subscriber closed")
	return nil
}
