package rabbitmq

import (
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

var ErrConnectionClosed = errors.New("connection is closed manually")

// Dialer owns the AMQP connection and re-dials it when the broker drops it.
type Dialer struct {
	uri     string
	conn    *amqp.Connection
	options *DialerOptions
	mx      sync.Mutex
}

// RetryPolicy of dialer reconnection.
type RetryPolicy interface {
	TryNum(i int) (duration time.Duration, stop bool)
}

// DialerOptions set dialer params.
type DialerOptions struct {
	RetryPolicy RetryPolicy
	Logger      *slog.Logger
}

func NewDefaultDialer(uri string) *Dialer {
	return NewDialer(uri, nil)
}

func NewDialer(uri string, options *DialerOptions) *Dialer {
	if options == nil {
		options = new(DialerOptions)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	options.Logger = options.Logger.WithGroup("rabbitmq")

	if options.RetryPolicy == nil {
		options.RetryPolicy = NewDefaultMaxInterval()
	}

	return &Dialer{
		uri:     uri,
		options: options,
	}
}

func (d *Dialer) Connect() error {
	d.options.Logger.Debug("dialing...")

	d.mx.Lock()
	defer d.mx.Unlock()

	conn, err := amqp.DialConfig(d.uri, amqp.Config{})
	if err != nil {
		return errors.Wrap(err, "failed to dial")
	}

	ch := conn.NotifyClose(make(chan *amqp.Error, 1))
	d.conn = conn
	d.options.Logger.Debug("connection is stable")
	go d.handleReconnect(ch)
	return nil
}

func (d *Dialer) Channel() (*amqp.Channel, error) {
	d.mx.Lock()
	defer d.mx.Unlock()

	if d.conn == nil {
		return nil, ErrConnectionClosed
	}

	channel, err := d.conn.Channel()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open channel")
	}
	return channel, nil
}

// DeclareQueue declares a durable queue so publishers and subscribers can
// start in any order.
func (d *Dialer) DeclareQueue(name string) error {
	channel, err := d.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = channel.Close() }()

	if _, err := channel.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return errors.Wrapf(err, "failed to declare queue %q", name)
	}
	return nil
}

func (d *Dialer) Close() error {
	d.mx.Lock()
	defer d.mx.Unlock()

	if d.conn == nil {
		return nil
	}
	if err := d.conn.Close(); err != nil {
		return errors.Wrap(err, "failed to close RabbitMQ connection")
	}
	d.conn = nil
	return nil
}

// handleReconnect waits for the connection to fail and re-dials per RetryPolicy.
func (d *Dialer) handleReconnect(ch chan *amqp.Error) {
	amqpErr, ok := <-ch
	if !ok {
		d.options.Logger.Debug("shutdown")
		return
	}

	d.options.Logger.Warn("disconnected", "error", amqpErr.Error())

	for i := 0; ; i++ {
		err := d.Connect()
		if err == nil {
			return
		}

		sleep, stop := d.options.RetryPolicy.TryNum(i)
		if stop {
			d.options.Logger.Error("cannot connect to rabbitmq, giving up", "error", err)
			return
		}
		d.options.Logger.Error("failed to connect", "error", err, "retry_in", sleep)
		time.Sleep(sleep)
	}
}
