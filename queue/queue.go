package queue

import (
	"context"
	"io"
	"time"
)

// Publisher sends messages to a topic of a message broker.
type Publisher interface {
	Publish(ctx context.Context, msgs ...Message) error
}

// Subscriber consumes messages from a topic. Listen blocks until Close.
type Subscriber interface {
	Listen(h Handler)
	io.Closer
}

// Handler returns retry=true when the error is transient and the message
// should be delivered again.
type Handler func(ctx context.Context, msg Delivery) (retry bool, err error)

// Encoder converts a message body to bytes.
type Encoder interface {
	Encode(i any) ([]byte, error)
	ContentType() string
}

// Message is published to a broker.
type Message struct {
	Topic   string // empty means the publisher's default
	Key     string // partitioning key and message id; generated when empty
	Headers map[string]string
	Body    any
	TTL     time.Duration
}

// EncodeValue converts Body with enc. A nil Body encodes to nil.
func (m *Message) EncodeValue(enc Encoder) ([]byte, error) {
	if m.Body == nil {
		return nil, nil
	}
	return enc.Encode(m.Body)
}

// Delivery is a consumed message.
type Delivery struct {
	Headers map[string]string
	Body    []byte
}
