package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pure-golang/emails/queue"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type fakeReader struct {
	mu        sync.Mutex
	msgs      chan kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case m := <-r.msgs:
		return m, nil
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func testDialer() *Dialer {
	return NewDialer(Config{Brokers: []string{"localhost:9092"}, Topic: "emails.outbox"}, &DialerOptions{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestNewDialer_Defaults(t *testing.T) {
	d := NewDialer(Config{Brokers: []string{"b:9092"}}, nil)

	assert.Equal(t, []string{"b:9092"}, d.Brokers())
	assert.Equal(t, 10*time.Second, d.dialer.Timeout)
}

func TestPublisher_Publish(t *testing.T) {
	p := NewPublisher(testDialer(), PublisherConfig{})
	w := &fakeWriter{}
	p.writer = w

	err := p.Publish(context.Background(), queue.Message{
		Key:     "id-1",
		Headers: map[string]string{"x-kind": "welcome"},
		Body:    map[string]string{"subject": "Hi"},
	})
	require.NoError(t, err)

	require.Len(t, w.msgs, 1)
	m := w.msgs[0]
	assert.Equal(t, "emails.outbox", m.Topic)
	assert.Equal(t, "id-1", string(m.Key))
	assert.JSONEq(t, `{"subject":"Hi"}`, string(m.Value))

	headers := fromKafkaHeaders(m.Headers)
	assert.Equal(t, "welcome", headers["x-kind"])
	assert.Equal(t, "application/json", headers["content-type"])
}

func TestPublisher_Publish_GeneratesKey(t *testing.T) {
	p := NewPublisher(testDialer(), PublisherConfig{})
	w := &fakeWriter{}
	p.writer = w

	require.NoError(t, p.Publish(context.Background(), queue.Message{Topic: "other", Body: "x"}))
	assert.Equal(t, "other", w.msgs[0].Topic)
	assert.Len(t, string(w.msgs[0].Key), 36)
}

func TestPublisher_Publish_WriterError(t *testing.T) {
	p := NewPublisher(testDialer(), PublisherConfig{})
	p.writer = &fakeWriter{err: errors.New("leader not available")}

	err := p.Publish(context.Background(), queue.Message{Body: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}

func TestPublisher_Close(t *testing.T) {
	p := NewPublisher(testDialer(), PublisherConfig{})
	w := &fakeWriter{}
	p.writer = w

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)

	err := p.Publish(context.Background(), queue.Message{Body: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publisher is closed")
}

func TestSubscriber_Listen_RetriesThenCommits(t *testing.T) {
	s := NewSubscriber(testDialer(), "", SubscriberConfig{MaxTryNum: 3, Backoff: time.Millisecond})
	r := &fakeReader{msgs: make(chan kafka.Message, 2)}
	s.newReader = func() messageReader { return r }

	body, _ := json.Marshal(map[string]string{"subject": "Hi"})
	r.msgs <- kafka.Message{Topic: "emails.outbox", Offset: 7, Value: body}

	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})
	go s.Listen(func(_ context.Context, d queue.Delivery) (bool, error) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 2 {
			return true, errors.New("smtp temporarily unavailable")
		}
		assert.JSONEq(t, `{"subject":"Hi"}`, string(d.Body))
		close(done)
		return false, nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not called")
	}

	assert.Eventually(t, func() bool { return len(r.commits()) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Close())
	assert.Equal(t, []int64{7}, r.commits())

	mu.Lock()
	assert.Equal(t, 2, attempts)
	mu.Unlock()
}

func TestSubscriber_Listen_NoRetryOnPermanentError(t *testing.T) {
	s := NewSubscriber(testDialer(), "emails.outbox", SubscriberConfig{MaxTryNum: 5, Backoff: time.Millisecond})
	r := &fakeReader{msgs: make(chan kafka.Message, 1)}
	s.newReader = func() messageReader { return r }
	r.msgs <- kafka.Message{Offset: 1}

	var mu sync.Mutex
	calls := 0
	go s.Listen(func(context.Context, queue.Delivery) (bool, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return false, errors.New("bad payload")
	})

	assert.Eventually(t, func() bool { return len(r.commits()) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Close())

	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
}
