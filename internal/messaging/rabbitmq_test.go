package messaging

import (
	"context"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/burgerbar/internal/config"
)

type fakeBroker struct {
	mu    sync.Mutex
	conns []*fakeConn
}

func (b *fakeBroker) dial(string) (amqpConnection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	conn := &fakeConn{}
	b.conns = append(b.conns, conn)
	return conn, nil
}

func (b *fakeBroker) dials() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

func (b *fakeBroker) conn(i int) *fakeConn {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conns[i]
}

type fakeConn struct {
	mu       sync.Mutex
	closed   bool
	channels []*fakeChannel
}

func (c *fakeConn) Channel() (amqpChannel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, amqp.ErrClosed
	}
	ch := &fakeChannel{conn: c, deliveries: make(chan amqp.Delivery, 4)}
	c.channels = append(c.channels, ch)
	return ch, nil
}

func (c *fakeConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// drop simulates the broker going away: the connection closes and every
// consumer sees its delivery channel end.
func (c *fakeConn) drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for _, ch := range c.channels {
		ch.mu.Lock()
		if ch.consuming && !ch.drained {
			close(ch.deliveries)
			ch.drained = true
		}
		ch.mu.Unlock()
	}
}

func (c *fakeConn) consumer() *fakeChannel {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.channels {
		ch.mu.Lock()
		consuming := ch.consuming
		ch.mu.Unlock()
		if consuming {
			return ch
		}
	}
	return nil
}

func (c *fakeConn) published() []amqp.Publishing {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []amqp.Publishing
	for _, ch := range c.channels {
		ch.mu.Lock()
		out = append(out, ch.published...)
		ch.mu.Unlock()
	}
	return out
}

type fakeChannel struct {
	conn *fakeConn

	mu         sync.Mutex
	closed     bool
	consuming  bool
	drained    bool
	deliveries chan amqp.Delivery
	published  []amqp.Publishing
	routes     []string
	acked      []uint64
}

func (ch *fakeChannel) ExchangeDeclare(string, string, bool, bool, bool, bool, amqp.Table) error {
	return nil
}

func (ch *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	return amqp.Queue{Name: name}, nil
}

func (ch *fakeChannel) QueueBind(string, string, string, bool, amqp.Table) error { return nil }

func (ch *fakeChannel) Qos(int, int, bool) error { return nil }

func (ch *fakeChannel) ConsumeWithContext(context.Context, string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.consuming = true
	return ch.deliveries, nil
}

func (ch *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if ch.IsClosed() {
		return amqp.ErrClosed
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.routes = append(ch.routes, key)
	ch.published = append(ch.published, msg)
	return nil
}

func (ch *fakeChannel) IsClosed() bool {
	if ch.conn.IsClosed() {
		return true
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.closed
}

func (ch *fakeChannel) Close() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.closed = true
	return nil
}

func (ch *fakeChannel) deliver(tag uint64, key string) {
	ch.deliveries <- amqp.Delivery{
		Acknowledger: ch,
		DeliveryTag:  tag,
		MessageId:    key,
		Headers:      amqp.Table{HeaderEventType: "order.created"},
		Body:         []byte(`{}`),
	}
}

func (ch *fakeChannel) Ack(tag uint64, _ bool) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.acked = append(ch.acked, tag)
	return nil
}

func (ch *fakeChannel) Nack(uint64, bool, bool) error { return nil }

func (ch *fakeChannel) Reject(uint64, bool) error { return nil }

func newTestRabbit(b *fakeBroker) *rabbitClient {
	return &rabbitClient{
		cfg:    config.RabbitMQ{URL: "amqp://broker", Exchange: "orders_topic", Queue: "orders_events_queue", Prefetch: 1},
		topic:  "orders.events",
		logger: zap.NewNop(),
		dial:   b.dial,
	}
}

func TestRabbitPublishRedialsAfterConnectionLoss(t *testing.T) {
	ctx := context.Background()
	broker := &fakeBroker{}
	client := newTestRabbit(broker)
	msg := Message{Key: []byte("ORD-1"), Value: []byte(`{}`), Headers: map[string]string{HeaderEventType: "order.created"}}

	require.NoError(t, client.Publish(ctx, msg))
	require.Equal(t, 1, broker.dials())

	broker.conn(0).drop()
	msg.Key = []byte("ORD-2")
	require.NoError(t, client.Publish(ctx, msg))
	require.Equal(t, 2, broker.dials())

	sent := broker.conn(1).published()
	require.Len(t, sent, 1)
	assert.Equal(t, "ORD-2", sent[0].MessageId)
	assert.Equal(t, []string{"orders.events"}, broker.conn(1).channels[0].routes)
	assert.Equal(t, "order.created", sent[0].Headers[HeaderEventType])
	assert.Len(t, broker.conn(0).published(), 1)
}

func TestRabbitConsumeRedialsAfterConnectionLoss(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	broker := &fakeBroker{}
	client := newTestRabbit(broker)

	received := make(chan string, 4)
	handler := func(_ context.Context, m Message) error {
		received <- string(m.Key)
		return nil
	}
	consume := func() <-chan error {
		done := make(chan error, 1)
		go func() { done <- client.Consume(ctx, handler) }()
		return done
	}

	first := consume()
	require.Eventually(t, func() bool { return broker.dials() == 1 && broker.conn(0).consumer() != nil }, time.Second, 5*time.Millisecond)
	broker.conn(0).consumer().deliver(1, "ORD-1")
	assert.Equal(t, "ORD-1", <-received)

	broker.conn(0).drop()
	select {
	case err := <-first:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("consume did not return after the connection dropped")
	}

	second := consume()
	require.Eventually(t, func() bool { return broker.dials() == 2 && broker.conn(1).consumer() != nil }, time.Second, 5*time.Millisecond)
	ch := broker.conn(1).consumer()
	ch.deliver(7, "ORD-2")
	assert.Equal(t, "ORD-2", <-received)
	require.Eventually(t, func() bool {
		ch.mu.Lock()
		defer ch.mu.Unlock()
		return len(ch.acked) == 1 && ch.acked[0] == 7
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-second, context.Canceled)
}

func TestRabbitClosedClientDoesNotRedial(t *testing.T) {
	broker := &fakeBroker{}
	client := newTestRabbit(broker)

	require.NoError(t, client.Publish(context.Background(), Message{Key: []byte("ORD-1")}))
	require.NoError(t, client.close())

	assert.ErrorIs(t, client.Publish(context.Background(), Message{Key: []byte("ORD-2")}), errRabbitClosed)
	assert.ErrorIs(t, client.Consume(context.Background(), func(context.Context, Message) error { return nil }), errRabbitClosed)
	assert.Equal(t, 1, broker.dials())
}
