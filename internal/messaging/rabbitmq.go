package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/burgerbar/internal/config"
)

const headerKey = "message-key"

var errRabbitClosed = errors.New("rabbitmq client closed")

// amqpConnection and amqpChannel cover the parts of amqp091 the client uses.
type amqpConnection interface {
	Channel() (amqpChannel, error)
	IsClosed() bool
	Close() error
}

type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	ConsumeWithContext(ctx context.Context, queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

type amqpDialer func(url string) (amqpConnection, error)

type amqpConn struct {
	*amqp.Connection
}

func (c amqpConn) Channel() (amqpChannel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func dialAMQP(url string) (amqpConnection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return amqpConn{conn}, nil
}

// rabbitClient publishes to a topic exchange using the configured topic as
// routing key, and consumes from a durable queue bound to it. A dropped
// connection is redialed by the next Publish or Consume.
type rabbitClient struct {
	cfg    config.RabbitMQ
	topic  string
	logger *zap.Logger
	dial   amqpDialer

	mu      sync.Mutex
	conn    amqpConnection
	publish amqpChannel
	stopped bool
}

func newRabbitClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Client, error) {
	client := &rabbitClient{
		cfg:    cfg.Messaging.RabbitMQ,
		topic:  cfg.Messaging.Topic(),
		logger: logger,
		dial:   dialAMQP,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			_, _, err := client.session()
			return err
		},
		OnStop: func(context.Context) error {
			logger.Info("closing rabbitmq client")
			return client.close()
		},
	})

	return client, nil
}

// session returns a live connection and publish channel, reopening the
// channel or redialing the broker when either has been closed.
func (r *rabbitClient) session() (amqpConnection, amqpChannel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return nil, nil, errRabbitClosed
	}
	if r.conn != nil && !r.conn.IsClosed() {
		if r.publish != nil && !r.publish.IsClosed() {
			return r.conn, r.publish, nil
		}
		if ch, err := r.conn.Channel(); err == nil {
			r.publish = ch
			return r.conn, r.publish, nil
		}
	}
	if err := r.connectLocked(); err != nil {
		return nil, nil, err
	}
	return r.conn, r.publish, nil
}

func (r *rabbitClient) connectLocked() error {
	reconnect := r.conn != nil
	if reconnect {
		_ = r.conn.Close()
		r.conn, r.publish = nil, nil
	}

	conn, err := r.dial(r.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if err := r.declareTopology(ch); err != nil {
		_ = conn.Close()
		return err
	}

	r.conn, r.publish = conn, ch
	msg := "rabbitmq connected"
	if reconnect {
		msg = "rabbitmq reconnected"
	}
	r.logger.Info(msg, zap.String("exchange", r.cfg.Exchange), zap.String("queue", r.cfg.Queue))
	return nil
}

func (r *rabbitClient) declareTopology(ch amqpChannel) error {
	if err := ch.ExchangeDeclare(r.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", r.cfg.Exchange, err)
	}
	if _, err := ch.QueueDeclare(r.cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", r.cfg.Queue, err)
	}
	if err := ch.QueueBind(r.cfg.Queue, r.topic, r.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", r.cfg.Queue, err)
	}
	return nil
}

func (r *rabbitClient) close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopped = true
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	r.conn, r.publish = nil, nil
	return err
}

// Publish retries once on a fresh session when the broker dropped the
// connection between the liveness check and the send.
func (r *rabbitClient) Publish(ctx context.Context, msg Message) error {
	routingKey := msg.Topic
	if routingKey == "" {
		routingKey = r.topic
	}

	headers := amqp.Table{headerKey: string(msg.Key)}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	out := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    string(msg.Key),
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
		Body:         msg.Value,
	}

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var ch amqpChannel
		if _, ch, err = r.session(); err != nil {
			return err
		}
		err = ch.PublishWithContext(ctx, r.cfg.Exchange, routingKey, false, false, out)
		if !errors.Is(err, amqp.ErrClosed) {
			return err
		}
		r.logger.Warn("rabbitmq channel closed during publish", zap.String("key", string(msg.Key)))
	}
	return err
}

// Consume opens a dedicated channel so several workers can consume at once.
// It returns when the delivery channel closes; the caller's next Consume
// redials.
func (r *rabbitClient) Consume(ctx context.Context, handler Handler) error {
	conn, _, err := r.session()
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(r.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, r.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", r.cfg.Queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			if err := handler(ctx, fromDelivery(d)); err != nil {
				r.logger.Error("message handler failed", zap.Error(err), zap.Uint64("delivery_tag", d.DeliveryTag))
				_ = d.Nack(false, !d.Redelivered)
				continue
			}
			if err := d.Ack(false); err != nil {
				r.logger.Warn("ack failed", zap.Error(err))
			}
		}
	}
}

func (r *rabbitClient) Topic() string { return r.topic }

func fromDelivery(d amqp.Delivery) Message {
	msg := Message{
		Topic: d.RoutingKey,
		Key:   []byte(d.MessageId),
		Value: append([]byte(nil), d.Body...),
		Time:  d.Timestamp,
	}
	if len(d.Headers) > 0 {
		msg.Headers = make(map[string]string, len(d.Headers))
		for k, v := range d.Headers {
			if k == headerKey {
				continue
			}
			if s, ok := v.(string); ok {
				msg.Headers[k] = s
			}
		}
	}
	return msg
}
