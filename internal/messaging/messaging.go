// Package messaging carries order events over kafka or rabbitmq.
package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/burgerbar/internal/config"
)

// HeaderEventType names the event carried by a message.
const HeaderEventType = "event-type"

// Message is the unit exchanged over the bus, in both directions.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
	Offset  int64
	Time    time.Time
}

// EventType returns the event-type header, or "" when absent.
func (m Message) EventType() string {
	return m.Headers[HeaderEventType]
}

// Handler processes an inbound message. A non-nil error asks the transport
// to deliver it again.
type Handler func(context.Context, Message) error

// Client publishes and consumes events.
type Client interface {
	// Publish sends msg; an empty msg.Topic means the client's default topic.
	Publish(ctx context.Context, msg Message) error
	// Consume blocks, feeding messages to handler until ctx ends.
	Consume(ctx context.Context, handler Handler) error
	Topic() string
}

// Module provides the configured Client.
var Module = fx.Provide(NewClient)

// NewClient picks the driver named by MESSAGING_DRIVER.
func NewClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Client, error) {
	switch cfg.Messaging.Driver {
	case "noop":
		logger.Info("messaging disabled; events are dropped")
		return Noop(cfg.Messaging.Topic()), nil
	case "kafka":
		return newKafkaClient(lc, cfg, logger)
	case "rabbitmq":
		return newRabbitClient(lc, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported messaging driver: %s", cfg.Messaging.Driver)
	}
}

// Retry calls handler until it succeeds or attempts are used up, pausing
// between calls. It returns the last handler error, or the context error
// when ctx ends during a pause.
func Retry(ctx context.Context, attempts int, pause time.Duration, handler Handler, msg Message) error {
	op := func() (struct{}, error) {
		return struct{}{}, handler(ctx, msg)
	}
	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(pause)),
		backoff.WithMaxTries(uint(max(attempts, 1))),
		backoff.WithMaxElapsedTime(0),
	)
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Noop returns a client that drops published messages and blocks on Consume.
func Noop(topic string) Client {
	return noopClient{topic: topic}
}

type noopClient struct {
	topic string
}

func (n noopClient) Publish(context.Context, Message) error { return nil }

func (n noopClient) Consume(ctx context.Context, _ Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (n noopClient) Topic() string { return n.topic }
