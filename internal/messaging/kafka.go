package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/burgerbar/internal/config"
)

// order.created events are published one at a time on the request path, so
// the writer must not wait to fill a batch.
const kafkaBatchTimeout = 10 * time.Millisecond

type kafkaClient struct {
	writer   *kafka.Writer
	reader   *kafka.Reader
	topic    string
	attempts int
	backoff  time.Duration
	logger   *zap.Logger
}

func newKafkaClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Client, error) {
	kc := cfg.Messaging.Kafka
	sugar := logger.Named("kafka").Sugar()

	client := &kafkaClient{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(kc.Brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: kafkaBatchTimeout,
			WriteTimeout: kc.ConnectTimeout,
			Logger:       kafka.LoggerFunc(sugar.Debugf),
			ErrorLogger:  kafka.LoggerFunc(sugar.Errorf),
		},
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        kc.Brokers,
			GroupID:        cfg.Messaging.ConsumerGroup,
			Topic:          kc.Topic,
			MinBytes:       kc.MinBytes,
			MaxBytes:       kc.MaxBytes,
			CommitInterval: kc.CommitInterval,
			Dialer: &kafka.Dialer{
				Timeout:  kc.ConnectTimeout,
				ClientID: kc.ClientID,
			},
			ErrorLogger: kafka.LoggerFunc(sugar.Errorf),
		}),
		topic:    kc.Topic,
		attempts: kc.MaxAttempts,
		backoff:  kc.RetryBackoff,
		logger:   logger,
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			logger.Info("closing kafka client", zap.String("topic", client.topic))
			return errors.Join(client.writer.Close(), client.reader.Close())
		},
	})
	return client, nil
}

func (k *kafkaClient) Topic() string { return k.topic }

func (k *kafkaClient) Publish(ctx context.Context, msg Message) error {
	return k.writer.WriteMessages(ctx, toKafka(msg, k.topic))
}

// Consume commits a message once its handler succeeds or has failed
// k.attempts times; a poisoned event never stalls its partition.
func (k *kafkaClient) Consume(ctx context.Context, handler Handler) error {
	for {
		msg, err := k.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			k.logger.Error("kafka fetch failed", zap.Error(err))
			if err := sleep(ctx, time.Second); err != nil {
				return err
			}
			continue
		}

		in := fromKafka(msg)
		if err := Retry(ctx, k.attempts, k.backoff, handler, in); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			k.logger.Error("dropping message after failed attempts",
				zap.String("key", string(in.Key)),
				zap.Int64("offset", msg.Offset),
				zap.Int("attempts", k.attempts),
				zap.Error(err),
			)
		}
		if err := k.reader.CommitMessages(ctx, msg); err != nil {
			k.logger.Warn("kafka commit failed", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

func toKafka(msg Message, defaultTopic string) kafka.Message {
	out := kafka.Message{
		Topic: msg.Topic,
		Key:   msg.Key,
		Value: msg.Value,
		Time:  msg.Time,
	}
	if out.Topic == "" {
		out.Topic = defaultTopic
	}
	for key, value := range msg.Headers {
		out.Headers = append(out.Headers, kafka.Header{Key: key, Value: []byte(value)})
	}
	return out
}

func fromKafka(msg kafka.Message) Message {
	out := Message{
		Topic:  msg.Topic,
		Key:    append([]byte(nil), msg.Key...),
		Value:  append([]byte(nil), msg.Value...),
		Offset: msg.Offset,
		Time:   msg.Time,
	}
	if len(msg.Headers) > 0 {
		out.Headers = make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			out.Headers[h.Key] = string(h.Value)
		}
	}
	return out
}
