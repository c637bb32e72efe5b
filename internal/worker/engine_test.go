package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/burgerbar/internal/config"
	"github.com/Additional-Code/burgerbar/internal/messaging"
)

// feedClient hands each queued message to the first consumer, then blocks.
type feedClient struct {
	mu    sync.Mutex
	queue []messaging.Message
	fails int
}

func (f *feedClient) Publish(context.Context, messaging.Message) error { return nil }
func (f *feedClient) Topic() string                                    { return "orders" }

func (f *feedClient) Consume(ctx context.Context, handler messaging.Handler) error {
	f.mu.Lock()
	if f.fails > 0 {
		f.fails--
		f.mu.Unlock()
		return errors.New("broker unavailable")
	}
	pending := f.queue
	f.queue = nil
	f.mu.Unlock()

	for _, msg := range pending {
		_ = handler(ctx, msg)
	}
	<-ctx.Done()
	return ctx.Err()
}

func enabledConfig(workers int) config.Config {
	var cfg config.Config
	cfg.Messaging.Enabled = true
	cfg.Messaging.Workers.Enabled = true
	cfg.Messaging.Workers.Concurrency = workers
	return cfg
}

func msgOf(eventType string) messaging.Message {
	return messaging.Message{Topic: "orders", Headers: map[string]string{messaging.HeaderEventType: eventType}}
}

func TestDispatchRoutesByEventType(t *testing.T) {
	var got []string
	engine, err := NewEngine(Params{
		Client: &feedClient{},
		Logger: zap.NewNop(),
		Config: enabledConfig(1),
		Registrations: []HandlerRegistration{
			{EventType: "order.created", Handler: func(_ context.Context, m messaging.Message) error {
				got = append(got, m.EventType())
				return nil
			}},
		},
	})
	require.NoError(t, err)

	require.NoError(t, engine.Dispatch(context.Background(), msgOf("order.created")))
	require.NoError(t, engine.Dispatch(context.Background(), msgOf("order.cancelled")))
	require.NoError(t, engine.Dispatch(context.Background(), messaging.Message{}))
	assert.Equal(t, []string{"order.created"}, got)
}

func TestStartConsumesAndStops(t *testing.T) {
	client := &feedClient{queue: []messaging.Message{msgOf("order.created"), msgOf("order.created")}, fails: 1}
	var mu sync.Mutex
	handled := 0
	engine, err := NewEngine(Params{
		Client: client,
		Logger: zap.NewNop(),
		Config: enabledConfig(1),
		Registrations: []HandlerRegistration{{EventType: "order.created", Handler: func(context.Context, messaging.Message) error {
			mu.Lock()
			handled++
			mu.Unlock()
			return nil
		}}},
	})
	require.NoError(t, err)

	require.NoError(t, engine.Start(context.Background()))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return handled == 2
	}, 5*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, engine.Stop(ctx))
}

func TestStartDisabled(t *testing.T) {
	engine, err := NewEngine(Params{Client: &feedClient{}, Logger: zap.NewNop(), Config: config.Config{}})
	require.NoError(t, err)
	require.NoError(t, engine.Start(context.Background()))
	require.NoError(t, engine.Stop(context.Background()))
}

func TestNewEngineRejectsBadRegistrations(t *testing.T) {
	noop := func(context.Context, messaging.Message) error { return nil }
	cases := map[string][]HandlerRegistration{
		"missing event type": {{Handler: noop}},
		"nil handler":        {{EventType: "order.created"}},
		"duplicate":          {{EventType: "order.created", Handler: noop}, {EventType: "order.created", Handler: noop}},
	}
	for name, regs := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewEngine(Params{Client: &feedClient{}, Logger: zap.NewNop(), Config: enabledConfig(1), Registrations: regs})
			assert.Error(t, err)
		})
	}
}

func TestDispatchRecoversPanics(t *testing.T) {
	engine, err := NewEngine(Params{
		Client: &feedClient{},
		Logger: zap.NewNop(),
		Config: enabledConfig(1),
		Registrations: []HandlerRegistration{{EventType: "order.created", Handler: func(context.Context, messaging.Message) error {
			panic("bad payload")
		}}},
	})
	require.NoError(t, err)

	err = engine.Dispatch(context.Background(), msgOf("order.created"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad payload")
}

func TestDispatchPropagatesHandlerErrors(t *testing.T) {
	boom := errors.New("store down")
	engine, err := NewEngine(Params{
		Client: &feedClient{},
		Logger: zap.NewNop(),
		Config: enabledConfig(1),
		Registrations: []HandlerRegistration{{EventType: "order.created", Handler: func(context.Context, messaging.Message) error {
			return boom
		}}},
	})
	require.NoError(t, err)
	assert.ErrorIs(t, engine.Dispatch(context.Background(), msgOf("order.created")), boom)
}
