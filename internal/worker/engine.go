package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/burgerbar/internal/config"
	"github.com/Additional-Code/burgerbar/internal/messaging"
)

const (
	minRestartDelay = time.Second
	maxRestartDelay = 30 * time.Second
)

// HandlerRegistration binds an event type (the event-type header) to a handler.
type HandlerRegistration struct {
	EventType string
	Handler   messaging.Handler
}

// Params collects dependencies via Fx.
type Params struct {
	fx.In

	Client        messaging.Client
	Logger        *zap.Logger
	Config        config.Config
	Registrations []HandlerRegistration `group:"worker.handlers"`
}

// Engine runs a pool of consumers and routes each event to its handler.
type Engine struct {
	client      messaging.Client
	logger      *zap.Logger
	enabled     bool
	concurrency int
	handlers    map[string]messaging.Handler

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Module wires the engine into the Fx lifecycle.
var Module = fx.Options(
	fx.Provide(NewEngine),
	fx.Invoke(func(lc fx.Lifecycle, engine *Engine) {
		lc.Append(fx.Hook{
			OnStart: engine.Start,
			OnStop:  engine.Stop,
		})
	}),
)

// NewEngine builds the engine. Each event type may be registered once.
func NewEngine(p Params) (*Engine, error) {
	handlers := make(map[string]messaging.Handler, len(p.Registrations))
	for _, r := range p.Registrations {
		switch {
		case r.EventType == "":
			return nil, errors.New("worker handler registered without an event type")
		case r.Handler == nil:
			return nil, fmt.Errorf("worker handler for %q is nil", r.EventType)
		}
		if _, dup := handlers[r.EventType]; dup {
			return nil, fmt.Errorf("worker handler for %q registered twice", r.EventType)
		}
		handlers[r.EventType] = r.Handler
	}

	concurrency := p.Config.Messaging.Workers.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Engine{
		client:      p.Client,
		logger:      p.Logger.Named("worker"),
		enabled:     p.Config.Messaging.Enabled && p.Config.Messaging.Workers.Enabled,
		concurrency: concurrency,
		handlers:    handlers,
	}, nil
}

// Start launches the consumers and returns immediately.
func (e *Engine) Start(context.Context) error {
	switch {
	case !e.enabled:
		e.logger.Info("worker engine disabled")
		return nil
	case len(e.handlers) == 0:
		e.logger.Info("worker engine has no handlers; skipping")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	for id := 0; id < e.concurrency; id++ {
		e.wg.Add(1)
		go func(id int) {
			defer e.wg.Done()
			e.run(ctx, id)
		}(id)
	}

	e.logger.Info("worker engine started",
		zap.Int("consumers", e.concurrency),
		zap.String("topic", e.client.Topic()),
		zap.Strings("events", e.eventTypes()),
	)
	return nil
}

// Stop cancels the consumers and waits for in-flight handlers or ctx.
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel == nil {
		return nil
	}
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		e.logger.Info("worker engine stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch routes msg by its event type. Events without a handler are
// acknowledged and dropped; a panicking handler counts as a failure.
func (e *Engine) Dispatch(ctx context.Context, msg messaging.Message) (err error) {
	eventType := msg.EventType()
	handler, ok := e.handlers[eventType]
	if !ok {
		e.logger.Warn("no handler for event", zap.String("event_type", eventType), zap.String("topic", msg.Topic))
		return nil
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler for %q panicked: %v", eventType, r)
		}
		log := e.logger.Debug
		if err != nil {
			log = e.logger.Warn
		}
		log("event handled",
			zap.String("event_type", eventType),
			zap.String("key", string(msg.Key)),
			zap.Duration("took", time.Since(start)),
			zap.Error(err),
		)
	}()
	return handler(ctx, msg)
}

// run keeps one consumer attached to the bus, restarting it with a growing
// delay when the client gives up.
func (e *Engine) run(ctx context.Context, id int) {
	delays := backoff.NewExponentialBackOff()
	delays.InitialInterval = minRestartDelay
	delays.MaxInterval = maxRestartDelay

	for {
		err := e.client.Consume(ctx, e.Dispatch)
		if ctx.Err() != nil || err == nil {
			return
		}

		delay := delays.NextBackOff()
		e.logger.Error("consumer stopped; restarting", zap.Int("consumer", id), zap.Duration("delay", delay), zap.Error(err))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) eventTypes() []string {
	out := make([]string, 0, len(e.handlers))
	for t := range e.handlers {
		out = append(out, t)
	}
	return out
}
