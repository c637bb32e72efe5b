package order

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/burgerbar/internal/messaging"
	"github.com/Additional-Code/burgerbar/internal/observability"
	ordersvc "github.com/Additional-Code/burgerbar/internal/service/order"
	"github.com/Additional-Code/burgerbar/internal/worker"
)

const instrumentationName = "github.com/Additional-Code/burgerbar/worker/order"

var workerTracer = otel.Tracer(instrumentationName)

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewOrderCreatedHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// ReceiptLoader loads, and re-caches, an order receipt.
type ReceiptLoader interface {
	GetReceipt(ctx context.Context, code string) (*ordersvc.Receipt, error)
}

// NewOrderCreatedHandler builds the order.created consumer. It checks the
// event against the stored order and leaves the receipt warm in the cache.
func NewOrderCreatedHandler(logger *zap.Logger, receipts *ordersvc.Service, telemetry *observability.Manager) (worker.HandlerRegistration, error) {
	return newHandler(logger, receipts, telemetry.Meter(instrumentationName))
}

func newHandler(logger *zap.Logger, receipts ReceiptLoader, meter metric.Meter) (worker.HandlerRegistration, error) {
	processed, err := meter.Int64Counter("orders.events.processed",
		metric.WithDescription("order.created events handled by workers"))
	if err != nil {
		return worker.HandlerRegistration{}, err
	}

	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.created", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event ordersvc.OrderCreatedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			// Poison message: log and ack so it is not redelivered forever.
			logger.Error("failed to decode order created", zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			processed.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "invalid")))
			return nil
		}
		span.SetAttributes(attribute.String("order.code", event.OrderCode))

		receipt, err := receipts.GetReceipt(ctx, event.OrderCode)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "load receipt")
			processed.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "error")))
			return fmt.Errorf("load receipt %s: %w", event.OrderCode, err)
		}
		if !receipt.Total.Equal(event.Total) {
			logger.Warn("order event total differs from stored order",
				zap.String("order_code", event.OrderCode),
				zap.String("event_total", event.Total.String()),
				zap.String("stored_total", receipt.Total.String()),
			)
		}

		logger.Info("order created event processed",
			zap.Int64("id", event.ID),
			zap.String("order_code", event.OrderCode),
			zap.String("total", event.Total.String()),
			zap.Int("items", event.ItemCount),
		)
		processed.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "ok")))
		return nil
	}

	return worker.HandlerRegistration{
		EventType: ordersvc.EventOrderCreated,
		Handler:   handler,
	}, nil
}
