package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/burgerbar/internal/cache"
	"github.com/Additional-Code/burgerbar/internal/config"
	"github.com/Additional-Code/burgerbar/internal/entity"
	"github.com/Additional-Code/burgerbar/internal/messaging"
	"github.com/Additional-Code/burgerbar/internal/observability"
	menurepo "github.com/Additional-Code/burgerbar/internal/repository/menu"
	repo "github.com/Additional-Code/burgerbar/internal/repository/order"
	"github.com/Additional-Code/burgerbar/pkg/errorbank"
	"github.com/Additional-Code/burgerbar/pkg/money"
)

const instrumentationName = "github.com/Additional-Code/burgerbar/service/order"

var serviceTracer = otel.Tracer(instrumentationName)

// Catalog resolves menu items for pricing.
type Catalog interface {
	FindActiveByIDs(ctx context.Context, ids []int64) ([]entity.MenuItem, error)
}

// Store persists orders. Create must write the order and its lines atomically.
type Store interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByCode(ctx context.Context, code string) (*entity.Order, error)
}

// LineInput is one requested (menu item, quantity) pair.
type LineInput struct {
	MenuItemID int64
	Quantity   int
}

// CreateOrderInput is the client request, already shape-checked.
type CreateOrderInput struct {
	Items        []LineInput
	CustomerName *string
	TableNumber  *string
	UserID       *int64
}

// Service is the order pricing engine. It is the only place totals are computed.
type Service struct {
	catalog   Catalog
	store     Store
	cache     cache.Store
	cacheTTL  time.Duration
	publisher messaging.Client
	logger    *zap.Logger
	now       func() time.Time
	newCode   CodeGenerator

	ordersCreated metric.Int64Counter
	orderTotals   metric.Float64Histogram
}

// Dependencies are the collaborators of Service. Only Catalog and Store are
// required; the rest fall back to no-op implementations.
type Dependencies struct {
	Catalog   Catalog
	Store     Store
	Cache     cache.Store
	CacheTTL  time.Duration
	Publisher messaging.Client
	Logger    *zap.Logger
	Meter     metric.Meter
	Now       func() time.Time
	NewCode   CodeGenerator
}

// Params defines dependencies for constructing Service through Fx.
type Params struct {
	fx.In

	Menu      *menurepo.Repository
	Orders    *repo.Repository
	Cache     cache.Store
	Config    config.Config
	Logger    *zap.Logger
	Publisher messaging.Client
	Telemetry *observability.Manager
}

// NewService wires a new Service instance.
func NewService(p Params) (*Service, error) {
	return New(Dependencies{
		Catalog:   p.Menu,
		Store:     p.Orders,
		Cache:     p.Cache,
		CacheTTL:  p.Config.Cache.DefaultTTL,
		Publisher: p.Publisher,
		Logger:    p.Logger,
		Meter:     p.Telemetry.Meter(instrumentationName),
	})
}

// New builds a Service from explicit dependencies.
func New(d Dependencies) (*Service, error) {
	if d.Catalog == nil || d.Store == nil {
		return nil, errors.New("order service requires a catalog and a store")
	}
	s := &Service{
		catalog:   d.Catalog,
		store:     d.Store,
		cache:     d.Cache,
		cacheTTL:  d.CacheTTL,
		publisher: d.Publisher,
		logger:    d.Logger,
		now:       d.Now,
		newCode:   d.NewCode,
	}
	if s.cache == nil {
		s.cache = cache.Noop()
	}
	if s.publisher == nil {
		s.publisher = messaging.Noop("")
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newCode == nil {
		s.newCode = NewOrderCode
	}

	meter := d.Meter
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	var err error
	if s.ordersCreated, err = meter.Int64Counter("orders.created",
		metric.WithDescription("Orders successfully placed")); err != nil {
		return nil, fmt.Errorf("orders.created counter: %w", err)
	}
	if s.orderTotals, err = meter.Float64Histogram("orders.total",
		metric.WithDescription("Tax-inclusive order totals"),
		metric.WithUnit("{currency}")); err != nil {
		return nil, fmt.Errorf("orders.total histogram: %w", err)
	}
	return s, nil
}

// CreateOrder validates, prices and persists an order, returning its receipt.
//
// The catalog lookup and the write are separate units; an item deactivated
// in between is still sold at the price read here.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*Receipt, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.CreateOrder", trace.WithAttributes(attribute.Int("order.lines", len(in.Items))))
	defer span.End()

	if len(in.Items) == 0 {
		return nil, errorbank.BadRequest(MessageOrderEmpty, errorbank.WithCode(CodeOrderEmpty), errorbank.WithCause(ErrOrderEmpty))
	}
	ids := make([]int64, 0, len(in.Items))
	seen := make(map[int64]struct{}, len(in.Items))
	for _, line := range in.Items {
		if line.Quantity <= 0 || line.MenuItemID <= 0 {
			return nil, errorbank.BadRequest(MessageInvalidBody, errorbank.WithCause(ErrInvalidLine))
		}
		if _, ok := seen[line.MenuItemID]; ok {
			continue
		}
		seen[line.MenuItemID] = struct{}{}
		ids = append(ids, line.MenuItemID)
	}

	items, err := s.catalog.FindActiveByIDs(ctx, ids)
	if err != nil {
		return nil, s.internal(span, "menu lookup failed", err)
	}
	if len(items) != len(ids) {
		span.SetAttributes(attribute.Int("menu.resolved", len(items)))
		return nil, errorbank.BadRequest(MessageInvalidMenuItems, errorbank.WithCode(CodeInvalidMenuItems), errorbank.WithCause(ErrInvalidMenuItems))
	}
	byID := make(map[int64]*entity.MenuItem, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	now := s.now().UTC()
	order := &entity.Order{
		OrderCode:    s.newCode(now),
		CustomerName: in.CustomerName,
		TableNumber:  in.TableNumber,
		UserID:       in.UserID,
		CreatedAt:    now,
		Lines:        make([]*entity.OrderLine, 0, len(in.Items)),
	}
	lineTotals := make([]decimal.Decimal, 0, len(in.Items))
	for _, line := range in.Items {
		item, ok := byID[line.MenuItemID]
		if !ok {
			// A catalog returning ids that were not asked for.
			return nil, errorbank.BadRequest(MessageInvalidMenuItems, errorbank.WithCode(CodeInvalidMenuItems), errorbank.WithCause(ErrInvalidMenuItems))
		}
		order.Lines = append(order.Lines, &entity.OrderLine{
			MenuItemID: item.ID,
			Name:       item.DisplayName(),
			Quantity:   line.Quantity,
			UnitPrice:  item.Price,
		})
		lineTotals = append(lineTotals, money.LineTotal(item.Price, line.Quantity))
	}
	order.Total = money.Round(money.Sum(lineTotals...))
	order.GST = money.GST(order.Total)
	span.SetAttributes(attribute.String("order.code", order.OrderCode))

	if err := s.store.Create(ctx, order); err != nil {
		return nil, s.internal(span, "order write failed", err)
	}

	receipt := receiptFromOrder(order)
	s.ordersCreated.Add(ctx, 1)
	s.orderTotals.Record(ctx, money.Float(order.Total))

	if err := cache.SetJSON(ctx, s.cache, cacheKey(order.OrderCode), receipt, s.cacheTTL); err != nil {
		s.logger.Warn("orders cache write failed", zap.String("order_code", order.OrderCode), zap.Error(err))
	}
	s.publishOrderCreated(ctx, order)

	s.logger.Info("order created",
		zap.String("order_code", order.OrderCode),
		zap.String("total", order.Total.StringFixed(money.Places)),
		zap.Int("lines", len(order.Lines)),
	)
	return receipt, nil
}

// GetReceipt returns the receipt of a placed order, from cache when possible.
func (s *Service) GetReceipt(ctx context.Context, code string) (*Receipt, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.GetReceipt", trace.WithAttributes(attribute.String("order.code", code)))
	defer span.End()

	receipt, err := cache.GetJSON[Receipt](ctx, s.cache, cacheKey(code))
	if err == nil {
		return receipt, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("orders cache read failed", zap.String("order_code", code), zap.Error(err))
	}

	order, err := s.store.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("Order not found.")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		s.logger.Error("load order failed", zap.String("order_code", code), zap.Error(err))
		return nil, errorbank.Internal("Failed to load order.", errorbank.WithCause(err))
	}

	receipt = receiptFromOrder(order)
	if err := cache.SetJSON(ctx, s.cache, cacheKey(code), receipt, s.cacheTTL); err != nil {
		s.logger.Warn("orders cache write failed", zap.String("order_code", code), zap.Error(err))
	}
	return receipt, nil
}

func (s *Service) internal(span trace.Span, status string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, status)
	s.logger.Error("create order failed", zap.String("stage", status), zap.Error(err))
	return errorbank.Internal(MessageCreateFailed, errorbank.WithCause(err))
}

func (s *Service) publishOrderCreated(ctx context.Context, order *entity.Order) {
	event := OrderCreatedEvent{
		ID:        order.ID,
		OrderCode: order.OrderCode,
		Total:     order.Total,
		GST:       order.GST,
		ItemCount: len(order.Lines),
		CreatedAt: order.CreatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal order created", zap.Error(err))
		return
	}
	msg := messaging.Message{
		Key:     []byte(order.OrderCode),
		Value:   payload,
		Headers: map[string]string{messaging.HeaderEventType: EventOrderCreated},
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.logger.Warn("publish order created failed", zap.String("order_code", order.OrderCode), zap.Error(err))
	}
}

func cacheKey(code string) string {
	return "orders:receipt:" + code
}
