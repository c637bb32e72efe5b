package order

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/burgerbar/internal/dto"
	"github.com/Additional-Code/burgerbar/internal/entity"
	"github.com/Additional-Code/burgerbar/internal/presentation/http/response"
	authservice "github.com/Additional-Code/burgerbar/internal/service/auth"
	service "github.com/Additional-Code/burgerbar/internal/service/order"
	"github.com/Additional-Code/burgerbar/internal/transport/http/middleware"
	"github.com/Additional-Code/burgerbar/internal/transport/http/validation"
	"github.com/Additional-Code/burgerbar/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/burgerbar/transport/http/order")

var createSchema = validation.MustLoad("create_order", validation.MessageInvalidBody)

// Service is the order behaviour the handler needs.
type Service interface {
	CreateOrder(ctx context.Context, in service.CreateOrderInput) (*service.Receipt, error)
	GetReceipt(ctx context.Context, code string) (*service.Receipt, error)
}

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc      Service
	verifier middleware.Verifier
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service, auth *authservice.Service) *Handler {
	return New(svc, auth)
}

// New constructs a Handler over any Service and Verifier.
func New(svc Service, verifier middleware.Verifier) *Handler {
	return &Handler{svc: svc, verifier: verifier}
}

// Register routes with provided Echo group.
func Register(api *echo.Group, h *Handler) {
	g := api.Group("/orders", middleware.Authenticate(h.verifier))
	g.POST("", h.create, middleware.RequireRole(entity.RoleCustomer))
	g.GET("/:code", h.getByCode, middleware.RequireRole(entity.RoleCustomer, entity.RoleAdmin))
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload dto.CreateOrderRequest
	if err := validation.Bind(c, createSchema, &payload); err != nil {
		return b.WithError(err).Build()
	}

	claims, _ := middleware.ClaimsFrom(c)
	var userID *int64
	if claims != nil {
		id := claims.UserID
		userID = &id
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create", trace.WithAttributes(attribute.Int("order.lines", len(payload.Items))))
	defer span.End()

	receipt, err := h.svc.CreateOrder(ctx, payload.ToInput(userID))
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).
		WithHeader(echo.HeaderLocation, c.Path()+"/"+receipt.OrderCode).
		WithData(dto.NewReceiptResponse(receipt)).
		Build()
}

func (h *Handler) getByCode(c echo.Context) error {
	b := response.New(c)
	code := c.Param("code")

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByCode", trace.WithAttributes(attribute.String("order.code", code)))
	defer span.End()

	receipt, err := h.svc.GetReceipt(ctx, code)
	if err != nil {
		return b.WithError(err).Build()
	}

	// Customers only see their own orders; anything else looks missing.
	claims, _ := middleware.ClaimsFrom(c)
	if claims != nil && claims.Role == entity.RoleCustomer {
		if receipt.UserID == nil || *receipt.UserID != claims.UserID {
			return b.WithError(errorbank.NotFound("Order not found.")).Build()
		}
	}

	return b.WithData(dto.NewReceiptResponse(receipt)).Build()
}
