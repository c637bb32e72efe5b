package menu

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/burgerbar/internal/dto"
	"github.com/Additional-Code/burgerbar/internal/entity"
	"github.com/Additional-Code/burgerbar/internal/presentation/http/response"
	repo "github.com/Additional-Code/burgerbar/internal/repository/menu"
	authservice "github.com/Additional-Code/burgerbar/internal/service/auth"
	service "github.com/Additional-Code/burgerbar/internal/service/menu"
	"github.com/Additional-Code/burgerbar/internal/transport/http/middleware"
	"github.com/Additional-Code/burgerbar/internal/transport/http/validation"
	"github.com/Additional-Code/burgerbar/pkg/errorbank"
	"github.com/Additional-Code/burgerbar/pkg/money"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/burgerbar/transport/http/menu")

var (
	createSchema = validation.MustLoad("create_menu_item", "")
	updateSchema = validation.MustLoad("update_menu_item", "")
)

// Service is the menu behaviour the handler needs.
type Service interface {
	List(ctx context.Context, f repo.Filter) ([]entity.MenuItem, error)
	Get(ctx context.Context, id int64) (*entity.MenuItem, error)
	Create(ctx context.Context, in service.CreateInput) (*entity.MenuItem, error)
	Update(ctx context.Context, id int64, in service.UpdateInput) (*entity.MenuItem, error)
	Delete(ctx context.Context, id int64) error
}

// Handler exposes menu endpoints over HTTP.
type Handler struct {
	svc      Service
	verifier middleware.Verifier
}

// NewHandler constructs a menu Handler.
func NewHandler(svc *service.Service, auth *authservice.Service) *Handler {
	return New(svc, auth)
}

// New constructs a Handler over any Service and Verifier.
func New(svc Service, verifier middleware.Verifier) *Handler {
	return &Handler{svc: svc, verifier: verifier}
}

// Register routes with provided Echo group. Reads are public; writes are admin only.
func Register(api *echo.Group, h *Handler) {
	g := api.Group("/menu")
	g.GET("", h.list)
	g.GET("/:id", h.get)

	admin := []echo.MiddlewareFunc{middleware.Authenticate(h.verifier), middleware.RequireRole(entity.RoleAdmin)}
	g.POST("", h.create, admin...)
	g.PUT("/:id", h.update, admin...)
	g.DELETE("/:id", h.delete, admin...)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	filter, err := parseFilter(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "menu.list")
	defer span.End()

	items, err := h.svc.List(ctx, filter)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewMenuItemList(items)).Build()
}

func (h *Handler) get(c echo.Context) error {
	b := response.New(c)

	id, err := parseID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "menu.get", trace.WithAttributes(attribute.Int64("menu.id", id)))
	defer span.End()

	item, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewMenuItemResponse(item)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload dto.CreateMenuItemRequest
	if err := validation.Bind(c, createSchema, &payload); err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "menu.create")
	defer span.End()

	item, err := h.svc.Create(ctx, service.CreateInput{
		Name:     payload.Name,
		Price:    money.FromFloat(payload.Price),
		Type:     payload.Type,
		Size:     payload.Size,
		IsActive: payload.IsActive,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(dto.NewMenuItemResponse(item)).Build()
}

func (h *Handler) update(c echo.Context) error {
	b := response.New(c)

	id, err := parseID(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	var payload dto.UpdateMenuItemRequest
	if err := validation.Bind(c, updateSchema, &payload); err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "menu.update", trace.WithAttributes(attribute.Int64("menu.id", id)))
	defer span.End()

	in := service.UpdateInput{
		Name:     payload.Name,
		Type:     payload.Type,
		Size:     payload.Size.Value,
		SizeSet:  payload.Size.Set,
		IsActive: payload.IsActive,
	}
	if payload.Price != nil {
		price := money.FromFloat(*payload.Price)
		in.Price = &price
	}

	item, err := h.svc.Update(ctx, id, in)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewMenuItemResponse(item)).Build()
}

func (h *Handler) delete(c echo.Context) error {
	b := response.New(c)

	id, err := parseID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "menu.delete", trace.WithAttributes(attribute.Int64("menu.id", id)))
	defer span.End()

	if err := h.svc.Delete(ctx, id); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusNoContent).Build()
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errorbank.BadRequest("Invalid menu item ID")
	}
	return id, nil
}

// parseFilter reads type, size and isActive. isActive values other than
// "true" and "false" are ignored.
func parseFilter(c echo.Context) (repo.Filter, error) {
	var f repo.Filter
	if raw := c.QueryParam("type"); raw != "" {
		t := entity.ItemType(raw)
		if !t.Valid() {
			return f, errorbank.BadRequest("Invalid query parameters", errorbank.WithDetail("type", raw))
		}
		f.Type = &t
	}
	if raw := c.QueryParam("size"); raw != "" {
		s := entity.DrinkSize(raw)
		if !s.Valid() {
			return f, errorbank.BadRequest("Invalid query parameters", errorbank.WithDetail("size", raw))
		}
		f.Size = &s
	}
	switch c.QueryParam("isActive") {
	case "true":
		active := true
		f.IsActive = &active
	case "false":
		active := false
		f.IsActive = &active
	}
	return f, nil
}
