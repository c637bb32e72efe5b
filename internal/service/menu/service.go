package menu

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/burgerbar/internal/entity"
	repo "github.com/Additional-Code/burgerbar/internal/repository/menu"
	"github.com/Additional-Code/burgerbar/pkg/errorbank"
	"github.com/Additional-Code/burgerbar/pkg/money"
)

const maxNameLength = 100

var serviceTracer = otel.Tracer("github.com/Additional-Code/burgerbar/service/menu")

// Repository is the storage the service needs.
type Repository interface {
	FindByID(ctx context.Context, id int64) (*entity.MenuItem, error)
	List(ctx context.Context, f repo.Filter) ([]entity.MenuItem, error)
	Create(ctx context.Context, item *entity.MenuItem) error
	Update(ctx context.Context, item *entity.MenuItem) error
	SoftDelete(ctx context.Context, id int64) error
}

// CreateInput describes a new menu item.
type CreateInput struct {
	Name     string
	Price    decimal.Decimal
	Type     entity.ItemType
	Size     *entity.DrinkSize
	IsActive *bool
}

// UpdateInput is a partial update. Nil fields keep their current value,
// except Size: when SizeSet is true Size is applied as given, nil included.
type UpdateInput struct {
	Name     *string
	Price    *decimal.Decimal
	Type     *entity.ItemType
	Size     *entity.DrinkSize
	SizeSet  bool
	IsActive *bool
}

// Service manages the menu catalog.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return New(p.Repository, p.Logger)
}

// New builds a Service over any Repository.
func New(r Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: r, logger: logger}
}

// List returns menu items ordered by id. Only active items are listed
// unless f.IsActive says otherwise.
func (s *Service) List(ctx context.Context, f repo.Filter) ([]entity.MenuItem, error) {
	ctx, span := serviceTracer.Start(ctx, "MenuService.List")
	defer span.End()

	if f.IsActive == nil {
		active := true
		f.IsActive = &active
	}
	items, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, s.internal("Failed to load menu", err)
	}
	return items, nil
}

// Get returns a single item, active or not.
func (s *Service) Get(ctx context.Context, id int64) (*entity.MenuItem, error) {
	ctx, span := serviceTracer.Start(ctx, "MenuService.Get", trace.WithAttributes(attribute.Int64("menu.id", id)))
	defer span.End()

	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapErr("Failed to load menu item", err)
	}
	return item, nil
}

// Create validates and stores a new item.
func (s *Service) Create(ctx context.Context, in CreateInput) (*entity.MenuItem, error) {
	ctx, span := serviceTracer.Start(ctx, "MenuService.Create")
	defer span.End()

	item := &entity.MenuItem{IsActive: true}
	if in.IsActive != nil {
		item.IsActive = *in.IsActive
	}
	if err := apply(item, in.Name, in.Price, in.Type, in.Size); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, s.internal("Failed to create menu item", err)
	}
	s.logger.Info("menu item created", zap.Int64("id", item.ID), zap.String("name", item.Name))
	return item, nil
}

// Update applies a partial change. The size is re-derived for the
// resulting type before the variant is validated.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*entity.MenuItem, error) {
	ctx, span := serviceTracer.Start(ctx, "MenuService.Update", trace.WithAttributes(attribute.Int64("menu.id", id)))
	defer span.End()

	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapErr("Failed to load menu item", err)
	}

	name, price, itemType := item.Name, item.Price, item.Type
	if in.Name != nil {
		name = *in.Name
	}
	if in.Price != nil {
		price = *in.Price
	}
	if in.Type != nil {
		itemType = *in.Type
	}
	if in.IsActive != nil {
		item.IsActive = *in.IsActive
	}

	var size *entity.DrinkSize
	switch {
	case in.SizeSet:
		size = in.Size
	case itemType == entity.TypeDrink:
		size = item.Size
	}

	if err := apply(item, name, price, itemType, size); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, s.mapErr("Failed to update menu item", err)
	}
	s.logger.Info("menu item updated", zap.Int64("id", item.ID))
	return item, nil
}

// Delete soft-deletes an item.
func (s *Service) Delete(ctx context.Context, id int64) error {
	ctx, span := serviceTracer.Start(ctx, "MenuService.Delete", trace.WithAttributes(attribute.Int64("menu.id", id)))
	defer span.End()

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return s.mapErr("Failed to delete menu item", err)
	}
	s.logger.Info("menu item deactivated", zap.Int64("id", id))
	return nil
}

// apply validates the candidate values and writes them into item.
func apply(item *entity.MenuItem, name string, price decimal.Decimal, itemType entity.ItemType, size *entity.DrinkSize) error {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > maxNameLength {
		return errorbank.BadRequest("Name must be between 1 and 100 characters.", errorbank.WithDetail("field", "name"))
	}
	price = money.Round(price)
	if !price.IsPositive() {
		return errorbank.BadRequest("Price must be positive.", errorbank.WithDetail("field", "price"))
	}
	variant, err := entity.ParseVariant(itemType, size)
	if err != nil {
		return errorbank.BadRequest("Invalid type and size combination.",
			errorbank.WithCause(err),
			errorbank.WithDetail("reason", err.Error()),
		)
	}

	item.Name = name
	item.Price = price
	item.SetVariant(variant)
	return nil
}

func (s *Service) mapErr(message string, err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return errorbank.NotFound("Menu item not found.")
	}
	return s.internal(message, err)
}

func (s *Service) internal(message string, err error) error {
	s.logger.Error(strings.ToLower(message), zap.Error(err))
	return errorbank.Internal(message, errorbank.WithCause(err))
}
