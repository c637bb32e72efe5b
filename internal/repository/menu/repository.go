package menu

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/burgerbar/internal/database"
	"github.com/Additional-Code/burgerbar/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/burgerbar/repository/menu")

// ErrNotFound is returned when a menu item is missing.
var ErrNotFound = errors.New("menu item not found")

// Filter narrows List results. Nil fields are not filtered on.
type Filter struct {
	Type     *entity.ItemType
	Size     *entity.DrinkSize
	IsActive *bool
}

// Repository encapsulates read/write access for menu items.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// FindActiveByIDs loads the active items among ids in a single query.
// Missing and inactive ids are simply absent from the result.
func (r *Repository) FindActiveByIDs(ctx context.Context, ids []int64) ([]entity.MenuItem, error) {
	ctx, span := repoTracer.Start(ctx, "MenuRepository.FindActiveByIDs", trace.WithAttributes(attribute.Int("menu.ids", len(ids))))
	defer span.End()

	items := make([]entity.MenuItem, 0, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	err := r.reader.NewSelect().
		Model(&items).
		Where("id IN (?)", bun.In(ids)).
		Where("is_active = ?", true).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return items, nil
}

// FindByID fetches an item regardless of its active flag.
func (r *Repository) FindByID(ctx context.Context, id int64) (*entity.MenuItem, error) {
	ctx, span := repoTracer.Start(ctx, "MenuRepository.FindByID", trace.WithAttributes(attribute.Int64("menu.id", id)))
	defer span.End()

	item := new(entity.MenuItem)
	err := r.reader.NewSelect().Model(item).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return item, nil
}

// List returns items matching f ordered by id.
func (r *Repository) List(ctx context.Context, f Filter) ([]entity.MenuItem, error) {
	ctx, span := repoTracer.Start(ctx, "MenuRepository.List")
	defer span.End()

	items := make([]entity.MenuItem, 0)
	q := r.reader.NewSelect().Model(&items).OrderExpr("id ASC")
	if f.Type != nil {
		q = q.Where("type = ?", string(*f.Type))
	}
	if f.Size != nil {
		q = q.Where("size = ?", string(*f.Size))
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}

	if err := q.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return items, nil
}

// Create inserts item and fills its generated id.
func (r *Repository) Create(ctx context.Context, item *entity.MenuItem) error {
	if item == nil {
		return errors.New("nil menu item")
	}
	ctx, span := repoTracer.Start(ctx, "MenuRepository.Create", trace.WithAttributes(attribute.String("menu.name", item.Name)))
	defer span.End()

	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	_, err := r.writer.NewInsert().Model(item).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// Update overwrites every mutable column of item.
func (r *Repository) Update(ctx context.Context, item *entity.MenuItem) error {
	if item == nil {
		return errors.New("nil menu item")
	}
	ctx, span := repoTracer.Start(ctx, "MenuRepository.Update", trace.WithAttributes(attribute.Int64("menu.id", item.ID)))
	defer span.End()

	item.UpdatedAt = time.Now().UTC()
	res, err := r.writer.NewUpdate().
		Model(item).
		Column("name", "price", "type", "size", "is_active", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	return expectRow(res)
}

// SoftDelete marks the item inactive. Rows are never removed.
func (r *Repository) SoftDelete(ctx context.Context, id int64) error {
	ctx, span := repoTracer.Start(ctx, "MenuRepository.SoftDelete", trace.WithAttributes(attribute.Int64("menu.id", id)))
	defer span.End()

	res, err := r.writer.NewUpdate().
		Table("menu_items").
		Set("is_active = ?", false).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	return expectRow(res)
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
