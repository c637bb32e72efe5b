package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/burgerbar/internal/database"
	"github.com/Additional-Code/burgerbar/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/burgerbar/repository/order")

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

// Repository encapsulates read/write access for orders.
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

// Create persists order and all of order.Lines in one transaction; either
// everything is visible to other readers or nothing is.
func (r *Repository) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	if len(order.Lines) == 0 {
		return errors.New("order has no lines")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create", trace.WithAttributes(
		attribute.String("order.code", order.OrderCode),
		attribute.Int("order.lines", len(order.Lines)),
	))
	defer span.End()

	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		for i, line := range order.Lines {
			line.OrderID = order.ID
			line.Position = i
		}
		if _, err := tx.NewInsert().Model(&order.Lines).Exec(ctx); err != nil {
			return fmt.Errorf("insert order lines: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByCode fetches an order and its lines by customer-facing code.
func (r *Repository) GetByCode(ctx context.Context, code string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByCode", trace.WithAttributes(attribute.String("order.code", code)))
	defer span.End()

	return r.get(ctx, span, "o.order_code = ?", code)
}

// GetByID fetches an order and its lines by primary key using the read replica when available.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	return r.get(ctx, span, "o.id = ?", id)
}

func (r *Repository) get(ctx context.Context, span trace.Span, where string, arg any) (*entity.Order, error) {
	order := new(entity.Order)
	err := r.reader.NewSelect().
		Model(order).
		Relation("Lines", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("ol.position ASC")
		}).
		Where(where, arg).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// Count returns the number of stored orders.
func (r *Repository) Count(ctx context.Context) (int, error) {
	return r.reader.NewSelect().Model((*entity.Order)(nil)).Count(ctx)
}
