package user

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/burgerbar/internal/database"
	"github.com/Additional-Code/burgerbar/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/burgerbar/repository/user")

var (
	// ErrNotFound is returned when a user is missing.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
)

// Repository encapsulates read/write access for users.
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

// Create inserts a user. Emails are stored lower-cased.
func (r *Repository) Create(ctx context.Context, user *entity.User) error {
	user.Email = normalizeEmail(user.Email)
	ctx, span := repoTracer.Start(ctx, "UserRepository.Create", trace.WithAttributes(attribute.String("user.role", string(user.Role))))
	defer span.End()

	exists, err := r.writer.NewSelect().Model((*entity.User)(nil)).Where("email = ?", user.Email).Exists(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return err
	}
	if exists {
		return ErrDuplicateEmail
	}

	if _, err := r.writer.NewInsert().Model(user).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return err
	}
	return nil
}

// FindByEmail looks a user up by email, case-insensitively.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	ctx, span := repoTracer.Start(ctx, "UserRepository.FindByEmail")
	defer span.End()

	return r.find(ctx, span, "email = ?", normalizeEmail(email))
}

// FindByID looks a user up by primary key.
func (r *Repository) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	ctx, span := repoTracer.Start(ctx, "UserRepository.FindByID", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer span.End()

	return r.find(ctx, span, "id = ?", id)
}

func (r *Repository) find(ctx context.Context, span trace.Span, where string, arg any) (*entity.User, error) {
	user := new(entity.User)
	err := r.reader.NewSelect().Model(user).Where(where, arg).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// isUniqueViolation catches the race where two registrations pass the
// existence check together. Driver error types differ, so match on text.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
