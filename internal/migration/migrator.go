package migration

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/burgerbar/internal/config"
	"github.com/Additional-Code/burgerbar/internal/database"
)

//go:embed sql
var migrationsFS embed.FS

// Module provides the migrator to Fx.
var Module = fx.Provide(New)

// goose keeps its dialect, filesystem and logger in package globals.
var gooseMu sync.Mutex

// Migrator wraps goose operations over the embedded SQL migrations.
type Migrator struct {
	db      *bun.DB
	dialect string
	logger  *zap.Logger
}

// New constructs a goose-backed migrator for the configured writer.
func New(cfg config.Config, conns *database.Connections, logger *zap.Logger) (*Migrator, error) {
	return NewForDB(conns.Writer, cfg.Database.Driver, logger)
}

// NewForDB constructs a migrator for an already opened database.
func NewForDB(db *bun.DB, driver string, logger *zap.Logger) (*Migrator, error) {
	dialect, err := gooseDialect(driver)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{db: db, dialect: dialect, logger: logger}, nil
}

func (m *Migrator) dir() string {
	return path.Join("sql", m.dialect)
}

// run configures the goose globals and executes fn under a lock.
func (m *Migrator) run(fn func(dir string) error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{logger: m.logger})
	if err := goose.SetDialect(m.dialect); err != nil {
		return err
	}
	return fn(m.dir())
}

// Up applies all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	err := m.run(func(dir string) error {
		return goose.UpContext(ctx, m.db.DB, dir)
	})
	if err != nil {
		if isNoMigrationErr(err) {
			m.logger.Info("no migrations to apply")
			return nil
		}
		return err
	}

	m.logger.Info("migrations applied", zap.String("dialect", m.dialect))
	return nil
}

// Down rolls back steps migrations (at least one), or every migration when all is set.
func (m *Migrator) Down(ctx context.Context, steps int, all bool) error {
	steps = max(steps, 1)
	err := m.run(func(dir string) error {
		if all {
			return goose.DownToContext(ctx, m.db.DB, dir, 0)
		}
		for i := 0; i < steps; i++ {
			if err := goose.DownContext(ctx, m.db.DB, dir); err != nil {
				return err
			}
		}
		return nil
	})
	switch {
	case isNoMigrationErr(err):
		m.logger.Info("no migrations to roll back")
		return nil
	case err != nil:
		return err
	}

	if all {
		m.logger.Info("migrations rolled back", zap.String("mode", "all"))
	} else {
		m.logger.Info("migrations rolled back", zap.Int("steps", steps))
	}
	return nil
}

// Version returns the schema version currently applied.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	var version int64
	err := m.run(func(string) error {
		v, err := goose.GetDBVersionContext(ctx, m.db.DB)
		version = v
		return err
	})
	return version, err
}

func gooseDialect(driver string) (string, error) {
	switch driver {
	case "postgres", "pg", "pgx":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	case "sqlite", "sqlite3":
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unsupported goose dialect for driver %s", driver)
	}
}

func isNoMigrationErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, goose.ErrNoNextVersion) || errors.Is(err, goose.ErrNoMigrationFiles) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "no migrations")
}

type gooseLogger struct {
	logger *zap.Logger
}

func (g gooseLogger) Printf(format string, args ...interface{}) {
	g.logger.Sugar().Debugf(strings.TrimSpace(format), args...)
}

func (g gooseLogger) Fatalf(format string, args ...interface{}) {
	g.logger.Sugar().Errorf(strings.TrimSpace(format), args...)
}
