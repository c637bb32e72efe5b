package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/schema"
	"go.uber.org/fx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Additional-Code/burgerbar/internal/config"
)

const pingTimeout = 5 * time.Second

// Connections holds the writer pool and the reader pool. Reader is Writer
// when no replica is configured.
type Connections struct {
	Writer *bun.DB
	Reader *bun.DB
}

// Module provides *Connections to Fx.
var Module = fx.Provide(New)

// New opens the pools, pings them on start and closes them on stop.
func New(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*Connections, error) {
	conns, err := Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	conns.AddQueryHook(NewQueryLogger(logger, cfg.Database.SlowQuery))

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := conns.Ping(ctx); err != nil {
				return err
			}
			logger.Info("database connected",
				zap.String("driver", cfg.Database.Driver),
				zap.Bool("replica", conns.HasReplica()),
			)
			return nil
		},
		OnStop: func(context.Context) error {
			return conns.Close()
		},
	})
	return conns, nil
}

// Open builds the pools without touching the network.
func Open(cfg config.Database) (*Connections, error) {
	dialect, err := newDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}

	writer, err := openPool(cfg, cfg.WriterDSN, dialect)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	conns := &Connections{Writer: writer, Reader: writer}

	if cfg.ReaderDSN != "" && cfg.ReaderDSN != cfg.WriterDSN {
		reader, err := openPool(cfg, cfg.ReaderDSN, dialect)
		if err != nil {
			_ = writer.Close()
			return nil, fmt.Errorf("open reader: %w", err)
		}
		conns.Reader = reader
	}
	return conns, nil
}

// HasReplica reports whether reads go to a separate pool.
func (c *Connections) HasReplica() bool {
	return c.Reader != c.Writer
}

// AddQueryHook installs h on both pools.
func (c *Connections) AddQueryHook(h bun.QueryHook) {
	c.Writer.AddQueryHook(h)
	if c.HasReplica() {
		c.Reader.AddQueryHook(h)
	}
}

// Ping checks both pools.
func (c *Connections) Ping(ctx context.Context) error {
	if err := ping(ctx, c.Writer); err != nil {
		return fmt.Errorf("ping writer: %w", err)
	}
	if c.HasReplica() {
		if err := ping(ctx, c.Reader); err != nil {
			return fmt.Errorf("ping reader: %w", err)
		}
	}
	return nil
}

// Close closes both pools.
func (c *Connections) Close() error {
	err := c.Writer.Close()
	if c.HasReplica() {
		err = errors.Join(err, c.Reader.Close())
	}
	return err
}

func newDialect(driver string) (schema.Dialect, error) {
	switch driver {
	case "postgres", "pgx":
		return pgdialect.New(), nil
	case "mysql":
		return mysqldialect.New(), nil
	case "sqlite":
		return sqlitedialect.New(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func openPool(cfg config.Database, dsn string, dialect schema.Dialect) (*bun.DB, error) {
	if dsn == "" {
		return nil, errors.New("empty DSN")
	}

	var (
		sqldb *sql.DB
		err   error
	)
	switch cfg.Driver {
	case "postgres":
		sqldb = sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	case "pgx":
		pcfg, perr := pgx.ParseConfig(dsn)
		if perr != nil {
			return nil, fmt.Errorf("parse pgx dsn: %w", perr)
		}
		sqldb = stdlib.OpenDB(*pcfg)
	case "mysql":
		sqldb, err = sql.Open("mysql", mysqlDSN(dsn))
	case "sqlite":
		sqldb, err = sql.Open("sqlite", sqliteDSN(dsn))
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Driver == "sqlite" {
		// One connection keeps in-memory databases shared and serializes writers.
		sqldb.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.MaxConnLifetime > 0 {
			sqldb.SetConnMaxLifetime(cfg.MaxConnLifetime)
		}
	}
	return bun.NewDB(sqldb, dialect), nil
}

// sqliteDSN turns on foreign keys, which order lines rely on.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

// mysqlDSN asks the driver to scan DATETIME columns into time.Time.
func mysqlDSN(dsn string) string {
	if strings.Contains(dsn, "parseTime=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "parseTime=true"
}

func ping(ctx context.Context, db *bun.DB) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return db.PingContext(ctx)
}
