// Package dbtest opens migrated in-memory sqlite databases for tests.
package dbtest

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/Additional-Code/burgerbar/internal/config"
	"github.com/Additional-Code/burgerbar/internal/database"
	"github.com/Additional-Code/burgerbar/internal/migration"
)

var seq atomic.Int64

// SQLite returns connections to a fresh, fully migrated in-memory database.
func SQLite(t testing.TB) *database.Connections {
	t.Helper()

	dsn := fmt.Sprintf("file:dbtest_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", seq.Add(1))
	conns, err := database.Open(config.Database{Driver: "sqlite", WriterDSN: dsn})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conns.Writer.Close() })

	m, err := migration.NewForDB(conns.Writer, "sqlite", nil)
	if err != nil {
		t.Fatalf("migrator: %v", err)
	}
	if err := m.Up(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conns
}
