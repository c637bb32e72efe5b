package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Additional-Code/burgerbar/internal/config"
)

func openMemory(t *testing.T) *Connections {
	t.Helper()
	conns, err := Open(config.Database{Driver: "sqlite", WriterDSN: "file:database_test?mode=memory&cache=shared"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conns.Close() })
	return conns
}

func TestOpenSQLite(t *testing.T) {
	conns := openMemory(t)

	assert.False(t, conns.HasReplica())
	require.NoError(t, conns.Ping(context.Background()))

	var fk int
	require.NoError(t, conns.Writer.QueryRowContext(context.Background(), "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.Database{Driver: "oracle", WriterDSN: "x"})
	assert.Error(t, err)

	_, err = Open(config.Database{Driver: "sqlite"})
	assert.Error(t, err)
}

func TestDSNHelpers(t *testing.T) {
	assert.Equal(t, "file:x?mode=memory&_pragma=foreign_keys(1)", sqliteDSN("file:x?mode=memory"))
	assert.Equal(t, "app.db?_pragma=foreign_keys(1)", sqliteDSN("app.db"))
	assert.Equal(t, "a.db?_pragma=foreign_keys(0)", sqliteDSN("a.db?_pragma=foreign_keys(0)"))

	assert.Equal(t, "u:p@tcp(db:3306)/burgerbar?parseTime=true", mysqlDSN("u:p@tcp(db:3306)/burgerbar"))
	assert.Equal(t, "u@/b?charset=utf8&parseTime=true", mysqlDSN("u@/b?charset=utf8"))
	assert.Equal(t, "u@/b?parseTime=false", mysqlDSN("u@/b?parseTime=false"))
}

func TestQueryLoggerReportsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	conns := openMemory(t)
	conns.AddQueryHook(NewQueryLogger(zap.New(core), time.Hour))

	_, err := conns.Writer.NewSelect().Table("no_such_table").Exec(context.Background())
	require.Error(t, err)

	failed := logs.FilterMessage("query failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.WarnLevel, failed[0].Level)
	assert.Equal(t, "SELECT", failed[0].ContextMap()["operation"])

	require.NoError(t, conns.Writer.NewRaw("SELECT 1").Scan(context.Background(), new(int)))
	assert.Equal(t, 1, logs.FilterMessage("query").Len())
}
