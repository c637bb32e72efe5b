package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// QueryLogger is a bun hook that reports failed and slow queries. Missing
// rows are expected and not reported.
type QueryLogger struct {
	logger *zap.Logger
	slow   time.Duration
}

var _ bun.QueryHook = (*QueryLogger)(nil)

// NewQueryLogger reports queries slower than slow; zero disables slow-query logging.
func NewQueryLogger(logger *zap.Logger, slow time.Duration) *QueryLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryLogger{logger: logger.Named("sql"), slow: slow}
}

func (q *QueryLogger) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (q *QueryLogger) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	took := time.Since(event.StartTime)
	switch {
	case event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows):
		q.logger.Warn("query failed",
			zap.String("operation", event.Operation()),
			zap.Duration("took", took),
			zap.String("query", event.Query),
			zap.Error(event.Err),
		)
	case q.slow > 0 && took >= q.slow:
		q.logger.Warn("slow query",
			zap.String("operation", event.Operation()),
			zap.Duration("took", took),
			zap.String("query", event.Query),
		)
	default:
		if ce := q.logger.Check(zap.DebugLevel, "query"); ce != nil {
			ce.Write(zap.String("operation", event.Operation()), zap.Duration("took", took))
		}
	}
}
