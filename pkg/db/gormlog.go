package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// maxLoggedSQL bounds the statement text attached to log lines.
const maxLoggedSQL = 2000

// gormLogger forwards GORM diagnostics to the service logger. Only failed statements
// and those slower than slow are logged; record-not-found is an expected outcome.
type gormLogger struct {
	logg *logger.Logger
	slow time.Duration
	mode gormlogger.LogLevel
}

func newGormLogger(logg *logger.Logger, slow time.Duration) gormlogger.Interface {
	if logg == nil {
		return gormlogger.Discard
	}
	return &gormLogger{logg: logg, slow: slow, mode: gormlogger.Warn}
}

func (g *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *g
	clone.mode = level
	return &clone
}

func (g *gormLogger) Info(ctx context.Context, msg string, args ...any) {
	if g.mode >= gormlogger.Info {
		g.logg.Info(ctx, fmt.Sprintf(msg, args...))
	}
}

func (g *gormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if g.mode >= gormlogger.Warn {
		g.logg.Warn(ctx, fmt.Sprintf(msg, args...))
	}
}

func (g *gormLogger) Error(ctx context.Context, msg string, args ...any) {
	if g.mode >= gormlogger.Error {
		g.logg.Error(ctx, "gorm", fmt.Errorf(msg, args...))
	}
}

func (g *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.mode <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := g.slow > 0 && elapsed > g.slow
	if !failed && !slow {
		return
	}

	sql, rows := fc()
	if len(sql) > maxLoggedSQL {
		sql = sql[:maxLoggedSQL] + "..."
	}
	fields := map[string]any{
		"sql":         sql,
		"rows":        rows,
		"duration_ms": elapsed.Milliseconds(),
	}
	fault := FaultOf(err)
	for k, v := range fault.LogFields() {
		fields[k] = v
	}
	ctx = g.logg.WithFields(ctx, fields)
	switch {
	case failed && fault != nil:
		// constraint violations are mapped to client errors by the services
		g.logg.Warn(ctx, "sql constraint violation")
	case failed && g.mode >= gormlogger.Error:
		g.logg.Error(ctx, "sql statement failed", err)
	case slow && g.mode >= gormlogger.Warn:
		g.logg.Warn(g.logg.WithField(ctx, "threshold_ms", g.slow.Milliseconds()), "slow sql statement")
	}
}
