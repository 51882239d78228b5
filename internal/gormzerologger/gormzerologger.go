package gormzerologger

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	slowQuery = 200 * time.Millisecond
	maxSQLLen = 512
)

// QueryLogger branche gorm sur zerolog. Les requêtes faites avec un contexte
// de requête http héritent de son request_id.
type QueryLogger struct {
	base         zerolog.Logger
	level        logger.LogLevel
	slow         time.Duration
	skipNotFound bool
}

func New(level string) *QueryLogger {
	return &QueryLogger{
		base:         log.Logger,
		level:        parseGormLogLevel(level),
		slow:         slowQuery,
		skipNotFound: true,
	}
}

// LevelFor choisit le niveau gorm à partir de la config du logger: toutes les
// requêtes en developpement ou en debug, seulement les lentes sinon.
func LevelFor(configLevel string, production bool) string {
	if configLevel == "debug" || configLevel == "trace" || !production {
		return "trace"
	}
	return "warn"
}

func parseGormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "warn":
		return logger.Warn
	case "error":
		return logger.Error
	default:
		return logger.Info
	}
}

func (l *QueryLogger) LogMode(level logger.LogLevel) logger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

// from préfère le logger porté par le contexte
func (l *QueryLogger) from(ctx context.Context) zerolog.Logger {
	lg := l.base
	if ctxLogger := zerolog.Ctx(ctx); ctxLogger.GetLevel() != zerolog.Disabled {
		lg = *ctxLogger
	}
	return lg.With().Str("component", "gorm").Logger()
}

func (l *QueryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.printf(ctx, logger.Info, zerolog.InfoLevel, msg, data)
}

func (l *QueryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.printf(ctx, logger.Warn, zerolog.WarnLevel, msg, data)
}

func (l *QueryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.printf(ctx, logger.Error, zerolog.ErrorLevel, msg, data)
}

func (l *QueryLogger) printf(ctx context.Context, need logger.LogLevel, lvl zerolog.Level, msg string, data []interface{}) {
	if l.level < need {
		return
	}
	lg := l.from(ctx)
	lg.WithLevel(lvl).Msgf(msg, data...)
}

func (l *QueryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	lg := l.from(ctx)
	ev, msg := l.event(&lg, elapsed, err)
	if ev == nil {
		return
	}

	sql, rows := fc()
	if len(sql) > maxSQLLen {
		sql = sql[:maxSQLLen] + "..."
	}
	ev.Dur("elapsed_ms", elapsed).Int64("rows", rows).Str("sql", sql).Msg(msg)
}

// event retient au plus un niveau: erreur, puis requête lente, puis debug
func (l *QueryLogger) event(lg *zerolog.Logger, elapsed time.Duration, err error) (*zerolog.Event, string) {
	if err != nil && !(l.skipNotFound && errors.Is(err, gorm.ErrRecordNotFound)) {
		if l.level >= logger.Error {
			return lg.Error().Err(err), "erreur requête sql"
		}
		return nil, ""
	}
	if l.slow > 0 && elapsed > l.slow && l.level >= logger.Warn {
		return lg.Warn().Dur("threshold", l.slow), "requête sql lente"
	}
	if l.level >= logger.Info {
		return lg.Debug(), "requête sql"
	}
	return nil, ""
}
