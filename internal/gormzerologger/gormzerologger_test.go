package gormzerologger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newBufferLogger(level logger.LogLevel) (*QueryLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return &QueryLogger{
		base:         zerolog.New(buf).Level(zerolog.TraceLevel),
		level:        level,
		slow:         50 * time.Millisecond,
		skipNotFound: true,
	}, buf
}

func query() (string, int64) { return "SELECT 1", 1 }

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, "trace", LevelFor("info", false))
	assert.Equal(t, "trace", LevelFor("debug", true))
	assert.Equal(t, "warn", LevelFor("info", true))
}

func TestParseGormLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, parseGormLogLevel("silent"))
	assert.Equal(t, logger.Info, parseGormLogLevel("trace"))
	assert.Equal(t, logger.Warn, parseGormLogLevel("warn"))
	assert.Equal(t, logger.Error, parseGormLogLevel("error"))
}

func TestTraceErrors(t *testing.T) {
	l, buf := newBufferLogger(logger.Error)
	l.Trace(context.Background(), time.Now(), query, errors.New("boom"))
	entry := lastLine(t, buf)
	assert.Equal(t, "erreur requête sql", entry["message"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "gorm", entry["component"])

	buf.Reset()
	l.Trace(context.Background(), time.Now(), query, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())
}

func TestTraceSlowQuery(t *testing.T) {
	l, buf := newBufferLogger(logger.Warn)
	l.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)
	assert.Equal(t, "requête sql lente", lastLine(t, buf)["message"])

	buf.Reset()
	l.Trace(context.Background(), time.Now(), query, nil)
	assert.Empty(t, buf.String())
}

func TestTraceUsesRequestLogger(t *testing.T) {
	l, base := newBufferLogger(logger.Info)

	reqBuf := &bytes.Buffer{}
	reqLogger := zerolog.New(reqBuf).With().Str("request_id", "req-42").Logger()
	ctx := reqLogger.WithContext(context.Background())

	l.Trace(ctx, time.Now(), query, nil)
	assert.Empty(t, base.String())
	entry := lastLine(t, reqBuf)
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "SELECT 1", entry["sql"])
}

func TestTraceTruncatesLongSQL(t *testing.T) {
	l, buf := newBufferLogger(logger.Info)
	long := "SELECT " + strings.Repeat("x", 2*maxSQLLen)
	l.Trace(context.Background(), time.Now(), func() (string, int64) { return long, 0 }, nil)

	sql := lastLine(t, buf)["sql"].(string)
	assert.Len(t, sql, maxSQLLen+3)
	assert.True(t, strings.HasSuffix(sql, "..."))
}

func TestLogModeSilent(t *testing.T) {
	l, buf := newBufferLogger(logger.Info)
	silent := l.LogMode(logger.Silent)
	silent.Trace(context.Background(), time.Now(), query, errors.New("boom"))
	silent.Error(context.Background(), "migration %s", "ko")
	assert.Empty(t, buf.String())

	l.Trace(context.Background(), time.Now(), query, nil)
	assert.Contains(t, buf.String(), "SELECT 1")

	buf.Reset()
	l.Warn(context.Background(), "colonne %s ignorée", "x")
	entry := lastLine(t, buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "colonne x ignorée", entry["message"])
}
