package cllog

import (
	"path/filepath"
	"testing"

	"timetracker/internal/models/clconfig"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.TraceLevel, parseLevel("trace"))
	assert.Equal(t, zerolog.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("info"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zerolog.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("n'importe quoi"))
}

func TestExtractLevelFromJSON(t *testing.T) {
	assert.Equal(t, "info", extractLevelFromJSON(`{"level":"info","message":"x"}`))
	assert.Equal(t, "error", extractLevelFromJSON(`{"time":"t","level":"error"}`))
	assert.Equal(t, "", extractLevelFromJSON(`{"message":"x"}`))
	assert.Equal(t, "", extractLevelFromJSON(`{"level":"unterminated`))
}

func TestShortCaller(t *testing.T) {
	assert.Equal(t, "store.go:42", shortCaller(0, "/home/x/timetracker/internal/models/cltracker/store.go", 42))
}

func TestBuildWriters(t *testing.T) {
	writers, err := buildWriters(clconfig.LoggerConfig{}, true)
	require.NoError(t, err)
	assert.Len(t, writers, 1)

	writers, err = buildWriters(clconfig.LoggerConfig{}, false)
	require.NoError(t, err)
	assert.Len(t, writers, 1)

	logPath := filepath.Join(t.TempDir(), "logs", "timetracker.log")
	writers, err = buildWriters(clconfig.LoggerConfig{
		File: clconfig.LoggerFileConfig{Enable: true, Path: logPath, MaxSize: 1},
	}, true)
	require.NoError(t, err)
	require.Len(t, writers, 1)
	lj, ok := writers[0].(*lumberjack.Logger)
	require.True(t, ok)
	assert.Equal(t, logPath, lj.Filename)
	lj.Close()

	_, err = buildWriters(clconfig.LoggerConfig{File: clconfig.LoggerFileConfig{Enable: true}}, true)
	assert.Error(t, err)
}
