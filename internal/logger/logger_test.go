package logger_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/machine-storage/internal/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name string
		cfg  logger.Config
		want zapcore.Level
	}{
		{"production default", logger.Config{}, zapcore.InfoLevel},
		{"development default", logger.Config{Development: true}, zapcore.DebugLevel},
		{"explicit level", logger.Config{Level: "warn"}, zapcore.WarnLevel},
		{"explicit level in development", logger.Config{Level: "error", Development: true}, zapcore.ErrorLevel},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			log, level, err := logger.New(tc.cfg)
			require.NoError(t, err)
			require.NotNil(t, log)
			assert.Equal(t, tc.want, level.Level())
		})
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := logger.New(logger.Config{Level: "loud"})
	assert.ErrorContains(t, err, "invalid level")
}

func TestNew_ProductionWritesJSON(t *testing.T) {
	// GIVEN: A production logger writing to a file
	// WHEN: Its level is raised at runtime
	// THEN: Lower entries are dropped and the rest are JSON lines

	path := filepath.Join(t.TempDir(), "server.log")
	log, level, err := logger.New(logger.Config{OutputPaths: []string{path}})
	require.NoError(t, err)

	log.Info("machine created", zap.String("type", "chest"))
	level.SetLevel(zapcore.WarnLevel)
	log.Info("dropped")
	log.Warn("tick rolled back")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := splitLines(data)
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, "INFO", first["level"])
	assert.Equal(t, "machine created", first["msg"])
	assert.Equal(t, "chest", first["type"])
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, data[start:i])
			}
			start = i + 1
		}
	}
	return lines
}
