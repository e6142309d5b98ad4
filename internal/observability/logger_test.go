// internal/observability/logger_test.go
package observability

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fengtianyu/courtdash/internal/config"
)

// memSink is an in-memory WriteSyncer for asserting console output.
type memSink struct {
	data []byte
}

func (m *memSink) Write(p []byte) (int, error) {
	m.data = append(m.data, p...)
	return len(p), nil
}

func (m *memSink) Sync() error { return nil }

func TestInitializeConsoleLogger(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	sink := &memSink{}
	Initialize(config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "courtdash-test",
	}, zapcore.Lock(zapcore.AddSync(sink)))

	GetLogger().Info("hello from the console core")

	out := string(sink.data)
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "courtdash-test.")
	assert.Contains(t, out, "hello from the console core")
}

func TestFileCoreWritesJSON(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logFile := filepath.Join(t.TempDir(), "courtdash.log")
	Initialize(config.LoggerConfig{
		Level:       "info",
		Format:      "console",
		ServiceName: "courtdash-test",
		LogFile:     logFile,
		MaxSize:     1,
	}, zapcore.AddSync(&memSink{}))

	GetLogger().Info("structured entry")
	Sync()

	raw, err := os.ReadFile(logFile)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(raw, &entry))
	assert.Equal(t, "structured entry", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestInitializeIsIdempotent(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	first := &memSink{}
	second := &memSink{}
	Initialize(config.LoggerConfig{Level: "info", Format: "console"}, zapcore.AddSync(first))
	Initialize(config.LoggerConfig{Level: "info", Format: "console"}, zapcore.AddSync(second))

	GetLogger().Info("only once")
	assert.Contains(t, string(first.data), "only once")
	assert.Empty(t, second.data)
}

func TestGetLoggerFallback(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logger := GetLogger()
	require.NotNil(t, logger)
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	sink := &memSink{}
	Initialize(config.LoggerConfig{Level: "shouting", Format: "console"}, zapcore.AddSync(sink))

	GetLogger().Debug("should be filtered")
	GetLogger().Info("should appear")

	out := string(sink.data)
	assert.NotContains(t, out, "should be filtered")
	assert.Contains(t, out, "should appear")
}
