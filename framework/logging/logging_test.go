package logging_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-beans/framework/config"
	"github.com/km-arc/go-beans/framework/logging"
)

func testConfig(env, level, encoding string) *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "beans-test", Env: env},
		Log: config.LogConfig{Level: level, Encoding: encoding},
	}
}

func TestNew_JSONInProduction(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewWithWriter(testConfig("production", "info", ""), &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("published singleton")
	require.NoError(t, logger.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1, "debug is below the configured level")
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "published singleton", entry["msg"])
	assert.Equal(t, "beans-test", entry["app"])
}

func TestNew_ConsoleLocally(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewWithWriter(testConfig("local", "debug", ""), &buf)
	require.NoError(t, err)

	logger.Debug("resolving bean")
	require.NoError(t, logger.Sync())
	assert.Contains(t, buf.String(), "resolving bean")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := logging.New(testConfig("local", "loud", ""))
	assert.Error(t, err)
}

func TestEncoding(t *testing.T) {
	assert.Equal(t, "json", logging.Encoding(testConfig("production", "info", "")))
	assert.Equal(t, "console", logging.Encoding(testConfig("local", "info", "")))
	assert.Equal(t, "json", logging.Encoding(testConfig("local", "info", "json")))
}
