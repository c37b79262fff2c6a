package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bluescout/config"
)

func TestNewJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bluescout.log")
	log, closer, err := New(config.LogConfig{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)

	Component(log, "scan").WithField("devices", 3).Debug("scan finished")
	require.NoError(t, closer())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	assert.Equal(t, "scan finished", entry["msg"])
	assert.Equal(t, "scan", entry["component"])
	assert.Equal(t, float64(3), entry["devices"])
	assert.Equal(t, "debug", entry["level"])
}

func TestNewLevelFallback(t *testing.T) {
	log, _, err := New(config.LogConfig{Level: "chatty", Output: "stderr"})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	_, ok := log.Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)
}

func TestNewBadOutput(t *testing.T) {
	_, _, err := New(config.LogConfig{Output: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}
