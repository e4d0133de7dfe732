package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/dashgen/internal/config"
)

func TestNew_FileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "dashgen.log")
	log, cleanup, err := New(config.Logger{Level: "debug", Format: "json", Output: "file", File: path})
	require.NoError(t, err)

	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	log.WithField("component", "test").Debug("hello")
	cleanup()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(raw, &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "test", entry["component"])
}

func TestNew_TextDefaults(t *testing.T) {
	log, cleanup, err := New(config.Logger{Level: "warn", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}

func TestNew_BadLevel(t *testing.T) {
	_, _, err := New(config.Logger{Level: "loud"})
	assert.ErrorContains(t, err, "invalid log level")
}
