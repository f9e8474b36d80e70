package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FileIsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ilbudget.log")

	log, err := New(Options{Level: "debug", File: path})
	require.NoError(t, err)
	log.Debug("dropped row")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"dropped row"`)
	assert.Contains(t, string(data), `"logger":"ilbudget"`)
}

func TestNew_LevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ilbudget.log")

	log, err := New(Options{Level: "warn", File: path})
	require.NoError(t, err)
	log.Info("hidden")
	log.Warn("shown")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}
