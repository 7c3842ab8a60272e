package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/orochi-outreach/config"
)

func TestNewLogger(t *testing.T) {
	t.Run("rejects unknown level", func(t *testing.T) {
		_, err := NewLogger(config.LoggingConfig{Level: "verbose"})
		assert.Error(t, err)
	})

	t.Run("writes rotating file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		logger, err := NewLogger(config.LoggingConfig{
			Level:    "debug",
			Format:   "json",
			Output:   "file",
			FilePath: path,
			MaxSize:  1,
		})
		require.NoError(t, err)

		logger.Info("campaign sent")
		_ = logger.Sync()

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "campaign sent")
	})

	t.Run("debug is filtered at info", func(t *testing.T) {
		logger, err := NewLogger(config.LoggingConfig{Level: "info", Output: "stdout"})
		require.NoError(t, err)
		assert.False(t, logger.Core().Enabled(-1))
	})
}

func TestEmailHelpers(t *testing.T) {
	assert.Equal(t, "jane@acme.io", NormalizeEmail("  Jane@ACME.io "))
	assert.True(t, HasEmailShape("a@b"))
	assert.False(t, HasEmailShape("no-at-sign"))
	assert.Equal(t, "b", FirstNonEmpty("", "  ", "b", "c"))
}
