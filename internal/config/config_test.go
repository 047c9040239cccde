package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskline/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, int64(10*1024*1024), cfg.Uploads.MaxFileSize)
	assert.Contains(t, cfg.Uploads.AllowedExtensions, "pdf")
	assert.Equal(t, "/v1", cfg.Server.BasePath)
	assert.Equal(t, 3, cfg.DueSoon.DefaultDays)
	assert.Equal(t, 10, cfg.RecentAssignments.DefaultLimit)
}

func TestFromYAMLOverlaysDefaults(t *testing.T) {
	cfg, err := config.FromYAML([]byte("timezone: UTC\nuploads:\n  max_file_size: 1024\n"))
	require.NoError(t, err)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, int64(1024), cfg.Uploads.MaxFileSize)
	// untouched keys keep their defaults
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
}

func TestValidateRejectsBadValues(t *testing.T) {
	_, err := config.FromYAML([]byte("timezone: Mars/Olympus\n"))
	require.Error(t, err)

	_, err = config.FromYAML([]byte("uploads:\n  max_file_size: 0\n"))
	require.Error(t, err)

	_, err = config.FromYAML([]byte("server:\n  base_path: v1\n"))
	require.Error(t, err)
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.LoadOptional(dir)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	require.NoError(t, os.WriteFile(config.Path(dir), []byte("due_soon:\n  default_days: 7\n"), 0o644))
	cfg, err = config.LoadOptional(dir)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.DueSoon.DefaultDays)
}
