package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 4770, cfg.Server.Port)
	assert.Equal(t, "./tmp/data.sqlite", cfg.Database.FilePath)
	// Development always logs queries.
	assert.True(t, cfg.Database.Debug)
}

func TestNew_WithEnvVars(t *testing.T) {
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")
	t.Setenv("TSUNDOKU_SERVER__PORT", "9090")
	t.Setenv("TSUNDOKU_DATABASE__FILE_PATH", "/tmp/test.db")
	t.Setenv("TSUNDOKU_IDENTITY__SECRET", "from-env")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/tmp/test.db", cfg.Database.FilePath)
	assert.Equal(t, "from-env", cfg.Identity.Secret)
}

func TestNew_WithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 8080
database:
  file_path: /data/tsundoku.db
identity:
  issuer: https://id.example.com
  secret: from-file
storage:
  bucket: covers
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	t.Setenv("CONFIG_FILE", configPath)

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "/data/tsundoku.db", cfg.Database.FilePath)
	assert.Equal(t, "https://id.example.com", cfg.Identity.Issuer)
	assert.Equal(t, "from-file", cfg.Identity.Secret)
	assert.Equal(t, "covers", cfg.Storage.Bucket)
}

func TestNew_EnvVarOverridesConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte("server:\n  port: 8080\n"), 0644)
	require.NoError(t, err)

	t.Setenv("CONFIG_FILE", configPath)
	t.Setenv("TSUNDOKU_SERVER__PORT", "9191")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
}

func TestNew_TestEnvironment(t *testing.T) {
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")
	t.Setenv("TSUNDOKU_ENVIRONMENT", "test")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.Database.FilePath)
}
