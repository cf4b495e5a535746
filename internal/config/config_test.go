package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/streamconsole/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	doc := `
server:
  port: 9000
  allowed_origins:
    - console.example.com
database:
  seed: true
list:
  page_size: 20
options:
  debounce: 250ms
session:
  idle_timeout: 5m
catalog:
  overlays:
    - extra.yaml
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "console.yaml"), []byte(doc), 0o644))
	t.Setenv("CONSOLE_SERVER_PORT", "9090")
	t.Setenv("CONSOLE_REMOTE_BASE_URL", "http://manager:8083/api")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "http://manager:8083/api", cfg.Remote.BaseURL)
	assert.Equal(t, []string{"console.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.True(t, cfg.Database.Seed)
	assert.Equal(t, 20, cfg.List.PageSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Options.Debounce)
	assert.Equal(t, 5*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Session.MaxAge)
	assert.Equal(t, []string{"extra.yaml"}, cfg.Catalog.Overlays)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
}

func TestLoad_Rejects(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "console.yaml"), []byte("server: [\n"), 0o644))
	_, err := config.Load(dir)
	assert.Error(t, err)

	t.Setenv("CONSOLE_LIST_PAGE_SIZE", "0")
	_, err = config.Load(t.TempDir())
	assert.Error(t, err)
}
