package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
dsn: "user:pass@tcp(localhost:3306)/procollekt"
redis_url: "redis://localhost:6379/0"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2342, cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.Tracking.FreshnessWindow)
	assert.Equal(t, 50, cfg.Tracking.HistoryLimit)
	assert.Equal(t, 10*time.Second, cfg.Tracking.WatchTimeout)
	assert.Equal(t, 30*time.Second, cfg.Tracking.WatchMaximumAge)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
dsn: "user:pass@tcp(localhost:3306)/procollekt"
redis_url: "redis://localhost:6379/0"
port: 9000
`)

	t.Setenv("PK_PORT", "8100")
	t.Setenv("PK_ENV", "development")
	t.Setenv("PK_ALLOWED_ORIGINS", "example.com, *.example.org")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8100, cfg.Port)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, []string{"example.com", "*.example.org"}, cfg.AllowedOrigins)
}

func TestLoadRequiresDatabaseAndRedis(t *testing.T) {
	path := writeConfig(t, `port: 9000`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadTrackingOverrides(t *testing.T) {
	path := writeConfig(t, `
dsn: "user:pass@tcp(localhost:3306)/procollekt"
redis_url: "redis://localhost:6379/0"
tracking:
  freshness_window: 10m
  history_limit: 25
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Minute, cfg.Tracking.FreshnessWindow)
	assert.Equal(t, 25, cfg.Tracking.HistoryLimit)
}
