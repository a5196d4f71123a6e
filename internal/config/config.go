package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort = 2342
	defaultEnv  = "development"

	defaultFreshnessWindow = 5 * time.Minute
	defaultHistoryLimit    = 50
	defaultWatchTimeout    = 10 * time.Second
	defaultWatchMaximumAge = 30 * time.Second
)

// Load reads the YAML config file, applies environment variable overrides and
// fills in defaults. A missing file is not an error: everything can come from
// the environment.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// env-only startup
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if cfg.DSN == "" {
		cfg.DSN = cfg.Database.BuildDSN()
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("no database configured: set dsn or database.* in %s", path)
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("no redis configured: set redis_url in %s", path)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv("PK_PORT")); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := strings.TrimSpace(os.Getenv("PK_DSN")); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("PK_REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("PK_ENV")); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(os.Getenv("PK_JWT_SECRET")); v != "" {
		cfg.JWTSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("PK_ALLOWED_ORIGINS")); v != "" {
		parts := strings.Split(v, ",")
		origins := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				origins = append(origins, p)
			}
		}
		cfg.AllowedOrigins = origins
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = defaultEnv
	}
	if cfg.Tracking.FreshnessWindow <= 0 {
		cfg.Tracking.FreshnessWindow = defaultFreshnessWindow
	}
	if cfg.Tracking.HistoryLimit <= 0 {
		cfg.Tracking.HistoryLimit = defaultHistoryLimit
	}
	if cfg.Tracking.WatchTimeout <= 0 {
		cfg.Tracking.WatchTimeout = defaultWatchTimeout
	}
	if cfg.Tracking.WatchMaximumAge <= 0 {
		cfg.Tracking.WatchMaximumAge = defaultWatchMaximumAge
	}
}
