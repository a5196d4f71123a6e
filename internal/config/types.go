package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	DSN            string                `yaml:"dsn"` // MySQL DSN
	RedisURL       string                `yaml:"redis_url"`
	Database       DatabaseRuntimeConfig `yaml:"database"`
	Env            string                `yaml:"env"` // "development" | "production"
	AllowedOrigins []string              `yaml:"allowed_origins"`
	JWTSecret      string                `yaml:"jwt_secret"`
	Timezone       string                `yaml:"timezone"`
	Tracking       TrackingConfig        `yaml:"tracking"`
}

type DatabaseRuntimeConfig struct {
	DSN       string            `yaml:"dsn"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	Charset   string            `yaml:"charset"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
}

// TrackingConfig carries the surveyor presence/location tunables. The defaults
// mirror the observed behavior of the web client: a 5-minute online window, a
// 50-entry visible history, high-accuracy watches with a 10s acquisition
// timeout and tolerance for 30s-old cached fixes.
type TrackingConfig struct {
	FreshnessWindow time.Duration `yaml:"freshness_window"`
	HistoryLimit    int           `yaml:"history_limit"`
	WatchTimeout    time.Duration `yaml:"watch_timeout"`
	WatchMaximumAge time.Duration `yaml:"watch_maximum_age"`
}

// UnmarshalYAML accepts durations in Go notation ("5m", "30s").
func (t *TrackingConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		FreshnessWindow string `yaml:"freshness_window"`
		HistoryLimit    int    `yaml:"history_limit"`
		WatchTimeout    string `yaml:"watch_timeout"`
		WatchMaximumAge string `yaml:"watch_maximum_age"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	t.HistoryLimit = raw.HistoryLimit

	for _, f := range []struct {
		raw  string
		dst  *time.Duration
		name string
	}{
		{raw.FreshnessWindow, &t.FreshnessWindow, "freshness_window"},
		{raw.WatchTimeout, &t.WatchTimeout, "watch_timeout"},
		{raw.WatchMaximumAge, &t.WatchMaximumAge, "watch_maximum_age"},
	} {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("tracking.%s: %w", f.name, err)
		}
		*f.dst = d
	}
	return nil
}

func (c *AppConfig) IsDev() bool {
	return c.Env != "production"
}
