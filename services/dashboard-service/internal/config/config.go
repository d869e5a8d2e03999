package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Upstream UpstreamConfig `yaml:"upstream"`
	Map      MapConfig      `yaml:"map"`
	Sessions SessionConfig  `yaml:"sessions"`
	Features Features       `yaml:"features"`
}

type UpstreamConfig struct {
	BaseURL     string        `yaml:"base_url" envconfig:"DISEASE_API_URL"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"DISEASE_API_TIMEOUT"`
	UserAgent   string        `yaml:"user_agent" envconfig:"DISEASE_API_USER_AGENT"`
	HistoryDays int           `yaml:"history_days" envconfig:"HISTORY_DAYS"`
}

type MapConfig struct {
	DefaultLat  float64 `yaml:"default_lat" envconfig:"MAP_DEFAULT_LAT"`
	DefaultLng  float64 `yaml:"default_lng" envconfig:"MAP_DEFAULT_LNG"`
	DefaultZoom int     `yaml:"default_zoom" envconfig:"MAP_DEFAULT_ZOOM"`
	CountryZoom int     `yaml:"country_zoom" envconfig:"MAP_COUNTRY_ZOOM"`
	TileURL     string  `yaml:"tile_url" envconfig:"MAP_TILE_URL"`
}

type SessionConfig struct {
	TTL        time.Duration `yaml:"ttl" envconfig:"SESSION_TTL"`
	CookieName string        `yaml:"cookie_name" envconfig:"SESSION_COOKIE"`
}

type Features struct {
	PersistSnapshots bool `yaml:"persist_snapshots" envconfig:"PERSIST_SNAPSHOTS"`
	PublishEvents    bool `yaml:"publish_events" envconfig:"PUBLISH_EVENTS"`
}

// LoadConfig reads the YAML file at path when present, applies env overrides,
// then fills anything still unset.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to open config: %w", err)
			}
		} else {
			defer file.Close()
			if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
				return nil, fmt.Errorf("failed to decode config: %w", err)
			}
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	setDefaults(cfg)

	if cfg.Upstream.HistoryDays < 2 {
		return nil, fmt.Errorf("history_days must be at least 2, got %d", cfg.Upstream.HistoryDays)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = "https://disease.sh"
	}
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = 10 * time.Second
	}
	if cfg.Upstream.UserAgent == "" {
		cfg.Upstream.UserAgent = "covid-tracker/1.0"
	}
	if cfg.Upstream.HistoryDays == 0 {
		cfg.Upstream.HistoryDays = 120
	}

	if cfg.Map.DefaultLat == 0 && cfg.Map.DefaultLng == 0 {
		cfg.Map.DefaultLat = 34.80764
		cfg.Map.DefaultLng = -40.4796
	}
	if cfg.Map.DefaultZoom == 0 {
		cfg.Map.DefaultZoom = 3
	}
	if cfg.Map.CountryZoom == 0 {
		cfg.Map.CountryZoom = 5
	}
	if cfg.Map.TileURL == "" {
		cfg.Map.TileURL = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	}

	if cfg.Sessions.TTL == 0 {
		cfg.Sessions.TTL = 30 * time.Minute
	}
	if cfg.Sessions.CookieName == "" {
		cfg.Sessions.CookieName = "covid_session"
	}
}
