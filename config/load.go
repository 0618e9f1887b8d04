package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"live-ticker-go/infrastructure/logger"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env              string                 `yaml:"env"`
	Pair             string                 `yaml:"pair"`             // canonical pair, e.g. ETH-USD
	Listen           string                 `yaml:"listen"`           // streaming endpoint address
	MetricsAddr      string                 `yaml:"metricsAddr"`      // prometheus address, empty disables
	IngestBuffer     int                    `yaml:"ingestBuffer"`     // ingest queue capacity
	SubscriberBuffer int                    `yaml:"subscriberBuffer"` // per-subscriber snapshot buffer
	Log              logger.Config          `yaml:"log"`
	Venues           map[string]VenueConfig `yaml:"venues"`
}

// VenueConfig holds one venue's connection settings.
// Instrument is venue-specific; empty means "derive from pair".
// Each venue has its own symbol format and the derivation lives in the adapter.
type VenueConfig struct {
	Enabled    bool   `yaml:"enabled"`
	URL        string `yaml:"url"`
	Instrument string `yaml:"instrument"`
}

// Defaults applied when the YAML omits a field.
const (
	DefaultListen           = ":7777"
	DefaultIngestBuffer     = 32
	DefaultSubscriberBuffer = 16
)

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides fields from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("LT_PAIR"); v != "" {
		cfg.Pair = v
	}
	if v := os.Getenv("LT_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("LT_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	return cfg, Validate(cfg)
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.IngestBuffer == 0 {
		cfg.IngestBuffer = DefaultIngestBuffer
	}
	if cfg.SubscriberBuffer == 0 {
		cfg.SubscriberBuffer = DefaultSubscriberBuffer
	}
	if cfg.Log.Level == "" {
		cfg.Log = logger.DefaultConfig()
	}
}

// Validate ensures required fields are present.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.Pair == "" {
		return errors.New("pair is required")
	}
	if !strings.Contains(cfg.Pair, "-") {
		return fmt.Errorf("pair %s must be BASE-QUOTE (e.g. ETH-USD)", cfg.Pair)
	}
	if cfg.IngestBuffer < 0 {
		return errors.New("ingestBuffer must be >= 0")
	}
	if cfg.SubscriberBuffer <= 0 {
		return errors.New("subscriberBuffer must be > 0")
	}
	if len(cfg.Venues) == 0 {
		return errors.New("venues config is required")
	}
	enabled := 0
	for name, vc := range cfg.Venues {
		if !vc.Enabled {
			continue
		}
		enabled++
		if vc.URL == "" {
			return fmt.Errorf("venue %s url is required", name)
		}
		if !strings.HasPrefix(vc.URL, "wss://") && !strings.HasPrefix(vc.URL, "ws://") {
			return fmt.Errorf("venue %s url must be a ws/wss endpoint", name)
		}
	}
	if enabled == 0 {
		return errors.New("at least one venue must be enabled")
	}
	return nil
}
