package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

const validYAML = `
env: dev
pair: ETH-USD
log:
  level: debug
  format: console
  outputs: [stdout]
venues:
  binance:
    enabled: true
    url: wss://stream.binance.com:9443
  okx:
    enabled: true
    url: wss://ws.okx.com:8443/ws/v5/public
`

func TestLoad(t *testing.T) {
	path := writeTempConfig(t, validYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Env != "dev" || cfg.Pair != "ETH-USD" {
		t.Fatalf("unexpected cfg values: %+v", cfg)
	}
	if cfg.Listen != DefaultListen {
		t.Fatalf("listen default not applied: %q", cfg.Listen)
	}
	if cfg.IngestBuffer != DefaultIngestBuffer || cfg.SubscriberBuffer != DefaultSubscriberBuffer {
		t.Fatalf("buffer defaults not applied: %+v", cfg)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log config not parsed: %+v", cfg.Log)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeTempConfig(t, validYAML)
	t.Setenv("LT_PAIR", "BTC-USD")
	t.Setenv("LT_LISTEN", ":9999")
	cfg, err := LoadWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Pair != "BTC-USD" || cfg.Listen != ":9999" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(AppConfig{}); err == nil {
		t.Fatalf("expected error for empty config")
	}

	base := AppConfig{
		Env:              "dev",
		Pair:             "ETH-USD",
		SubscriberBuffer: 16,
		Venues: map[string]VenueConfig{
			"binance": {Enabled: true, URL: "wss://example.test"},
		},
	}
	if err := Validate(base); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	noDash := base
	noDash.Pair = "ETHUSD"
	if err := Validate(noDash); err == nil {
		t.Fatalf("expected error for pair without dash")
	}

	noVenue := base
	noVenue.Venues = map[string]VenueConfig{
		"binance": {Enabled: false, URL: "wss://example.test"},
	}
	if err := Validate(noVenue); err == nil {
		t.Fatalf("expected error when no venue enabled")
	}

	badURL := base
	badURL.Venues = map[string]VenueConfig{
		"binance": {Enabled: true, URL: "https://example.test"},
	}
	if err := Validate(badURL); err == nil {
		t.Fatalf("expected error for non-ws url")
	}
}
