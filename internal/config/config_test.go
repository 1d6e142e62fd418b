package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeTestConfig creates a config dir in a temp working directory and
// chdirs into it for the duration of the test.
func writeTestConfig(t *testing.T, yaml string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatalf("mkdir config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config", "dev.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	chdir(t, dir)
}

// chdir changes the working directory for the duration of the test,
// restoring the original directory on cleanup (t.Chdir needs Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(orig); err != nil {
			t.Fatalf("restore wd: %v", err)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	writeTestConfig(t, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.GeocodingURL != "https://geocoding-api.open-meteo.com/v1/search" {
		t.Errorf("GeocodingURL = %q, want Open-Meteo default", cfg.GeocodingURL)
	}
	if cfg.ArchiveURL != "https://archive-api.open-meteo.com/v1/archive" {
		t.Errorf("ArchiveURL = %q, want Open-Meteo default", cfg.ArchiveURL)
	}
	if cfg.UpstreamTimeout != 15*time.Second {
		t.Errorf("UpstreamTimeout = %v, want 15s", cfg.UpstreamTimeout)
	}
	if cfg.RequestTimeout != 20*time.Second {
		t.Errorf("RequestTimeout = %v, want 20s", cfg.RequestTimeout)
	}
	if cfg.MaxRangeDays != 370 {
		t.Errorf("MaxRangeDays = %d, want 370", cfg.MaxRangeDays)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Errorf("CORSAllowedOrigins = %v, want [*]", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_FileValues(t *testing.T) {
	writeTestConfig(t, `
server:
  port: "9090"
upstream:
  timeout: 5s
request:
  timeout: 12s
range:
  max_days: 90
reliability:
  rate_limit_rps: 10
  rate_limit_burst: 20
cors:
  allowed_origins:
    - https://dashboard.example.com
metrics:
  tracked_cities:
    - Berlin
    - Oslo
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want 9090", cfg.ServerPort)
	}
	if cfg.UpstreamTimeout != 5*time.Second || cfg.RequestTimeout != 12*time.Second {
		t.Errorf("timeouts = %v/%v, want 5s/12s", cfg.UpstreamTimeout, cfg.RequestTimeout)
	}
	if cfg.MaxRangeDays != 90 {
		t.Errorf("MaxRangeDays = %d, want 90", cfg.MaxRangeDays)
	}
	if cfg.RateLimitRPS != 10 || cfg.RateLimitBurst != 20 {
		t.Errorf("rate limit = %d/%d, want 10/20", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if len(cfg.TrackedCities) != 2 || cfg.TrackedCities[0] != "Berlin" {
		t.Errorf("TrackedCities = %v, want [Berlin Oslo]", cfg.TrackedCities)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	writeTestConfig(t, `
geocoding:
  url: https://file.example.com/geo
`)
	t.Setenv("GEOCODING_URL", "https://env.example.com/geo")
	t.Setenv("PORT", "3000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.GeocodingURL != "https://env.example.com/geo" {
		t.Errorf("GeocodingURL = %q, want env override", cfg.GeocodingURL)
	}
	if cfg.ServerPort != "3000" {
		t.Errorf("ServerPort = %q, want 3000", cfg.ServerPort)
	}
}

func TestLoad_RequestTimeoutAutoRaised(t *testing.T) {
	writeTestConfig(t, `
upstream:
  timeout: 15s
request:
  timeout: 10s
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.RequestTimeout <= cfg.UpstreamTimeout {
		t.Errorf("RequestTimeout = %v, want > UpstreamTimeout %v", cfg.RequestTimeout, cfg.UpstreamTimeout)
	}
}

func TestLoad_RejectsOversizedRangeCap(t *testing.T) {
	writeTestConfig(t, `
range:
  max_days: 1000
`)

	if _, err := Load(); err == nil {
		t.Error("Load() with max_days 1000: expected error, got nil")
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	chdir(t, t.TempDir())

	if _, err := Load(); err == nil {
		t.Error("Load() without config file: expected error, got nil")
	}
}
