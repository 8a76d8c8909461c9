package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.App.Name != "Taskly" {
		t.Errorf("Expected default app name, got %q", cfg.App.Name)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Database.Path == "" {
		t.Error("Expected a default database path")
	}
	if cfg.Sync.Interval != 15*time.Minute {
		t.Errorf("Expected default sync interval 15m, got %s", cfg.Sync.Interval)
	}
	if cfg.Logger.Level != "info" || cfg.Logger.Format != "json" {
		t.Errorf("Unexpected logger defaults: %+v", cfg.Logger)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Expected metrics enabled by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_PATH", "/tmp/custom.db")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SYNC_AUTO", "true")
	t.Setenv("SYNC_INTERVAL", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Database.Path != "/tmp/custom.db" {
		t.Errorf("Expected overridden db path, got %q", cfg.Database.Path)
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("Expected debug level, got %q", cfg.Logger.Level)
	}
	if !cfg.Sync.Auto || cfg.Sync.Interval != 30*time.Second {
		t.Errorf("Expected auto sync every 30s, got %+v", cfg.Sync)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port out of range", "SERVER_PORT", "70000"},
		{"unknown log level", "LOG_LEVEL", "chatty"},
		{"sync interval too small", "SYNC_INTERVAL", "100ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(viper.Reset)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Expected Load to reject %s=%s", tt.key, tt.value)
			}
		})
	}
}
