package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "praxis.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Server.HTTPPort != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.HTTPPort)
	}
	if cfg.SelfTrain.GapThreshold != 0.7 {
		t.Errorf("expected gap threshold 0.7, got %v", cfg.SelfTrain.GapThreshold)
	}
	if cfg.Queue.IdleWait != 5*time.Second {
		t.Errorf("expected 5s idle wait, got %v", cfg.Queue.IdleWait)
	}
	if cfg.SelfTrain.RequireApproval {
		t.Error("approval gating should default off")
	}
	if cfg.Training.MaxRecentSessions != 50 {
		t.Errorf("expected 50 recent sessions, got %d", cfg.Training.MaxRecentSessions)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  http_port: 9090
self_train:
  enabled: false
  gap_threshold: 0.6
  require_approval: true
platforms:
  - id: gpt
    name: GPT
    endpoint: http://localhost:11434
    model: gpt-4
    enabled: true
  - id: claude
    name: Claude
    endpoint: http://localhost:11435
    enabled: false
`)

	cfg, err := LoadConfigFromFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFromFile failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config should validate: %v", err)
	}

	if cfg.Server.HTTPPort != 9090 {
		t.Errorf("expected overridden port 9090, got %d", cfg.Server.HTTPPort)
	}
	// unset fields keep defaults
	if cfg.Database.Type != "sqlite" {
		t.Errorf("expected default sqlite database, got %s", cfg.Database.Type)
	}
	if cfg.SelfTrain.Enabled {
		t.Error("self_train should be disabled by the file")
	}
	if cfg.SelfTrain.GapThreshold != 0.6 {
		t.Errorf("expected threshold 0.6, got %v", cfg.SelfTrain.GapThreshold)
	}
	if !cfg.SelfTrain.RequireApproval {
		t.Error("require_approval should be set by the file")
	}

	enabled := cfg.EnabledPlatforms()
	if len(enabled) != 1 || enabled[0] != "gpt" {
		t.Errorf("expected only gpt enabled, got %v", enabled)
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("PRAXIS_TEST_KEY", "sk-secret")
	path := writeConfig(t, `
platforms:
  - id: gpt
    name: GPT
    endpoint: http://localhost:11434
    api_key: ${PRAXIS_TEST_KEY}
    enabled: true
`)

	cfg, err := LoadConfigFromFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFromFile failed: %v", err)
	}
	if cfg.Platforms[0].APIKey != "sk-secret" {
		t.Errorf("env var not expanded, got %q", cfg.Platforms[0].APIKey)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfigFromFile("/does/not/exist.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.HTTPPort = 0 }},
		{"bad database type", func(c *Config) { c.Database.Type = "mongodb" }},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }},
		{"postgres without dsn", func(c *Config) { c.Database.Type = "postgres"; c.Database.DSN = "" }},
		{"bad gap threshold", func(c *Config) { c.SelfTrain.GapThreshold = 1.5 }},
		{"empty platform id", func(c *Config) {
			c.Platforms = []PlatformConfig{{Enabled: false}}
		}},
		{"duplicate platform id", func(c *Config) {
			c.Platforms = []PlatformConfig{
				{ID: "gpt", Endpoint: "http://x", Enabled: true},
				{ID: "gpt", Endpoint: "http://y", Enabled: true},
			}
		}},
		{"enabled platform without endpoint", func(c *Config) {
			c.Platforms = []PlatformConfig{{ID: "gpt", Enabled: true}}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error for %s", tc.name)
			}
		})
	}
}
