package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PlatformConfig represents one external chat-AI platform endpoint
type PlatformConfig struct {
	ID       string        `yaml:"id" json:"id"`
	Name     string        `yaml:"name" json:"name"`
	Endpoint string        `yaml:"endpoint" json:"endpoint"`
	APIKey   string        `yaml:"api_key" json:"api_key,omitempty"`
	Model    string        `yaml:"model" json:"model,omitempty"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
	Enabled  bool          `yaml:"enabled" json:"enabled"`
}

// Config represents the main configuration for the praxis system
type Config struct {
	Server    ServerConfig     `yaml:"server" json:"server"`
	Database  DatabaseConfig   `yaml:"database" json:"database"`
	Queue     QueueConfig      `yaml:"queue" json:"queue"`
	Training  TrainingConfig   `yaml:"training" json:"training"`
	SelfTrain SelfTrainConfig  `yaml:"self_train" json:"self_train"`
	Events    EventsConfig     `yaml:"events" json:"events"`
	Platforms []PlatformConfig `yaml:"platforms" json:"platforms"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	HTTPPort     int           `yaml:"http_port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// DatabaseConfig configures the conversation store backend
type DatabaseConfig struct {
	Type string `yaml:"type"` // "sqlite", "postgres"
	Path string `yaml:"path"` // For SQLite
	DSN  string `yaml:"dsn"`  // For Postgres
}

// QueueConfig configures the task queue worker loops
type QueueConfig struct {
	IdleWait        time.Duration `yaml:"idle_wait"`        // Bounded queue wait before continuation check
	FailureBackoff  time.Duration `yaml:"failure_backoff"`  // Sleep after a task handler failure
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // Join timeout for Stop()
}

// TrainingConfig configures session orchestration
type TrainingConfig struct {
	MaxRecentSessions int `yaml:"max_recent_sessions"` // Completed sessions kept in memory
	MaxInsights       int `yaml:"max_insights"`        // Insights included in a summary
}

// SelfTrainConfig configures the capability/goal loop
type SelfTrainConfig struct {
	Enabled         bool          `yaml:"enabled"`
	GapThreshold    float64       `yaml:"gap_threshold"`
	PollInterval    time.Duration `yaml:"poll_interval"`    // Session monitor poll interval
	SessionTimeout  time.Duration `yaml:"session_timeout"`  // Monitor ceiling before timeout
	RequireApproval bool          `yaml:"require_approval"` // Gate goal promotion on human feedback
}

// EventsConfig configures optional NATS status-event publishing
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`     // NATS server URL (e.g. "nats://localhost:4222")
	Subject string `yaml:"subject"` // Subject prefix for published events
}

// LoadConfigFromFile loads configuration from a YAML file at the specified path.
// Environment variables (e.g. ${OPENAI_API_KEY}) are expanded before parsing.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	config := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:     8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			Path: "./praxis.db",
		},
		Queue: QueueConfig{
			IdleWait:        5 * time.Second,
			FailureBackoff:  time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Training: TrainingConfig{
			MaxRecentSessions: 50,
			MaxInsights:       3,
		},
		SelfTrain: SelfTrainConfig{
			Enabled:         true,
			GapThreshold:    0.7,
			PollInterval:    30 * time.Second,
			SessionTimeout:  10 * time.Minute,
			RequireApproval: false,
		},
		Events: EventsConfig{
			Enabled: false,
			URL:     "nats://localhost:4222",
			Subject: "praxis.status",
		},
	}
}

// Validate checks the configuration for inconsistencies
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.Server.HTTPPort)
	}

	switch c.Database.Type {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	if c.SelfTrain.GapThreshold <= 0 || c.SelfTrain.GapThreshold > 1 {
		return fmt.Errorf("gap_threshold must be in (0,1], got %v", c.SelfTrain.GapThreshold)
	}

	seen := make(map[string]bool, len(c.Platforms))
	for _, p := range c.Platforms {
		if p.ID == "" {
			return fmt.Errorf("platform id cannot be empty")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate platform id: %s", p.ID)
		}
		seen[p.ID] = true
		if p.Enabled && p.Endpoint == "" {
			return fmt.Errorf("platform %s is enabled but has no endpoint", p.ID)
		}
	}

	return nil
}

// EnabledPlatforms returns the IDs of all enabled platforms
func (c *Config) EnabledPlatforms() []string {
	ids := make([]string, 0, len(c.Platforms))
	for _, p := range c.Platforms {
		if p.Enabled {
			ids = append(ids, p.ID)
		}
	}
	return ids
}
