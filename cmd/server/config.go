// Package main provides the ScriptFlow log server CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Alerting   AlertingConfig   `yaml:"alerting"`
	Email      EmailConfig      `yaml:"email"`
	Verbose    bool             `yaml:"-"` // set via CLI flag
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address        string `yaml:"address"`         // HTTP listen address (default: :8080)
	MetricsAddress string `yaml:"metrics_address"` // Prometheus listen address (default: :9090)
	RateLimitPerIP int    `yaml:"rate_limit_per_ip"`
	QueryTimeoutMS int    `yaml:"query_timeout_ms"`
	MaxQueryLength int    `yaml:"max_query_length"`
}

// DatabaseConfig contains SQLite settings for alert metadata.
type DatabaseConfig struct {
	Path string `yaml:"path"` // SQLite file path (default: data/scriptflow.db)
}

// ClickHouseConfig contains ClickHouse settings for log storage. When
// disabled, logs are held in memory (development mode).
type ClickHouseConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Addresses     []string `yaml:"addresses"`
	Database      string   `yaml:"database"`
	Username      string   `yaml:"username"`
	Password      string   `yaml:"password"`
	RetentionDays int      `yaml:"retention_days"`
}

// AlertingConfig contains alert evaluator settings.
type AlertingConfig struct {
	Schedule           string `yaml:"schedule"`  // cron expression (default: every minute)
	SeedFile           string `yaml:"seed_file"` // optional YAML file with predefined alerts
	WatchSeed          bool   `yaml:"watch_seed"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"` // notification rate limit, 0 disables
}

// EmailConfig contains SMTP settings for alert emails. Email delivery
// is disabled when host is empty.
type EmailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.MetricsAddress == "" {
		c.Server.MetricsAddress = ":9090"
	}
	if c.Server.RateLimitPerIP == 0 {
		c.Server.RateLimitPerIP = 120
	}
	if c.Server.QueryTimeoutMS == 0 {
		c.Server.QueryTimeoutMS = 10000
	}
	if c.Server.MaxQueryLength == 0 {
		c.Server.MaxQueryLength = 1000
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/scriptflow.db"
	}
	if c.ClickHouse.Database == "" {
		c.ClickHouse.Database = "scriptflow"
	}
	if c.ClickHouse.RetentionDays == 0 {
		c.ClickHouse.RetentionDays = 90
	}
	if c.Alerting.Schedule == "" {
		c.Alerting.Schedule = "* * * * *"
	}
	if c.Alerting.RateLimitPerMinute == 0 {
		c.Alerting.RateLimitPerMinute = 10
	}
	if c.Email.Port == 0 {
		c.Email.Port = 587
	}
}

// QueryTimeout returns the query timeout as a duration.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.Server.QueryTimeoutMS) * time.Millisecond
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.ClickHouse.Enabled && len(c.ClickHouse.Addresses) == 0 {
		return fmt.Errorf("clickhouse.addresses is required when clickhouse is enabled")
	}
	if c.Email.Host != "" && c.Email.From == "" {
		return fmt.Errorf("email.from is required when email is configured")
	}
	return nil
}
