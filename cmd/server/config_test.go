package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Address != ":8080" {
		t.Errorf("address = %q, want :8080", cfg.Server.Address)
	}
	if cfg.Server.MetricsAddress != ":9090" {
		t.Errorf("metrics address = %q, want :9090", cfg.Server.MetricsAddress)
	}
	if cfg.Database.Path != "data/scriptflow.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if cfg.Alerting.Schedule != "* * * * *" {
		t.Errorf("schedule = %q", cfg.Alerting.Schedule)
	}
	if cfg.QueryTimeout() != 10*time.Second {
		t.Errorf("query timeout = %v, want 10s", cfg.QueryTimeout())
	}
	if cfg.ClickHouse.Enabled {
		t.Error("clickhouse enabled by default")
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  address: ":9000"
  rate_limit_per_ip: 60
database:
  path: /tmp/test.db
clickhouse:
  enabled: true
  addresses: ["ch1:9000", "ch2:9000"]
  retention_days: 30
alerting:
  schedule: "*/5 * * * *"
  seed_file: alerts.yaml
email:
  host: smtp.example.com
  port: 465
  from: alerts@example.com
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Address != ":9000" {
		t.Errorf("address = %q, want :9000", cfg.Server.Address)
	}
	if cfg.Server.RateLimitPerIP != 60 {
		t.Errorf("rate limit = %d, want 60", cfg.Server.RateLimitPerIP)
	}
	if len(cfg.ClickHouse.Addresses) != 2 {
		t.Errorf("clickhouse addresses = %d, want 2", len(cfg.ClickHouse.Addresses))
	}
	if cfg.ClickHouse.RetentionDays != 30 {
		t.Errorf("retention = %d, want 30", cfg.ClickHouse.RetentionDays)
	}
	if cfg.Alerting.Schedule != "*/5 * * * *" {
		t.Errorf("schedule = %q", cfg.Alerting.Schedule)
	}
	if cfg.Email.Port != 465 {
		t.Errorf("email port = %d, want 465", cfg.Email.Port)
	}
	// defaults still applied for omitted fields
	if cfg.Server.MetricsAddress != ":9090" {
		t.Errorf("metrics address = %q, want default :9090", cfg.Server.MetricsAddress)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			"clickhouse without addresses",
			"clickhouse:\n  enabled: true\n",
		},
		{
			"email without from",
			"email:\n  host: smtp.example.com\n",
		},
		{
			"invalid yaml",
			"server: [",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := LoadConfig(path); err == nil {
				t.Error("LoadConfig() expected error, got nil")
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yaml"); err == nil {
		t.Error("LoadConfig() expected error for missing file")
	}
}
