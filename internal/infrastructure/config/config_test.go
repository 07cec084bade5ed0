package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
site:
  id: "test-site"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "0.0.0.0"
  port: 4545
radio:
  mode: "loopback"
  tick_ms: 100
  poll_interval_ms: 10
  start_timeout_ms: 500
  stop_pulse_ms: 50
patterns:
  dir: "/tmp/patterns"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}

	if cfg.Radio.Mode != "loopback" {
		t.Errorf("Radio.Mode = %q, want %q", cfg.Radio.Mode, "loopback")
	}

	if got := cfg.Radio.GetTick(); got != 100*time.Millisecond {
		t.Errorf("Radio.GetTick() = %v, want %v", got, 100*time.Millisecond)
	}

	if got := cfg.Radio.GetPollInterval(); got != 10*time.Millisecond {
		t.Errorf("Radio.GetPollInterval() = %v, want %v", got, 10*time.Millisecond)
	}

	if cfg.Patterns.Dir != "/tmp/patterns" {
		t.Errorf("Patterns.Dir = %q, want %q", cfg.Patterns.Dir, "/tmp/patterns")
	}
}

func TestLoad_Defaults(t *testing.T) {
	// Minimal file: everything else should come from defaults.
	cfg, err := Load(writeConfig(t, `site: {id: "s"}`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Port != 4545 {
		t.Errorf("API.Port = %d, want 4545", cfg.API.Port)
	}
	if cfg.Radio.Mode != "bridge" {
		t.Errorf("Radio.Mode = %q, want %q", cfg.Radio.Mode, "bridge")
	}
	if cfg.Radio.TickMS != 100 {
		t.Errorf("Radio.TickMS = %d, want 100", cfg.Radio.TickMS)
	}
	if cfg.Radio.StopPulseMS != 50 {
		t.Errorf("Radio.StopPulseMS = %d, want 50", cfg.Radio.StopPulseMS)
	}
	if cfg.MQTT.Broker.ClientID != "vibelink-core" {
		t.Errorf("MQTT.Broker.ClientID = %q, want %q", cfg.MQTT.Broker.ClientID, "vibelink-core")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty site id", `site: {id: ""}`},
		{"bad radio mode", `radio: {mode: "serial"}`},
		{"zero tick", `radio: {tick_ms: 0, mode: "bridge", poll_interval_ms: 15, start_timeout_ms: 2000}`},
		{"negative stop pulse", `radio: {stop_pulse_ms: -1, mode: "bridge", tick_ms: 100, poll_interval_ms: 15, start_timeout_ms: 2000}`},
		{"bad qos", `mqtt: {qos: 3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Errorf("Load() expected validation error for %s, got nil", tt.name)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("VIBELINK_DATABASE_PATH", "/tmp/env.db")
	t.Setenv("VIBELINK_RADIO_MODE", "loopback")
	t.Setenv("VIBELINK_API_PORT", "8181")
	t.Setenv("VIBELINK_PATTERN_DIR", "/srv/patterns")

	cfg, err := Load(writeConfig(t, `site: {id: "s"}`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/env.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if cfg.Radio.Mode != "loopback" {
		t.Errorf("Radio.Mode = %q, want env override", cfg.Radio.Mode)
	}
	if cfg.API.Port != 8181 {
		t.Errorf("API.Port = %d, want 8181", cfg.API.Port)
	}
	if cfg.Patterns.Dir != "/srv/patterns" {
		t.Errorf("Patterns.Dir = %q, want env override", cfg.Patterns.Dir)
	}
}
