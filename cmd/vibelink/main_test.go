package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("VIBELINK_CONFIG")
	defer os.Setenv("VIBELINK_CONFIG", originalEnv)

	os.Setenv("VIBELINK_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("VIBELINK_CONFIG")
	defer os.Setenv("VIBELINK_CONFIG", originalEnv)

	os.Unsetenv("VIBELINK_CONFIG")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("VIBELINK_CONFIG")
	defer os.Setenv("VIBELINK_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("VIBELINK_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestRun_LoopbackStartupAndShutdown tests full startup with the
// loopback radio. No broker, no hardware: this path must always work.
func TestRun_LoopbackStartupAndShutdown(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	configContent := `
site:
  id: test-site

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

mqtt:
  broker:
    host: "127.0.0.1"
    port: 1
    client_id: "test-loopback-startup"
    tls: false
  qos: 1
  reconnect:
    initial_delay: 1
    max_delay: 5

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stdout

radio:
  mode: loopback

patterns:
  dir: ""
  watch: false

api:
  host: "127.0.0.1"
  port: 38591
  timeouts:
    read: 30
    write: 60
    idle: 120
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("VIBELINK_CONFIG")
	defer os.Setenv("VIBELINK_CONFIG", originalEnv)
	os.Setenv("VIBELINK_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Cancel shortly after startup; run should return nil on a clean
	// shutdown.
	go func() {
		time.Sleep(2 * time.Second)
		cancel()
	}()

	if err := run(ctx); err != nil {
		t.Errorf("run() in loopback mode error = %v", err)
	}
}

// TestRun_UnknownRadioMode verifies startup fails fast on a bad mode.
func TestRun_UnknownRadioMode(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	configContent := `
database:
  path: "` + dbPath + `"

mqtt:
  broker:
    host: "127.0.0.1"
    port: 1
    client_id: "test-bad-mode"

logging:
  level: error
  format: text
  output: stdout

radio:
  mode: carrier-pigeon
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("VIBELINK_CONFIG")
	defer os.Setenv("VIBELINK_CONFIG", originalEnv)
	os.Setenv("VIBELINK_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with unknown radio mode")
	}
}
