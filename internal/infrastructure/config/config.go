package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for VibeLink Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Radio     RadioConfig     `yaml:"radio"`
	Patterns  PatternsConfig  `yaml:"patterns"`
}

// SiteConfig contains deployment-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB telemetry export settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// RadioConfig contains settings for the advertising scheduler and the
// underlying radio primitive.
type RadioConfig struct {
	// Mode selects the advertiser implementation: "bridge" routes
	// broadcasts to an external BLE bridge over MQTT; "loopback" keeps
	// them in-process (development and testing).
	Mode string `yaml:"mode"`

	// TickMS is the transmission window for one continuous-mode pulse.
	TickMS int `yaml:"tick_ms"`

	// PollIntervalMS bounds preemption latency: in-flight holds check
	// for a newer session at this interval.
	PollIntervalMS int `yaml:"poll_interval_ms"`

	// StartTimeoutMS is how long to wait for the radio to confirm a
	// broadcast has started before reporting it unavailable.
	StartTimeoutMS int `yaml:"start_timeout_ms"`

	// StopPulseMS is the duration of the level-0 pulse issued when a
	// session stops.
	StopPulseMS int `yaml:"stop_pulse_ms"`
}

// PatternsConfig contains pattern file import settings.
type PatternsConfig struct {
	// Dir is the directory scanned for .vibepattern files.
	// Empty disables file import; stored patterns remain available.
	Dir string `yaml:"dir"`

	// Watch enables re-import when files in Dir change.
	Watch bool `yaml:"watch"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: VIBELINK_SECTION_KEY
// For example: VIBELINK_DATABASE_PATH, VIBELINK_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "site-001",
			Name: "VibeLink",
		},
		Database: DatabaseConfig{
			Path:        "./data/vibelink.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "vibelink-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 4545,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Radio: RadioConfig{
			Mode:           "bridge",
			TickMS:         100,
			PollIntervalMS: 15,
			StartTimeoutMS: 2000,
			StopPulseMS:    50,
		},
		Patterns: PatternsConfig{
			Dir:   "./pattern",
			Watch: true,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: VIBELINK_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("VIBELINK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("VIBELINK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("VIBELINK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("VIBELINK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("VIBELINK_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("VIBELINK_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("VIBELINK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Radio
	if v := os.Getenv("VIBELINK_RADIO_MODE"); v != "" {
		cfg.Radio.Mode = v
	}

	// Patterns
	if v := os.Getenv("VIBELINK_PATTERN_DIR"); v != "" {
		cfg.Patterns.Dir = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Site validation
	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Radio validation
	switch c.Radio.Mode {
	case "bridge", "loopback":
	default:
		errs = append(errs, `radio.mode must be "bridge" or "loopback"`)
	}
	if c.Radio.TickMS <= 0 {
		errs = append(errs, "radio.tick_ms must be positive")
	}
	if c.Radio.PollIntervalMS <= 0 {
		errs = append(errs, "radio.poll_interval_ms must be positive")
	}
	if c.Radio.StartTimeoutMS <= 0 {
		errs = append(errs, "radio.start_timeout_ms must be positive")
	}
	if c.Radio.StopPulseMS < 0 {
		errs = append(errs, "radio.stop_pulse_ms must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetTick returns the continuous-mode pulse window as a Duration.
func (c *RadioConfig) GetTick() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}

// GetPollInterval returns the cancellation poll interval as a Duration.
func (c *RadioConfig) GetPollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// GetStartTimeout returns the broadcast start-confirmation timeout as a Duration.
func (c *RadioConfig) GetStartTimeout() time.Duration {
	return time.Duration(c.StartTimeoutMS) * time.Millisecond
}

// GetStopPulse returns the stop pulse duration as a Duration.
func (c *RadioConfig) GetStopPulse() time.Duration {
	return time.Duration(c.StopPulseMS) * time.Millisecond
}
