// VibeLink Core - vibration device control service
//
// This is the main entry point for the VibeLink Core application.
// VibeLink Core schedules commands for a Bluetooth-advertising vibration
// device:
//   - One control point: every new command supersedes the previous one
//   - One-shot sends, continuous mode, and looping pattern playback
//   - HTTP, WebSocket, and MQTT control surfaces
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/vibelink/vibelink-core/migrations"

	"github.com/vibelink/vibelink-core/internal/api"
	"github.com/vibelink/vibelink-core/internal/events"
	"github.com/vibelink/vibelink-core/internal/infrastructure/config"
	"github.com/vibelink/vibelink-core/internal/infrastructure/database"
	"github.com/vibelink/vibelink-core/internal/infrastructure/influxdb"
	"github.com/vibelink/vibelink-core/internal/infrastructure/logging"
	"github.com/vibelink/vibelink-core/internal/infrastructure/mqtt"
	"github.com/vibelink/vibelink-core/internal/pattern"
	"github.com/vibelink/vibelink-core/internal/radio"
	"github.com/vibelink/vibelink-core/internal/remote"
	"github.com/vibelink/vibelink-core/internal/scheduler"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // Linear wiring of every subsystem; splitting it obscures the shutdown order
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting VibeLink Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise pattern registry
	patternRepo := pattern.NewSQLiteRepository(db.DB)
	patternRegistry := pattern.NewRegistry(patternRepo)
	patternRegistry.SetLogger(log)

	if refreshErr := patternRegistry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading pattern registry: %w", refreshErr)
	}
	log.Info("pattern registry initialised", "patterns", patternRegistry.PatternCount())

	// Import pattern files
	if cfg.Patterns.Dir != "" {
		loader := pattern.NewLoader(cfg.Patterns.Dir, patternRegistry)
		loader.SetLogger(log)
		if loadErr := loader.LoadAll(ctx); loadErr != nil {
			return fmt.Errorf("importing pattern files: %w", loadErr)
		}
		log.Info("pattern files imported", "dir", cfg.Patterns.Dir)

		if cfg.Patterns.Watch {
			if watchErr := loader.Watch(ctx); watchErr != nil {
				// A missing or unreadable directory should not take the
				// service down; imports just stop being live.
				log.Warn("pattern directory not watched", "dir", cfg.Patterns.Dir, "error", watchErr)
			} else {
				defer func() {
					log.Info("stopping pattern watcher")
					if closeErr := loader.Close(); closeErr != nil {
						log.Error("error closing pattern watcher", "error", closeErr)
					}
				}()
				log.Info("pattern directory watched", "dir", cfg.Patterns.Dir)
			}
		}
	}

	// Connect to MQTT broker. Required in bridge mode: without the bus
	// there is no radio. In loopback mode the service stays useful
	// without it, so a failed connect only disables remote control.
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		if cfg.Radio.Mode == "bridge" {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		log.Warn("MQTT unavailable, remote control disabled", "error", err)
		mqttClient = nil
	} else {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Select the radio advertiser
	advertiser, err := buildAdvertiser(cfg, mqttClient, log)
	if err != nil {
		return fmt.Errorf("creating advertiser: %w", err)
	}
	defer func() {
		log.Info("closing radio advertiser")
		if closeErr := advertiser.Close(); closeErr != nil {
			log.Error("error closing advertiser", "error", closeErr)
		}
	}()

	// WebSocket hub is created up front so the event fanout and the API
	// server share it.
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	// Pattern library changes fan out to WebSocket subscribers, whether
	// they arrive through the API or the file loader.
	patternRegistry.SetNotifier(func(event string, p *pattern.Pattern) {
		hub.Broadcast(api.ChannelPatterns, map[string]any{
			"event": event,
			"id":    p.ID,
			"name":  p.Name,
			"slug":  p.Slug,
		})
	})

	// Event fanout: scheduler events to WebSocket, InfluxDB, and MQTT
	fanoutOpts := []events.Option{
		events.WithHub(hub),
		events.WithLogger(log),
	}
	if influxClient != nil {
		fanoutOpts = append(fanoutOpts, events.WithTSDB(influxClient))
	}
	if mqttClient != nil {
		fanoutOpts = append(fanoutOpts, events.WithBus(mqttClient))
	}
	fanout := events.NewFanout(fanoutOpts...)

	// Create the scheduler
	sched := scheduler.New(advertiser, scheduler.Config{
		Tick:         cfg.Radio.GetTick(),
		PollInterval: cfg.Radio.GetPollInterval(),
		StartTimeout: cfg.Radio.GetStartTimeout(),
		StopPulse:    cfg.Radio.GetStopPulse(),
	}, scheduler.WithLogger(log), scheduler.WithEvents(fanout))
	defer func() {
		log.Info("stopping scheduler")
		if closeErr := sched.Close(); closeErr != nil {
			log.Error("error closing scheduler", "error", closeErr)
		}
	}()
	log.Info("scheduler initialised", "radio_mode", cfg.Radio.Mode)

	// Start the API server
	apiServer, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		Scheduler:   sched,
		Patterns:    patternRegistry,
		DB:          db,
		MQTT:        mqttClient,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Start the MQTT control listener
	if mqttClient != nil {
		listener := remote.NewListener(mqttClient, sched, patternRegistry)
		listener.SetLogger(log)
		if startErr := listener.Start(); startErr != nil {
			return fmt.Errorf("starting MQTT control listener: %w", startErr)
		}
		defer func() {
			log.Info("stopping MQTT control listener")
			if closeErr := listener.Close(); closeErr != nil {
				log.Error("error closing MQTT control listener", "error", closeErr)
			}
		}()
		log.Info("MQTT control listener started")
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order: control listener,
	// API server, scheduler (which emits a final stop pulse through the
	// still-open radio), advertiser, InfluxDB, MQTT, pattern watcher,
	// database.

	log.Info("VibeLink Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses VIBELINK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("VIBELINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildAdvertiser selects the radio implementation from config.
//
// "bridge" relays broadcasts over MQTT to the host-side BLE bridge.
// "loopback" keeps them in-process for development without hardware.
func buildAdvertiser(cfg *config.Config, mqttClient *mqtt.Client, log *logging.Logger) (radio.Advertiser, error) {
	switch cfg.Radio.Mode {
	case "bridge":
		bridge, err := radio.NewBridge(mqttClient)
		if err != nil {
			return nil, fmt.Errorf("creating BLE bridge advertiser: %w", err)
		}
		log.Info("BLE bridge advertiser ready")
		return bridge, nil
	case "loopback":
		log.Info("loopback advertiser ready (no hardware)")
		return radio.NewLoopback(), nil
	default:
		return nil, fmt.Errorf("unknown radio mode %q", cfg.Radio.Mode)
	}
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
