// Gray Logic Alarms - event notification dispatch service.
//
// The service holds the site's notification classes, learns where devices
// live from discovery announcements and fans every reported state
// transition out to the recipients of its class over the MQTT bus.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/gray-logic-alarms/internal/api"
	"github.com/nerrad567/gray-logic-alarms/internal/audit"
	"github.com/nerrad567/gray-logic-alarms/internal/directory"
	"github.com/nerrad567/gray-logic-alarms/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-alarms/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-alarms/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-alarms/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-alarms/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-alarms/internal/notification"
	"github.com/nerrad567/gray-logic-alarms/internal/transport"
	"github.com/nerrad567/gray-logic-alarms/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Gray Logic Alarms",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)

	// Open database
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", db.Path())

	// Load notification classes
	registry := notification.NewRegistry(notification.NewSQLiteRepository(db.DB))
	registry.SetLogger(log.With("component", "registry"))
	if refreshErr := registry.Refresh(ctx); refreshErr != nil {
		return fmt.Errorf("loading notification classes: %w", refreshErr)
	}
	if cfg.Notification.ClassesFile != "" {
		n, provErr := provisionClasses(ctx, registry, cfg.Notification.ClassesFile, cfg.Site.DeviceInstance)
		if provErr != nil {
			return provErr
		}
		log.Info("notification classes provisioned", "path", cfg.Notification.ClassesFile, "count", n)
	}

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT, log.With("component", "mqtt"))
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
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
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled, delivery history not recorded")
	}

	// Directory and transports
	dir := directory.New()
	direct := directory.NewDirectEndpoints()
	bus := transport.NewMQTT("mqtt:"+cfg.MQTT.Broker.ClientID, mqttClient, byte(cfg.MQTT.QoS)) //nolint:gosec // qos validated 0-2
	if registerDirect(direct, bus, cfg.Notification.DirectTransport) {
		log.Info("direct transport registered", "kind", bus.Kind())
	}

	var observers notification.Observers
	if influxClient != nil {
		observers = append(observers, notification.NewHistoryRecorder(influxClient))
	}

	var trail audit.Repository
	if cfg.Audit.Enabled {
		repo := audit.NewSQLiteRepository(db.DB)
		trail = repo
		recorder := audit.NewRecorder(repo)
		recorder.SetLogger(log.With("component", "audit"))
		observers = append(observers, recorder)

		if cfg.Audit.Retention > 0 {
			go pruneLoop(ctx, repo, cfg.Audit.Retention, log)
		}
	}

	var observer notification.DeliveryObserver
	if len(observers) > 0 {
		observer = observers
	}

	opts, err := engineOptions(cfg, dir, direct, observer)
	if err != nil {
		return err
	}
	opts.Logger = log.With("component", "engine")
	engine, err := notification.NewEngine(opts)
	if err != nil {
		return fmt.Errorf("creating dispatch engine: %w", err)
	}

	mqttClient.SetStateSource(func() mqtt.ServiceState {
		return mqtt.ServiceState{
			Accepting: engine.Accepting(),
			InFlight:  engine.InFlight(),
			Devices:   dir.Len(),
			Classes:   len(registry.List()),
		}
	})

	// Inbound streams
	if cfg.Discovery.Enabled {
		announcements := directory.NewAnnouncementHandler(dir, bus)
		announcements.SetLogger(log.With("component", "discovery"))
		if attachErr := mqttClient.Attach(mqtt.RoleAnnouncements, announcements.Handle); attachErr != nil {
			return fmt.Errorf("subscribing to announcements: %w", attachErr)
		}
	}

	listener := notification.NewListener(registry, engine)
	listener.SetLogger(log.With("component", "listener"))
	if attachErr := mqttClient.Attach(mqtt.RoleTransitions, listener.Handle); attachErr != nil {
		return fmt.Errorf("subscribing to transitions: %w", attachErr)
	}

	// Diagnostics API
	var apiServer *api.Server
	if cfg.API.Enabled {
		checks := map[string]api.HealthChecker{
			"database": db,
			"mqtt":     mqttClient,
		}
		if influxClient != nil {
			checks["influxdb"] = influxClient
		}

		apiServer, err = api.New(api.Deps{
			Config:     cfg.API,
			Logger:     log.With("component", "api"),
			Directory:  dir,
			Classes:    registry,
			Deliveries: trail,
			Checks:     checks,
			Version:    version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
	}

	log.Info("initialisation complete",
		"notification_classes", len(registry.List()),
		"discovery", cfg.Discovery.Enabled,
	)

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	if apiServer != nil {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}

	// Stop accepting transitions before draining in-flight sends.
	if detachErr := mqttClient.Detach(mqtt.RoleTransitions); detachErr != nil {
		log.Warn("error unsubscribing from transitions", "error", detachErr)
	}
	if drainErr := mqttClient.MarkDraining(); drainErr != nil {
		log.Warn("error publishing draining status", "error", drainErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Notification.ShutdownTimeout)
	defer cancel()
	if shutdownErr := engine.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Warn("in-flight deliveries abandoned", "error", shutdownErr)
	}

	log.Info("Gray Logic Alarms stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// provisionClasses applies a provisioning file through the registry.
func provisionClasses(ctx context.Context, registry *notification.Registry, path string, defaultDevice uint32) (int, error) {
	classes, err := notification.LoadProvisioning(path, defaultDevice)
	if err != nil {
		return 0, fmt.Errorf("loading notification classes file: %w", err)
	}
	for _, c := range classes {
		if err := registry.Put(ctx, c); err != nil {
			return 0, fmt.Errorf("provisioning notification class %d: %w", c.Instance, err)
		}
	}
	return len(classes), nil
}

// pruneInterval is how often the delivery trail retention is enforced.
const pruneInterval = time.Hour

// pruneLoop drops trail entries older than retention, once at startup and
// then every pruneInterval until ctx is cancelled.
func pruneLoop(ctx context.Context, trail audit.Repository, retention time.Duration, log *logging.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		n, err := trail.Prune(ctx, time.Now().Add(-retention))
		switch {
		case err != nil && ctx.Err() == nil:
			log.Warn("pruning delivery trail failed", "error", err)
		case n > 0:
			log.Info("delivery trail pruned", "removed", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// registerDirect installs t as the direct transport when its kind is the
// configured one. An empty kind leaves address recipients unreachable.
func registerDirect(direct *directory.DirectEndpoints, t directory.Transport, kind string) bool {
	if kind == config.DirectTransportNone {
		return false
	}
	return direct.SetIfKind(t, kind)
}

// engineOptions maps configuration onto dispatch engine options.
func engineOptions(cfg *config.Config, dir *directory.Directory, direct *directory.DirectEndpoints, observer notification.DeliveryObserver) (notification.Options, error) {
	loc, err := cfg.Site.Location()
	if err != nil {
		return notification.Options{}, fmt.Errorf("loading site timezone: %w", err)
	}

	return notification.Options{
		Directory:   dir,
		Direct:      direct,
		Location:    loc,
		Priority:    uint8(cfg.Notification.Priority), //nolint:gosec // validated 0-255
		MaxInFlight: int64(cfg.Notification.MaxInFlight),
		SendTimeout: cfg.Notification.SendTimeout,
		Observer:    observer,
	}, nil
}
