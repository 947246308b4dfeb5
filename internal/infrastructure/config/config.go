package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the alarm service.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site         SiteConfig         `yaml:"site"`
	Database     DatabaseConfig     `yaml:"database"`
	MQTT         MQTTConfig         `yaml:"mqtt"`
	API          APIConfig          `yaml:"api"`
	InfluxDB     InfluxDBConfig     `yaml:"influxdb"`
	Logging      LoggingConfig      `yaml:"logging"`
	Notification NotificationConfig `yaml:"notification"`
	Discovery    DiscoveryConfig    `yaml:"discovery"`
	Audit        AuditConfig        `yaml:"audit"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// Timezone is the IANA zone recipient time windows and valid days are
	// evaluated in, e.g. "Europe/London".
	Timezone string `yaml:"timezone"`

	// DeviceInstance is this controller's own device instance. Classes
	// created without an explicit owner use it.
	DeviceInstance uint32 `yaml:"device_instance"`
}

// Location loads the site time zone.
func (s SiteConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading site timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
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

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains diagnostics HTTP server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// InfluxDBConfig contains InfluxDB connection settings for delivery history.
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

// NotificationConfig controls event notification dispatch.
type NotificationConfig struct {
	// DirectTransport is the transport kind used for recipients given as a
	// network address. Empty disables address recipients.
	DirectTransport string `yaml:"direct_transport"`

	// MaxInFlight bounds concurrent sends.
	MaxInFlight int `yaml:"max_in_flight"`

	// SendTimeout bounds one send, e.g. "5s".
	SendTimeout time.Duration `yaml:"send_timeout"`

	// Priority is stamped on every notification (0-255). Zero selects the
	// default of 127.
	Priority int `yaml:"priority"`

	// ShutdownTimeout bounds how long shutdown waits for in-flight sends.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// ClassesFile is an optional YAML file of notification classes applied
	// to the database at startup. Classes it names replace stored ones.
	ClassesFile string `yaml:"classes_file"`
}

// DiscoveryConfig controls the device announcement subscription.
type DiscoveryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// AuditConfig controls the SQLite delivery trail.
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`

	// Retention is how long trail entries are kept, e.g. "720h". Zero keeps
	// them forever.
	Retention time.Duration `yaml:"retention"`
}

// Supported direct transport kinds.
const (
	DirectTransportNone = ""
	DirectTransportMQTT = "mqtt"
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
// For example: GRAYLOGIC_DATABASE_PATH, GRAYLOGIC_SITE_TIMEZONE
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "Gray Logic",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/graylogic-alarms.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-alarms",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8081,
			Timeouts: APITimeoutConfig{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Notification: NotificationConfig{
			DirectTransport: DirectTransportMQTT,
			MaxInFlight:     64,
			SendTimeout:     5 * time.Second,
			Priority:        127,
			ShutdownTimeout: 10 * time.Second,
		},
		Discovery: DiscoveryConfig{
			Enabled: true,
		},
		Audit: AuditConfig{
			Enabled:   true,
			Retention: 30 * 24 * time.Hour,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Site
	if v := os.Getenv("GRAYLOGIC_SITE_TIMEZONE"); v != "" {
		cfg.Site.Timezone = v
	}
	if v := os.Getenv("GRAYLOGIC_SITE_DEVICE_INSTANCE"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.Site.DeviceInstance = uint32(n)
		}
	}

	// Database
	if v := os.Getenv("GRAYLOGIC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GRAYLOGIC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("GRAYLOGIC_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("GRAYLOGIC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("GRAYLOGIC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Notification
	if v, ok := os.LookupEnv("GRAYLOGIC_NOTIFICATION_DIRECT_TRANSPORT"); ok {
		cfg.Notification.DirectTransport = v
	}
	if v := os.Getenv("GRAYLOGIC_NOTIFICATION_CLASSES_FILE"); v != "" {
		cfg.Notification.ClassesFile = v
	}
}

// Validate checks the configuration for errors.
//
// All problems are collected and reported together.
func (c *Config) Validate() error {
	var errs []string

	// Site validation
	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}
	if _, err := c.Site.Location(); err != nil {
		errs = append(errs, "site.timezone is not a valid IANA time zone")
	}
	if c.Site.DeviceInstance > maxDeviceInstance {
		errs = append(errs, fmt.Sprintf("site.device_instance must be at most %d", maxDeviceInstance))
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
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	// Notification validation
	switch c.Notification.DirectTransport {
	case DirectTransportNone, DirectTransportMQTT:
	default:
		errs = append(errs, fmt.Sprintf("notification.direct_transport %q is not supported", c.Notification.DirectTransport))
	}
	if c.Notification.MaxInFlight < 1 {
		errs = append(errs, "notification.max_in_flight must be at least 1")
	}
	if c.Notification.SendTimeout <= 0 {
		errs = append(errs, "notification.send_timeout must be positive")
	}
	if c.Notification.Priority < 0 || c.Notification.Priority > 255 {
		errs = append(errs, "notification.priority must be between 0 and 255")
	}
	if c.Audit.Retention < 0 {
		errs = append(errs, "audit.retention must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// maxDeviceInstance is the largest encodable device instance (22 bits).
const maxDeviceInstance = 1<<22 - 1

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
