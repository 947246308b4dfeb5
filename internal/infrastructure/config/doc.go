// Package config handles loading and validating the alarm service
// configuration.
//
// Values are resolved in three layers: hardcoded defaults, then the YAML
// file, then GRAYLOGIC_* environment variables. Validate reports every
// problem at once rather than stopping at the first.
//
// Sensitive values (MQTT password, InfluxDB token) should be supplied through
// the environment, and the config file kept at 0600.
//
// Usage:
//
//	cfg, err := config.Load("configs/alarms.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	loc, _ := cfg.Site.Location()
package config
