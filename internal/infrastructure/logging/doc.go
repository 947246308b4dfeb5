// Package logging provides structured logging for the alarm service.
//
// It wraps log/slog so every component logs the same way: JSON in
// production, text for development, with service and version attached to
// every entry.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("dispatch complete", "class", 5, "scheduled", 3)
//
// Never log secrets such as the MQTT password or the InfluxDB token.
package logging
