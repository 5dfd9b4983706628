// Package config handles configuration loading for ember.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	database:
//	  path: "${EMBER_DB_PATH}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	retention:
//	  window: "24h"
//	  sweep_interval: "30m"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"   # API and live delivery streams
//
// Database:
//
//	database:
//	  path: "/var/lib/ember/ember.db"
//
// Retention (omitted durations fall back to built-in defaults,
// 24h window and 30m sweep interval):
//
//	retention:
//	  window: "24h"
//	  sweep_interval: "30m"
//
// Identity service (optional; listings degrade to bare user IDs when unset):
//
//	identity:
//	  base_url: "http://identity.internal:9090"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
// Load configuration from a path:
//
//	cfg, err := config.Load("/etc/ember/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
