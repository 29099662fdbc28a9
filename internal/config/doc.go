// Package config provides centralized configuration management for Poll
// Pulse. It handles loading configuration from multiple sources, validation,
// and a type-safe API for accessing configuration values throughout the
// application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file (config.yaml or configs/config.yaml)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern POLLPULSE_* for namespacing:
//
//	POLLPULSE_SERVER_PORT=8080
//	POLLPULSE_POLLS_DATA_FILE=polls.csv
//	POLLPULSE_POLLS_DEFAULT_MODE=curated
//	POLLPULSE_POLLS_DEFAULT_SPAN=7
//	POLLPULSE_LOGGING_LEVEL=info
//
// # Pipeline Settings
//
// The Polls section carries the deployment knobs of the trend pipeline: the
// poll file location, the curated pollster list, the default selection mode
// for new sessions (all or curated) and the default smoothing span. The span
// must lie inside the supported [2, 20] window; Load rejects anything else.
//
// # Path Management
//
// The Paths type handles all file system paths relative to the executable
// location:
//
//	paths, err := config.GetPaths()
//	dataFile := paths.ResolveDataFile(cfg.Polls.DataFile)
//	reportPath := paths.GetReportPath("trend.csv")
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
