package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"pollpulse/internal/trend"
)

// Config represents the complete application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server" envconfig:"SERVER"`
	Security     SecurityConfig     `yaml:"security" envconfig:"SECURITY"`
	Logging      LoggingConfig      `yaml:"logging" envconfig:"LOGGING"`
	Paths        PathsConfig        `yaml:"paths" envconfig:"PATHS"`
	WebSocket    WebSocketConfig    `yaml:"websocket" envconfig:"WEBSOCKET"`
	Polls        PollsConfig        `yaml:"polls" envconfig:"POLLS"`
	Revision     RevisionConfig     `yaml:"revision" envconfig:"REVISION"`
	CuratedSheet CuratedSheetConfig `yaml:"curated_sheet" envconfig:"CURATED_SHEET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	ExecutableDir string `yaml:"executable_dir" envconfig:"EXECUTABLE_DIR"`
	DataDir       string `yaml:"data_dir" envconfig:"DATA_DIR"`
	ReportsDir    string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
	LogsDir       string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// PollsConfig controls the poll dataset and the pipeline defaults.
type PollsConfig struct {
	// DataFile is the poll file the loader reads, resolved against the data
	// directory when relative. CSV and XLSX are supported.
	DataFile string `yaml:"data_file" envconfig:"DATA_FILE"`
	// CuratedList is the deployment-defined set of pollster names used by
	// the curated bulk action. Entries that match no known pollster are
	// ignored at application time.
	CuratedList []string `yaml:"curated_list" envconfig:"CURATED_LIST"`
	// DefaultMode seeds new sessions: "all" or "curated".
	DefaultMode string `yaml:"default_mode" envconfig:"DEFAULT_MODE"`
	// DefaultSpan is the smoothing span used when a request does not name
	// one. Must lie inside the supported span window.
	DefaultSpan int `yaml:"default_span" envconfig:"DEFAULT_SPAN"`
	// IncludeRawAverage controls whether composed sets carry the unsmoothed
	// daily average alongside the trend line by default.
	IncludeRawAverage bool `yaml:"include_raw_average" envconfig:"INCLUDE_RAW_AVERAGE"`
	// SessionTTL is how long an idle dashboard session keeps its selection.
	SessionTTL time.Duration `yaml:"session_ttl" envconfig:"SESSION_TTL"`
}

// RevisionConfig points the "data last updated" lookup at the repository
// hosting the poll file.
type RevisionConfig struct {
	Enabled    bool          `yaml:"enabled" envconfig:"ENABLED"`
	Owner      string        `yaml:"owner" envconfig:"OWNER"`
	Repo       string        `yaml:"repo" envconfig:"REPO"`
	FilePath   string        `yaml:"file_path" envconfig:"FILE_PATH"`
	APIBaseURL string        `yaml:"api_base_url" envconfig:"API_BASE_URL"`
	CacheTTL   time.Duration `yaml:"cache_ttl" envconfig:"CACHE_TTL"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
}

// CuratedSheetConfig optionally sources the curated pollster list from a
// public Google Sheet. Empty SpreadsheetID disables the fetch and the
// configured CuratedList is used as-is.
type CuratedSheetConfig struct {
	SpreadsheetID string `yaml:"spreadsheet_id" envconfig:"SPREADSHEET_ID"`
	Range         string `yaml:"range" envconfig:"RANGE"`
	APIKey        string `yaml:"api_key" envconfig:"API_KEY"`
}

// Load builds the effective configuration: defaults first, then the YAML
// config file if one exists, then POLLPULSE_* environment variables on top.
func Load() (*Config, error) {
	cfg := Default()

	configFile := getConfigFilePath()
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	}

	if err := envconfig.Process("POLLPULSE", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks the configuration for values the application cannot run
// with.
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		c.Logging.Format = "json"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	if c.Polls.DataFile == "" {
		return fmt.Errorf("polls data file must be configured")
	}

	c.Polls.DefaultMode = strings.ToLower(strings.TrimSpace(c.Polls.DefaultMode))
	switch c.Polls.DefaultMode {
	case "all", "curated":
	case "":
		c.Polls.DefaultMode = "all"
	default:
		return fmt.Errorf("polls default_mode must be %q or %q, got %q", "all", "curated", c.Polls.DefaultMode)
	}

	if err := trend.ValidateSpan(c.Polls.DefaultSpan); err != nil {
		return fmt.Errorf("polls default_span: %w", err)
	}

	if c.Revision.Enabled {
		if c.Revision.Owner == "" || c.Revision.Repo == "" || c.Revision.FilePath == "" {
			return fmt.Errorf("revision lookup enabled but owner/repo/file_path incomplete")
		}
		if c.Revision.APIBaseURL == "" {
			c.Revision.APIBaseURL = GitHubAPIBaseURL
		}
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			Output:      "both",
			FilePath:    "logs/app.log",
			Development: true,
		},
		Paths: PathsConfig{
			DataDir:    "data",
			ReportsDir: "data/reports",
			LogsDir:    "logs",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
		Polls: PollsConfig{
			DataFile:          "polls.csv",
			DefaultMode:       "all",
			DefaultSpan:       7,
			IncludeRawAverage: true,
			SessionTTL:        4 * time.Hour,
		},
		Revision: RevisionConfig{
			Enabled:    false,
			APIBaseURL: GitHubAPIBaseURL,
			CacheTTL:   15 * time.Minute,
			Timeout:    10 * time.Second,
		},
		CuratedSheet: CuratedSheetConfig{
			Range: "Curated!A2:A",
		},
	}
}
