package config

import "time"

// Application constants shared across the Poll Pulse binaries.
const (
	// Application Info
	AppName    = "Poll Pulse"
	AppVersion = "1.3.0"

	// Session handling
	SessionCookieName = "pp_session"
	SessionTimeout    = 4 * time.Hour

	// Rate Limiting
	DefaultRateLimit = 100 // requests per minute
	DefaultBurstSize = 50

	// Network Timeouts
	DefaultHTTPTimeout  = 30 * time.Second
	RevisionTimeout     = 10 * time.Second
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second

	// File Paths (relative to executable)
	DefaultDataDir    = "data"
	DefaultLogsDir    = "logs"
	DefaultReportsDir = "data/reports"

	// Cache Settings
	RevisionCacheDuration = 15 * time.Minute

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// URLs and Endpoints
const (
	// GitHub API, used by the revision lookup
	GitHubAPIBaseURL = "https://api.github.com"

	// API Endpoints (internal)
	APIBasePath       = "/api"
	TrendEndpoint     = "/api/trend"
	SelectionEndpoint = "/api/selection"
	PollstersEndpoint = "/api/pollsters"
	DatasetEndpoint   = "/api/dataset"
	MetaEndpoint      = "/api/meta"
	HealthEndpoint    = "/api/health"
	MetricsEndpoint   = "/metrics"

	// WebSocket Endpoints
	WebSocketEndpoint = "/ws"
)
