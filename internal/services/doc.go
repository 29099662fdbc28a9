// Package services implements the business logic layer of the poll dashboard.
// It provides a clean separation between HTTP handlers and the domain
// packages, ensuring that orchestration rules are centralized and testable.
//
// # Architecture
//
// Services follow these architectural principles:
//
//	1. Interface-driven design for testability
//	2. Context propagation for cancellation and tracing
//	3. Dependency injection for loose coupling
//	4. Domain-focused methods that encapsulate business rules
//
// # Service Layer Responsibilities
//
// The service layer is responsible for:
//
//	- Holding the loaded dataset and swapping it atomically on reload
//	- Mapping dashboard sessions to their selection managers
//	- Running the aggregate/smooth/compose pipeline per request
//	- Cross-cutting concerns (logging, metrics, refresh broadcasts)
//	- Error transformation into domain sentinels handlers can map
//
// # Available Services
//
// The package provides these core services:
//
//	- TrendService: dataset lifecycle, per-session selection, trend pipeline,
//	  CSV export, chart rendering and data-revision metadata
//	- HealthService: liveness, readiness and system statistics
//
// # Error Handling
//
// Services return domain-specific errors that handlers transform:
//
//	- ErrDatasetNotLoaded when the pipeline is asked to run before a load
//	- selection.ErrUnknownPollster for toggles naming unknown pollsters
//	- trend.ErrSpanOutOfRange for spans outside the supported window
//	- *poll.ConfigurationError for files with a broken schema
//
// # Testing
//
// Services are tested against real domain objects and a mocked broadcaster:
//
//	hub := &MockBroadcaster{}
//	hub.On("BroadcastUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
//	service, err := NewTrendService(cfg, registry, source, checker, hub, nil, logger)
package services
