// Package app provides application initialization and lifecycle management
// for the Poll Pulse server. It wires configuration, observability, the trend
// and selection services, the WebSocket hub, and the HTTP router into one
// runnable unit.
//
// # Initialization Flow
//
// The typical initialization sequence:
//
//	1. Load configuration from environment and files
//	2. Initialize structured logging and OpenTelemetry
//	3. Resolve and create the working directories
//	4. Build the service graph (hub, sessions, curated list, trend service)
//	5. Set up HTTP handlers and middleware
//	6. Configure the HTTP server
//
// # Usage
//
// The main entry point is typically:
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// Run starts the server, loads the poll dataset, and blocks until SIGINT or
// SIGTERM. A poll file with missing required columns aborts startup; a file
// that is merely absent leaves the API answering 503 until a reload succeeds.
//
// # Graceful Shutdown
//
// On shutdown the package ensures:
//
//	- Active requests complete within the configured shutdown timeout
//	- WebSocket connections are closed cleanly
//	- The system metrics collector stops
//	- OpenTelemetry providers flush and shut down
//
// All initialization errors are returned to the caller. The app does not call
// os.Exit() directly, allowing the main function to control the exit process.
package app
