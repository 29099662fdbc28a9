package services

import "errors"

// Trend service errors
var (
	// Dataset errors
	ErrDatasetNotLoaded = errors.New("dataset not loaded")
	ErrNoDataFile       = errors.New("no poll data file configured")
	ErrNoObservations   = errors.New("no observations for the current selection")

	// Export errors
	ErrUnsupportedMetric = errors.New("metric not supported for this output")

	// WebSocket errors
	ErrWebSocketUpgrade = errors.New("websocket upgrade failed")
	ErrWebSocketClosed  = errors.New("websocket connection closed")

	// General errors
	ErrInvalidInput       = errors.New("invalid input")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)
