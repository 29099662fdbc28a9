// Package api contains the wire contract definitions for the Poll Pulse
// dashboard API. Version v1 represents the current stable API version.
package api

// Query parameter contracts. Handlers validate these at the edge; the values
// echo the smoothing bounds enforced by the trend package.

// TrendSeriesRequest carries the query parameters of the series endpoint.
type TrendSeriesRequest struct {
	Span       int    `json:"span" query:"span" validate:"omitempty,min=2,max=20"`
	Metric     string `json:"metric" query:"metric" validate:"omitempty,oneof=approve disapprove both"`
	RawAverage *bool  `json:"raw_average" query:"raw_average"`
}

// TrendExportRequest carries the query parameters of the CSV export and chart
// endpoints. Exports are single-metric; "both" is only valid for series.
type TrendExportRequest struct {
	Span   int    `json:"span" query:"span" validate:"omitempty,min=2,max=20"`
	Metric string `json:"metric" query:"metric" validate:"omitempty,oneof=approve disapprove"`
}

// Selection API requests

// SetPollsterRequest toggles a single pollster's membership in the session
// selection. Selected is a pointer so an absent field is distinguishable from
// an explicit false.
type SetPollsterRequest struct {
	Selected *bool `json:"selected" validate:"required"`
}

// Client logging requests

// ClientLogRequest is a log event forwarded from the dashboard frontend.
type ClientLogRequest struct {
	Level   string                 `json:"level" validate:"omitempty,oneof=debug info warn error"`
	Message string                 `json:"message" validate:"required,max=2000"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Source  string                 `json:"source,omitempty" validate:"omitempty,max=200"`
}
