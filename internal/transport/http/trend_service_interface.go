package http

import (
	"context"
	"io"

	"pollpulse/internal/chart"
	"pollpulse/internal/revision"
	"pollpulse/internal/services"
	"pollpulse/internal/trend"
)

// TrendServiceInterface defines the trend, selection and dataset operations
// handlers depend on. *services.TrendService is the production
// implementation.
type TrendServiceInterface interface {
	// Dataset lifecycle
	Reload(ctx context.Context) (*services.ReloadSummary, error)
	DatasetStatus() services.DatasetStatus

	// Per-session selection
	Selection(ctx context.Context, sessionID string) services.SelectionView
	SelectAll(ctx context.Context, sessionID string) services.SelectionView
	DeselectAll(ctx context.Context, sessionID string) services.SelectionView
	ApplyCurated(ctx context.Context, sessionID string) services.SelectionView
	SetPollster(ctx context.Context, sessionID, name string, selected bool) (services.SelectionView, error)

	// Composition and derived outputs
	Compose(ctx context.Context, sessionID string, opts trend.ComposeOptions) (*trend.SeriesSet, error)
	Headline(ctx context.Context, sessionID string, span int) (trend.Headline, error)
	ExportTrend(ctx context.Context, sessionID string, w io.Writer, span int, metric trend.Metric) error
	RenderChart(ctx context.Context, sessionID string, w io.Writer, opts trend.ComposeOptions, render chart.Options) error

	// Metadata and request defaults
	LastUpdated(ctx context.Context) revision.Result
	DefaultSpan() int
	IncludeRawAverage() bool
}
