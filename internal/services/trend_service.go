package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"pollpulse/internal/chart"
	"pollpulse/internal/config"
	"pollpulse/internal/curated"
	"pollpulse/internal/exporter"
	"pollpulse/internal/infrastructure"
	"pollpulse/internal/poll"
	"pollpulse/internal/revision"
	"pollpulse/internal/selection"
	"pollpulse/internal/trend"
)

// Broadcaster pushes dataset lifecycle events to connected dashboards.
type Broadcaster interface {
	BroadcastUpdate(updateType, subtype, action string, data interface{})
}

// TrendService owns the loaded dataset and orchestrates everything built on
// it: per-session selection state, the aggregate/smooth/compose pipeline,
// CSV export, chart rendering and the data-revision lookup. The dataset is
// swapped atomically on reload; every read works against the snapshot it
// started with.
type TrendService struct {
	config   *config.Config
	paths    *config.Paths
	dataFile string
	loader   *poll.Loader
	registry *selection.Registry
	curated  *curated.Source
	revision *revision.Checker
	renderer *chart.Renderer
	hub      Broadcaster
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger

	mu       sync.RWMutex
	dataset  *poll.Dataset
	loadedAt time.Time
}

// ReloadSummary reports what a dataset load produced.
type ReloadSummary struct {
	Rows      int       `json:"rows"`
	Skipped   int       `json:"skipped"`
	Pollsters int       `json:"pollsters"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// DatasetStatus describes the held dataset for health and metadata endpoints.
type DatasetStatus struct {
	Loaded    bool      `json:"loaded"`
	Rows      int       `json:"rows"`
	Pollsters int       `json:"pollsters"`
	DataFile  string    `json:"data_file"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// SelectionView is a session's selection snapshot for API responses.
type SelectionView struct {
	Entries       []selection.Entry `json:"pollsters"`
	Rule          selection.Rule    `json:"rule"`
	State         selection.State   `json:"state"`
	SelectedCount int               `json:"selected_count"`
	KnownCount    int               `json:"known_count"`
}

// NewTrendService creates the trend service. A nil registry, curated source
// or revision checker is built from the configuration; hub and metrics may
// stay nil when broadcasting or telemetry is not wired.
func NewTrendService(cfg *config.Config, registry *selection.Registry, curatedSource *curated.Source, revisionChecker *revision.Checker, hub Broadcaster, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) (*TrendService, error) {
	if logger == nil {
		logger = slog.Default()
	}

	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}

	if registry == nil {
		registry = selection.NewRegistry(nil, cfg.Polls.SessionTTL, logger)
	}
	if curatedSource == nil {
		curatedSource = curated.NewSource(cfg.Polls.CuratedList, cfg.CuratedSheet, logger)
	}
	if revisionChecker == nil {
		revisionChecker = revision.NewChecker(cfg.Revision, nil, logger)
	}

	dataFile := ""
	if cfg.Polls.DataFile != "" {
		dataFile = paths.ResolveDataFile(cfg.Polls.DataFile)
	}

	logger.Info("TrendService initialized with paths",
		slog.String("executable_dir", paths.ExecutableDir),
		slog.String("data_dir", paths.DataDir),
		slog.String("reports_dir", paths.ReportsDir),
		slog.String("data_file", dataFile))

	return &TrendService{
		config:   cfg,
		paths:    paths,
		dataFile: dataFile,
		loader:   poll.NewLoader(logger),
		registry: registry,
		curated:  curatedSource,
		revision: revisionChecker,
		renderer: chart.NewRenderer(logger),
		hub:      hub,
		metrics:  metrics,
		logger:   logger,
	}, nil
}

// LoadDataset performs the startup load of the configured poll file. The
// caller decides whether a failure is fatal; a schema error always is.
func (s *TrendService) LoadDataset(ctx context.Context) error {
	_, err := s.reload(ctx, false)
	return err
}

// Reload re-reads the poll file, swaps the dataset, reconciles every live
// session's selection with the new pollster list and tells connected
// dashboards to refresh.
func (s *TrendService) Reload(ctx context.Context) (*ReloadSummary, error) {
	return s.reload(ctx, true)
}

func (s *TrendService) reload(ctx context.Context, broadcast bool) (*ReloadSummary, error) {
	if s.dataFile == "" {
		return nil, ErrNoDataFile
	}

	start := time.Now()
	dataset, stats, err := s.loader.LoadWithStats(s.dataFile)
	infrastructure.RecordDatasetLoadMetrics(ctx, s.metrics, stats.Rows, stats.Skipped, time.Since(start), err)
	if err != nil {
		logTrendError(ctx, "dataset_load", "failed to load poll file",
			slog.String("path", s.dataFile),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to load poll file: %w", err)
	}

	s.mu.Lock()
	s.dataset = dataset
	s.loadedAt = time.Now()
	loadedAt := s.loadedAt
	s.mu.Unlock()

	s.registry.SyncAll(dataset.Pollsters())

	summary := &ReloadSummary{
		Rows:      stats.Rows,
		Skipped:   stats.Skipped,
		Pollsters: len(dataset.Pollsters()),
		LoadedAt:  loadedAt,
	}

	if broadcast && s.hub != nil {
		s.hub.BroadcastUpdate("data_update", "dataset", "refresh", summary)
	}

	s.logger.InfoContext(ctx, "dataset ready",
		slog.Int("rows", summary.Rows),
		slog.Int("skipped", summary.Skipped),
		slog.Int("pollsters", summary.Pollsters))

	return summary, nil
}

// Dataset returns the current dataset snapshot, or ErrDatasetNotLoaded
// before the first successful load.
func (s *TrendService) Dataset() (*poll.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dataset == nil {
		return nil, ErrDatasetNotLoaded
	}
	return s.dataset, nil
}

// DatasetStatus describes the held dataset without failing when none is
// loaded yet.
func (s *TrendService) DatasetStatus() DatasetStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := DatasetStatus{DataFile: s.dataFile}
	if s.dataset == nil {
		return status
	}
	status.Loaded = true
	status.Rows = s.dataset.Len()
	status.Pollsters = len(s.dataset.Pollsters())
	status.LoadedAt = s.loadedAt
	return status
}

// Session returns the selection manager owned by the given session, creating
// it on first sight. New sessions start from the configured default mode and
// cover the pollsters of the current dataset.
func (s *TrendService) Session(ctx context.Context, sessionID string) *selection.Manager {
	manager := s.registry.Get(sessionID, func() *selection.Manager {
		var known []string
		if dataset, err := s.Dataset(); err == nil {
			known = dataset.Pollsters()
		}
		return selection.NewManager(known, s.defaultRule(), s.curated.List())
	})
	infrastructure.RecordActiveSessions(ctx, s.metrics, int64(s.registry.Len()))
	return manager
}

func (s *TrendService) defaultRule() selection.Rule {
	if s.config.Polls.DefaultMode == "curated" {
		return selection.RuleCurated
	}
	return selection.RuleAll
}

// Selection returns the session's current selection snapshot.
func (s *TrendService) Selection(ctx context.Context, sessionID string) SelectionView {
	return viewOf(s.Session(ctx, sessionID))
}

// SelectAll marks every pollster selected for the session.
func (s *TrendService) SelectAll(ctx context.Context, sessionID string) SelectionView {
	manager := s.Session(ctx, sessionID)
	manager.SelectAll()
	infrastructure.RecordSelectionUpdate(ctx, s.metrics, "select_all")
	s.logger.DebugContext(ctx, "selection updated",
		slog.String("action", "select_all"),
		slog.String("session_id", sessionID))
	return viewOf(manager)
}

// DeselectAll clears the session's selection.
func (s *TrendService) DeselectAll(ctx context.Context, sessionID string) SelectionView {
	manager := s.Session(ctx, sessionID)
	manager.DeselectAll()
	infrastructure.RecordSelectionUpdate(ctx, s.metrics, "deselect_all")
	s.logger.DebugContext(ctx, "selection updated",
		slog.String("action", "deselect_all"),
		slog.String("session_id", sessionID))
	return viewOf(manager)
}

// ApplyCurated restricts the session's selection to the curated list.
func (s *TrendService) ApplyCurated(ctx context.Context, sessionID string) SelectionView {
	manager := s.Session(ctx, sessionID)
	manager.ApplyCurated(s.curated.List())
	infrastructure.RecordSelectionUpdate(ctx, s.metrics, "curated")
	s.logger.DebugContext(ctx, "selection updated",
		slog.String("action", "curated"),
		slog.String("session_id", sessionID))
	return viewOf(manager)
}

// SetPollster flips a single pollster's inclusion for the session. A name
// not present in the dataset returns selection.ErrUnknownPollster.
func (s *TrendService) SetPollster(ctx context.Context, sessionID, name string, selected bool) (SelectionView, error) {
	manager := s.Session(ctx, sessionID)
	if err := manager.Set(name, selected); err != nil {
		return SelectionView{}, err
	}
	infrastructure.RecordSelectionUpdate(ctx, s.metrics, "toggle")
	s.logger.DebugContext(ctx, "selection updated",
		slog.String("action", "toggle"),
		slog.String("session_id", sessionID),
		slog.String("pollster", name),
		slog.Bool("selected", selected))
	return viewOf(manager), nil
}

func viewOf(manager *selection.Manager) SelectionView {
	entries := manager.Snapshot()
	selectedCount := 0
	for _, entry := range entries {
		if entry.Selected {
			selectedCount++
		}
	}
	return SelectionView{
		Entries:       entries,
		Rule:          manager.Rule(),
		State:         manager.State(),
		SelectedCount: selectedCount,
		KnownCount:    len(entries),
	}
}

// Compose runs the trend pipeline for the session against the current
// dataset. A zero span falls back to the configured default; an out-of-range
// span is rejected with trend.ErrSpanOutOfRange, never clamped.
func (s *TrendService) Compose(ctx context.Context, sessionID string, opts trend.ComposeOptions) (*trend.SeriesSet, error) {
	dataset, err := s.Dataset()
	if err != nil {
		return nil, err
	}
	if opts.Span <= 0 {
		opts.Span = s.config.Polls.DefaultSpan
	}

	selected := s.Session(ctx, sessionID).SelectedSet()

	start := time.Now()
	set, err := trend.Compose(dataset, selected, opts)
	infrastructure.RecordComposeMetrics(ctx, s.metrics, opts.Span, len(selected), time.Since(start), err)
	if err != nil {
		logTrendError(ctx, "compose", "trend composition failed",
			slog.Int("span", opts.Span),
			slog.String("error", err.Error()))
		return nil, err
	}
	return set, nil
}

// Headline returns the latest smoothed approval reading paired with the
// disapproval reading from the same date, if one exists.
func (s *TrendService) Headline(ctx context.Context, sessionID string, span int) (trend.Headline, error) {
	set, err := s.Compose(ctx, sessionID, trend.ComposeOptions{Span: span})
	if err != nil {
		return trend.Headline{}, err
	}
	return set.Headline, nil
}

// TrendReport builds one metric's export payload: the raw daily means and
// the smoothed values computed from them.
func (s *TrendService) TrendReport(ctx context.Context, sessionID string, span int, metric trend.Metric) (*exporter.TrendReport, error) {
	dataset, err := s.Dataset()
	if err != nil {
		return nil, err
	}
	if span <= 0 {
		span = s.config.Polls.DefaultSpan
	}
	if err := trend.ValidateSpan(span); err != nil {
		return nil, err
	}
	if _, err := trend.ParseMetric(string(metric)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedMetric, err)
	}

	selected := s.Session(ctx, sessionID).SelectedSet()
	daily := trend.Aggregate(dataset, selected, metric)
	raw := make([]trend.Point, len(daily))
	for i, aggregate := range daily {
		raw[i] = trend.Point{Date: aggregate.Date, Value: aggregate.Mean}
	}
	smoothed, err := trend.Smooth(raw, span)
	if err != nil {
		return nil, err
	}

	return &exporter.TrendReport{
		Metric:   metric,
		Span:     span,
		Daily:    daily,
		Smoothed: smoothed,
	}, nil
}

// ExportTrend writes the session's trend report as CSV. The BOM prefix keeps
// the download double-clickable in Excel.
func (s *TrendService) ExportTrend(ctx context.Context, sessionID string, w io.Writer, span int, metric trend.Metric) error {
	report, err := s.TrendReport(ctx, sessionID, span, metric)
	if err != nil {
		return err
	}
	return exporter.WriteTrend(w, *report, true)
}

// RenderChart composes the session's series set and draws it as a PNG.
func (s *TrendService) RenderChart(ctx context.Context, sessionID string, w io.Writer, opts trend.ComposeOptions, render chart.Options) error {
	set, err := s.Compose(ctx, sessionID, opts)
	if err != nil {
		return err
	}

	start := time.Now()
	err = s.renderer.RenderPNG(w, set, render)
	infrastructure.RecordChartRender(ctx, s.metrics, time.Since(start), err)
	if err != nil {
		logTrendError(ctx, "chart_render", "chart render failed",
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// LastUpdated reports when the upstream poll file last changed. Failures
// surface as an unknown result, never as an error.
func (s *TrendService) LastUpdated(ctx context.Context) revision.Result {
	result := s.revision.LastUpdated(ctx)
	infrastructure.RecordRevisionLookup(ctx, s.metrics, result.Known)
	return result
}

// RefreshCurated updates the curated list from its remote source when one is
// configured. Failure keeps the configured list and is reported but never
// fatal.
func (s *TrendService) RefreshCurated(ctx context.Context) error {
	if !s.curated.Enabled() {
		return nil
	}
	if err := s.curated.Refresh(ctx); err != nil {
		s.logger.WarnContext(ctx, "curated list refresh failed; using configured list",
			slog.String("error", err.Error()))
		return err
	}
	return nil
}

// CuratedList returns the curated pollster names currently in effect.
func (s *TrendService) CuratedList() []string {
	return s.curated.List()
}

// Sessions returns the number of live dashboard sessions.
func (s *TrendService) Sessions() int {
	return s.registry.Len()
}

// DataFile returns the resolved poll file path, empty when unconfigured.
func (s *TrendService) DataFile() string {
	return s.dataFile
}

// DefaultSpan returns the configured smoothing span.
func (s *TrendService) DefaultSpan() int {
	return s.config.Polls.DefaultSpan
}

// IncludeRawAverage reports whether composed sets carry the unsmoothed
// average series unless the request says otherwise.
func (s *TrendService) IncludeRawAverage() bool {
	return s.config.Polls.IncludeRawAverage
}
