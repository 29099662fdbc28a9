package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pollpulse/internal/chart"
	"pollpulse/internal/config"
	"pollpulse/internal/poll"
	"pollpulse/internal/selection"
	"pollpulse/internal/shared/testutil"
	"pollpulse/internal/trend"
)

func newTestConfig(t *testing.T, csv string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Polls.DataFile = testutil.TempPollCSV(t, csv)
	cfg.Polls.CuratedList = []string{"Alpha Research"}
	return cfg
}

func newTestTrendService(t *testing.T, cfg *config.Config, hub Broadcaster) *TrendService {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	service, err := NewTrendService(cfg, nil, nil, nil, hub, nil, logger)
	require.NoError(t, err)
	return service
}

func loadedTrendService(t *testing.T, csv string) *TrendService {
	t.Helper()
	service := newTestTrendService(t, newTestConfig(t, csv), nil)
	require.NoError(t, service.LoadDataset(context.Background()))
	return service
}

func TestNewTrendService(t *testing.T) {
	service := newTestTrendService(t, newTestConfig(t, testutil.SamplePollCSV()), nil)

	assert.True(t, strings.HasSuffix(service.DataFile(), "polls.csv"))

	status := service.DatasetStatus()
	assert.False(t, status.Loaded)
	assert.Equal(t, 0, status.Rows)
	assert.Equal(t, service.DataFile(), status.DataFile)
}

func TestTrendService_LoadDataset(t *testing.T) {
	service := loadedTrendService(t, testutil.SamplePollCSV())

	dataset, err := service.Dataset()
	require.NoError(t, err)
	assert.Equal(t, 6, dataset.Len())
	assert.Equal(t, []string{"Alpha Research", "Beta Polling"}, dataset.Pollsters())

	status := service.DatasetStatus()
	assert.True(t, status.Loaded)
	assert.Equal(t, 6, status.Rows)
	assert.Equal(t, 2, status.Pollsters)
	assert.False(t, status.LoadedAt.IsZero())
}

func TestTrendService_Dataset_NotLoaded(t *testing.T) {
	service := newTestTrendService(t, newTestConfig(t, testutil.SamplePollCSV()), nil)

	_, err := service.Dataset()
	assert.ErrorIs(t, err, ErrDatasetNotLoaded)

	_, err = service.Compose(context.Background(), "s", trend.ComposeOptions{Span: 7})
	assert.ErrorIs(t, err, ErrDatasetNotLoaded)
}

func TestTrendService_LoadDataset_MissingColumns(t *testing.T) {
	cfg := newTestConfig(t, testutil.MalformedPollCSV("missing_approve_column"))
	service := newTestTrendService(t, cfg, nil)

	err := service.LoadDataset(context.Background())
	require.Error(t, err)

	var confErr *poll.ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Contains(t, confErr.Missing, poll.ColumnApprove)

	// Nothing downstream runs against a broken schema.
	_, err = service.Dataset()
	assert.ErrorIs(t, err, ErrDatasetNotLoaded)
}

func TestTrendService_LoadDataset_NoDataFile(t *testing.T) {
	cfg := config.Default()
	cfg.Polls.DataFile = ""
	service := newTestTrendService(t, cfg, nil)

	err := service.LoadDataset(context.Background())
	assert.ErrorIs(t, err, ErrNoDataFile)
}

func TestTrendService_Reload(t *testing.T) {
	ctx := context.Background()
	hub := &MockBroadcaster{}
	hub.On("BroadcastUpdate", "data_update", "dataset", "refresh", mock.Anything).Return()

	cfg := newTestConfig(t, testutil.SamplePollCSV())
	service := newTestTrendService(t, cfg, hub)
	require.NoError(t, service.LoadDataset(ctx))

	// An explicit toggle that must survive the reload sync.
	_, err := service.SetPollster(ctx, "session-1", "Beta Polling", false)
	require.NoError(t, err)

	grown := testutil.PollCSV(
		"Alpha Research,2024-01-01,48,47",
		"Beta Polling,2024-01-01,44,50",
		"Alpha Research,2024-01-02,50,45",
		"Beta Polling,2024-01-02,46,49",
		"Alpha Research,2024-01-03,52,43",
		"Beta Polling,2024-01-03,45,",
		"Gamma Insight,2024-01-04,50,42",
	)
	require.NoError(t, os.WriteFile(service.DataFile(), []byte(grown), 0o644))

	summary, err := service.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, summary.Rows)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 3, summary.Pollsters)
	assert.False(t, summary.LoadedAt.IsZero())

	hub.AssertCalled(t, "BroadcastUpdate", "data_update", "dataset", "refresh", mock.Anything)

	// The new pollster joins per the session's bulk rule; the explicit
	// toggle on Beta Polling is preserved because sync is not a bulk action.
	view := service.Selection(ctx, "session-1")
	assert.Equal(t, []selection.Entry{
		{Name: "Alpha Research", Selected: true},
		{Name: "Beta Polling", Selected: false},
		{Name: "Gamma Insight", Selected: true},
	}, view.Entries)
}

func TestTrendService_Session_DefaultModes(t *testing.T) {
	ctx := context.Background()

	t.Run("all", func(t *testing.T) {
		service := loadedTrendService(t, testutil.SamplePollCSV())

		view := service.Selection(ctx, "fresh")
		assert.Equal(t, selection.StateAll, view.State)
		assert.Equal(t, selection.RuleAll, view.Rule)
		assert.Equal(t, 2, view.SelectedCount)
		assert.Equal(t, 2, view.KnownCount)
	})

	t.Run("curated", func(t *testing.T) {
		cfg := newTestConfig(t, testutil.SamplePollCSV())
		cfg.Polls.DefaultMode = "curated"
		service := newTestTrendService(t, cfg, nil)
		require.NoError(t, service.LoadDataset(ctx))

		view := service.Selection(ctx, "fresh")
		assert.Equal(t, selection.StateCurated, view.State)
		assert.Equal(t, []selection.Entry{
			{Name: "Alpha Research", Selected: true},
			{Name: "Beta Polling", Selected: false},
		}, view.Entries)
	})
}

func TestTrendService_SessionIsolation(t *testing.T) {
	ctx := context.Background()
	service := loadedTrendService(t, testutil.SamplePollCSV())

	service.DeselectAll(ctx, "session-a")

	viewA := service.Selection(ctx, "session-a")
	viewB := service.Selection(ctx, "session-b")
	assert.Equal(t, selection.StateNone, viewA.State)
	assert.Equal(t, selection.StateAll, viewB.State)
}

func TestTrendService_SelectionActions(t *testing.T) {
	ctx := context.Background()
	service := loadedTrendService(t, testutil.SamplePollCSV())

	view := service.DeselectAll(ctx, "s")
	assert.Equal(t, 0, view.SelectedCount)
	assert.Equal(t, selection.RuleNone, view.Rule)

	view = service.SelectAll(ctx, "s")
	assert.Equal(t, 2, view.SelectedCount)
	assert.Equal(t, selection.StateAll, view.State)

	view = service.ApplyCurated(ctx, "s")
	assert.Equal(t, selection.StateCurated, view.State)
	assert.Equal(t, 1, view.SelectedCount)

	view, err := service.SetPollster(ctx, "s", "Beta Polling", true)
	require.NoError(t, err)
	assert.Equal(t, selection.StateAll, view.State)

	_, err = service.SetPollster(ctx, "s", "Nobody Polls", true)
	assert.ErrorIs(t, err, selection.ErrUnknownPollster)
}

func TestTrendService_Compose(t *testing.T) {
	ctx := context.Background()
	service := loadedTrendService(t, testutil.SamplePollCSV())

	set, err := service.Compose(ctx, "s", trend.ComposeOptions{Span: 3, IncludeRawAverage: true})
	require.NoError(t, err)
	assert.Equal(t, 3, set.Span)

	roles := map[trend.Role]int{}
	for _, series := range set.Series {
		roles[series.Role]++
	}
	// Two pollsters and two metrics: four individual series, plus one raw
	// average and one trend line per metric.
	assert.Equal(t, 4, roles[trend.RoleIndividual])
	assert.Equal(t, 2, roles[trend.RoleRawAverage])
	assert.Equal(t, 2, roles[trend.RoleSmoothedAverage])

	require.NotNil(t, set.Headline.Approve)
	require.NotNil(t, set.Headline.Disapprove)
	assert.Equal(t, "2024-01-03", set.Headline.Approve.Date.Format(poll.DateLayout))
	assert.True(t, set.Headline.Approve.Date.Equal(set.Headline.Disapprove.Date))
}

func TestTrendService_Compose_DefaultSpan(t *testing.T) {
	service := loadedTrendService(t, testutil.SamplePollCSV())

	set, err := service.Compose(context.Background(), "s", trend.ComposeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 7, set.Span)
}

func TestTrendService_Compose_SpanRejected(t *testing.T) {
	service := loadedTrendService(t, testutil.SamplePollCSV())

	for _, span := range []int{1, 21} {
		_, err := service.Compose(context.Background(), "s", trend.ComposeOptions{Span: span})
		assert.ErrorIs(t, err, trend.ErrSpanOutOfRange, "span %d", span)
	}
}

func TestTrendService_Compose_EmptySelection(t *testing.T) {
	ctx := context.Background()
	service := loadedTrendService(t, testutil.SamplePollCSV())

	service.DeselectAll(ctx, "s")

	set, err := service.Compose(ctx, "s", trend.ComposeOptions{Span: 3, IncludeRawAverage: true})
	require.NoError(t, err)
	assert.Empty(t, set.Series)
	assert.Nil(t, set.Headline.Approve)
	assert.Nil(t, set.Headline.Disapprove)
}

func TestTrendService_Compose_PureFunction(t *testing.T) {
	ctx := context.Background()
	service := loadedTrendService(t, testutil.SamplePollCSV())

	first, err := service.Compose(ctx, "s", trend.ComposeOptions{Span: 5})
	require.NoError(t, err)
	second, err := service.Compose(ctx, "s", trend.ComposeOptions{Span: 5})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestTrendService_Headline(t *testing.T) {
	service := loadedTrendService(t, testutil.SamplePollCSV())

	headline, err := service.Headline(context.Background(), "s", 3)
	require.NoError(t, err)

	require.NotNil(t, headline.Approve)
	// Raw approve means are 46, 48, 48.5; with alpha = 0.5 the trend ends at
	// 0.5*48.5 + 0.5*(0.5*48 + 0.5*46).
	assert.InDelta(t, 47.75, headline.Approve.Value, 1e-9)
}

func TestTrendService_TrendReport(t *testing.T) {
	ctx := context.Background()
	service := loadedTrendService(t, testutil.SamplePollCSV())

	report, err := service.TrendReport(ctx, "s", 3, trend.MetricApprove)
	require.NoError(t, err)

	require.Len(t, report.Daily, 3)
	assert.InDelta(t, 46.0, report.Daily[0].Mean, 1e-9)
	assert.InDelta(t, 48.0, report.Daily[1].Mean, 1e-9)
	assert.InDelta(t, 48.5, report.Daily[2].Mean, 1e-9)
	assert.Equal(t, 2, report.Daily[0].Count)

	require.Len(t, report.Smoothed, 3)
	assert.InDelta(t, 46.0, report.Smoothed[0].Value, 1e-9)
	assert.InDelta(t, 47.0, report.Smoothed[1].Value, 1e-9)
	assert.InDelta(t, 47.75, report.Smoothed[2].Value, 1e-9)

	_, err = service.TrendReport(ctx, "s", 3, trend.Metric("both"))
	assert.ErrorIs(t, err, ErrUnsupportedMetric)

	_, err = service.TrendReport(ctx, "s", 21, trend.MetricApprove)
	assert.ErrorIs(t, err, trend.ErrSpanOutOfRange)
}

func TestTrendService_ExportTrend(t *testing.T) {
	ctx := context.Background()
	service := loadedTrendService(t, testutil.SamplePollCSV())

	var buf bytes.Buffer
	require.NoError(t, service.ExportTrend(ctx, "s", &buf, 3, trend.MetricApprove))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\uFEFF"))

	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(out, "\uFEFF")), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Date,Approve Average,Approve Trend (span 3),Contributing Polls", lines[0])
	assert.Equal(t, "2024-01-01,46,46,2", lines[1])
	assert.Equal(t, "2024-01-03,48.5,47.75,2", lines[3])
}

func TestTrendService_RenderChart(t *testing.T) {
	ctx := context.Background()
	service := loadedTrendService(t, testutil.SamplePollCSV())

	var buf bytes.Buffer
	err := service.RenderChart(ctx, "s", &buf,
		trend.ComposeOptions{Span: 3, Metrics: []trend.Metric{trend.MetricApprove}},
		chart.Options{Title: "Approval trend"})
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG\r\n\x1a\n")))
}

func TestTrendService_LastUpdated_Disabled(t *testing.T) {
	service := loadedTrendService(t, testutil.SamplePollCSV())

	result := service.LastUpdated(context.Background())
	assert.False(t, result.Known)
}

func TestTrendService_Curated(t *testing.T) {
	service := loadedTrendService(t, testutil.SamplePollCSV())

	// No spreadsheet configured: refresh is a no-op and the config list is
	// what the curated action applies.
	require.NoError(t, service.RefreshCurated(context.Background()))
	assert.Equal(t, []string{"Alpha Research"}, service.CuratedList())
}

func TestTrendService_Sessions(t *testing.T) {
	ctx := context.Background()
	service := loadedTrendService(t, testutil.SamplePollCSV())

	assert.Equal(t, 0, service.Sessions())
	service.Session(ctx, "a")
	service.Session(ctx, "b")
	service.Session(ctx, "a")
	assert.Equal(t, 2, service.Sessions())
}

func TestTrendService_ComposeError_Unknown(t *testing.T) {
	service := loadedTrendService(t, testutil.SamplePollCSV())

	_, err := service.Compose(context.Background(), "s", trend.ComposeOptions{
		Span:    7,
		Metrics: []trend.Metric{trend.Metric("margin")},
	})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrDatasetNotLoaded))
	assert.Contains(t, err.Error(), "margin")
}
