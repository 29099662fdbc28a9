package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"pollpulse/internal/config"
	"pollpulse/internal/exporter"
	"pollpulse/internal/infrastructure"
	"pollpulse/internal/poll"
	"pollpulse/internal/selection"
	"pollpulse/internal/trend"
)

func main() {
	in := flag.String("in", "", "poll file to read (defaults to the configured data file)")
	out := flag.String("out", "trend.csv", "output csv path (relative paths go to data/reports)")
	span := flag.Int("span", 0, "smoothing span in days (defaults to the configured span)")
	metric := flag.String("metric", string(trend.MetricApprove), "metric to report: approve | disapprove")
	curatedOnly := flag.Bool("curated-only", false, "restrict the report to the curated pollster list")
	flag.Parse()

	// Initialize paths first to get default directories
	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}
	cfg.Logging.FilePath = paths.GetLogPath("trendcsv.log")

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	// Use centralized defaults if not specified
	if *in == "" {
		*in = paths.ResolveDataFile(cfg.Polls.DataFile)
	}
	if *span == 0 {
		*span = cfg.Polls.DefaultSpan
	}

	parsedMetric, err := trend.ParseMetric(*metric)
	if err != nil {
		logger.Error("Unsupported metric",
			slog.String("metric", *metric),
			slog.String("supported", "approve | disapprove"))
		os.Exit(1)
	}
	if err := trend.ValidateSpan(*span); err != nil {
		logger.Error("Span out of range",
			slog.Int("span", *span),
			slog.Int("min", trend.MinSpan),
			slog.Int("max", trend.MaxSpan))
		os.Exit(1)
	}

	logger.Info("Starting trend report",
		slog.String("input", *in),
		slog.String("output", *out),
		slog.Int("span", *span),
		slog.String("metric", string(parsedMetric)),
		slog.Bool("curated_only", *curatedOnly),
		slog.String("executable_dir", paths.ExecutableDir))

	loader := poll.NewLoader(logger)
	dataset, stats, err := loader.LoadWithStats(*in)
	if err != nil {
		var confErr *poll.ConfigurationError
		if errors.As(err, &confErr) {
			logger.Error("Poll file rejected",
				slog.String("path", *in),
				slog.Any("missing_columns", confErr.Missing),
				slog.Any("header", confErr.Header))
		} else {
			logger.Error("Failed to load poll file",
				slog.String("path", *in),
				slog.String("error", err.Error()))
		}
		os.Exit(1)
	}

	selected := selectPollsters(dataset.Pollsters(), cfg.Polls.CuratedList, *curatedOnly)
	if *curatedOnly && len(selected) == 0 {
		logger.Warn("Curated list matches no pollster in the file; report will be empty",
			slog.Any("curated_list", cfg.Polls.CuratedList))
	}

	report, err := buildReport(dataset, selected, *span, parsedMetric)
	if err != nil {
		logger.Error("Failed to build trend report", slog.String("error", err.Error()))
		os.Exit(1)
	}

	writer := exporter.NewCSVWriter(paths, logger)
	if err := writer.WriteTrendCSV(*out, report); err != nil {
		logger.Error("Failed to write trend report",
			slog.String("path", *out),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Trend report written",
		slog.String("path", *out),
		slog.Int("rows_loaded", stats.Rows),
		slog.Int("rows_skipped", stats.Skipped),
		slog.Int("pollsters_selected", len(selected)),
		slog.Int("days", len(report.Daily)))

	fmt.Printf("Trend report complete: %d days -> %s\n", len(report.Daily), *out)
}

// selectPollsters builds the report's selection the way a fresh dashboard
// session would: everything, or curated-list membership.
func selectPollsters(known, curatedList []string, curatedOnly bool) map[string]struct{} {
	rule := selection.RuleAll
	if curatedOnly {
		rule = selection.RuleCurated
	}
	return selection.NewManager(known, rule, curatedList).SelectedSet()
}

// buildReport mirrors the dashboard pipeline: daily means across the selected
// pollsters, then the smoothed line over the same dates.
func buildReport(dataset *poll.Dataset, selected map[string]struct{}, span int, metric trend.Metric) (exporter.TrendReport, error) {
	daily := trend.Aggregate(dataset, selected, metric)
	raw := make([]trend.Point, len(daily))
	for i, aggregate := range daily {
		raw[i] = trend.Point{Date: aggregate.Date, Value: aggregate.Mean}
	}
	smoothed, err := trend.Smooth(raw, span)
	if err != nil {
		return exporter.TrendReport{}, err
	}
	return exporter.TrendReport{
		Metric:   metric,
		Span:     span,
		Daily:    daily,
		Smoothed: smoothed,
	}, nil
}
