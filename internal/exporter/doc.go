// Package exporter provides CSV export functionality for Poll Pulse.
//
// This package contains two kinds of exports:
//
// Trend reports: one metric's daily averages and smoothed trend values with
// contributing-poll counts, the file behind the dashboard's CSV download and
// the trendcsv command.
//
// Observation tables: the filtered raw poll table in the same column layout
// the loader reads, so an export can be re-loaded as a dataset.
//
// Both are available against an io.Writer for HTTP streaming and through
// CSVWriter for files under the reports directory. Files carry a UTF-8 BOM
// for Excel compatibility.
//
// Example usage:
//
//	writer := exporter.NewCSVWriter(paths, logger)
//	err := writer.WriteTrendCSV("trend.csv", exporter.TrendReport{
//	    Metric:   trend.MetricApprove,
//	    Span:     7,
//	    Daily:    daily,
//	    Smoothed: smoothed,
//	})
package exporter
