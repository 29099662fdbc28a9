package exporter

import (
	"fmt"
	"io"
	"strconv"

	"pollpulse/internal/poll"
	"pollpulse/internal/trend"
)

// TrendReport is one metric's export payload: the raw daily means and the
// smoothed values produced from them. Daily and Smoothed always cover the
// same dates in the same order; the smoother never adds or drops days.
type TrendReport struct {
	Metric   trend.Metric
	Span     int
	Daily    []trend.DailyAggregate
	Smoothed []trend.Point
}

// BuildTrendRows turns a report into CSV headers and records. Values are
// written with full float precision so re-reading the file reproduces the
// computed series exactly.
func BuildTrendRows(report TrendReport) ([]string, [][]string) {
	headers := []string{
		"Date",
		fmt.Sprintf("%s Average", titleMetric(report.Metric)),
		fmt.Sprintf("%s Trend (span %d)", titleMetric(report.Metric), report.Span),
		"Contributing Polls",
	}

	records := make([][]string, 0, len(report.Daily))
	for i, daily := range report.Daily {
		smoothed := ""
		if i < len(report.Smoothed) {
			smoothed = formatValue(report.Smoothed[i].Value)
		}
		records = append(records, []string{
			daily.Date.Format(poll.DateLayout),
			formatValue(daily.Mean),
			smoothed,
			strconv.Itoa(daily.Count),
		})
	}

	return headers, records
}

// WriteTrend writes a trend report as CSV to any writer.
func WriteTrend(w io.Writer, report TrendReport, bom bool) error {
	headers, records := BuildTrendRows(report)
	return WriteRecords(w, headers, records, bom)
}

// WriteTrendCSV writes a trend report to the given path, resolving relative
// paths into the reports directory.
func (w *CSVWriter) WriteTrendCSV(path string, report TrendReport) error {
	headers, records := BuildTrendRows(report)
	return w.WriteCSV(path, WriteOptions{
		Headers:   headers,
		Records:   records,
		BOMPrefix: true,
	})
}

func formatValue(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func titleMetric(metric trend.Metric) string {
	switch metric {
	case trend.MetricDisapprove:
		return "Disapprove"
	default:
		return "Approve"
	}
}
