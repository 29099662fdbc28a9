package trend

import (
	"fmt"
	"time"

	"pollpulse/internal/poll"
)

// Metric identifies which poll value a series tracks.
type Metric string

const (
	MetricApprove    Metric = "approve"
	MetricDisapprove Metric = "disapprove"
)

// Metrics lists every supported metric in presentation order.
var Metrics = []Metric{MetricApprove, MetricDisapprove}

// ParseMetric resolves the wire form of a metric name.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricApprove:
		return MetricApprove, nil
	case MetricDisapprove:
		return MetricDisapprove, nil
	default:
		return "", fmt.Errorf("unknown metric %q", s)
	}
}

// observationValue extracts this metric's value from an observation.
func (m Metric) observationValue(obs poll.Observation) float64 {
	if m == MetricDisapprove {
		return obs.Disapprove
	}
	return obs.Approve
}

// Role distinguishes the kinds of series a composed set carries.
type Role string

const (
	// RoleIndividual is a single pollster's own observations.
	RoleIndividual Role = "individual"
	// RoleRawAverage is the unsmoothed day-by-day mean across selected
	// pollsters.
	RoleRawAverage Role = "raw_average"
	// RoleSmoothedAverage is the exponentially smoothed daily mean, the
	// headline trend line.
	RoleSmoothedAverage Role = "smoothed_average"
)

// Display names for the combined series.
const (
	SeriesNameAverage = "Average"
	SeriesNameTrend   = "Trend"
)

// Point is one dated value within a series. Dates are calendar days at
// midnight UTC.
type Point struct {
	Date  time.Time
	Value float64
}

// Series is an ordered sequence of points with enough identity for a chart
// legend: a name, the metric it tracks and its role in the set.
type Series struct {
	Name   string
	Metric Metric
	Role   Role
	Points []Point
}

// DailyAggregate is the mean of one metric across all contributing
// observations on one calendar day.
type DailyAggregate struct {
	Date  time.Time
	Mean  float64
	Count int
}

// HeadlineValue is a single dated reading for the dashboard headline.
type HeadlineValue struct {
	Date  time.Time
	Value float64
}

// Headline carries the latest smoothed approval reading and its companion
// disapproval reading from the same date. Either side is nil when no such
// reading exists; a missing companion is omitted, never substituted from a
// nearby date.
type Headline struct {
	Approve    *HeadlineValue
	Disapprove *HeadlineValue
}

// SeriesSet is the complete composed output for one (dataset, selection,
// span) input: every requested series plus the headline pair.
type SeriesSet struct {
	Series   []Series
	Headline Headline
	Span     int
}
