package trend

import (
	"pollpulse/internal/poll"
)

// ComposeOptions controls which series a composed set carries. Metrics
// defaults to both metrics; IncludeRawAverage adds the unsmoothed daily mean
// alongside the trend line for presentation modes that want both.
type ComposeOptions struct {
	Span              int
	Metrics           []Metric
	IncludeRawAverage bool
}

// Compose runs the full pipeline for one (dataset, selection, span) input
// and returns the chart-ready series set: per-pollster raw series, the
// optional combined raw average and the smoothed average per requested
// metric, plus the headline pair.
//
// The output is a pure function of its inputs. Composing twice with the same
// arguments yields the same set; nothing is cached or persisted here.
func Compose(dataset *poll.Dataset, selected map[string]struct{}, opts ComposeOptions) (*SeriesSet, error) {
	if err := ValidateSpan(opts.Span); err != nil {
		return nil, err
	}
	metrics := opts.Metrics
	if len(metrics) == 0 {
		metrics = Metrics
	}
	for _, metric := range metrics {
		if _, err := ParseMetric(string(metric)); err != nil {
			return nil, err
		}
	}

	set := &SeriesSet{Span: opts.Span}

	for _, metric := range metrics {
		// Individual series first, then the combined lines, so a renderer
		// drawing in order puts the trend on top.
		set.Series = append(set.Series, pollsterSeries(dataset, selected, metric)...)

		daily := Aggregate(dataset, selected, metric)
		raw := aggregatePoints(daily)

		if opts.IncludeRawAverage && len(raw) > 0 {
			set.Series = append(set.Series, Series{
				Name:   SeriesNameAverage,
				Metric: metric,
				Role:   RoleRawAverage,
				Points: raw,
			})
		}

		smoothed, err := Smooth(raw, opts.Span)
		if err != nil {
			return nil, err
		}
		if len(smoothed) > 0 {
			set.Series = append(set.Series, Series{
				Name:   SeriesNameTrend,
				Metric: metric,
				Role:   RoleSmoothedAverage,
				Points: smoothed,
			})
		}
	}

	headline, err := composeHeadline(dataset, selected, opts.Span)
	if err != nil {
		return nil, err
	}
	set.Headline = headline

	return set, nil
}

// composeHeadline derives the headline pair from the smoothed series of both
// metrics, regardless of which metrics the caller asked to render. The
// approve side anchors the date: its latest smoothed value is the headline,
// and the disapprove side is reported only if its smoothed series has a
// value on that exact date.
func composeHeadline(dataset *poll.Dataset, selected map[string]struct{}, span int) (Headline, error) {
	approve, err := Smooth(aggregatePoints(Aggregate(dataset, selected, MetricApprove)), span)
	if err != nil {
		return Headline{}, err
	}
	disapprove, err := Smooth(aggregatePoints(Aggregate(dataset, selected, MetricDisapprove)), span)
	if err != nil {
		return Headline{}, err
	}
	return headlineFromSeries(approve, disapprove), nil
}

// headlineFromSeries pairs the latest approve reading with the disapprove
// reading from the same date. Both inputs must be date-ascending, which is
// what Smooth over Aggregate produces.
func headlineFromSeries(approve, disapprove []Point) Headline {
	var headline Headline
	if len(approve) == 0 {
		return headline
	}

	latest := approve[len(approve)-1]
	headline.Approve = &HeadlineValue{Date: latest.Date, Value: latest.Value}

	for i := len(disapprove) - 1; i >= 0; i-- {
		if disapprove[i].Date.Equal(latest.Date) {
			headline.Disapprove = &HeadlineValue{Date: disapprove[i].Date, Value: disapprove[i].Value}
			break
		}
		if disapprove[i].Date.Before(latest.Date) {
			break
		}
	}

	return headline
}
