package trend

import (
	"sort"
	"time"

	"pollpulse/internal/poll"
)

// Aggregate filters the dataset to the selected pollsters, groups the
// surviving observations by calendar day and returns the daily mean of the
// chosen metric in ascending date order.
//
// Every observation counts once: a pollster releasing two polls on one day
// contributes two values to that day's mean. Days where no selected pollster
// published are absent from the result, never zero-filled. An empty selection
// or empty dataset yields an empty result, which is valid output.
func Aggregate(dataset *poll.Dataset, selected map[string]struct{}, metric Metric) []DailyAggregate {
	if dataset == nil || dataset.Len() == 0 || len(selected) == 0 {
		return nil
	}

	type accumulator struct {
		sum   float64
		count int
	}
	buckets := make(map[string]*accumulator)

	for _, obs := range dataset.Observations() {
		if _, ok := selected[obs.Pollster]; !ok {
			continue
		}
		key := obs.DateKey()
		acc, ok := buckets[key]
		if !ok {
			acc = &accumulator{}
			buckets[key] = acc
		}
		acc.sum += metric.observationValue(obs)
		acc.count++
	}

	if len(buckets) == 0 {
		return nil
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	aggregates := make([]DailyAggregate, 0, len(keys))
	for _, key := range keys {
		date, err := time.Parse(poll.DateLayout, key)
		if err != nil {
			continue
		}
		acc := buckets[key]
		aggregates = append(aggregates, DailyAggregate{
			Date:  date,
			Mean:  acc.sum / float64(acc.count),
			Count: acc.count,
		})
	}

	return aggregates
}

// aggregatePoints converts daily aggregates to series points.
func aggregatePoints(aggregates []DailyAggregate) []Point {
	points := make([]Point, len(aggregates))
	for i, agg := range aggregates {
		points[i] = Point{Date: agg.Date, Value: agg.Mean}
	}
	return points
}

// pollsterSeries builds the per-pollster raw series for one metric: each
// selected pollster's own observations in date order, under that pollster's
// name. Pollsters appear in lexicographic order; a selected pollster with no
// observations contributes no series.
func pollsterSeries(dataset *poll.Dataset, selected map[string]struct{}, metric Metric) []Series {
	if dataset == nil || len(selected) == 0 {
		return nil
	}

	byPollster := make(map[string][]Point)
	for _, obs := range dataset.Observations() {
		if _, ok := selected[obs.Pollster]; !ok {
			continue
		}
		byPollster[obs.Pollster] = append(byPollster[obs.Pollster], Point{
			Date:  obs.Date,
			Value: metric.observationValue(obs),
		})
	}

	names := make([]string, 0, len(byPollster))
	for name := range byPollster {
		names = append(names, name)
	}
	sort.Strings(names)

	series := make([]Series, 0, len(names))
	for _, name := range names {
		points := byPollster[name]
		sort.SliceStable(points, func(i, j int) bool {
			return points[i].Date.Before(points[j].Date)
		})
		series = append(series, Series{
			Name:   name,
			Metric: metric,
			Role:   RoleIndividual,
			Points: points,
		})
	}

	return series
}
