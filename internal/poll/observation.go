package poll

import (
	"sort"
	"time"
)

// Observation is a single published poll result: one pollster, one calendar
// day, one approve/disapprove pair. Values are percentage points in [0, 100].
// When the source data carries no disapprove column the value is derived as
// 100 - Approve at load time; downstream code never distinguishes derived
// values from provided ones.
type Observation struct {
	Pollster   string    `json:"pollster"`
	Date       time.Time `json:"date"`
	Approve    float64   `json:"approve"`
	Disapprove float64   `json:"disapprove"`
}

// DateKey returns the observation's calendar day as YYYY-MM-DD. Observations
// carry no time-of-day component; two polls published on the same day always
// share a key.
func (o Observation) DateKey() string {
	return o.Date.Format(DateLayout)
}

// DateLayout is the canonical wire and storage format for poll dates.
const DateLayout = "2006-01-02"

// Dataset is an immutable collection of observations produced by a Loader.
// Observations keep their file order; consumers that need date ordering sort
// for themselves (the aggregator does).
type Dataset struct {
	observations []Observation
	pollsters    []string
}

// NewDataset builds a dataset from parsed observations. The distinct pollster
// list is computed once, sorted lexicographically.
func NewDataset(observations []Observation) *Dataset {
	seen := make(map[string]struct{}, len(observations))
	var pollsters []string
	for _, obs := range observations {
		if _, ok := seen[obs.Pollster]; !ok {
			seen[obs.Pollster] = struct{}{}
			pollsters = append(pollsters, obs.Pollster)
		}
	}
	sort.Strings(pollsters)

	return &Dataset{
		observations: observations,
		pollsters:    pollsters,
	}
}

// Observations returns the underlying observation slice. Callers must treat
// it as read-only.
func (d *Dataset) Observations() []Observation {
	return d.observations
}

// Pollsters returns the distinct pollster names in lexicographic order.
// Callers must treat the slice as read-only.
func (d *Dataset) Pollsters() []string {
	return d.pollsters
}

// Len returns the number of observations.
func (d *Dataset) Len() int {
	return len(d.observations)
}

// DateRange returns the earliest and latest observation dates. ok is false
// for an empty dataset.
func (d *Dataset) DateRange() (first, last time.Time, ok bool) {
	if len(d.observations) == 0 {
		return time.Time{}, time.Time{}, false
	}
	first = d.observations[0].Date
	last = d.observations[0].Date
	for _, obs := range d.observations[1:] {
		if obs.Date.Before(first) {
			first = obs.Date
		}
		if obs.Date.After(last) {
			last = obs.Date
		}
	}
	return first, last, true
}
