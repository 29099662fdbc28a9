package api

// Response payloads. These are the `data` member of the standard
// `{status, data, …}` envelope. Dates inside series are calendar days in
// YYYY-MM-DD form; timestamps are RFC 3339.

// PointResponse is one dated value in a series.
type PointResponse struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// SeriesResponse is one named line of a composed set. Role is one of
// individual, raw_average or smoothed_average.
type SeriesResponse struct {
	Name   string          `json:"name"`
	Metric string          `json:"metric"`
	Role   string          `json:"role"`
	Points []PointResponse `json:"points"`
}

// HeadlineValueResponse is a single dated headline reading.
type HeadlineValueResponse struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// HeadlineResponse pairs the latest smoothed approval with its same-date
// disapproval companion. Either side is null when no such reading exists; a
// missing companion is never substituted from a nearby date.
type HeadlineResponse struct {
	Approve    *HeadlineValueResponse `json:"approve"`
	Disapprove *HeadlineValueResponse `json:"disapprove"`
}

// SeriesSetResponse is the full payload of the series endpoint.
type SeriesSetResponse struct {
	Series   []SeriesResponse `json:"series"`
	Headline HeadlineResponse `json:"headline"`
	Span     int              `json:"span"`
}

// PollsterResponse is one selectable pollster with its membership flag.
type PollsterResponse struct {
	Name     string `json:"name"`
	Selected bool   `json:"selected"`
}

// SelectionResponse is a session's selection snapshot: every known pollster
// in sorted order, the active bulk rule and the derived state.
type SelectionResponse struct {
	Pollsters     []PollsterResponse `json:"pollsters"`
	Rule          string             `json:"rule"`
	State         string             `json:"state"`
	SelectedCount int                `json:"selected_count"`
	KnownCount    int                `json:"known_count"`
}

// ReloadResponse reports what a dataset reload produced.
type ReloadResponse struct {
	Rows      int    `json:"rows"`
	Skipped   int    `json:"skipped"`
	Pollsters int    `json:"pollsters"`
	LoadedAt  string `json:"loaded_at"`
}

// DatasetStatusResponse describes the held dataset.
type DatasetStatusResponse struct {
	Loaded    bool   `json:"loaded"`
	Rows      int    `json:"rows"`
	Pollsters int    `json:"pollsters"`
	DataFile  string `json:"data_file"`
	LoadedAt  string `json:"loaded_at,omitempty"`
}

// LastUpdatedResponse reports when the poll data file last changed upstream.
// LastUpdated is "unknown" when the lookup is disabled or failed; SHA is only
// present alongside a known date.
type LastUpdatedResponse struct {
	LastUpdated string `json:"last_updated"`
	SHA         string `json:"sha,omitempty"`
	CheckedAt   string `json:"checked_at"`
}
