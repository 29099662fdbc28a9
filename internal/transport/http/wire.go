package http

import (
	"time"

	"pollpulse/internal/poll"
	"pollpulse/internal/revision"
	"pollpulse/internal/services"
	"pollpulse/internal/trend"
	v1 "pollpulse/pkg/contracts/api/v1"
)

// Conversions from internal types to the v1 wire contracts. Series dates go
// out as YYYY-MM-DD calendar days, timestamps as RFC 3339.

func seriesSetResponse(set *trend.SeriesSet) v1.SeriesSetResponse {
	out := v1.SeriesSetResponse{
		Series:   make([]v1.SeriesResponse, 0, len(set.Series)),
		Headline: headlineResponse(set.Headline),
		Span:     set.Span,
	}
	for _, s := range set.Series {
		sr := v1.SeriesResponse{
			Name:   s.Name,
			Metric: string(s.Metric),
			Role:   string(s.Role),
			Points: make([]v1.PointResponse, 0, len(s.Points)),
		}
		for _, p := range s.Points {
			sr.Points = append(sr.Points, v1.PointResponse{
				Date:  p.Date.Format(poll.DateLayout),
				Value: p.Value,
			})
		}
		out.Series = append(out.Series, sr)
	}
	return out
}

func headlineResponse(h trend.Headline) v1.HeadlineResponse {
	return v1.HeadlineResponse{
		Approve:    headlineValueResponse(h.Approve),
		Disapprove: headlineValueResponse(h.Disapprove),
	}
}

func headlineValueResponse(v *trend.HeadlineValue) *v1.HeadlineValueResponse {
	if v == nil {
		return nil
	}
	return &v1.HeadlineValueResponse{
		Date:  v.Date.Format(poll.DateLayout),
		Value: v.Value,
	}
}

func selectionResponse(view services.SelectionView) v1.SelectionResponse {
	return v1.SelectionResponse{
		Pollsters:     pollsterList(view),
		Rule:          string(view.Rule),
		State:         string(view.State),
		SelectedCount: view.SelectedCount,
		KnownCount:    view.KnownCount,
	}
}

func pollsterList(view services.SelectionView) []v1.PollsterResponse {
	out := make([]v1.PollsterResponse, 0, len(view.Entries))
	for _, e := range view.Entries {
		out = append(out, v1.PollsterResponse{Name: e.Name, Selected: e.Selected})
	}
	return out
}

func reloadResponse(summary *services.ReloadSummary) v1.ReloadResponse {
	return v1.ReloadResponse{
		Rows:      summary.Rows,
		Skipped:   summary.Skipped,
		Pollsters: summary.Pollsters,
		LoadedAt:  summary.LoadedAt.Format(time.RFC3339),
	}
}

func datasetStatusResponse(st services.DatasetStatus) v1.DatasetStatusResponse {
	out := v1.DatasetStatusResponse{
		Loaded:    st.Loaded,
		Rows:      st.Rows,
		Pollsters: st.Pollsters,
		DataFile:  st.DataFile,
	}
	if st.Loaded {
		out.LoadedAt = st.LoadedAt.Format(time.RFC3339)
	}
	return out
}

// lastUpdatedResponse keeps the contract that a failed or disabled lookup
// reads "unknown" rather than erroring.
func lastUpdatedResponse(res revision.Result) v1.LastUpdatedResponse {
	out := v1.LastUpdatedResponse{
		LastUpdated: "unknown",
		CheckedAt:   res.CheckedAt.Format(time.RFC3339),
	}
	if res.Known {
		out.LastUpdated = res.CommitDate.Format(time.RFC3339)
		out.SHA = res.SHA
	}
	return out
}
