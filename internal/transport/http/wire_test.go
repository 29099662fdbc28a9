package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pollpulse/internal/revision"
	"pollpulse/internal/services"
	"pollpulse/internal/trend"
)

func TestLastUpdatedResponse(t *testing.T) {
	checked := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("known revision", func(t *testing.T) {
		out := lastUpdatedResponse(revision.Result{
			CommitDate: time.Date(2024, 4, 30, 9, 30, 0, 0, time.UTC),
			SHA:        "abc1234",
			Known:      true,
			CheckedAt:  checked,
		})

		assert.Equal(t, "2024-04-30T09:30:00Z", out.LastUpdated)
		assert.Equal(t, "abc1234", out.SHA)
		assert.Equal(t, "2024-05-01T12:00:00Z", out.CheckedAt)
	})

	t.Run("unknown revision", func(t *testing.T) {
		out := lastUpdatedResponse(revision.Result{Known: false, CheckedAt: checked})

		assert.Equal(t, "unknown", out.LastUpdated)
		assert.Empty(t, out.SHA)
		assert.Equal(t, "2024-05-01T12:00:00Z", out.CheckedAt)
	})
}

func TestHeadlineValueResponse(t *testing.T) {
	assert.Nil(t, headlineValueResponse(nil), "a missing headline side stays null on the wire")

	out := headlineValueResponse(&trend.HeadlineValue{
		Date:  time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		Value: 47.75,
	})
	require.NotNil(t, out)
	assert.Equal(t, "2024-01-03", out.Date)
	assert.Equal(t, 47.75, out.Value)
}

func TestDatasetStatusResponse_OmitsLoadedAtUntilLoaded(t *testing.T) {
	out := datasetStatusResponse(services.DatasetStatus{DataFile: "polls.csv"})

	assert.False(t, out.Loaded)
	assert.Equal(t, "polls.csv", out.DataFile)
	assert.Empty(t, out.LoadedAt)
}
