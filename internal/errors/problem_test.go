package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pollpulse/internal/poll"
	"pollpulse/internal/selection"
	"pollpulse/internal/trend"
)

func TestProblemDetails_MarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		problem  *ProblemDetails
		wantKeys []string
		skipKeys []string
	}{
		{
			name: "marshal basic problem",
			problem: NewProblemDetails(
				http.StatusBadRequest,
				TypeValidation,
				"Bad Request",
				"span must be an integer",
				"/api/trend",
			),
			wantKeys: []string{"type", "title", "status", "detail", "instance"},
		},
		{
			name: "marshal without detail and instance",
			problem: NewProblemDetails(
				http.StatusInternalServerError,
				TypeInternal,
				"Internal Server Error",
				"",
				"",
			),
			wantKeys: []string{"type", "title", "status"},
			skipKeys: []string{"detail", "instance"},
		},
		{
			name: "marshal with extensions",
			problem: NewProblemDetails(
				http.StatusBadRequest,
				TypeSpanOutOfRange,
				"Span Out Of Range",
				"span 99 rejected",
				"/api/trend",
			).WithExtension("min_span", 2).WithExtension("max_span", 20),
			wantKeys: []string{"type", "title", "status", "min_span", "max_span"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.problem)
			require.NoError(t, err)

			var decoded map[string]interface{}
			require.NoError(t, json.Unmarshal(data, &decoded))

			for _, key := range tt.wantKeys {
				assert.Contains(t, decoded, key)
			}
			for _, key := range tt.skipKeys {
				assert.NotContains(t, decoded, key)
			}

			assert.Equal(t, tt.problem.Type, decoded["type"])
			assert.Equal(t, tt.problem.Title, decoded["title"])
			assert.Equal(t, float64(tt.problem.Status), decoded["status"])
		})
	}
}

func TestProblemDetails_WithExtension(t *testing.T) {
	problem := NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found", "gone", "/x")

	result := problem.
		WithExtension("trace_id", "abc-123").
		WithExtension("retry_after", 60)

	// Chaining returns the same instance
	assert.Same(t, problem, result)
	assert.Equal(t, "abc-123", problem.Extensions["trace_id"])
	assert.Equal(t, 60, problem.Extensions["retry_after"])
}

func TestMapTrendError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantStatus   int
		wantType     string
		wantCode     string
		checkExtra   func(t *testing.T, problem *ProblemDetails)
	}{
		{
			name: "configuration error maps to data schema problem",
			err: fmt.Errorf("load: %w", &poll.ConfigurationError{
				Missing: []string{"Approve"},
				Header:  []string{"pollster", "date"},
			}),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeDataSchema,
			wantCode:   "MISSING_COLUMNS",
			checkExtra: func(t *testing.T, problem *ProblemDetails) {
				assert.Equal(t, []string{"Approve"}, problem.Extensions["missing_columns"])
			},
		},
		{
			name:       "span sentinel maps to 400 with range extensions",
			err:        fmt.Errorf("compose: %w", trend.ErrSpanOutOfRange),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeSpanOutOfRange,
			wantCode:   "SPAN_OUT_OF_RANGE",
			checkExtra: func(t *testing.T, problem *ProblemDetails) {
				assert.Equal(t, trend.MinSpan, problem.Extensions["min_span"])
				assert.Equal(t, trend.MaxSpan, problem.Extensions["max_span"])
			},
		},
		{
			name:       "unknown pollster sentinel maps to 404",
			err:        fmt.Errorf("toggle: %w", selection.ErrUnknownPollster),
			wantStatus: http.StatusNotFound,
			wantType:   TypeUnknownPollster,
			wantCode:   "UNKNOWN_POLLSTER",
		},
		{
			name:       "api error passes through status and code",
			err:        UnknownPollsterError("Gamma Insights"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeInternal,
			wantCode:   "UNKNOWN_POLLSTER",
			checkExtra: func(t *testing.T, problem *ProblemDetails) {
				assert.Equal(t, "Gamma Insights", problem.Extensions["details"])
			},
		},
		{
			name:       "unrecognized error maps to 500",
			err:        fmt.Errorf("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			renderer := MapTrendError(tt.err, "trace-42")

			problem, ok := renderer.(*ProblemDetails)
			require.True(t, ok, "MapTrendError should return *ProblemDetails")

			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, tt.wantCode, problem.Extensions["error_code"])
			assert.Equal(t, "trace-42", problem.Extensions["trace_id"])
			assert.Contains(t, problem.Instance, "trace-42")

			if tt.checkExtra != nil {
				tt.checkExtra(t, problem)
			}
		})
	}
}

func TestMapTrendError_ConfigurationErrorBeatsSentinels(t *testing.T) {
	// A wrapped ConfigurationError must map to the schema problem even when
	// other sentinel text appears in the chain.
	err := fmt.Errorf("pipeline: %w", &poll.ConfigurationError{Missing: []string{"date"}})

	renderer := MapTrendError(err, "t")
	problem := renderer.(*ProblemDetails)

	assert.Equal(t, http.StatusUnprocessableEntity, problem.Status)
	assert.Equal(t, TypeDataSchema, problem.Type)
}
