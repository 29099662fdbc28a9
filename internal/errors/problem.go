package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"pollpulse/internal/poll"
	"pollpulse/internal/selection"
	"pollpulse/internal/trend"
)

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Additional fields for extensibility
	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON custom marshaler to include extensions
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{})

	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status

	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}

	for k, v := range pd.Extensions {
		data[k] = v
	}

	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// MapTrendError maps trend pipeline and selection errors to HTTP problem details
func MapTrendError(err error, traceID string) render.Renderer {
	instance := fmt.Sprintf("/api/trend#trace-%s", traceID)

	var configErr *poll.ConfigurationError
	if errors.As(err, &configErr) {
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeDataSchema,
			"Data File Schema Invalid",
			configErr.Error(),
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "MISSING_COLUMNS").
			WithExtension("missing_columns", configErr.Missing)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		problem := NewProblemDetails(
			apiErr.StatusCode,
			TypeInternal,
			http.StatusText(apiErr.StatusCode),
			apiErr.Message,
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", apiErr.ErrorCode)
		if apiErr.Details != nil {
			problem.WithExtension("details", apiErr.Details)
		}
		return problem
	}

	switch {
	case errors.Is(err, trend.ErrSpanOutOfRange):
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeSpanOutOfRange,
			"Span Out Of Range",
			err.Error(),
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "SPAN_OUT_OF_RANGE").
			WithExtension("min_span", trend.MinSpan).
			WithExtension("max_span", trend.MaxSpan)

	case errors.Is(err, selection.ErrUnknownPollster):
		return NewProblemDetails(
			http.StatusNotFound,
			TypeUnknownPollster,
			"Unknown Pollster",
			err.Error(),
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "UNKNOWN_POLLSTER")

	default:
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeInternal,
			"Internal Server Error",
			"An unexpected error occurred while processing your request.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INTERNAL_ERROR")
	}
}
