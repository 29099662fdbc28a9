package http

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"pollpulse/internal/chart"
	apierrors "pollpulse/internal/errors"
	customMiddleware "pollpulse/internal/middleware"
	"pollpulse/internal/services"
	"pollpulse/internal/trend"
)

// Metrics a caller may request per output. The CSV export is single-metric,
// so "both" is rejected there rather than silently narrowed.
var (
	seriesMetrics = []string{"approve", "disapprove", "both"}
	exportMetrics = []string{"approve", "disapprove"}
)

// TrendHandler serves composed trend series and their derived outputs
// (headline figures, chart renders, CSV exports) with RFC 7807 errors.
type TrendHandler struct {
	service      TrendServiceInterface
	validator    *customMiddleware.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewTrendHandler creates a new trend handler with RFC 7807 error handling
func NewTrendHandler(service TrendServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *TrendHandler {
	return &TrendHandler{
		service:      service,
		validator:    customMiddleware.NewQueryParamValidator(logger, errorHandler),
		logger:       logger.With(slog.String("component", "trend_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the trend routes with proper Chi patterns
func (h *TrendHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// Use render for consistent JSON responses
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/series", h.GetSeries)
	r.Get("/headline", h.GetHeadline)
	r.Get("/chart.png", h.GetChart)
	r.Get("/export.csv", h.ExportCSV)

	return r
}

// composeOptions validates the shared trend query parameters. On failure the
// validator has already written the problem response and the second return
// is false.
func (h *TrendHandler) composeOptions(w http.ResponseWriter, r *http.Request) (trend.ComposeOptions, bool) {
	span, ok := h.validator.ValidateSpan(w, r, h.service.DefaultSpan())
	if !ok {
		return trend.ComposeOptions{}, false
	}

	metric, ok := h.validator.ValidateEnum(w, r, "metric", seriesMetrics, "both")
	if !ok {
		return trend.ComposeOptions{}, false
	}

	rawAverage, ok := h.validator.ValidateBool(w, r, "raw_average", h.service.IncludeRawAverage())
	if !ok {
		return trend.ComposeOptions{}, false
	}

	opts := trend.ComposeOptions{
		Span:              span,
		IncludeRawAverage: rawAverage,
	}
	if metric != "both" {
		// Already constrained by the enum check above.
		opts.Metrics = []trend.Metric{trend.Metric(metric)}
	}
	return opts, true
}

// handleTrendError maps service errors to API errors before delegating to
// the RFC 7807 error handler.
func (h *TrendHandler) handleTrendError(w http.ResponseWriter, r *http.Request, err error, reqID, msg string) {
	h.logger.ErrorContext(r.Context(), msg,
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
	)

	switch {
	case errors.Is(err, services.ErrDatasetNotLoaded):
		h.errorHandler.HandleError(w, r, apierrors.ErrDatasetNotLoaded)
	case errors.Is(err, services.ErrNoDataFile):
		h.errorHandler.HandleError(w, r, apierrors.New(
			http.StatusServiceUnavailable,
			"NO_DATA_FILE",
			"No poll data file is configured",
		))
	case errors.Is(err, services.ErrUnsupportedMetric):
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("metric", "Metric is not supported for this output"))
	default:
		h.errorHandler.HandleError(w, r, err)
	}
}

// GetSeries handles GET /api/trend/series with RFC 7807 errors
func (h *TrendHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	opts, ok := h.composeOptions(w, r)
	if !ok {
		return
	}
	sessionID := customMiddleware.GetSessionID(r.Context())

	h.logger.InfoContext(r.Context(), "composing trend series",
		slog.String("request_id", reqID),
		slog.Int("span", opts.Span),
		slog.Int("metrics", len(opts.Metrics)),
		slog.Bool("raw_average", opts.IncludeRawAverage),
	)

	set, err := h.service.Compose(r.Context(), sessionID, opts)
	if err != nil {
		h.handleTrendError(w, r, err, reqID, "failed to compose trend series")
		return
	}

	// Success response
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   seriesSetResponse(set),
		"count":  len(set.Series),
	})
}

// GetHeadline handles GET /api/trend/headline with RFC 7807 errors
func (h *TrendHandler) GetHeadline(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	span, ok := h.validator.ValidateSpan(w, r, h.service.DefaultSpan())
	if !ok {
		return
	}
	sessionID := customMiddleware.GetSessionID(r.Context())

	h.logger.InfoContext(r.Context(), "computing headline",
		slog.String("request_id", reqID),
		slog.Int("span", span),
	)

	headline, err := h.service.Headline(r.Context(), sessionID, span)
	if err != nil {
		h.handleTrendError(w, r, err, reqID, "failed to compute headline")
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   headlineResponse(headline),
		"span":   span,
	})
}

// GetChart handles GET /api/trend/chart.png and streams a rendered PNG.
func (h *TrendHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	opts, ok := h.composeOptions(w, r)
	if !ok {
		return
	}
	width, ok := h.validator.ValidateInt(w, r, "width", chart.MinWidth, chart.MaxWidth, 0)
	if !ok {
		return
	}
	height, ok := h.validator.ValidateInt(w, r, "height", chart.MinHeight, chart.MaxHeight, 0)
	if !ok {
		return
	}
	sessionID := customMiddleware.GetSessionID(r.Context())

	h.logger.InfoContext(r.Context(), "rendering trend chart",
		slog.String("request_id", reqID),
		slog.Int("span", opts.Span),
		slog.Int("width", width),
		slog.Int("height", height),
	)

	// Render into a buffer so a failure can still answer with a problem
	// document instead of a torn image body.
	var buf bytes.Buffer
	err := h.service.RenderChart(r.Context(), sessionID, &buf, opts, chart.Options{
		Title:  "Poll Pulse",
		Width:  width,
		Height: height,
	})
	if err != nil {
		h.handleTrendError(w, r, err, reqID, "failed to render trend chart")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write chart response",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
	}
}

// ExportCSV handles GET /api/trend/export.csv and streams the trend report
// as a UTF-8 CSV download.
func (h *TrendHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	span, ok := h.validator.ValidateSpan(w, r, h.service.DefaultSpan())
	if !ok {
		return
	}
	metric, ok := h.validator.ValidateEnum(w, r, "metric", exportMetrics, string(trend.MetricApprove))
	if !ok {
		return
	}
	sessionID := customMiddleware.GetSessionID(r.Context())

	var buf bytes.Buffer
	if err := h.service.ExportTrend(r.Context(), sessionID, &buf, span, trend.Metric(metric)); err != nil {
		h.handleTrendError(w, r, err, reqID, "failed to export trend")
		return
	}

	customMiddleware.RecordExportDownload(r.Context(), "csv")

	filename := fmt.Sprintf("trend_%s_span%d.csv", metric, span)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))

	h.logger.InfoContext(r.Context(), "trend export downloaded",
		slog.String("request_id", reqID),
		slog.String("metric", metric),
		slog.Int("span", span),
		slog.Int("bytes", buf.Len()),
	)

	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write export response",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
	}
}
