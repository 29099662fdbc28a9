package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "pollpulse/internal/errors"
	"pollpulse/internal/services"
)

// DatasetHandler manages the poll dataset lifecycle with RFC 7807 compliance
type DatasetHandler struct {
	service      TrendServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDatasetHandler creates a new dataset handler with RFC 7807 error handling
func NewDatasetHandler(service TrendServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DatasetHandler {
	return &DatasetHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "dataset_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dataset routes with proper Chi patterns
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// Use render for consistent JSON responses
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/reload", h.Reload)
	r.Get("/status", h.Status)

	return r
}

// Reload handles POST /api/dataset/reload with RFC 7807 errors
func (h *DatasetHandler) Reload(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "reloading dataset",
		slog.String("request_id", reqID),
	)

	summary, err := h.service.Reload(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to reload dataset",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)

		if errors.Is(err, services.ErrNoDataFile) {
			h.errorHandler.HandleError(w, r, apierrors.New(
				http.StatusServiceUnavailable,
				"NO_DATA_FILE",
				"No poll data file is configured",
			))
			return
		}

		// Schema and missing-file failures carry their own mapping.
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "dataset reloaded",
		slog.String("request_id", reqID),
		slog.Int("rows", summary.Rows),
		slog.Int("skipped", summary.Skipped),
		slog.Int("pollsters", summary.Pollsters),
	)

	// Success response
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   reloadResponse(summary),
	})
}

// Status handles GET /api/dataset/status
func (h *DatasetHandler) Status(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "fetching dataset status",
		slog.String("request_id", reqID),
	)

	st := h.service.DatasetStatus()

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   datasetStatusResponse(st),
	})
}
