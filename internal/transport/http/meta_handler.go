package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// MetaHandler serves dataset metadata lookups that must never fail a request.
type MetaHandler struct {
	service TrendServiceInterface
	logger  *slog.Logger
}

// NewMetaHandler creates a new metadata handler
func NewMetaHandler(service TrendServiceInterface, logger *slog.Logger) *MetaHandler {
	return &MetaHandler{
		service: service,
		logger:  logger.With(slog.String("component", "meta_handler")),
	}
}

// Routes returns the metadata routes with proper Chi patterns
func (h *MetaHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/last-updated", h.LastUpdated)

	return r
}

// LastUpdated handles GET /api/meta/last-updated. A failed or disabled
// upstream lookup answers 200 with "unknown" so the dashboard stays usable.
func (h *MetaHandler) LastUpdated(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	res := h.service.LastUpdated(r.Context())
	if !res.Known {
		h.logger.WarnContext(r.Context(), "source revision unknown",
			slog.String("request_id", reqID),
		)
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   lastUpdatedResponse(res),
	})
}
