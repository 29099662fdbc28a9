package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "pollpulse/internal/errors"
	customMiddleware "pollpulse/internal/middleware"
	"pollpulse/internal/selection"
	"pollpulse/internal/services"
	v1 "pollpulse/pkg/contracts/api/v1"
)

// maxPollsterNameLen bounds the pollster path parameter well above any
// real pollster name.
const maxPollsterNameLen = 120

// SelectionHandler manages the per-session pollster selection with RFC 7807
// compliance. Every route resolves the session before touching state, so two
// browser tabs with different cookies never see each other's selection.
type SelectionHandler struct {
	service      TrendServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewSelectionHandler creates a new selection handler with RFC 7807 error handling
func NewSelectionHandler(service TrendServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SelectionHandler {
	return &SelectionHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "selection_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the selection routes with proper Chi patterns
func (h *SelectionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// Use render for consistent JSON responses
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.GetSelection)

	// Bulk actions replace the whole selection rule
	r.Post("/select-all", h.SelectAll)
	r.Post("/deselect-all", h.DeselectAll)
	r.Post("/curated", h.ApplyCurated)

	// Per-pollster toggle
	r.Route("/pollsters/{pollster}", func(r chi.Router) {
		r.Use(h.PollsterCtx) // Validate pollster parameter
		r.Put("/", h.SetPollster)
	})

	return r
}

// PollsterCtx middleware validates the pollster parameter
func (h *SelectionHandler) PollsterCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := pollsterParam(r)
		if name == "" {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("pollster", "Pollster name is required"))
			return
		}
		if len(name) > maxPollsterNameLen {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("pollster", "Pollster name is too long"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// pollsterParam extracts the pollster name from the URL. PathUnescape keeps
// a literal "+" in names like "Ipsos+Reuters" intact.
func pollsterParam(r *http.Request) string {
	raw := chi.URLParam(r, "pollster")
	name, err := url.PathUnescape(raw)
	if err != nil {
		name = raw
	}
	return strings.TrimSpace(name)
}

// GetSelection handles GET /api/selection with RFC 7807 errors
func (h *SelectionHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	sessionID := customMiddleware.GetSessionID(r.Context())

	h.logger.InfoContext(r.Context(), "fetching selection",
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	view := h.service.Selection(r.Context(), sessionID)

	// Success response
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   selectionResponse(view),
	})
}

// SelectAll handles POST /api/selection/select-all
func (h *SelectionHandler) SelectAll(w http.ResponseWriter, r *http.Request) {
	h.bulkAction(w, r, "select_all", h.service.SelectAll)
}

// DeselectAll handles POST /api/selection/deselect-all
func (h *SelectionHandler) DeselectAll(w http.ResponseWriter, r *http.Request) {
	h.bulkAction(w, r, "deselect_all", h.service.DeselectAll)
}

// ApplyCurated handles POST /api/selection/curated
func (h *SelectionHandler) ApplyCurated(w http.ResponseWriter, r *http.Request) {
	h.bulkAction(w, r, "curated", h.service.ApplyCurated)
}

// bulkAction applies a whole-selection rule and renders the resulting view.
// Bulk rules discard earlier per-pollster toggles.
func (h *SelectionHandler) bulkAction(w http.ResponseWriter, r *http.Request, action string, apply func(context.Context, string) services.SelectionView) {
	reqID := middleware.GetReqID(r.Context())
	sessionID := customMiddleware.GetSessionID(r.Context())

	view := apply(r.Context(), sessionID)

	h.logger.InfoContext(r.Context(), "selection rule applied",
		slog.String("request_id", reqID),
		slog.String("action", action),
		slog.Int("selected", view.SelectedCount),
		slog.Int("known", view.KnownCount),
	)

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   selectionResponse(view),
	})
}

// SetPollster handles PUT /api/selection/pollsters/{pollster} with RFC 7807 errors
func (h *SelectionHandler) SetPollster(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	name := pollsterParam(r)

	var req v1.SetPollsterRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if req.Selected == nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("selected", "selected is required"))
		return
	}

	sessionID := customMiddleware.GetSessionID(r.Context())

	view, err := h.service.SetPollster(r.Context(), sessionID, name, *req.Selected)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to set pollster",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
			slog.String("pollster", name),
		)

		if errors.Is(err, selection.ErrUnknownPollster) {
			h.errorHandler.HandleError(w, r, apierrors.UnknownPollsterError(name))
			return
		}

		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "pollster toggled",
		slog.String("request_id", reqID),
		slog.String("pollster", name),
		slog.Bool("selected", *req.Selected),
	)

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   selectionResponse(view),
	})
}

// ListPollsters handles GET /api/pollsters. It reads the same per-session
// view as GET /api/selection but returns only the pollster list.
func (h *SelectionHandler) ListPollsters(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	sessionID := customMiddleware.GetSessionID(r.Context())

	h.logger.InfoContext(r.Context(), "fetching pollsters",
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	view := h.service.Selection(r.Context(), sessionID)

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   pollsterList(view),
		"count":  view.KnownCount,
	})
}
