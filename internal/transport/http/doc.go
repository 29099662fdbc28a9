// Package http implements the HTTP request handlers for the Poll Pulse
// dashboard. It provides a thin layer between HTTP transport and the trend
// service, following the clean architecture principle of keeping handlers
// focused solely on HTTP concerns.
//
// # Architecture Principles
//
// Handlers in this package follow these principles:
//
//	1. Thin handlers - minimal logic, delegate to services
//	2. HTTP-only concerns - request parsing, response formatting
//	3. Error transformation - convert service errors to HTTP responses
//	4. No business logic - aggregation, smoothing and selection live in
//	   internal/trend, internal/selection and internal/services
//	5. Consistent patterns - standardized request/response handling
//
// # Request Flow
//
// A typical request flows through these layers:
//
//	HTTP Request → Chi Router → Middleware → Handler → TrendService → Dataset
//	                                              ↓
//	HTTP Response ← Handler ← Composed Series ←──┘
//
// The session middleware runs before every handler, so each request carries
// a dashboard session ID; handlers pass it through to the service, which
// resolves the session's own pollster selection. Selections are never shared
// across sessions.
//
// # Handler Structure
//
// Each handler follows this pattern:
//
//	func (h *Handler) HandleSomething(w http.ResponseWriter, r *http.Request) {
//	    // 1. Validate query parameters / request body
//	    span, ok := h.validator.ValidateSpan(w, r, h.service.DefaultSpan())
//	    if !ok {
//	        return // problem already written
//	    }
//
//	    // 2. Call service layer
//	    result, err := h.service.DoSomething(r.Context(), sessionID, span)
//	    if err != nil {
//	        h.errorHandler.HandleError(w, r, err)
//	        return
//	    }
//
//	    // 3. Format and send response
//	    render.JSON(w, r, map[string]interface{}{"status": "success", "data": result})
//	}
//
// # Error Handling
//
// All errors go out as RFC 7807 Problem Details:
//
//	{
//	    "type": "/errors/trend/span-out-of-range",
//	    "title": "Span Out Of Range",
//	    "status": 400,
//	    "detail": "smoothing span out of range: 21 not in [2, 20]",
//	    "error_code": "SPAN_OUT_OF_RANGE"
//	}
//
// An out-of-range span is rejected at the edge and again in the service; it
// is never clamped. Unknown pollsters answer 404, a schema-broken data file
// 422, and a dataset that has not loaded yet 503.
//
// # Middleware Integration
//
// Handlers work with these middleware:
//
//	- RequestID: Adds unique request ID for tracing
//	- Session: Assigns the dashboard session cookie handlers read via
//	  GetSessionID
//	- Logger: Structured logging with slog
//	- Recovery: Handles panics gracefully
//	- CORS: Configures cross-origin requests
//
// # Testing
//
// Handlers are tested using httptest against a real TrendService loaded from
// fixture CSVs: the service holds everything in memory, so tests exercise
// the full validation, composition and error-mapping path without mocks.
package http
