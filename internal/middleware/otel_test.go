package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"

	"pollpulse/internal/infrastructure"
	"pollpulse/internal/shared/testutil"
)

func newTestBusinessMetrics(t *testing.T) *infrastructure.BusinessMetrics {
	t.Helper()
	metrics, err := infrastructure.CreateBusinessMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	return metrics
}

func TestNewOTelMiddleware(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	providers := &infrastructure.OTelProviders{
		Tracer: otel.Tracer("test"),
		Meter:  noop.NewMeterProvider().Meter("test"),
		Logger: logger,
	}

	m, err := NewOTelMiddleware(providers)
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestOTelMiddleware_Handler(t *testing.T) {
	logger, logHandler := testutil.NewTestLogger(t)
	providers := &infrastructure.OTelProviders{
		Tracer: otel.Tracer("test"),
		Meter:  noop.NewMeterProvider().Meter("test"),
		Logger: logger,
	}
	m, err := NewOTelMiddleware(providers)
	require.NoError(t, err)

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/trend/headline", nil)
	r.Header.Set("User-Agent", "dashboard/1.0")
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, logHandler.ContainsMessage("HTTP request completed"))
	assert.True(t, logHandler.ContainsAttr("status_code", int64(http.StatusNoContent)))
	assert.True(t, logHandler.ContainsAttr("method", "GET"))
	assert.True(t, logHandler.ContainsAttr("user_agent", "dashboard/1.0"))
}

func TestResponseWriter(t *testing.T) {
	rw := &responseWriter{
		ResponseWriter: httptest.NewRecorder(),
		statusCode:     http.StatusOK,
	}

	rw.WriteHeader(http.StatusNotFound)
	_, err := rw.Write([]byte("abc"))
	require.NoError(t, err)
	_, err = rw.Write([]byte("de"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, rw.statusCode)
	assert.Equal(t, int64(5), rw.bytesWritten)
}

func TestGetRoutePattern(t *testing.T) {
	t.Run("falls back to URL path without router", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		assert.Equal(t, "/api/health", getRoutePattern(r))
	})

	t.Run("reports chi route pattern", func(t *testing.T) {
		var pattern string
		router := chi.NewRouter()
		router.Put("/api/selection/pollsters/{pollster}", func(w http.ResponseWriter, r *http.Request) {
			pattern = getRoutePattern(r)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/selection/pollsters/Alpha%20Research", nil))

		assert.Equal(t, "/api/selection/pollsters/{pollster}", pattern)
	})
}

func TestTraceMiddleware(t *testing.T) {
	called := false
	handler := TraceMiddleware("trend.series")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/trend/series", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebSocketTraceMiddleware(t *testing.T) {
	logger, logHandler := testutil.NewTestLogger(t)

	called := false
	handler := WebSocketTraceMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	handler.ServeHTTP(w, r)

	assert.True(t, called)
	assert.True(t, logHandler.ContainsMessage("WebSocket upgrade attempt"))
	assert.True(t, logHandler.ContainsAttr("origin", "http://localhost:3000"))
}

func TestBusinessMetricsMiddleware(t *testing.T) {
	metrics := newTestBusinessMetrics(t)

	var got *infrastructure.BusinessMetrics
	handler := BusinessMetricsMiddleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetBusinessMetricsFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/trend/export.csv", nil))

	assert.Same(t, metrics, got)
}

func TestGetBusinessMetricsFromContext_Missing(t *testing.T) {
	assert.Nil(t, GetBusinessMetricsFromContext(context.Background()))
}

func TestTraceHandler(t *testing.T) {
	called := false
	handler := TraceHandler("dataset.reload", func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/dataset/reload", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecordExportDownload(t *testing.T) {
	t.Run("without metrics in context", func(t *testing.T) {
		assert.NotPanics(t, func() {
			RecordExportDownload(context.Background(), "csv")
		})
	})

	t.Run("with metrics in context", func(t *testing.T) {
		metrics := newTestBusinessMetrics(t)
		ctx := context.WithValue(context.Background(), "business_metrics", metrics)

		assert.NotPanics(t, func() {
			RecordExportDownload(ctx, "csv")
		})
	})
}

func TestRecordSystemError(t *testing.T) {
	t.Run("without metrics in context", func(t *testing.T) {
		assert.NotPanics(t, func() {
			RecordSystemError(context.Background(), "dataset_load", "trend_service")
		})
	})

	t.Run("with metrics in context", func(t *testing.T) {
		metrics := newTestBusinessMetrics(t)
		ctx := context.WithValue(context.Background(), "business_metrics", metrics)

		assert.NotPanics(t, func() {
			RecordSystemError(ctx, "dataset_load", "trend_service")
		})
	})
}

func TestGetRealIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name:    "X-Forwarded-For wins",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7", "X-Real-IP": "10.0.0.1"},
			want:    "203.0.113.7",
		},
		{
			name:    "X-Real-IP second",
			headers: map[string]string{"X-Real-IP": "10.0.0.1"},
			want:    "10.0.0.1",
		},
		{
			name:    "falls back to RemoteAddr",
			headers: nil,
			want:    "192.0.2.1:1234",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetRealIP(r))
		})
	}
}
