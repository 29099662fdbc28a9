package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pollpulse/internal/config"
	apierrors "pollpulse/internal/errors"
	"pollpulse/internal/shared/testutil"
	v1 "pollpulse/pkg/contracts/api/v1"
)

func newDatasetHandler(t *testing.T, cfg *config.Config, load bool) *DatasetHandler {
	t.Helper()
	service := newTestService(t, cfg, load)
	logger, _ := testutil.NewTestLogger(t)
	return NewDatasetHandler(service, logger, apierrors.NewErrorHandler(logger, false))
}

func TestDatasetHandler_Reload(t *testing.T) {
	handler := newDatasetHandler(t, sampleConfig(t), false)

	req := httptest.NewRequest(http.MethodPost, "/reload", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string            `json:"status"`
		Data   v1.ReloadResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "success", body.Status)
	assert.Equal(t, 6, body.Data.Rows)
	assert.Equal(t, 0, body.Data.Skipped)
	assert.Equal(t, 2, body.Data.Pollsters)

	_, err := time.Parse(time.RFC3339, body.Data.LoadedAt)
	assert.NoError(t, err, "loaded_at should be RFC 3339")
}

func TestDatasetHandler_Reload_FileMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Polls.DataFile = filepath.Join(t.TempDir(), "missing.csv")
	handler := newDatasetHandler(t, cfg, false)

	req := httptest.NewRequest(http.MethodPost, "/reload", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not found")
}

func TestDatasetHandler_Reload_SchemaError(t *testing.T) {
	cfg := config.Default()
	cfg.Polls.DataFile = testutil.TempPollCSV(t, testutil.MalformedPollCSV("missing_approve_column"))
	handler := newDatasetHandler(t, cfg, false)

	req := httptest.NewRequest(http.MethodPost, "/reload", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "MISSING_COLUMNS")
	assert.Contains(t, rec.Body.String(), "approve")
}

func TestDatasetHandler_Status(t *testing.T) {
	t.Run("before load", func(t *testing.T) {
		handler := newDatasetHandler(t, sampleConfig(t), false)

		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		rec := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Data v1.DatasetStatusResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

		assert.False(t, body.Data.Loaded)
		assert.Equal(t, 0, body.Data.Rows)
		assert.Empty(t, body.Data.LoadedAt)
	})

	t.Run("after load", func(t *testing.T) {
		handler := newDatasetHandler(t, sampleConfig(t), true)

		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		rec := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Data v1.DatasetStatusResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

		assert.True(t, body.Data.Loaded)
		assert.Equal(t, 6, body.Data.Rows)
		assert.Equal(t, 2, body.Data.Pollsters)
		assert.NotEmpty(t, body.Data.DataFile)
		assert.NotEmpty(t, body.Data.LoadedAt)
	})
}
