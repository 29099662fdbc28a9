package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pollpulse/internal/shared/testutil"
	v1 "pollpulse/pkg/contracts/api/v1"
)

func TestMetaHandler_LastUpdated_Unknown(t *testing.T) {
	// Revision lookups are disabled in the default config, so the answer is
	// the non-fatal "unknown" rather than an error.
	service := newTestService(t, sampleConfig(t), true)
	logger, _ := testutil.NewTestLogger(t)
	handler := NewMetaHandler(service, logger)

	req := httptest.NewRequest(http.MethodGet, "/last-updated", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string                 `json:"status"`
		Data   v1.LastUpdatedResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "success", body.Status)
	assert.Equal(t, "unknown", body.Data.LastUpdated)
	assert.Empty(t, body.Data.SHA)
	assert.NotEmpty(t, body.Data.CheckedAt)
}
