package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAIPanelSetting(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/settings/ai-panel")
	requireStatus(t, http.StatusOK, resp)
	assert.False(t, decodeEnvelope[AIPanelBody](t, resp).Data.Open)

	resp = ts.api.Put("/api/v1/settings/ai-panel", map[string]any{"open": true})
	requireStatus(t, http.StatusOK, resp)
	assert.True(t, decodeEnvelope[AIPanelBody](t, resp).Data.Open)

	resp = ts.api.Get("/api/v1/settings/ai-panel")
	assert.True(t, decodeEnvelope[AIPanelBody](t, resp).Data.Open)
}

func TestAIPanelSetting_StorageFailureReadsClosed(t *testing.T) {
	ts := setupTestServer(t)
	require.NoError(t, ts.backend.Close())

	resp := ts.api.Get("/api/v1/settings/ai-panel")
	requireStatus(t, http.StatusOK, resp)
	assert.False(t, decodeEnvelope[AIPanelBody](t, resp).Data.Open)
}
