package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	env := decodeEnvelope[HealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, "healthy", env.Data.Status)
	assert.Equal(t, "healthy", env.Data.Components["database"].Status)
	assert.Equal(t, "healthy", env.Data.Components["catalog"].Status)
}

func TestSchemaRoutes(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Get("/api/v1/types")
	require.Equal(t, http.StatusOK, resp.Code)
	types := decodeEnvelope[ListTypesResponse](t, resp.Body.Bytes())
	require.Len(t, types.Data.Types, 2)
	assert.Equal(t, "article", types.Data.Types[0].Name)
	assert.Equal(t, "book", types.Data.Types[1].Name)

	resp = ts.api.Get("/api/v1/types/article/fields")
	require.Equal(t, http.StatusOK, resp.Code)
	fields := decodeEnvelope[TypeFieldsResponse](t, resp.Body.Bytes())
	keys := make([]string, len(fields.Data.Fields))
	for i, f := range fields.Data.Fields {
		keys[i] = f.Key
	}
	assert.Equal(t, []string{"author", "title", "journal", "year", "doi"}, keys)
	assert.True(t, fields.Data.Fields[0].Required)
	assert.True(t, fields.Data.Fields[4].Additional)

	resp = ts.api.Get("/api/v1/types/thesis/fields")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
