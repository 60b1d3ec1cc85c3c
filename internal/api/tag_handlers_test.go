package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTags_EmptyInitially(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Get("/api/v1/tags")
	require.Equal(t, http.StatusOK, resp.Code)

	env := decodeEnvelope[ListTagsResponse](t, resp.Body.Bytes())
	assert.True(t, env.Success)
	assert.NotNil(t, env.Data.Tags)
	assert.Empty(t, env.Data.Tags)
}

func TestCreateTag(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.login(t, "alice")

	assert.Equal(t, http.StatusUnauthorized, ts.api.Post("/api/v1/tags", map[string]any{"name": "nlp"}).Code)

	resp := ts.api.Post("/api/v1/tags", alice, map[string]any{"name": "  vision "})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	env := decodeEnvelope[TagResponse](t, resp.Body.Bytes())
	assert.Equal(t, "vision", env.Data.Name)

	resp = ts.api.Post("/api/v1/tags", alice, map[string]any{"name": "vision"})
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = ts.api.Post("/api/v1/tags", alice, map[string]any{"name": "nlp"})
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = ts.api.Get("/api/v1/tags")
	list := decodeEnvelope[ListTagsResponse](t, resp.Body.Bytes())
	require.Len(t, list.Data.Tags, 2)
	assert.Equal(t, "nlp", list.Data.Tags[0].Name)
	assert.Equal(t, "vision", list.Data.Tags[1].Name)
}
