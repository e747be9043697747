package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermanshu/targ-site-sub000/internal/ratelimit"
)

func TestShared_PublicFolder(t *testing.T) {
	ts := setupTestServer(t)
	auth := ts.authHeader(t, "user-1")

	folder := createFolder(t, ts, auth, map[string]any{"name": "Cars", "description": "For Sunday"})
	for _, lid := range []string{"car-1", "gone-1"} {
		resp := ts.api.Post("/api/v1/favorites", auth, map[string]any{"listing_id": lid, "folder_id": folder.ID})
		require.Equal(t, http.StatusCreated, resp.Code)
	}

	// Private folders are not found.
	resp := ts.api.Get("/api/v1/shared/" + folder.ShareToken)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", decodeEnvelope(t, resp).Code)

	resp = ts.api.Post("/api/v1/folders/"+folder.ID+"/public/toggle", auth)
	require.Equal(t, http.StatusOK, resp.Code)

	// Visitors need no token.
	resp = ts.api.Get("/api/v1/shared/" + folder.ShareToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var shared SharedFolderResponse
	decodeData(t, resp, &shared)
	assert.Equal(t, "Cars", shared.Name)
	assert.Equal(t, "For Sunday", shared.Description)
	assert.Equal(t, []string{"car-1", "gone-1"}, shared.ListingIDs)
	require.Len(t, shared.Listings, 1)
	assert.Equal(t, "car-1", shared.Listings[0].ID)
	assert.NotContains(t, resp.Body.String(), "owner_id")
	assert.NotContains(t, resp.Body.String(), "share_token")

	resp = ts.api.Post("/api/v1/folders/"+folder.ID+"/public/toggle", auth)
	require.Equal(t, http.StatusOK, resp.Code)
	resp = ts.api.Get("/api/v1/shared/" + folder.ShareToken)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestShared_BadTokens(t *testing.T) {
	ts := setupTestServer(t)

	for _, token := range []string{"short", strings.Repeat("z", 32), strings.Repeat("a", 32)} {
		resp := ts.api.Get("/api/v1/shared/" + token)
		assert.Equal(t, http.StatusNotFound, resp.Code, token)
	}
}

func TestShared_ReadOnly(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/shared/" + strings.Repeat("a", 32))
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
	assert.Equal(t, "METHOD_NOT_ALLOWED", decodeEnvelope(t, resp).Code)
}

func TestShared_RateLimited(t *testing.T) {
	limiter := ratelimit.New(0.001, 2)
	t.Cleanup(limiter.Stop)
	ts := setupTestServer(t, withShareLimiter(limiter))

	path := "/api/v1/shared/" + strings.Repeat("a", 32)
	assert.Equal(t, http.StatusNotFound, ts.api.Get(path).Code)
	assert.Equal(t, http.StatusNotFound, ts.api.Get(path).Code)

	resp := ts.api.Get(path)
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	env := decodeEnvelope(t, resp)
	assert.False(t, env.Success)
	assert.Equal(t, "RATE_LIMITED", env.Code)

	// Owner routes are not limited.
	auth := ts.authHeader(t, "user-1")
	assert.Equal(t, http.StatusOK, ts.api.Get("/api/v1/folders", auth).Code)
}
