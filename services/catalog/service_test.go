package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notkisk/AIAgentBuilder-sub000/services/store"
)

func setupRouter(t *testing.T) *mux.Router {
	t.Helper()
	mem := store.NewMemory()
	require.NoError(t, store.SeedTools(context.Background(), mem))

	router := mux.NewRouter()
	NewService(mem).LoadRoutes(router.PathPrefix("/api/v1").Subrouter())
	return router
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleList(t *testing.T) {
	router := setupRouter(t)

	w := do(router, "GET", "/api/v1/tools", "")
	require.Equal(t, http.StatusOK, w.Code)

	var tools []store.Tool
	require.NoError(t, json.NewDecoder(w.Body).Decode(&tools))
	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name
	}
	assert.Equal(t, []string{"chatgpt", "gmail", "googlesheets", "slack", "twitter", "webscraper"}, names)
}

func TestHandleGet(t *testing.T) {
	router := setupRouter(t)

	w := do(router, "GET", "/api/v1/tools/gmail", "")
	require.Equal(t, http.StatusOK, w.Code)
	var tool store.Tool
	require.NoError(t, json.NewDecoder(w.Body).Decode(&tool))
	assert.Equal(t, "email", tool.Type)
	assert.True(t, tool.Enabled)
	assert.NotEmpty(t, tool.Functions)

	w = do(router, "GET", "/api/v1/tools/fax", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleSetEnabled(t *testing.T) {
	router := setupRouter(t)

	w := do(router, "PUT", "/api/v1/tools/slack/enabled", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	var tool store.Tool
	require.NoError(t, json.NewDecoder(w.Body).Decode(&tool))
	assert.False(t, tool.Enabled)

	w = do(router, "PUT", "/api/v1/tools/slack/enabled", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, "PUT", "/api/v1/tools/fax/enabled", `{"enabled":true}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
