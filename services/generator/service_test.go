package generator

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
	"github.com/notkisk/AIAgentBuilder-sub000/services/workflow"
)

func setupRouter(t *testing.T, gen Generator) (*mux.Router, *store.Memory) {
	t.Helper()
	repo := store.NewMemory()
	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()
	workflow.NewService(repo).LoadRoutes(api)
	NewService(gen, repo).LoadRoutes(api)
	return router, repo
}

func post(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleGenerate(t *testing.T) {
	router, repo := setupRouter(t, NewChain(nil, NewTemplateGenerator()))

	w := post(router, "/api/v1/generate", `{"prompt":"post https://go.dev news to slack"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, SourceTemplate, resp.Source)
	assert.Equal(t, "Slack Digest", resp.Name)
	assert.Len(t, resp.Nodes.Nodes, 3)

	wfs, err := repo.ListWorkflows(context.Background())
	require.NoError(t, err)
	assert.Empty(t, wfs, "standalone generation stores nothing")
}

func TestHandleGenerate_Modify(t *testing.T) {
	router, _ := setupRouter(t, NewChain(nil, NewTemplateGenerator()))

	existing, err := json.Marshal(workflow.SampleNodes())
	require.NoError(t, err)
	w := post(router, "/api/v1/generate", `{"prompt":"remove the email step","existingNodes":`+string(existing)+`}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Len(t, resp.Nodes.Nodes, 2)
}

func TestHandleGenerate_MissingPrompt(t *testing.T) {
	router, _ := setupRouter(t, NewChain(nil, NewTemplateGenerator()))

	w := post(router, "/api/v1/generate", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(router, "/api/v1/generate", `nope`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGenerateWorkflow_Stores(t *testing.T) {
	router, repo := setupRouter(t, NewChain(nil, NewTemplateGenerator()))

	w := post(router, "/api/v1/generate/workflow", `{"prompt":"tweet about https://go.dev"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var result WorkflowResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, "Social Post", result.Workflow.Name)
	assert.Equal(t, "tweet about https://go.dev", result.Workflow.Prompt)
	assert.Equal(t, SourceTemplate, result.Generation.Source)

	wf, err := repo.GetWorkflow(context.Background(), result.Workflow.ID)
	require.NoError(t, err)
	nodes, err := workflow.Nodes(wf)
	require.NoError(t, err)
	assert.Equal(t, result.Generation.Nodes.Nodes, nodes)
}

func TestHandleGenerateWorkflow_NameOverride(t *testing.T) {
	router, _ := setupRouter(t, NewChain(nil, NewTemplateGenerator()))

	w := post(router, "/api/v1/generate/workflow", `{"prompt":"tweet","name":"Mine","description":"custom"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var result WorkflowResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, "Mine", result.Workflow.Name)
	assert.Equal(t, "custom", result.Workflow.Description)
}

func TestHandleModifyWorkflow(t *testing.T) {
	router, repo := setupRouter(t, NewChain(nil, NewTemplateGenerator()))
	require.NoError(t, workflow.Seed(context.Background(), repo))

	w := post(router, "/api/v1/workflows/1/generate", `{"prompt":"add a slack message"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result WorkflowResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	nodes, err := workflow.Nodes(result.Workflow)
	require.NoError(t, err)
	require.Len(t, nodes, 4)
	assert.Equal(t, "slack", nodes[3].Tool)

	// the workflow routes still resolve next to the generator route
	req := httptest.NewRequest("GET", "/api/v1/workflows/1/graph", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	w = post(router, "/api/v1/workflows/9/generate", `{"prompt":"add a slack message"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGenerate_UnparsableIs422(t *testing.T) {
	router, _ := setupRouter(t, &stubGenerator{err: ErrUnparsable})

	w := post(router, "/api/v1/generate", `{"prompt":"x"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
