package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/notkisk/AIAgentBuilder-sub000/pkg/web"
	"github.com/notkisk/AIAgentBuilder-sub000/services/store"
)

// Service exposes workflow CRUD and the node editor over HTTP.
type Service struct {
	repo store.WorkflowRepo
}

// NewService creates a Service on top of the given workflow repository.
func NewService(repo store.WorkflowRepo) *Service {
	return &Service{repo: repo}
}

// LoadRoutes registers workflow HTTP handlers on the given router.
func (s *Service) LoadRoutes(parentRouter *mux.Router) {
	parentRouter.Handle("/graph", web.JSONMiddleware(
		http.HandlerFunc(s.HandleLayout))).Methods("POST")

	router := parentRouter.PathPrefix("/workflows").Subrouter()
	router.StrictSlash(false)
	router.Use(web.JSONMiddleware)

	router.HandleFunc("", s.HandleListWorkflows).Methods("GET")
	router.HandleFunc("", s.HandleCreateWorkflow).Methods("POST")
	router.HandleFunc("/{id:[0-9]+}", s.HandleGetWorkflow).Methods("GET")
	router.HandleFunc("/{id:[0-9]+}", s.HandleUpdateWorkflow).Methods("PUT")
	router.HandleFunc("/{id:[0-9]+}", s.HandleDeleteWorkflow).Methods("DELETE")
	router.HandleFunc("/{id:[0-9]+}/graph", s.HandleGetGraph).Methods("GET")
	router.HandleFunc("/{id:[0-9]+}/nodes", s.HandleAddNode).Methods("POST")
	router.HandleFunc("/{id:[0-9]+}/nodes/{nodeId}", s.HandleReconfigureNode).Methods("PUT")
	router.HandleFunc("/{id:[0-9]+}/nodes/{nodeId}", s.HandleDeleteNode).Methods("DELETE")
	router.HandleFunc("/{id:[0-9]+}/connections", s.HandleConnectNodes).Methods("POST")
	router.HandleFunc("/{id:[0-9]+}/connections/{nodeId}", s.HandleDisconnectNode).Methods("DELETE")
}

// Nodes decodes the node list stored on a workflow.
func Nodes(wf *store.Workflow) ([]Node, error) {
	return DecodeEnvelope(wf.Nodes)
}

// load fetches a workflow together with its decoded node list.
func (s *Service) load(ctx context.Context, id int64) (*store.Workflow, []Node, error) {
	wf, err := s.repo.GetWorkflow(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	nodes, err := Nodes(wf)
	if err != nil {
		return nil, nil, fmt.Errorf("workflow %d: %w", id, err)
	}
	return wf, nodes, nil
}

// save replaces the stored node list of a workflow.
func (s *Service) save(ctx context.Context, id int64, nodes []Node) (*store.Workflow, error) {
	raw, err := EncodeEnvelope(nodes)
	if err != nil {
		return nil, err
	}
	return s.repo.UpdateWorkflow(ctx, id, store.WorkflowUpdate{Nodes: raw})
}

// Seed stores the sample workflow when the repository is empty.
func Seed(ctx context.Context, repo store.WorkflowRepo) error {
	existing, err := repo.ListWorkflows(ctx)
	if err != nil {
		return fmt.Errorf("list workflows: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	raw, err := EncodeEnvelope(SampleNodes())
	if err != nil {
		return err
	}
	_, err = repo.CreateWorkflow(ctx, store.Workflow{
		Name:        "Daily News Digest",
		Description: "Scrape a page, summarize it and email the summary",
		Prompt:      "Summarize https://news.ycombinator.com every morning and email it to me",
		Nodes:       json.RawMessage(raw),
		Status:      store.StatusInactive,
	})
	if err != nil {
		return fmt.Errorf("seed workflow: %w", err)
	}
	return nil
}

// SampleNodes is the three-step scrape, summarize and email chain.
func SampleNodes() []Node {
	return []Node{
		{
			ID: "1", Tool: "webscraper", Function: "fetchPage",
			Params: Params{"url": String("https://news.ycombinator.com")},
			Next:   "2",
		},
		{
			ID: "2", Tool: "chatgpt", Function: "summarizeText",
			Params: Params{"text": OutputOf("1"), "maxLength": Number(200)},
			Next:   "3",
		},
		{
			ID: "3", Tool: "gmail", Function: "sendEmail",
			Params: Params{
				"to":      String("me@example.com"),
				"subject": String("Daily digest"),
				"body":    OutputOf("2"),
			},
		},
	}
}
