package generator

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/notkisk/AIAgentBuilder-sub000/pkg/web"
	"github.com/notkisk/AIAgentBuilder-sub000/services/store"
	"github.com/notkisk/AIAgentBuilder-sub000/services/workflow"
)

// Service exposes generation over HTTP, standalone and against stored workflows.
type Service struct {
	gen       Generator
	workflows store.WorkflowRepo
}

// NewService creates a Service.
func NewService(gen Generator, workflows store.WorkflowRepo) *Service {
	return &Service{gen: gen, workflows: workflows}
}

// LoadRoutes registers generation handlers on the given router.
func (s *Service) LoadRoutes(parentRouter *mux.Router) {
	router := parentRouter.NewRoute().Subrouter()
	router.Use(web.JSONMiddleware)

	router.HandleFunc("/generate", s.HandleGenerate).Methods("POST")
	router.HandleFunc("/generate/workflow", s.HandleGenerateWorkflow).Methods("POST")
	router.HandleFunc("/workflows/{id:[0-9]+}/generate", s.HandleModifyWorkflow).Methods("POST")
}

// GenerateWorkflowRequest is the JSON body of POST /generate/workflow.
type GenerateWorkflowRequest struct {
	Prompt      string `json:"prompt" validate:"required"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ModifyWorkflowRequest is the JSON body of POST /workflows/{id}/generate.
type ModifyWorkflowRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

// WorkflowResult pairs the stored workflow with the generation that produced it.
type WorkflowResult struct {
	Workflow   *store.Workflow `json:"workflow"`
	Generation *Response       `json:"generation"`
}

// HandleGenerate proposes a node list without storing anything.
func (s *Service) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := web.Decode(r, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.gen.Generate(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, resp)
}

// HandleGenerateWorkflow generates a workflow and stores it.
func (s *Service) HandleGenerateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req GenerateWorkflowRequest
	if err := web.Decode(r, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.gen.Generate(r.Context(), Request{Prompt: req.Prompt})
	if err != nil {
		writeError(w, err)
		return
	}

	wf, err := s.create(r.Context(), req, resp)
	if err != nil {
		slog.Error("Failed to store generated workflow", "error", err)
		web.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	slog.Info("Generated workflow", "id", wf.ID, "source", resp.Source, "nodes", len(resp.Nodes.Nodes))
	web.WriteJSON(w, http.StatusCreated, WorkflowResult{Workflow: wf, Generation: resp})
}

// HandleModifyWorkflow asks for a change to a stored workflow and saves the result.
func (s *Service) HandleModifyWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := web.IntVar(r, "id")
	if err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid workflow id")
		return
	}

	var req ModifyWorkflowRequest
	if err := web.Decode(r, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	wf, err := s.workflows.GetWorkflow(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	existing, err := workflow.Nodes(wf)
	if err != nil {
		writeError(w, err)
		return
	}

	resp, err := s.gen.Generate(r.Context(), Request{Prompt: req.Prompt, ExistingNodes: existing})
	if err != nil {
		writeError(w, err)
		return
	}

	raw, err := workflow.EncodeEnvelope(resp.Nodes.Nodes)
	if err != nil {
		writeError(w, err)
		return
	}
	updated, err := s.workflows.UpdateWorkflow(r.Context(), id, store.WorkflowUpdate{Nodes: raw})
	if err != nil {
		writeError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, WorkflowResult{Workflow: updated, Generation: resp})
}

func (s *Service) create(ctx context.Context, req GenerateWorkflowRequest, resp *Response) (*store.Workflow, error) {
	raw, err := workflow.EncodeEnvelope(resp.Nodes.Nodes)
	if err != nil {
		return nil, err
	}

	name := firstNonEmpty(req.Name, resp.Name, "Generated workflow")
	return s.workflows.CreateWorkflow(ctx, store.Workflow{
		Name:        name,
		Description: firstNonEmpty(req.Description, resp.Description),
		Prompt:      req.Prompt,
		Nodes:       raw,
		Status:      store.StatusInactive,
	})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyPrompt):
		web.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		web.WriteError(w, http.StatusNotFound, "workflow not found")
	case errors.Is(err, ErrUnparsable), errors.Is(err, workflow.ErrInvalidEnvelope):
		web.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.Error("Generation request failed", "error", err)
		web.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
