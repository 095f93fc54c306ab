// Package agent serves the agent collection over HTTP.
package agent

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/notkisk/AIAgentBuilder-sub000/pkg/web"
	"github.com/notkisk/AIAgentBuilder-sub000/services/store"
)

var errUnknownWorkflow = errors.New("workflowId does not name an existing workflow")

// Service exposes agent CRUD.
type Service struct {
	agents    store.AgentRepo
	workflows store.WorkflowRepo
}

// NewService creates a Service. workflows is used to check workflowId on writes.
func NewService(agents store.AgentRepo, workflows store.WorkflowRepo) *Service {
	return &Service{agents: agents, workflows: workflows}
}

// LoadRoutes registers agent HTTP handlers on the given router.
func (s *Service) LoadRoutes(parentRouter *mux.Router) {
	router := parentRouter.PathPrefix("/agents").Subrouter()
	router.StrictSlash(false)
	router.Use(web.JSONMiddleware)

	router.HandleFunc("", s.HandleList).Methods("GET")
	router.HandleFunc("", s.HandleCreate).Methods("POST")
	router.HandleFunc("/{id:[0-9]+}", s.HandleGet).Methods("GET")
	router.HandleFunc("/{id:[0-9]+}", s.HandleUpdate).Methods("PUT")
	router.HandleFunc("/{id:[0-9]+}", s.HandleDelete).Methods("DELETE")
}

// CreateRequest is the JSON body of POST /agents.
type CreateRequest struct {
	Name        string       `json:"name" validate:"required"`
	Description string       `json:"description"`
	Prompt      string       `json:"prompt"`
	Tools       []string     `json:"tools"`
	Status      store.Status `json:"status" validate:"omitempty,oneof=inactive active running error"`
	WorkflowID  *int64       `json:"workflowId"`
}

// UpdateRequest is the JSON body of PUT /agents/{id}; absent fields are kept.
type UpdateRequest struct {
	Name        *string       `json:"name" validate:"omitempty,min=1"`
	Description *string       `json:"description"`
	Prompt      *string       `json:"prompt"`
	Tools       []string      `json:"tools"`
	Status      *store.Status `json:"status" validate:"omitempty,oneof=inactive active running error"`
	WorkflowID  *int64        `json:"workflowId"`
	LastRun     *time.Time    `json:"lastRun"`
	RunCount    *int          `json:"runCount" validate:"omitempty,gte=0"`
}

func (s *Service) HandleList(w http.ResponseWriter, r *http.Request) {
	agents, err := s.agents.ListAgents(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, agents)
}

func (s *Service) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := web.Decode(r, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.checkWorkflow(r.Context(), req.WorkflowID); err != nil {
		writeError(w, err)
		return
	}

	agent, err := s.agents.CreateAgent(r.Context(), store.Agent{
		Name:        req.Name,
		Description: req.Description,
		Prompt:      req.Prompt,
		Tools:       req.Tools,
		Status:      req.Status,
		WorkflowID:  req.WorkflowID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	slog.Debug("Created agent", "id", agent.ID, "name", agent.Name)
	web.WriteJSON(w, http.StatusCreated, agent)
}

func (s *Service) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := web.IntVar(r, "id")
	if err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	agent, err := s.agents.GetAgent(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, agent)
}

func (s *Service) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := web.IntVar(r, "id")
	if err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	var req UpdateRequest
	if err := web.Decode(r, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.checkWorkflow(r.Context(), req.WorkflowID); err != nil {
		writeError(w, err)
		return
	}

	agent, err := s.agents.UpdateAgent(r.Context(), id, store.AgentUpdate{
		Name:        req.Name,
		Description: req.Description,
		Prompt:      req.Prompt,
		Tools:       req.Tools,
		Status:      req.Status,
		WorkflowID:  req.WorkflowID,
		LastRun:     req.LastRun,
		RunCount:    req.RunCount,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, agent)
}

func (s *Service) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := web.IntVar(r, "id")
	if err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	if err := s.agents.DeleteAgent(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// checkWorkflow rejects a workflowId that does not exist at write time. Later deletion
// of the workflow leaves the agent untouched.
func (s *Service) checkWorkflow(ctx context.Context, id *int64) error {
	if id == nil || s.workflows == nil {
		return nil
	}
	_, err := s.workflows.GetWorkflow(ctx, *id)
	if errors.Is(err, store.ErrNotFound) {
		return errUnknownWorkflow
	}
	return err
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errUnknownWorkflow):
		web.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, store.ErrNotFound):
		web.WriteError(w, http.StatusNotFound, "agent not found")
	default:
		slog.Error("Agent request failed", "error", err)
		web.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
