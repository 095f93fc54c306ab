// Package activity serves activity logs and execution records over HTTP.
package activity

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/notkisk/AIAgentBuilder-sub000/pkg/web"
	"github.com/notkisk/AIAgentBuilder-sub000/services/store"
)

// Service exposes the log and execution collections.
type Service struct {
	logs       store.LogRepo
	executions store.ExecutionRepo
	workflows  store.WorkflowRepo
	runner     Runner
	now        func() time.Time
}

// NewService creates a Service. Finished executions update the run counters of their
// workflow through workflows; runner simulates POST /workflows/{id}/run.
func NewService(logs store.LogRepo, executions store.ExecutionRepo, workflows store.WorkflowRepo, runner Runner) *Service {
	return &Service{logs: logs, executions: executions, workflows: workflows, runner: runner, now: time.Now}
}

// LoadRoutes registers log and execution handlers on the given router.
func (s *Service) LoadRoutes(parentRouter *mux.Router) {
	logs := parentRouter.PathPrefix("/logs").Subrouter()
	logs.Use(web.JSONMiddleware)
	logs.HandleFunc("", s.HandleListLogs).Methods("GET")
	logs.HandleFunc("", s.HandleAppendLog).Methods("POST")

	execs := parentRouter.PathPrefix("/executions").Subrouter()
	execs.Use(web.JSONMiddleware)
	execs.HandleFunc("", s.HandleListExecutions).Methods("GET")
	execs.HandleFunc("", s.HandleCreateExecution).Methods("POST")
	execs.HandleFunc("/{executionId}", s.HandleGetExecution).Methods("GET")
	execs.HandleFunc("/{executionId}", s.HandleUpdateExecution).Methods("PUT")

	runs := parentRouter.NewRoute().Subrouter()
	runs.Use(web.JSONMiddleware)
	runs.HandleFunc("/workflows/{id:[0-9]+}/run", s.HandleRunWorkflow).Methods("POST")
}

// AppendLogRequest is the JSON body of POST /logs.
type AppendLogRequest struct {
	AgentID     int64           `json:"agentId" validate:"required"`
	WorkflowID  *int64          `json:"workflowId"`
	ExecutionID *string         `json:"executionId"`
	Level       store.LogLevel  `json:"level" validate:"omitempty,oneof=info warn error debug"`
	Message     string          `json:"message" validate:"required"`
	Details     json.RawMessage `json:"details"`
}

// CreateExecutionRequest is the JSON body of POST /executions. A missing executionId is
// generated.
type CreateExecutionRequest struct {
	ExecutionID string                `json:"executionId"`
	WorkflowID  int64                 `json:"workflowId" validate:"required"`
	AgentID     int64                 `json:"agentId"`
	Status      store.ExecutionStatus `json:"status" validate:"omitempty,oneof=pending running completed failed"`
	CurrentNode *string               `json:"currentNode"`
}

// UpdateExecutionRequest is the JSON body of PUT /executions/{executionId}.
type UpdateExecutionRequest struct {
	Status      *store.ExecutionStatus `json:"status" validate:"omitempty,oneof=pending running completed failed"`
	EndTime     *time.Time             `json:"endTime"`
	Results     json.RawMessage        `json:"results"`
	CurrentNode *string                `json:"currentNode"`
}

// HandleListLogs returns logs newest first, filtered by agentId, workflowId,
// executionId, level and limit query parameters.
func (s *Service) HandleListLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.LogFilter{
		ExecutionID: q.Get("executionId"),
		Level:       store.LogLevel(q.Get("level")),
	}

	var err error
	if filter.AgentID, err = web.IntQuery(r, "agentId"); err != nil {
		web.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.WorkflowID, err = web.IntQuery(r, "workflowId"); err != nil {
		web.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if raw := q.Get("limit"); raw != "" {
		if filter.Limit, err = strconv.Atoi(raw); err != nil || filter.Limit < 0 {
			web.WriteError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}

	logs, err := s.logs.ListLogs(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, logs)
}

func (s *Service) HandleAppendLog(w http.ResponseWriter, r *http.Request) {
	var req AppendLogRequest
	if err := web.Decode(r, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	log, err := s.logs.AppendLog(r.Context(), store.Log{
		AgentID:     req.AgentID,
		WorkflowID:  req.WorkflowID,
		ExecutionID: req.ExecutionID,
		Level:       req.Level,
		Message:     req.Message,
		Details:     req.Details,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusCreated, log)
}

func (s *Service) HandleListExecutions(w http.ResponseWriter, r *http.Request) {
	filter := store.ExecutionFilter{Status: store.ExecutionStatus(r.URL.Query().Get("status"))}

	var err error
	if filter.WorkflowID, err = web.IntQuery(r, "workflowId"); err != nil {
		web.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.AgentID, err = web.IntQuery(r, "agentId"); err != nil {
		web.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	execs, err := s.executions.ListExecutions(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, execs)
}

func (s *Service) HandleCreateExecution(w http.ResponseWriter, r *http.Request) {
	var req CreateExecutionRequest
	if err := web.Decode(r, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	exec, err := s.executions.CreateExecution(r.Context(), store.Execution{
		ExecutionID: req.ExecutionID,
		WorkflowID:  req.WorkflowID,
		AgentID:     req.AgentID,
		Status:      req.Status,
		CurrentNode: req.CurrentNode,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	slog.Debug("Created execution", "executionId", exec.ExecutionID, "workflow", exec.WorkflowID)
	web.WriteJSON(w, http.StatusCreated, exec)
}

func (s *Service) HandleGetExecution(w http.ResponseWriter, r *http.Request) {
	exec, err := s.executions.GetExecution(r.Context(), mux.Vars(r)["executionId"])
	if err != nil {
		writeError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, exec)
}

// HandleUpdateExecution applies a partial update. The first transition into completed
// or failed stamps the end time and counts the run on the workflow.
func (s *Service) HandleUpdateExecution(w http.ResponseWriter, r *http.Request) {
	executionID := mux.Vars(r)["executionId"]

	var req UpdateExecutionRequest
	if err := web.Decode(r, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	before, err := s.executions.GetExecution(r.Context(), executionID)
	if err != nil {
		writeError(w, err)
		return
	}

	finishing := req.Status != nil && finished(*req.Status) && !finished(before.Status)
	if finishing && req.EndTime == nil {
		end := s.now().UTC()
		req.EndTime = &end
	}

	exec, err := s.executions.UpdateExecution(r.Context(), executionID, store.ExecutionUpdate{
		Status:      req.Status,
		EndTime:     req.EndTime,
		Results:     req.Results,
		CurrentNode: req.CurrentNode,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if finishing {
		s.countRun(r.Context(), exec)
	}
	web.WriteJSON(w, http.StatusOK, exec)
}

// countRun bumps the workflow run counters. The workflow may be gone; that is not an
// error for the execution.
func (s *Service) countRun(ctx context.Context, exec *store.Execution) {
	if s.workflows == nil {
		return
	}
	wf, err := s.workflows.GetWorkflow(ctx, exec.WorkflowID)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		slog.Error("Failed to load workflow for run count", "workflow", exec.WorkflowID, "error", err)
		return
	}

	runs := wf.RunCount + 1
	update := store.WorkflowUpdate{RunCount: &runs, LastRun: exec.EndTime}
	if exec.Status == store.ExecutionCompleted {
		n := wf.SuccessCount + 1
		update.SuccessCount = &n
	} else {
		n := wf.FailureCount + 1
		update.FailureCount = &n
	}
	if _, err := s.workflows.UpdateWorkflow(ctx, wf.ID, update); err != nil {
		slog.Error("Failed to update workflow run count", "workflow", wf.ID, "error", err)
	}
}

func finished(status store.ExecutionStatus) bool {
	return status == store.ExecutionCompleted || status == store.ExecutionFailed
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		web.WriteError(w, http.StatusNotFound, "execution not found")
	case errors.Is(err, store.ErrConflict):
		web.WriteError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("Activity request failed", "error", err)
		web.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
