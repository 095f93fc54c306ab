package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/notkisk/AIAgentBuilder-sub000/pkg/web"
	"github.com/notkisk/AIAgentBuilder-sub000/services/store"
	"github.com/notkisk/AIAgentBuilder-sub000/services/workflow"
)

// Runner simulates a node list step by step.
type Runner interface {
	Execute(ctx context.Context, nodes []workflow.Node, observe func(workflow.StepResult)) (*workflow.Run, error)
}

// RunWorkflowRequest is the optional JSON body of POST /workflows/{id}/run.
type RunWorkflowRequest struct {
	AgentID     int64  `json:"agentId"`
	ExecutionID string `json:"executionId"`
}

// RunResponse is the recorded execution together with the step trace.
type RunResponse struct {
	Execution *store.Execution `json:"execution"`
	Run       *workflow.Run    `json:"run"`
}

// HandleRunWorkflow dry-runs a stored workflow. The run is recorded as an execution
// whose currentNode follows the steps, with one log per step. No tool is called for real.
func (s *Service) HandleRunWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := web.IntVar(r, "id")
	if err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid workflow id")
		return
	}

	var req RunWorkflowRequest
	if r.ContentLength != 0 {
		if err := web.Decode(r, &req); err != nil {
			web.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	wf, err := s.workflows.GetWorkflow(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		web.WriteError(w, http.StatusNotFound, "workflow not found")
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	nodes, err := workflow.Nodes(wf)
	if err == nil && len(nodes) == 0 {
		err = workflow.ErrEmptyWorkflow
	}
	if err == nil {
		err = workflow.Validate(nodes)
	}
	if err != nil {
		web.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	exec, err := s.executions.CreateExecution(r.Context(), store.Execution{
		ExecutionID: req.ExecutionID,
		WorkflowID:  id,
		AgentID:     req.AgentID,
		Status:      store.ExecutionRunning,
		StartTime:   s.now().UTC(),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("Running workflow", "workflow", id, "executionId", exec.ExecutionID, "nodes", len(nodes))

	rec := &recorder{service: s, ctx: r.Context(), exec: exec}
	run, err := s.runner.Execute(r.Context(), nodes, rec.step)
	if err != nil {
		run = &workflow.Run{Status: workflow.RunFailed, StartTime: exec.StartTime, EndTime: s.now().UTC(), Error: err.Error()}
	}

	exec, err = rec.finish(run)
	if err != nil {
		writeError(w, err)
		return
	}
	s.countRun(r.Context(), exec)
	web.WriteJSON(w, http.StatusCreated, RunResponse{Execution: exec, Run: run})
}

// recorder mirrors engine progress into the execution and log collections. Store
// failures are logged and do not stop the run.
type recorder struct {
	service *Service
	ctx     context.Context
	exec    *store.Execution
}

func (rec *recorder) step(step workflow.StepResult) {
	nodeID := step.NodeID
	if _, err := rec.service.executions.UpdateExecution(rec.ctx, rec.exec.ExecutionID, store.ExecutionUpdate{CurrentNode: &nodeID}); err != nil {
		slog.Error("Failed to update execution progress", "executionId", rec.exec.ExecutionID, "error", err)
	}

	level := store.LevelInfo
	msg, _ := step.Output["message"].(string)
	if step.Status == workflow.StepError {
		level = store.LevelError
		msg = step.Error
	}
	rec.log(level, fmt.Sprintf("Step %d %s.%s: %s", step.StepNumber, step.Tool, step.Function, msg), step)
}

func (rec *recorder) finish(run *workflow.Run) (*store.Execution, error) {
	results, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("encode run: %w", err)
	}

	status := store.ExecutionCompleted
	level := store.LevelInfo
	msg := fmt.Sprintf("Workflow run completed in %d steps", len(run.Steps))
	if run.Status != workflow.RunCompleted {
		status = store.ExecutionFailed
		level = store.LevelError
		msg = "Workflow run failed: " + run.Error
	}
	end := run.EndTime
	rec.log(level, msg, nil)

	return rec.service.executions.UpdateExecution(rec.ctx, rec.exec.ExecutionID, store.ExecutionUpdate{
		Status:  &status,
		EndTime: &end,
		Results: results,
	})
}

func (rec *recorder) log(level store.LogLevel, message string, details any) {
	var raw json.RawMessage
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			slog.Warn("Failed to encode log details", "error", err)
		} else {
			raw = data
		}
	}

	workflowID := rec.exec.WorkflowID
	executionID := rec.exec.ExecutionID
	_, err := rec.service.logs.AppendLog(rec.ctx, store.Log{
		AgentID:     rec.exec.AgentID,
		WorkflowID:  &workflowID,
		ExecutionID: &executionID,
		Level:       level,
		Message:     message,
		Details:     raw,
	})
	if err != nil {
		slog.Error("Failed to append run log", "executionId", executionID, "error", err)
	}
}
