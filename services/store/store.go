// Package store holds the workflow, agent, log, execution and tool collections.
package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates no record exists for the given key.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a record with the same unique key already exists.
	ErrConflict = errors.New("already exists")
)

func notFound(kind string, key any) error {
	return fmt.Errorf("%s %v: %w", kind, key, ErrNotFound)
}

func conflict(kind string, key any) error {
	return fmt.Errorf("%s %v: %w", kind, key, ErrConflict)
}

// WorkflowRepo persists workflows.
type WorkflowRepo interface {
	ListWorkflows(ctx context.Context) ([]Workflow, error)
	GetWorkflow(ctx context.Context, id int64) (*Workflow, error)
	CreateWorkflow(ctx context.Context, wf Workflow) (*Workflow, error)
	UpdateWorkflow(ctx context.Context, id int64, update WorkflowUpdate) (*Workflow, error)
	DeleteWorkflow(ctx context.Context, id int64) error
}

// AgentRepo persists agents.
type AgentRepo interface {
	ListAgents(ctx context.Context) ([]Agent, error)
	GetAgent(ctx context.Context, id int64) (*Agent, error)
	CreateAgent(ctx context.Context, agent Agent) (*Agent, error)
	UpdateAgent(ctx context.Context, id int64, update AgentUpdate) (*Agent, error)
	DeleteAgent(ctx context.Context, id int64) error
}

// LogRepo appends and queries activity logs.
type LogRepo interface {
	AppendLog(ctx context.Context, log Log) (*Log, error)
	ListLogs(ctx context.Context, filter LogFilter) ([]Log, error)
}

// ExecutionRepo persists run attempts.
type ExecutionRepo interface {
	ListExecutions(ctx context.Context, filter ExecutionFilter) ([]Execution, error)
	GetExecution(ctx context.Context, executionID string) (*Execution, error)
	CreateExecution(ctx context.Context, exec Execution) (*Execution, error)
	UpdateExecution(ctx context.Context, executionID string, update ExecutionUpdate) (*Execution, error)
}

// ToolRepo serves the tool catalog.
type ToolRepo interface {
	ListTools(ctx context.Context) ([]Tool, error)
	GetTool(ctx context.Context, name string) (*Tool, error)
	CreateTool(ctx context.Context, tool Tool) (*Tool, error)
	SetToolEnabled(ctx context.Context, name string, enabled bool) (*Tool, error)
}
