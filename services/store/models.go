package store

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a workflow or agent.
type Status string

const (
	StatusInactive Status = "inactive"
	StatusActive   Status = "active"
	StatusRunning  Status = "running"
	StatusError    Status = "error"
)

// LogLevel is the severity of a log record.
type LogLevel string

const (
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
	LevelDebug LogLevel = "debug"
)

// ExecutionStatus is the state of one run attempt.
type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
)

// Workflow is a named, persisted node list. Nodes holds the {nodes: [...]} envelope
// verbatim; the store never looks inside it.
type Workflow struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Prompt       string          `json:"prompt"`
	Nodes        json.RawMessage `json:"nodes"`
	Status       Status          `json:"status"`
	RunCount     int             `json:"runCount"`
	SuccessCount int             `json:"successCount"`
	FailureCount int             `json:"failureCount"`
	LastRun      *time.Time      `json:"lastRun,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// WorkflowUpdate carries the fields to change; nil fields are left untouched.
type WorkflowUpdate struct {
	Name         *string
	Description  *string
	Prompt       *string
	Nodes        json.RawMessage
	Status       *Status
	RunCount     *int
	SuccessCount *int
	FailureCount *int
	LastRun      *time.Time
}

// Agent is a named automation wrapping a prompt, a tool list and optionally one workflow.
// WorkflowID is a weak reference: deleting the workflow leaves it in place.
type Agent struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Prompt      string     `json:"prompt"`
	Tools       []string   `json:"tools"`
	Status      Status     `json:"status"`
	WorkflowID  *int64     `json:"workflowId,omitempty"`
	LastRun     *time.Time `json:"lastRun,omitempty"`
	RunCount    int        `json:"runCount"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// AgentUpdate carries the fields to change; nil fields are left untouched.
type AgentUpdate struct {
	Name        *string
	Description *string
	Prompt      *string
	Tools       []string
	Status      *Status
	WorkflowID  *int64
	LastRun     *time.Time
	RunCount    *int
}

// Log is an append-only activity record.
type Log struct {
	ID          int64           `json:"id"`
	AgentID     int64           `json:"agentId"`
	WorkflowID  *int64          `json:"workflowId,omitempty"`
	ExecutionID *string         `json:"executionId,omitempty"`
	Level       LogLevel        `json:"level"`
	Message     string          `json:"message"`
	Details     json.RawMessage `json:"details,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// LogFilter narrows ListLogs; zero fields match everything.
type LogFilter struct {
	AgentID     *int64
	WorkflowID  *int64
	ExecutionID string
	Level       LogLevel
	Limit       int
}

// Execution is one run attempt of a workflow, keyed by ExecutionID.
type Execution struct {
	ID          int64           `json:"id"`
	ExecutionID string          `json:"executionId"`
	WorkflowID  int64           `json:"workflowId"`
	AgentID     int64           `json:"agentId"`
	Status      ExecutionStatus `json:"status"`
	StartTime   time.Time       `json:"startTime"`
	EndTime     *time.Time      `json:"endTime,omitempty"`
	Results     json.RawMessage `json:"results,omitempty"`
	CurrentNode *string         `json:"currentNode,omitempty"`
}

// ExecutionUpdate carries the fields to change; nil fields are left untouched.
type ExecutionUpdate struct {
	Status      *ExecutionStatus
	EndTime     *time.Time
	Results     json.RawMessage
	CurrentNode *string
}

// ExecutionFilter narrows ListExecutions; zero fields match everything.
type ExecutionFilter struct {
	WorkflowID *int64
	AgentID    *int64
	Status     ExecutionStatus
}

// Tool is a catalog entry describing an integration and its functions.
type Tool struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Functions   []ToolFunction  `json:"functions"`
	Auth        json.RawMessage `json:"auth,omitempty"`
	Enabled     bool            `json:"enabled"`
}

// ToolFunction describes one operation offered by a tool.
type ToolFunction struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Parameters  map[string]string `json:"parameters"`
	Returns     string            `json:"returns"`
}
