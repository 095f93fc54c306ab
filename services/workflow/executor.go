package workflow

import (
	"context"
	"time"
)

// Step statuses.
const (
	StepCompleted = "completed"
	StepError     = "error"
)

// StepResult is the output of simulating a single node.
type StepResult struct {
	StepNumber int            `json:"stepNumber"`
	NodeID     string         `json:"nodeId"`
	Tool       string         `json:"tool"`
	Function   string         `json:"function"`
	Status     string         `json:"status"`
	Input      map[string]any `json:"input"`
	Output     map[string]any `json:"output"` // always includes "message"
	Duration   time.Duration  `json:"-"`
	DurationMS int64          `json:"durationMs"`
	Error      string         `json:"error,omitempty"`
}

// ToolExecutor simulates the functions of one tool. args holds the node params with
// every reference already replaced by the referenced output.
type ToolExecutor interface {
	Execute(ctx context.Context, function string, args map[string]any) (map[string]any, error)
}

// Registry maps tool names to their executor.
type Registry map[string]ToolExecutor

// NewRegistry creates a registry with a simulator for every catalog tool.
func NewRegistry() Registry {
	return Registry{
		"gmail":        &GmailExecutor{},
		"slack":        &SlackExecutor{},
		"chatgpt":      &ChatGPTExecutor{},
		"webscraper":   &WebScraperExecutor{},
		"twitter":      &TwitterExecutor{},
		"googlesheets": &SheetsExecutor{},
	}
}
