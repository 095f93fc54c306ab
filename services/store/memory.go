package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory implements every repository with in-process maps. Each instance owns its
// counters, so ids are unique for the lifetime of the instance. Records are copied on
// the way in and out; callers never share memory with the store.
type Memory struct {
	mu  sync.Mutex
	now func() time.Time

	workflows  map[int64]*Workflow
	agents     map[int64]*Agent
	logs       []Log
	executions map[string]*Execution
	tools      map[string]*Tool

	nextWorkflowID  int64
	nextAgentID     int64
	nextLogID       int64
	nextExecutionID int64
	nextToolID      int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		now:        time.Now,
		workflows:  make(map[int64]*Workflow),
		agents:     make(map[int64]*Agent),
		executions: make(map[string]*Execution),
		tools:      make(map[string]*Tool),
	}
}

// ListWorkflows returns all workflows ordered by id.
func (m *Memory) ListWorkflows(_ context.Context) ([]Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Workflow, 0, len(m.workflows))
	for _, wf := range m.workflows {
		out = append(out, copyWorkflow(wf))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetWorkflow(_ context.Context, id int64) (*Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wf, ok := m.workflows[id]
	if !ok {
		return nil, notFound("workflow", id)
	}
	out := copyWorkflow(wf)
	return &out, nil
}

// CreateWorkflow assigns the next id and timestamps. Status defaults to inactive.
func (m *Memory) CreateWorkflow(_ context.Context, wf Workflow) (*Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextWorkflowID++
	now := m.now().UTC()

	wf = copyWorkflow(&wf)
	wf.ID = m.nextWorkflowID
	wf.CreatedAt = now
	wf.UpdatedAt = now
	if wf.Status == "" {
		wf.Status = StatusInactive
	}
	m.workflows[wf.ID] = &wf

	out := copyWorkflow(&wf)
	return &out, nil
}

func (m *Memory) UpdateWorkflow(_ context.Context, id int64, update WorkflowUpdate) (*Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wf, ok := m.workflows[id]
	if !ok {
		return nil, notFound("workflow", id)
	}

	if update.Name != nil {
		wf.Name = *update.Name
	}
	if update.Description != nil {
		wf.Description = *update.Description
	}
	if update.Prompt != nil {
		wf.Prompt = *update.Prompt
	}
	if update.Nodes != nil {
		wf.Nodes = slices.Clone(update.Nodes)
	}
	if update.Status != nil {
		wf.Status = *update.Status
	}
	if update.RunCount != nil {
		wf.RunCount = *update.RunCount
	}
	if update.SuccessCount != nil {
		wf.SuccessCount = *update.SuccessCount
	}
	if update.FailureCount != nil {
		wf.FailureCount = *update.FailureCount
	}
	if update.LastRun != nil {
		t := *update.LastRun
		wf.LastRun = &t
	}
	wf.UpdatedAt = m.now().UTC()

	out := copyWorkflow(wf)
	return &out, nil
}

// DeleteWorkflow removes a workflow. Agents referring to it keep their WorkflowID.
func (m *Memory) DeleteWorkflow(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.workflows[id]; !ok {
		return notFound("workflow", id)
	}
	delete(m.workflows, id)
	return nil
}

func (m *Memory) ListAgents(_ context.Context) ([]Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Agent, 0, len(m.agents))
	for _, a := range m.agents {
		out = append(out, copyAgent(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetAgent(_ context.Context, id int64) (*Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.agents[id]
	if !ok {
		return nil, notFound("agent", id)
	}
	out := copyAgent(a)
	return &out, nil
}

func (m *Memory) CreateAgent(_ context.Context, agent Agent) (*Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextAgentID++
	now := m.now().UTC()

	agent = copyAgent(&agent)
	agent.ID = m.nextAgentID
	agent.CreatedAt = now
	agent.UpdatedAt = now
	if agent.Status == "" {
		agent.Status = StatusInactive
	}
	if agent.Tools == nil {
		agent.Tools = []string{}
	}
	m.agents[agent.ID] = &agent

	out := copyAgent(&agent)
	return &out, nil
}

func (m *Memory) UpdateAgent(_ context.Context, id int64, update AgentUpdate) (*Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.agents[id]
	if !ok {
		return nil, notFound("agent", id)
	}

	if update.Name != nil {
		a.Name = *update.Name
	}
	if update.Description != nil {
		a.Description = *update.Description
	}
	if update.Prompt != nil {
		a.Prompt = *update.Prompt
	}
	if update.Tools != nil {
		a.Tools = slices.Clone(update.Tools)
	}
	if update.Status != nil {
		a.Status = *update.Status
	}
	if update.WorkflowID != nil {
		v := *update.WorkflowID
		a.WorkflowID = &v
	}
	if update.LastRun != nil {
		t := *update.LastRun
		a.LastRun = &t
	}
	if update.RunCount != nil {
		a.RunCount = *update.RunCount
	}
	a.UpdatedAt = m.now().UTC()

	out := copyAgent(a)
	return &out, nil
}

func (m *Memory) DeleteAgent(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.agents[id]; !ok {
		return notFound("agent", id)
	}
	delete(m.agents, id)
	return nil
}

// AppendLog stores a log record with a server-assigned id and timestamp.
func (m *Memory) AppendLog(_ context.Context, log Log) (*Log, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextLogID++
	log = copyLog(&log)
	log.ID = m.nextLogID
	log.Timestamp = m.now().UTC()
	if log.Level == "" {
		log.Level = LevelInfo
	}
	m.logs = append(m.logs, log)

	out := copyLog(&log)
	return &out, nil
}

// ListLogs returns matching logs, newest first.
func (m *Memory) ListLogs(_ context.Context, filter LogFilter) ([]Log, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Log, 0)
	for i := len(m.logs) - 1; i >= 0; i-- {
		l := &m.logs[i]
		if filter.AgentID != nil && l.AgentID != *filter.AgentID {
			continue
		}
		if filter.WorkflowID != nil && (l.WorkflowID == nil || *l.WorkflowID != *filter.WorkflowID) {
			continue
		}
		if filter.ExecutionID != "" && (l.ExecutionID == nil || *l.ExecutionID != filter.ExecutionID) {
			continue
		}
		if filter.Level != "" && l.Level != filter.Level {
			continue
		}
		out = append(out, copyLog(l))
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// ListExecutions returns matching executions ordered by id.
func (m *Memory) ListExecutions(_ context.Context, filter ExecutionFilter) ([]Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Execution, 0, len(m.executions))
	for _, e := range m.executions {
		if filter.WorkflowID != nil && e.WorkflowID != *filter.WorkflowID {
			continue
		}
		if filter.AgentID != nil && e.AgentID != *filter.AgentID {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		out = append(out, copyExecution(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetExecution(_ context.Context, executionID string) (*Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.executions[executionID]
	if !ok {
		return nil, notFound("execution", executionID)
	}
	out := copyExecution(e)
	return &out, nil
}

// CreateExecution stores a run attempt. A missing ExecutionID is generated; a
// duplicate one is rejected with ErrConflict.
func (m *Memory) CreateExecution(_ context.Context, exec Execution) (*Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if exec.ExecutionID == "" {
		exec.ExecutionID = uuid.New().String()
	}
	if _, ok := m.executions[exec.ExecutionID]; ok {
		return nil, conflict("execution", exec.ExecutionID)
	}

	m.nextExecutionID++
	exec = copyExecution(&exec)
	exec.ID = m.nextExecutionID
	if exec.Status == "" {
		exec.Status = ExecutionPending
	}
	if exec.StartTime.IsZero() {
		exec.StartTime = m.now().UTC()
	}
	m.executions[exec.ExecutionID] = &exec

	out := copyExecution(&exec)
	return &out, nil
}

func (m *Memory) UpdateExecution(_ context.Context, executionID string, update ExecutionUpdate) (*Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.executions[executionID]
	if !ok {
		return nil, notFound("execution", executionID)
	}

	if update.Status != nil {
		e.Status = *update.Status
	}
	if update.EndTime != nil {
		t := *update.EndTime
		e.EndTime = &t
	}
	if update.Results != nil {
		e.Results = slices.Clone(update.Results)
	}
	if update.CurrentNode != nil {
		n := *update.CurrentNode
		e.CurrentNode = &n
	}

	out := copyExecution(e)
	return &out, nil
}

// ListTools returns the catalog ordered by name.
func (m *Memory) ListTools(_ context.Context) ([]Tool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Tool, 0, len(m.tools))
	for _, t := range m.tools {
		out = append(out, copyTool(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) GetTool(_ context.Context, name string) (*Tool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tools[name]
	if !ok {
		return nil, notFound("tool", name)
	}
	out := copyTool(t)
	return &out, nil
}

// CreateTool adds a catalog entry; names are unique.
func (m *Memory) CreateTool(_ context.Context, tool Tool) (*Tool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tools[tool.Name]; ok {
		return nil, conflict("tool", tool.Name)
	}

	m.nextToolID++
	tool = copyTool(&tool)
	tool.ID = m.nextToolID
	m.tools[tool.Name] = &tool

	out := copyTool(&tool)
	return &out, nil
}

func (m *Memory) SetToolEnabled(_ context.Context, name string, enabled bool) (*Tool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tools[name]
	if !ok {
		return nil, notFound("tool", name)
	}
	t.Enabled = enabled

	out := copyTool(t)
	return &out, nil
}

func copyWorkflow(wf *Workflow) Workflow {
	out := *wf
	out.Nodes = slices.Clone(wf.Nodes)
	if wf.LastRun != nil {
		t := *wf.LastRun
		out.LastRun = &t
	}
	return out
}

func copyAgent(a *Agent) Agent {
	out := *a
	out.Tools = slices.Clone(a.Tools)
	if a.WorkflowID != nil {
		v := *a.WorkflowID
		out.WorkflowID = &v
	}
	if a.LastRun != nil {
		t := *a.LastRun
		out.LastRun = &t
	}
	return out
}

func copyLog(l *Log) Log {
	out := *l
	out.Details = slices.Clone(l.Details)
	if l.WorkflowID != nil {
		v := *l.WorkflowID
		out.WorkflowID = &v
	}
	if l.ExecutionID != nil {
		v := *l.ExecutionID
		out.ExecutionID = &v
	}
	return out
}

func copyExecution(e *Execution) Execution {
	out := *e
	out.Results = slices.Clone(e.Results)
	if e.EndTime != nil {
		t := *e.EndTime
		out.EndTime = &t
	}
	if e.CurrentNode != nil {
		n := *e.CurrentNode
		out.CurrentNode = &n
	}
	return out
}

func copyTool(t *Tool) Tool {
	out := *t
	out.Auth = slices.Clone(t.Auth)
	out.Functions = make([]ToolFunction, len(t.Functions))
	for i, fn := range t.Functions {
		fn.Parameters = cloneStrings(fn.Parameters)
		out.Functions[i] = fn
	}
	return out
}

func cloneStrings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
