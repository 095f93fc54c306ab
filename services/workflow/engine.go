package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const maxSteps = 100

// Run statuses.
const (
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// ErrEmptyWorkflow is returned when asked to run a list without nodes.
var ErrEmptyWorkflow = errors.New("workflow has no nodes")

// Run is the outcome of a dry run.
type Run struct {
	Status        string       `json:"status"`
	StartTime     time.Time    `json:"startTime"`
	EndTime       time.Time    `json:"endTime"`
	TotalDuration int64        `json:"totalDurationMs"`
	Steps         []StepResult `json:"steps"`
	Error         string       `json:"error,omitempty"`
}

// Engine walks the next chains of a node list and simulates each node through the
// registry. No external service is contacted.
type Engine struct {
	registry Registry
	now      func() time.Time
}

// NewEngine creates an Engine with the given executor registry.
func NewEngine(registry Registry) *Engine {
	return &Engine{registry: registry, now: time.Now}
}

// Execute runs the nodes in topological order over the next pointers, so every
// predecessor of a node, including each branch of a merge, runs before it. Outputs are
// shared, letting later nodes read earlier ones through reference params. When only
// nodes on cycles are left, the first of them in list order is walked along its chain
// the same way Levels handles them; loops repeat until the step limit fails the run.
//
// observe, when not nil, is called after every step. A step failure ends the run with
// status failed; only a list that breaks the node invariants is returned as an error.
func (e *Engine) Execute(ctx context.Context, nodes []Node, observe func(StepResult)) (*Run, error) {
	if len(nodes) == 0 {
		return nil, ErrEmptyWorkflow
	}
	if err := Validate(nodes); err != nil {
		return nil, err
	}

	nodeMap := make(map[string]*Node, len(nodes))
	indegree := make(map[string]int, len(nodes))
	for i := range nodes {
		nodeMap[nodes[i].ID] = &nodes[i]
		if nodes[i].Next != "" {
			indegree[nodes[i].Next]++
		}
	}

	run := &Run{StartTime: e.now().UTC(), Steps: []StepResult{}}
	outputs := make(map[string]map[string]any, len(nodes))
	done := make(map[string]bool, len(nodes))

	finish := func(status, msg string) (*Run, error) {
		run.Status = status
		run.Error = msg
		run.EndTime = e.now().UTC()
		run.TotalDuration = run.EndTime.Sub(run.StartTime).Milliseconds()
		return run, nil
	}

	// exec runs one node and reports the failure message that ends the run, if any.
	exec := func(current *Node) string {
		if len(run.Steps) >= maxSteps {
			return fmt.Sprintf("execution exceeded maximum of %d steps (possible cycle)", maxSteps)
		}
		if err := ctx.Err(); err != nil {
			return err.Error()
		}

		step := e.step(ctx, *current, outputs, len(run.Steps)+1)
		run.Steps = append(run.Steps, step)
		if observe != nil {
			observe(step)
		}
		if step.Status == StepError {
			return fmt.Sprintf("node %s: %s", current.ID, step.Error)
		}
		outputs[current.ID] = step.Output
		done[current.ID] = true
		return ""
	}

	ready := Roots(nodes)
	for {
		if len(ready) > 0 {
			current := nodeMap[ready[0]]
			ready = ready[1:]
			if done[current.ID] {
				continue
			}
			if msg := exec(current); msg != "" {
				return finish(RunFailed, msg)
			}
			if next := current.Next; next != "" {
				indegree[next]--
				if indegree[next] == 0 && !done[next] {
					ready = append(ready, next)
				}
			}
			continue
		}

		start := ""
		for _, n := range nodes {
			if !done[n.ID] {
				start = n.ID
				break
			}
		}
		if start == "" {
			break
		}

		walked := make(map[string]bool)
		for id := start; id != ""; {
			if done[id] && !walked[id] {
				break
			}
			current := nodeMap[id]
			if msg := exec(current); msg != "" {
				return finish(RunFailed, msg)
			}
			walked[id] = true
			id = current.Next
		}
	}

	return finish(RunCompleted, "")
}

func (e *Engine) step(ctx context.Context, node Node, outputs map[string]map[string]any, number int) StepResult {
	step := StepResult{
		StepNumber: number,
		NodeID:     node.ID,
		Tool:       node.Tool,
		Function:   node.Function,
	}

	fail := func(err error) StepResult {
		step.Status = StepError
		step.Error = err.Error()
		step.Output = map[string]any{"message": "Error: " + err.Error()}
		return step
	}

	args, err := resolveArgs(node.Params, outputs)
	if err != nil {
		return fail(err)
	}
	step.Input = args

	executor, ok := e.registry[node.Tool]
	if !ok {
		return fail(fmt.Errorf("no executor registered for tool %q", node.Tool))
	}

	start := e.now()
	output, err := executor.Execute(ctx, node.Function, args)
	step.Duration = e.now().Sub(start)
	step.DurationMS = step.Duration.Milliseconds()
	if err != nil {
		return fail(err)
	}

	step.Status = StepCompleted
	step.Output = output
	return step
}

// resolveArgs replaces reference params with the referenced output fields.
func resolveArgs(params Params, outputs map[string]map[string]any) (map[string]any, error) {
	args := make(map[string]any, len(params))
	for key, v := range params {
		r, ok := v.Ref()
		if !ok {
			args[key] = v.Interface()
			continue
		}
		out, ran := outputs[r.NodeID]
		if !ran {
			return nil, fmt.Errorf("parameter %s references node %s, which has not run", key, r.NodeID)
		}
		field := r.Field
		if field == "" {
			field = OutputField
		}
		val, ok := out[field]
		if !ok {
			return nil, fmt.Errorf("parameter %s references missing field %s of node %s", key, field, r.NodeID)
		}
		args[key] = val
	}
	return args, nil
}
