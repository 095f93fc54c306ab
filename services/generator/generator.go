// Package generator turns natural-language prompts into workflow node lists. An
// OpenAI-compatible completion endpoint is tried first; a deterministic template
// generator answers whenever the endpoint is unconfigured, slow or returns garbage.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/notkisk/AIAgentBuilder-sub000/services/workflow"
)

// ErrUnparsable is returned when generated content is not a valid workflow.
var ErrUnparsable = errors.New("generation unparsable")

// ErrEmptyPrompt is returned when a request carries no prompt.
var ErrEmptyPrompt = errors.New("prompt is required")

// Source names the generator that produced a response.
type Source string

const (
	SourceAI       Source = "ai"
	SourceTemplate Source = "template"
)

// Request asks for a new workflow, or for a change to ExistingNodes when it is non-empty.
type Request struct {
	Prompt        string          `json:"prompt" validate:"required"`
	ExistingNodes []workflow.Node `json:"existingNodes,omitempty"`
}

// Modify reports whether the request edits an existing workflow.
func (r Request) Modify() bool {
	return len(r.ExistingNodes) > 0
}

// Response is a proposed replacement node list plus explanatory text.
type Response struct {
	Name        string            `json:"name,omitempty"`
	Description string            `json:"description,omitempty"`
	Message     string            `json:"message"`
	Nodes       workflow.Envelope `json:"nodes"`
	Source      Source            `json:"source"`
}

// Generator proposes workflows from prompts.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// completion is the JSON document a model is asked to produce.
type completion struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Message     string          `json:"message"`
	Nodes       json.RawMessage `json:"nodes"`
}

// ParseCompletion reads model output into a Response. Markdown fences around the JSON
// are tolerated, and nodes may be either the {nodes: [...]} envelope or a bare array.
// Anything else, including a list that breaks the node invariants, is ErrUnparsable.
func ParseCompletion(text string) (*Response, error) {
	body := stripFences(text)
	if body == "" {
		return nil, fmt.Errorf("%w: empty completion", ErrUnparsable)
	}

	var c completion
	if err := json.Unmarshal([]byte(body), &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}

	envelope := bytes.TrimSpace(c.Nodes)
	if len(envelope) > 0 && envelope[0] == '[' {
		envelope = append(append([]byte(`{"nodes":`), envelope...), '}')
	}
	if len(envelope) == 0 {
		return nil, fmt.Errorf("%w: completion has no nodes", ErrUnparsable)
	}

	nodes, err := workflow.ParseEnvelope(envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: completion has no nodes", ErrUnparsable)
	}

	return &Response{
		Name:        c.Name,
		Description: c.Description,
		Message:     c.Message,
		Nodes:       workflow.Envelope{Nodes: nodes},
	}, nil
}

// stripFences removes a surrounding ```json ... ``` block if present.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	} else {
		text = strings.TrimPrefix(text, "json")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// checkResponse rejects responses whose node list could not be rendered or edited.
func checkResponse(resp *Response) error {
	if resp == nil || len(resp.Nodes.Nodes) == 0 {
		return fmt.Errorf("%w: no nodes", ErrUnparsable)
	}
	if err := workflow.Validate(resp.Nodes.Nodes); err != nil {
		return fmt.Errorf("%w: %v", ErrUnparsable, err)
	}
	return nil
}
