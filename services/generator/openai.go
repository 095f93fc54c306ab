package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/notkisk/AIAgentBuilder-sub000/services/store"
	"github.com/notkisk/AIAgentBuilder-sub000/services/workflow"
)

const defaultModel = "gpt-4o-mini"

// OpenAIClient generates workflows through an OpenAI-compatible chat completions API.
// Works with OpenAI, Azure OpenAI, local Ollama /v1 and similar servers.
type OpenAIClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	tools   store.ToolRepo
}

// NewOpenAIClient creates a client for baseURL. The enabled tools of the catalog are
// described to the model so it sticks to known tool and function names; with a nil
// repo the default catalog is used.
func NewOpenAIClient(baseURL, apiKey, model string, tools store.ToolRepo) *OpenAIClient {
	if model == "" {
		model = defaultModel
	}
	return &OpenAIClient{
		client:  &http.Client{Timeout: 60 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		tools:   tools,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate asks the model for a workflow. Transport failures are returned as is;
// content that does not parse into a valid workflow is ErrUnparsable.
func (c *OpenAIClient) Generate(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	user, err := c.userMessage(req)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.systemPrompt(ctx)},
			{Role: "user", Content: user},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call completion API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("completion API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode completion response: %v", ErrUnparsable, err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrUnparsable)
	}

	out, err := ParseCompletion(result.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	if out.Message == "" {
		out.Message = "Generated workflow with " + pluralNodes(len(out.Nodes.Nodes)) + "."
	}
	out.Source = SourceAI
	return out, nil
}

func (c *OpenAIClient) catalog(ctx context.Context) []store.Tool {
	if c.tools == nil {
		return store.DefaultTools()
	}
	tools, err := c.tools.ListTools(ctx)
	if err != nil {
		slog.Warn("Failed to list tools, describing the default catalog", "error", err)
		return store.DefaultTools()
	}
	return tools
}

func (c *OpenAIClient) systemPrompt(ctx context.Context) string {
	var b strings.Builder
	b.WriteString("You design automation workflows. Reply with a single JSON object and nothing else:\n")
	b.WriteString(`{"name": string, "description": string, "message": string, "nodes": {"nodes": [{"id": string, "tool": string, "function": string, "params": {string: string|number|boolean|null}, "next": string}]}}`)
	b.WriteString("\nRules:\n")
	b.WriteString("- ids are unique strings such as \"1\", \"2\", \"3\".\n")
	b.WriteString("- next is the id of the following node; omit it on the last node.\n")
	b.WriteString("- a parameter may use the output of an earlier node with the token \"$<id>.output\".\n")
	b.WriteString("- when an existing workflow is given, return the complete modified list.\n")
	b.WriteString("Available tools:\n")
	for _, t := range c.catalog(ctx) {
		if !t.Enabled {
			continue
		}
		for _, fn := range t.Functions {
			fmt.Fprintf(&b, "- %s.%s(%s): %s\n", t.Name, fn.Name, paramList(fn.Parameters), fn.Description)
		}
	}
	return b.String()
}

func (c *OpenAIClient) userMessage(req Request) (string, error) {
	if !req.Modify() {
		return req.Prompt, nil
	}
	existing, err := workflow.EncodeEnvelope(req.ExistingNodes)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Existing workflow:\n%s\n\nChange request: %s", existing, req.Prompt), nil
}
