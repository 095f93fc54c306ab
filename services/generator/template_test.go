package generator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notkisk/AIAgentBuilder-sub000/services/workflow"
)

func generate(t *testing.T, prompt string, existing []workflow.Node) *Response {
	t.Helper()
	resp, err := NewTemplateGenerator().Generate(context.Background(), Request{Prompt: prompt, ExistingNodes: existing})
	require.NoError(t, err)
	require.NoError(t, checkResponse(resp), "template output must always be valid")
	assert.Equal(t, SourceTemplate, resp.Source)
	return resp
}

func tools(nodes []workflow.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Tool
	}
	return out
}

func TestTemplate_CreatePicksByKeyword(t *testing.T) {
	tests := []struct {
		prompt string
		name   string
		tools  []string
	}{
		{"Post a summary of https://go.dev/blog to Slack", "Slack Digest", []string{"webscraper", "chatgpt", "slack"}},
		{"Tweet about new releases", "Social Post", []string{"webscraper", "chatgpt", "twitter"}},
		{"Weekly spreadsheet report of my inbox", "Sheet Report", []string{"gmail", "chatgpt", "googlesheets"}},
		{"Email me a summary of https://example.org", "Summary Email", []string{"webscraper", "chatgpt", "gmail"}},
		{"do something nice", "Summary Email", []string{"webscraper", "chatgpt", "gmail"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := generate(t, tt.prompt, nil)
			assert.Equal(t, tt.name, resp.Name)
			assert.Equal(t, tt.tools, tools(resp.Nodes.Nodes))
			assert.Equal(t, map[string]int{"1": 0, "2": 1, "3": 2}, workflow.Levels(resp.Nodes.Nodes))
			assert.Empty(t, workflow.DanglingReferences(resp.Nodes.Nodes))
		})
	}
}

func TestTemplate_CreateUsesPromptDetails(t *testing.T) {
	resp := generate(t, "Summarize https://go.dev/blog. and email it to ana@example.com", nil)

	nodes := resp.Nodes.Nodes
	assert.Equal(t, workflow.String("https://go.dev/blog"), nodes[0].Params["url"])
	assert.Equal(t, workflow.String("ana@example.com"), nodes[2].Params["to"])
}

func TestTemplate_EmptyPrompt(t *testing.T) {
	_, err := NewTemplateGenerator().Generate(context.Background(), Request{Prompt: "  "})
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestTemplate_ModifySetParam(t *testing.T) {
	existing := workflow.SampleNodes()

	resp := generate(t, "set the url to https://lobste.rs", existing)

	assert.Equal(t, workflow.String("https://lobste.rs"), resp.Nodes.Nodes[0].Params["url"])
	assert.Equal(t, "2", resp.Nodes.Nodes[0].Next)
	assert.Equal(t, workflow.String("https://news.ycombinator.com"), existing[0].Params["url"])
}

func TestTemplate_ModifyAddAppendsAndConnects(t *testing.T) {
	resp := generate(t, "also add a slack message at the end", workflow.SampleNodes())

	nodes := resp.Nodes.Nodes
	require.Len(t, nodes, 4)
	added := nodes[3]
	assert.Equal(t, "4", added.ID)
	assert.Equal(t, "slack", added.Tool)
	assert.Equal(t, "sendMessage", added.Function)
	assert.Equal(t, workflow.OutputOf("3"), added.Params["text"])
	assert.Equal(t, "4", nodes[2].Next)
	assert.Contains(t, resp.Message, "node 4")
}

func TestTemplate_ModifyDeleteByTool(t *testing.T) {
	resp := generate(t, "remove the summarize step", workflow.SampleNodes())

	nodes := resp.Nodes.Nodes
	require.Len(t, nodes, 2)
	assert.Equal(t, []string{"webscraper", "gmail"}, tools(nodes))
	assert.Empty(t, nodes[0].Next)
	assert.Equal(t, workflow.String(""), nodes[1].Params["body"])
}

func TestTemplate_ModifyConnectNamed(t *testing.T) {
	existing := []workflow.Node{
		{ID: "1", Tool: "webscraper", Function: "fetchPage"},
		{ID: "2", Tool: "chatgpt", Function: "summarizeText"},
		{ID: "3", Tool: "gmail", Function: "sendEmail"},
	}

	resp := generate(t, "connect 1 to 3", existing)
	assert.Equal(t, "3", resp.Nodes.Nodes[0].Next)

	resp = generate(t, "connect scraper with email", existing)
	assert.Equal(t, "3", resp.Nodes.Nodes[0].Next)
}

func TestTemplate_ModifyConnectChainsOpenEnds(t *testing.T) {
	existing := []workflow.Node{
		{ID: "1", Tool: "webscraper", Function: "fetchPage"},
		{ID: "2", Tool: "chatgpt", Function: "summarizeText"},
		{ID: "3", Tool: "gmail", Function: "sendEmail"},
	}

	resp := generate(t, "link everything together", existing)
	assert.Equal(t, "2", resp.Nodes.Nodes[0].Next)
	assert.Equal(t, "3", resp.Nodes.Nodes[1].Next)
	assert.Empty(t, resp.Nodes.Nodes[2].Next)
	assert.Equal(t, "Connected 3 nodes in list order.", resp.Message)
}

func TestTemplate_ModifyConnectCountsSeparateRuns(t *testing.T) {
	existing := []workflow.Node{
		{ID: "1", Tool: "webscraper", Function: "fetchPage"},
		{ID: "2", Tool: "chatgpt", Function: "summarizeText", Next: "3"},
		{ID: "3", Tool: "gmail", Function: "sendEmail"},
		{ID: "4", Tool: "slack", Function: "sendMessage"},
	}

	resp := generate(t, "link everything together", existing)
	assert.Equal(t, "2", resp.Nodes.Nodes[0].Next)
	assert.Equal(t, "4", resp.Nodes.Nodes[2].Next)
	assert.Equal(t, "Connected 4 nodes in list order.", resp.Message)
}

func TestTemplate_ModifyNoRuleKeepsNodes(t *testing.T) {
	existing := workflow.SampleNodes()

	resp := generate(t, "make it better", existing)
	assert.Equal(t, existing, resp.Nodes.Nodes)
	assert.Contains(t, resp.Message, "unchanged")
}

func TestMentionedTools(t *testing.T) {
	assert.Equal(t, []string{"gmail", "twitter"}, mentionedTools("Email then tweet, then email again"))
	assert.Empty(t, mentionedTools("nothing here"))
}
