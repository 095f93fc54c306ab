package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notkisk/AIAgentBuilder-sub000/services/workflow"
)

const envelopeCompletion = `{
	"name": "Digest",
	"description": "Daily digest",
	"message": "Here you go",
	"nodes": {"nodes": [
		{"id": "1", "tool": "webscraper", "function": "fetchPage", "params": {"url": "https://x"}, "next": "2"},
		{"id": "2", "tool": "chatgpt", "function": "summarizeText", "params": {"text": "$1.output"}}
	]}
}`

func TestParseCompletion_Envelope(t *testing.T) {
	resp, err := ParseCompletion(envelopeCompletion)
	require.NoError(t, err)

	assert.Equal(t, "Digest", resp.Name)
	assert.Equal(t, "Daily digest", resp.Description)
	assert.Equal(t, "Here you go", resp.Message)
	require.Len(t, resp.Nodes.Nodes, 2)
	assert.Equal(t, workflow.OutputOf("1"), resp.Nodes.Nodes[1].Params["text"])
}

func TestParseCompletion_FencedAndBareArray(t *testing.T) {
	text := "```json\n" + `{"message": "ok", "nodes": [{"id": "a", "tool": "slack", "function": "sendMessage"}]}` + "\n```"

	resp, err := ParseCompletion(text)
	require.NoError(t, err)
	require.Len(t, resp.Nodes.Nodes, 1)
	assert.Equal(t, "a", resp.Nodes.Nodes[0].ID)
}

func TestParseCompletion_Unparsable(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", "   "},
		{"prose", "Sure! Here is your workflow."},
		{"no nodes", `{"message": "hi"}`},
		{"empty list", `{"nodes": {"nodes": []}}`},
		{"duplicate ids", `{"nodes": [{"id": "1", "tool": "t", "function": "f"}, {"id": "1", "tool": "t", "function": "f"}]}`},
		{"dangling next", `{"nodes": [{"id": "1", "tool": "t", "function": "f", "next": "7"}]}`},
		{"object params", `{"nodes": [{"id": "1", "tool": "t", "function": "f", "params": {"a": {"b": 1}}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCompletion(tt.text)
			assert.ErrorIs(t, err, ErrUnparsable)
		})
	}
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`  {"a":1}  `))
}

func TestCheckResponse(t *testing.T) {
	assert.ErrorIs(t, checkResponse(nil), ErrUnparsable)
	assert.ErrorIs(t, checkResponse(&Response{}), ErrUnparsable)
	assert.ErrorIs(t, checkResponse(&Response{Nodes: workflow.Envelope{Nodes: []workflow.Node{{ID: "1"}}}}), ErrUnparsable)
	assert.NoError(t, checkResponse(&Response{Nodes: workflow.Envelope{Nodes: []workflow.Node{{ID: "1", Tool: "t", Function: "f"}}}}))
}
