package generator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notkisk/AIAgentBuilder-sub000/services/workflow"
)

type stubGenerator struct {
	calls int
	resp  *Response
	err   error
	block bool
}

func (g *stubGenerator) Generate(ctx context.Context, _ Request) (*Response, error) {
	g.calls++
	if g.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return g.resp, g.err
}

type observation struct {
	source  string
	outcome string
}

type fakeRecorder struct {
	mu  sync.Mutex
	obs []observation
}

func (r *fakeRecorder) RecordGeneration(source, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, observation{source, outcome})
}

func validResponse() *Response {
	return &Response{
		Message: "from the model",
		Nodes:   workflow.Envelope{Nodes: workflow.SampleNodes()},
	}
}

func TestChain_PrimarySuccess(t *testing.T) {
	primary := &stubGenerator{resp: validResponse()}
	rec := &fakeRecorder{}
	chain := NewChain(primary, NewTemplateGenerator(), WithRecorder(rec))

	resp, err := chain.Generate(context.Background(), Request{Prompt: "anything"})

	require.NoError(t, err)
	assert.Equal(t, SourceAI, resp.Source)
	assert.Equal(t, "from the model", resp.Message)
	assert.Equal(t, []observation{{"ai", OutcomeSuccess}}, rec.obs)
}

func TestChain_FallsBackOnFailures(t *testing.T) {
	tests := []struct {
		name    string
		primary *stubGenerator
		outcome string
	}{
		{"transport error", &stubGenerator{err: errors.New("connection refused")}, OutcomeError},
		{"unparsable", &stubGenerator{err: ErrUnparsable}, OutcomeUnparsable},
		{"empty list", &stubGenerator{resp: &Response{Message: "nothing"}}, OutcomeUnparsable},
		{"dangling next", &stubGenerator{resp: &Response{Nodes: workflow.Envelope{Nodes: []workflow.Node{
			{ID: "1", Tool: "t", Function: "f", Next: "2"},
		}}}}, OutcomeUnparsable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecorder{}
			chain := NewChain(tt.primary, NewTemplateGenerator(), WithRecorder(rec))

			resp, err := chain.Generate(context.Background(), Request{Prompt: "email me a summary"})

			require.NoError(t, err)
			assert.Equal(t, SourceTemplate, resp.Source)
			assert.NotEmpty(t, resp.Nodes.Nodes)
			assert.NoError(t, workflow.Validate(resp.Nodes.Nodes))
			assert.Equal(t, []observation{{"ai", tt.outcome}, {"template", OutcomeSuccess}}, rec.obs)
		})
	}
}

func TestChain_Timeout(t *testing.T) {
	primary := &stubGenerator{block: true}
	rec := &fakeRecorder{}
	chain := NewChain(primary, NewTemplateGenerator(), WithTimeout(20*time.Millisecond), WithRecorder(rec))

	resp, err := chain.Generate(context.Background(), Request{Prompt: "tweet it"})

	require.NoError(t, err)
	assert.Equal(t, SourceTemplate, resp.Source)
	assert.Equal(t, "Social Post", resp.Name)
	assert.Equal(t, OutcomeTimeout, rec.obs[0].outcome)
}

func TestChain_RateLimit(t *testing.T) {
	primary := &stubGenerator{resp: validResponse()}
	rec := &fakeRecorder{}
	chain := NewChain(primary, NewTemplateGenerator(), WithRateLimit(1, 1), WithRecorder(rec))

	first, err := chain.Generate(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	second, err := chain.Generate(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)

	assert.Equal(t, SourceAI, first.Source)
	assert.Equal(t, SourceTemplate, second.Source)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, observation{"ai", OutcomeRateLimited}, rec.obs[1])
}

func TestChain_NoPrimary(t *testing.T) {
	chain := NewChain(nil, NewTemplateGenerator())

	resp, err := chain.Generate(context.Background(), Request{Prompt: "post to slack"})
	require.NoError(t, err)
	assert.Equal(t, "Slack Digest", resp.Name)

	_, err = chain.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestChain_ModifyFallbackKeepsExisting(t *testing.T) {
	chain := NewChain(&stubGenerator{err: ErrUnparsable}, NewTemplateGenerator())

	resp, err := chain.Generate(context.Background(), Request{
		Prompt:        "add a tweet",
		ExistingNodes: workflow.SampleNodes(),
	})

	require.NoError(t, err)
	require.Len(t, resp.Nodes.Nodes, 4)
	assert.Equal(t, "twitter", resp.Nodes.Nodes[3].Tool)
}
