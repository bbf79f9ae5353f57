package estimate

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumika/estimator/internal/model"
	"github.com/sumika/estimator/internal/scorer"
	"github.com/sumika/estimator/pkg/anthropic"
)

// fakeClient returns a canned reply or error and counts invocations.
type fakeClient struct {
	reply string
	err   error
	calls int
}

func (c *fakeClient) CreateMessage(_ context.Context, _ anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: c.reply}},
	}, nil
}

func TestNewGenerator_NilClient(t *testing.T) {
	assert.Nil(t, NewGenerator(nil, "m", 0))
}

func TestGenerate_ParsesModelReply(t *testing.T) {
	client := &fakeClient{reply: `{"estimate": 95000, "currency": "JPY", "rationale": [" close area match ", ""], "usedExampleIds": ["r1", 42, "r2"], "confidence": 0.8}`}
	g := NewGenerator(client, "test-model", 256)

	res := g.Generate(context.Background(), model.PropertyProfile{}, nil, 60000, model.MethodBaselineAreaRate)

	assert.InDelta(t, 95000, res.Amount, 0.001)
	assert.Equal(t, model.MethodAI, res.Method)
	assert.Equal(t, "JPY", res.Currency)
	assert.Equal(t, []string{"close area match"}, res.Rationale)
	assert.Equal(t, []string{"r1", "r2"}, res.UsedExampleIDs)
	require.NotNil(t, res.Confidence)
	assert.InDelta(t, 0.8, *res.Confidence, 0.001)
	assert.Equal(t, 1, client.calls)
}

func TestGenerate_FencedReply(t *testing.T) {
	client := &fakeClient{reply: "```json\n{\"estimate\": \"¥88,000\", \"confidence\": 1.7}\n```"}
	g := NewGenerator(client, "test-model", 256)

	res := g.Generate(context.Background(), model.PropertyProfile{}, nil, 60000, model.MethodBaselineAreaRate)

	// String estimate is coerced; out-of-range confidence becomes nil.
	assert.InDelta(t, 88000, res.Amount, 0.001)
	assert.Equal(t, model.MethodAI, res.Method)
	assert.Nil(t, res.Confidence)
}

func TestGenerate_UnparsableTextYieldsBaseline(t *testing.T) {
	client := &fakeClient{reply: "I am sorry, I cannot help with that."}
	g := NewGenerator(client, "test-model", 256)

	res := g.Generate(context.Background(), model.PropertyProfile{}, nil, 72000, model.MethodBaselineAreaRate)

	assert.InDelta(t, 72000, res.Amount, 0.001)
	assert.Equal(t, model.MethodBaselineAreaRate, res.Method)
	assert.Equal(t, model.DefaultCurrency, res.Currency)
}

func TestGenerate_ClientErrorYieldsBaseline(t *testing.T) {
	client := &fakeClient{err: eris.New("service unreachable")}
	g := NewGenerator(client, "test-model", 256)

	res := g.Generate(context.Background(), model.PropertyProfile{}, nil, 72000, model.MethodBaselineAreaRate)

	assert.InDelta(t, 72000, res.Amount, 0.001)
	assert.Equal(t, model.MethodBaselineAreaRate, res.Method)
	assert.Equal(t, 1, client.calls) // no retry
}

func TestGenerate_MissingEstimateFieldYieldsBaseline(t *testing.T) {
	client := &fakeClient{reply: `{"rationale": ["thin data"], "confidence": 0.2}`}
	g := NewGenerator(client, "test-model", 256)

	res := g.Generate(context.Background(), model.PropertyProfile{}, nil, 60000, model.MethodBaselineMedian)

	assert.InDelta(t, 60000, res.Amount, 0.001)
	assert.Equal(t, model.MethodBaselineMedian, res.Method)
	// Partial fields still survive.
	assert.Equal(t, []string{"thin data"}, res.Rationale)
	require.NotNil(t, res.Confidence)
	assert.InDelta(t, 0.2, *res.Confidence, 0.001)
}

func TestParseModelOutput_EmptyObjectOnGarbage(t *testing.T) {
	_, ok := parseModelOutput("not json at all")
	assert.False(t, ok)
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose wrapping", `Here you go: {"a":1} hope that helps`, `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSON(tt.in))
		})
	}
}

func TestBuildPrompt_IncludesComparables(t *testing.T) {
	area := 55.0
	amount := 70000.0
	top := []scorer.Ranked{{
		Record: model.ComparableRecord{
			ID: "r1",
			Property: model.PropertyProfile{
				Layout: "2LDK", Region: "Kyoto", AreaSqm: &area,
			},
			Estimate: model.EstimateResult{Amount: amount, Method: model.MethodAI},
		},
		Score: 5,
	}}

	prompt := buildPrompt(model.PropertyProfile{Layout: "2LDK", Region: "Kyoto"}, top)
	assert.Contains(t, prompt, "id=r1")
	assert.Contains(t, prompt, "area_sqm=55")
	assert.Contains(t, prompt, "amount=70000")
	assert.Contains(t, prompt, `"estimate"`)
}

func TestBuildPrompt_NoComparables(t *testing.T) {
	prompt := buildPrompt(model.PropertyProfile{Layout: "1K"}, nil)
	assert.Contains(t, prompt, "(none)")
}
