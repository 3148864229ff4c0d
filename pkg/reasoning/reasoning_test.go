package reasoning

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoresearch/pkg/llmclient"
	"autoresearch/pkg/model"
	"autoresearch/pkg/tool"
)

type stubTool struct{ name string }

func (s *stubTool) Name() string                                            { return s.name }
func (s *stubTool) Description() string                                     { return "stub" }
func (s *stubTool) Version() string                                         { return "1.0.0" }
func (s *stubTool) Schema() map[string]interface{}                          { return map[string]interface{}{} }
func (s *stubTool) ValidateInput(input map[string]interface{}) bool         { return true }
func (s *stubTool) Execute(ctx context.Context, input map[string]interface{}) tool.Result {
	return tool.Result{Success: true}
}

func tools(names ...string) []tool.Tool {
	out := make([]tool.Tool, len(names))
	for i, n := range names {
		out[i] = &stubTool{name: n}
	}
	return out
}

func TestReason_SelectsHighestScoringOption(t *testing.T) {
	llm := llmclient.NewMockClient().QueueText(`{"options":[
		{"id":"a","action":"search","rationale":"low confidence","estimatedCost":1,"confidence":0.3},
		{"id":"b","action":"analyze","rationale":"high confidence","estimatedCost":2,"confidence":0.9}
	]}`)
	r := NewReasoner(llm)

	goal := model.Goal{Description: "understand X"}
	progress := model.Progress{CurrentPhase: model.PhaseGathering, Confidence: 0.5}
	result, err := r.Reason(context.Background(), goal, progress, model.WorkingMemory{}, tools("search", "analyze"), nil, "sess-1", "")
	require.NoError(t, err)
	assert.Equal(t, "high confidence", result.Reasoning)
	assert.Equal(t, "analyze", result.SelectedAction.Tool)
}

func TestReason_FallsBackToPhaseDefaultOnUnparseableResponse(t *testing.T) {
	llm := llmclient.NewMockClient().QueueText("not json")
	r := NewReasoner(llm)

	goal := model.Goal{Description: "understand X"}
	progress := model.Progress{CurrentPhase: model.PhaseGathering}
	result, err := r.Reason(context.Background(), goal, progress, model.WorkingMemory{}, tools("search"), nil, "sess-1", "")
	require.NoError(t, err)
	assert.Equal(t, model.ActionSearch, result.SelectedAction.Type)
	assert.Equal(t, 0.3, result.Confidence)
}

func TestSelectTool_PrefersExactNameMatch(t *testing.T) {
	name, actionType := selectTool(model.ActionSearch, tools("fetch", "search"))
	assert.Equal(t, "search", name)
	assert.Equal(t, model.ActionSearch, actionType)
}

func TestSelectTool_FallsBackToSubstringMatch(t *testing.T) {
	name, actionType := selectTool(model.ActionAnalyze, tools("web-analyzer"))
	assert.Equal(t, "web-analyzer", name)
	assert.Equal(t, model.ActionAnalyze, actionType)
}

func TestObserve_ShouldContinueFalseOnLowConfidenceFailure(t *testing.T) {
	llm := llmclient.NewMockClient().QueueText(`{"learnings":["search failed: no results"]}`)
	r := NewReasoner(llm)

	goal := model.Goal{Description: "x"}
	progress := model.Progress{CurrentPhase: model.PhaseGathering, Confidence: 0.2}
	action := model.Action{Type: model.ActionSearch, Tool: "search"}
	outcome := model.Outcome{Success: false, Error: "timeout"}

	result, err := r.Observe(context.Background(), action, outcome, goal, progress, model.WorkingMemory{RecentOutcomes: []model.Outcome{outcome}})
	require.NoError(t, err)
	assert.False(t, result.ShouldContinue)
	assert.True(t, result.ShouldReplan)
}

func TestObserve_ShouldReplanOnThreeConsecutiveFailures(t *testing.T) {
	llm := llmclient.NewMockClient()
	r := NewReasoner(llm)

	goal := model.Goal{Description: "x"}
	progress := model.Progress{CurrentPhase: model.PhaseGathering, Confidence: 0.8}
	failed := model.Outcome{Success: false}
	wm := model.WorkingMemory{RecentOutcomes: []model.Outcome{failed, failed, failed}}

	result, err := r.Observe(context.Background(), model.Action{Tool: "search"}, model.Outcome{Success: true}, goal, progress, wm)
	require.NoError(t, err)
	assert.True(t, result.ShouldReplan)
}

func TestObserve_FallbackLearningOnUnparseableResponse(t *testing.T) {
	llm := llmclient.NewMockClient().QueueText("garbage")
	r := NewReasoner(llm)

	outcome := model.Outcome{Success: true, Observations: []string{"found 3 results"}}
	result, err := r.Observe(context.Background(), model.Action{Tool: "search"}, outcome,
		model.Goal{}, model.Progress{}, model.WorkingMemory{RecentOutcomes: []model.Outcome{outcome}})
	require.NoError(t, err)
	require.Len(t, result.Learnings, 1)
	assert.Contains(t, result.Learnings[0], "search succeeded")
}
