package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoresearch/pkg/config"
	"autoresearch/pkg/embedclient"
	"autoresearch/pkg/llmclient"
	"autoresearch/pkg/memory"
	"autoresearch/pkg/model"
	"autoresearch/pkg/reasoning"
	"autoresearch/pkg/reflection"
	"autoresearch/pkg/store"
	"autoresearch/pkg/tool"
	"autoresearch/pkg/tool/builtin"
)

func newTestMemory(t *testing.T, llm llmclient.Client) *memory.Memory {
	t.Helper()
	docs := store.NewInMemoryDocumentStore()
	vectors := store.NewInMemoryVectorStore()
	embed := embedclient.NewMockClient(16)
	m, err := memory.New(context.Background(), docs, vectors, embed, llm, memory.Config{}, nil)
	require.NoError(t, err)
	return m
}

// alwaysFailTool is a minimal tool.Tool stub that always fails, used to
// exercise the low-confidence early-termination path without a real
// search backend.
type alwaysFailTool struct{ name string }

func (f *alwaysFailTool) Name() string                             { return f.name }
func (f *alwaysFailTool) Description() string                      { return "always fails" }
func (f *alwaysFailTool) Version() string                          { return "1.0.0" }
func (f *alwaysFailTool) Schema() map[string]interface{}           { return map[string]interface{}{"type": "object"} }
func (f *alwaysFailTool) ValidateInput(map[string]interface{}) bool { return true }
func (f *alwaysFailTool) Execute(context.Context, map[string]interface{}) tool.Result {
	return tool.Result{Success: false, Error: "simulated failure"}
}

func testGoal() model.Goal {
	return model.Goal{
		Description:     "Summarize recent developments in fusion energy",
		SuccessCriteria: []string{"at least 5 distinct sources", "at least 10 facts"},
	}
}

func TestResearch_HappyPath_ReachesGoalCompletion(t *testing.T) {
	ctx := context.Background()

	reasonLLM := llmclient.NewMockClient() // queue stays empty: every call exercises the fallback path
	analyzeLLM := llmclient.NewMockClient()
	for i := 0; i < 8; i++ {
		analyzeLLM.QueueText(`{"facts":[{"statement":"fact a","confidence":0.9,"category":"x"},` +
			`{"statement":"fact b","confidence":0.8,"category":"x"},` +
			`{"statement":"fact c","confidence":0.7,"category":"x"}]}`)
	}
	synthesizeLLM := llmclient.NewMockClient()
	for i := 0; i < 4; i++ {
		synthesizeLLM.QueueText(`{"synthesis":"Fusion energy has seen steady progress."}`)
	}

	registry := tool.NewRegistry()
	require.NoError(t, registry.Register(builtin.NewSearchTool(builtin.NewMockSearcher(6)), tool.RegisterOptions{Enabled: true}))
	require.NoError(t, registry.Register(builtin.NewAnalyzeTool(analyzeLLM), tool.RegisterOptions{Enabled: true}))
	require.NoError(t, registry.Register(builtin.NewSynthesizeTool(synthesizeLLM), tool.RegisterOptions{Enabled: true}))

	mem := newTestMemory(t, reasonLLM)
	reasoner := reasoning.NewReasoner(reasonLLM)
	refl := reflection.NewAgentReflection(reasonLLM, mem, 5, 50)

	cfg := config.AgentConfig{MaxIterations: 20, EnableAutoReflection: false}
	a := New(mem, reasoner, refl, registry, reasonLLM, cfg, nil)

	result, err := a.Research(ctx, "fusion energy", testGoal())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Success)
	require.NotNil(t, result.Result)
	assert.GreaterOrEqual(t, result.Result.Confidence, 0.7)
	assert.GreaterOrEqual(t, len(result.Result.KeyFindings), 10)
	assert.NotEmpty(t, result.Result.Sources)
	assert.Contains(t, result.Result.Synthesis, "Fusion energy")
	assert.LessOrEqual(t, result.Iterations, 20)
}

func TestCreatePlan_FallbackOnUnparseableResponse(t *testing.T) {
	ctx := context.Background()
	llm := llmclient.NewMockClient().QueueText("not json at all")
	mem := newTestMemory(t, llm)
	reasoner := reasoning.NewReasoner(llm)
	refl := reflection.NewAgentReflection(llm, mem, 5, 50)
	registry := tool.NewRegistry()

	a := New(mem, reasoner, refl, registry, llm, config.AgentConfig{}, nil)

	plan, err := a.createPlan(ctx, testGoal(), "session-1")
	require.Error(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, "general-research", plan.Strategy)
	assert.Len(t, plan.Steps, 5)
	assert.Equal(t, "search", plan.Steps[0].Action)
	assert.Equal(t, "synthesize", plan.Steps[4].Action)
}

func TestBindParameters_FetchAndAnalyzeFailWithoutPriorContext(t *testing.T) {
	goal := testGoal()
	wm := model.WorkingMemory{}

	fetchAction := &model.Action{Tool: "fetch", Parameters: map[string]interface{}{}}
	assert.False(t, bindParameters(fetchAction, wm, goal, map[string]bool{}))

	analyzeAction := &model.Action{Tool: "analyze", Parameters: map[string]interface{}{}}
	assert.False(t, bindParameters(analyzeAction, wm, goal, map[string]bool{}))

	searchAction := &model.Action{Tool: "search", Parameters: map[string]interface{}{}}
	assert.True(t, bindParameters(searchAction, wm, goal, map[string]bool{}))
	assert.Equal(t, goal.Description, searchAction.Parameters["query"])

	synthesizeAction := &model.Action{Tool: "synthesize", Parameters: map[string]interface{}{}}
	assert.True(t, bindParameters(synthesizeAction, wm, goal, map[string]bool{}))
}

func TestResearch_LowConfidenceTerminatesEarly(t *testing.T) {
	ctx := context.Background()

	llm := llmclient.NewMockClient()
	mem := newTestMemory(t, llm)
	reasoner := reasoning.NewReasoner(llm)
	refl := reflection.NewAgentReflection(llm, mem, 5, 50)

	registry := tool.NewRegistry()
	require.NoError(t, registry.Register(&alwaysFailTool{name: "search"}, tool.RegisterOptions{Enabled: true}))

	cfg := config.AgentConfig{MaxIterations: 20, EnableAutoReflection: false}
	a := New(mem, reasoner, refl, registry, llm, cfg, nil)

	result, err := a.Research(ctx, "a topic that never resolves", testGoal())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Success)
	assert.Less(t, result.Iterations, 20)
	require.NotNil(t, result.Result)
	assert.Less(t, result.Result.Confidence, 0.3)
}
