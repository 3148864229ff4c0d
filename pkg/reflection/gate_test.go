package reflection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoresearch/pkg/embedclient"
	"autoresearch/pkg/llmclient"
	"autoresearch/pkg/memory"
	"autoresearch/pkg/model"
	"autoresearch/pkg/store"
)

func newTestMemory(t *testing.T) *memory.Memory {
	t.Helper()
	mem, err := memory.New(context.Background(), store.NewInMemoryDocumentStore(), store.NewInMemoryVectorStore(),
		embedclient.NewMockClient(16), llmclient.NewMockClient(), memory.Config{}, nil)
	require.NoError(t, err)
	return mem
}

func TestShouldReflect_FiresOnIntervalElapsed(t *testing.T) {
	ar := NewAgentReflection(llmclient.NewMockClient(), newTestMemory(t), 5, 50)
	state := &model.AgentState{IterationCount: 5}

	result := ar.ShouldReflect("sess-1", state, nil)
	assert.True(t, result.ShouldReflect)
	assert.Equal(t, "reflection interval elapsed", result.Reason)
}

func TestShouldReflect_FiresOnConsecutiveFailures(t *testing.T) {
	ar := NewAgentReflection(llmclient.NewMockClient(), newTestMemory(t), 100, 50)
	state := &model.AgentState{IterationCount: 1}
	outcomes := []model.Outcome{{Success: false}, {Success: false}, {Success: false}}

	result := ar.ShouldReflect("sess-1", state, outcomes)
	assert.True(t, result.ShouldReflect)
}

func TestShouldReflect_FiresOnLowConfidence(t *testing.T) {
	ar := NewAgentReflection(llmclient.NewMockClient(), newTestMemory(t), 100, 50)
	state := &model.AgentState{IterationCount: 3, Progress: model.Progress{Confidence: 0.2}}

	result := ar.ShouldReflect("sess-1", state, nil)
	assert.True(t, result.ShouldReflect)
	assert.Equal(t, "low confidence", result.Reason)
}

func TestShouldReflect_FalseWhenNoConditionMet(t *testing.T) {
	ar := NewAgentReflection(llmclient.NewMockClient(), newTestMemory(t), 100, 50)
	state := &model.AgentState{IterationCount: 1, Progress: model.Progress{Confidence: 0.9}}

	result := ar.ShouldReflect("sess-1", state, nil)
	assert.False(t, result.ShouldReflect)
}

func TestReflect_ComputesProgressAndStrategy(t *testing.T) {
	ar := NewAgentReflection(llmclient.NewMockClient(), newTestMemory(t), 5, 50)
	state := &model.AgentState{
		IterationCount: 10,
		Progress: model.Progress{
			StepsCompleted: 4, StepsTotal: 8, SourcesGathered: 5, FactsExtracted: 10, Confidence: 0.8,
		},
	}
	actions := []model.Action{{Tool: "search"}, {Tool: "search"}, {Tool: "fetch"}}
	outcomes := []model.Outcome{{Success: true}, {Success: true}, {Success: true}}

	reflection, err := ar.Reflect(context.Background(), "sess-1", state, actions, outcomes)
	require.NoError(t, err)
	assert.True(t, reflection.ProgressAssessment.IsOnTrack)
	assert.Equal(t, model.RecommendationContinue, reflection.StrategyEvaluation.Recommendation)
	assert.Len(t, state.Reflections, 1)
}

func TestReflect_RecommendsChangeOnLowEffectiveness(t *testing.T) {
	ar := NewAgentReflection(llmclient.NewMockClient(), newTestMemory(t), 5, 50)
	state := &model.AgentState{IterationCount: 10, Progress: model.Progress{Confidence: 0.3}}
	actions := []model.Action{{Tool: "search"}, {Tool: "search"}, {Tool: "search"}}
	outcomes := []model.Outcome{{Success: false}, {Success: false}, {Success: false}}

	reflection, err := ar.Reflect(context.Background(), "sess-1", state, actions, outcomes)
	require.NoError(t, err)
	assert.Equal(t, model.RecommendationChange, reflection.StrategyEvaluation.Recommendation)
	assert.True(t, reflection.ShouldReplan)
}

func TestApplyReflection_SurfacesReplanAndFocus(t *testing.T) {
	reflection := &model.Reflection{
		ShouldReplan: true,
		NextFocus:    "Focus on synthesis phase",
		Adjustments:  []string{"adjustment-1"},
		StrategyEvaluation: model.StrategyEvaluation{Recommendation: model.RecommendationAdjust},
	}
	result := ApplyReflection(reflection)
	assert.True(t, result.ShouldReplan)
	assert.Equal(t, "Focus on synthesis phase", result.NewFocus)
	assert.Equal(t, model.RecommendationAdjust, result.StrategyRecommendation)
}
