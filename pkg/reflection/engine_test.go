package reflection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoresearch/pkg/model"
)

func TestAnalyzeTopicPatterns_GroupsBySessionTopic(t *testing.T) {
	mem := newTestMemory(t)
	ctx := context.Background()

	sess, err := mem.StartSession(ctx, "renewable energy", model.Goal{Description: "survey"}, "")
	require.NoError(t, err)

	_, err = mem.Episodic.StoreEpisode(ctx, sess.ID, "renewable energy",
		[]model.Action{{Tool: "search"}}, []model.Outcome{{Success: true}}, nil, "s1", nil)
	require.NoError(t, err)
	_, err = mem.Episodic.StoreEpisode(ctx, sess.ID, "renewable energy",
		[]model.Action{{Tool: "search"}}, []model.Outcome{{Success: false}}, nil, "s2", nil)
	require.NoError(t, err)

	engine := NewReflectionEngine(mem)
	patterns, err := engine.AnalyzeTopicPatterns(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, 2, patterns[0].Occurrences)
	assert.Equal(t, 0.5, patterns[0].SuccessRate)
}

func TestCompareWithPrevious_DetectsImprovement(t *testing.T) {
	mem := newTestMemory(t)
	engine := NewReflectionEngine(mem)

	previous := &model.Reflection{StrategyEvaluation: model.StrategyEvaluation{Effectiveness: 0.3}}
	current := &model.Reflection{StrategyEvaluation: model.StrategyEvaluation{Effectiveness: 0.8}}

	assert.Contains(t, engine.CompareWithPrevious(current, previous), "improved")
}

func TestCompareWithPrevious_NoPrior(t *testing.T) {
	mem := newTestMemory(t)
	engine := NewReflectionEngine(mem)
	assert.Contains(t, engine.CompareWithPrevious(&model.Reflection{}, nil), "no prior")
}

func TestTriggerConsolidationIfNeeded_FalseBelowThreshold(t *testing.T) {
	mem := newTestMemory(t)
	ctx := context.Background()
	sess, err := mem.StartSession(ctx, "topic", model.Goal{Description: "g"}, "")
	require.NoError(t, err)

	engine := NewReflectionEngine(mem)
	triggered, err := engine.TriggerConsolidationIfNeeded(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, triggered)
}
