package reflection

import (
	"context"
	"fmt"
	"sort"

	"autoresearch/pkg/memory"
	"autoresearch/pkg/model"
)

const (
	consolidationEpisodeThreshold = 50
	consolidationFactThreshold    = 200
)

// TopicPattern summarizes how often a topic recurs and how it tends
// to resolve.
type TopicPattern struct {
	Topic        string
	Occurrences  int
	SuccessRate  float64
}

// StrategyEffectiveness summarizes one strategy's recorded track
// record.
type StrategyEffectiveness struct {
	StrategyName string
	SuccessRate  float64
	TimesUsed    int
}

// KnowledgeGap is a category with disproportionately few or
// low-confidence facts relative to the rest of semantic memory.
type KnowledgeGap struct {
	Category        string
	FactCount       int
	AverageConfidence float64
}

// ReflectionEngine runs read-only analyses over accumulated memory,
// used during longer-running sessions to spot patterns a single
// iteration's reflection wouldn't see.
type ReflectionEngine struct {
	memory *memory.Memory
}

func NewReflectionEngine(mem *memory.Memory) *ReflectionEngine {
	return &ReflectionEngine{memory: mem}
}

// AnalyzeTopicPatterns groups a session's episodes by topic and
// reports how often each recurs and its success rate.
func (e *ReflectionEngine) AnalyzeTopicPatterns(ctx context.Context, sessionID string) ([]TopicPattern, error) {
	episodes, err := e.memory.Episodic.GetSessionEpisodes(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("reflection: analyze topic patterns: %w", err)
	}

	type agg struct {
		count, successes int
	}
	byTopic := make(map[string]*agg)
	for _, ep := range episodes {
		a, ok := byTopic[ep.Topic]
		if !ok {
			a = &agg{}
			byTopic[ep.Topic] = a
		}
		a.count++
		if ep.Success {
			a.successes++
		}
	}

	out := make([]TopicPattern, 0, len(byTopic))
	for topic, a := range byTopic {
		out = append(out, TopicPattern{
			Topic:       topic,
			Occurrences: a.count,
			SuccessRate: float64(a.successes) / float64(a.count),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Occurrences > out[j].Occurrences })
	return out, nil
}

// AnalyzeStrategyEffectiveness ranks by success rate, highest first, the
// stored strategies (at most 100) whose required tools are all in
// availableTools.
func (e *ReflectionEngine) AnalyzeStrategyEffectiveness(ctx context.Context, availableTools []string) ([]StrategyEffectiveness, error) {
	recs, err := e.memory.GetStrategyRecommendations(ctx, "", availableTools, 100)
	if err != nil {
		return nil, fmt.Errorf("reflection: analyze strategy effectiveness: %w", err)
	}

	out := make([]StrategyEffectiveness, len(recs))
	for i, r := range recs {
		out[i] = StrategyEffectiveness{
			StrategyName: r.Strategy.StrategyName,
			SuccessRate:  r.Strategy.SuccessRate,
			TimesUsed:    r.Strategy.TimesUsed,
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SuccessRate > out[j].SuccessRate })
	return out, nil
}

// IdentifyKnowledgeGaps flags fact categories with few records or low
// average confidence, relative to the category with the most facts.
func (e *ReflectionEngine) IdentifyKnowledgeGaps(ctx context.Context, categories []string) ([]KnowledgeGap, error) {
	var gaps []KnowledgeGap
	maxCount := 0

	perCategory := make(map[string][]float64)
	for _, cat := range categories {
		facts, err := e.memory.Semantic.GetFactsByCategory(ctx, cat)
		if err != nil {
			continue
		}
		confidences := make([]float64, len(facts))
		for i, f := range facts {
			confidences[i] = f.Confidence
		}
		perCategory[cat] = confidences
		if len(facts) > maxCount {
			maxCount = len(facts)
		}
	}

	for cat, confidences := range perCategory {
		avg := 0.0
		for _, c := range confidences {
			avg += c
		}
		if len(confidences) > 0 {
			avg /= float64(len(confidences))
		}
		if len(confidences) < maxCount/2 || avg < 0.5 {
			gaps = append(gaps, KnowledgeGap{Category: cat, FactCount: len(confidences), AverageConfidence: avg})
		}
	}
	return gaps, nil
}

// CompareWithPrevious reports how a reflection's effectiveness and
// confidence trend compares with the one before it.
func (e *ReflectionEngine) CompareWithPrevious(current, previous *model.Reflection) string {
	if previous == nil {
		return "no prior reflection to compare against"
	}
	delta := current.StrategyEvaluation.Effectiveness - previous.StrategyEvaluation.Effectiveness
	switch {
	case delta > 0.05:
		return "strategy effectiveness improved since the last reflection"
	case delta < -0.05:
		return "strategy effectiveness declined since the last reflection"
	default:
		return "strategy effectiveness is stable since the last reflection"
	}
}

// TriggerConsolidationIfNeeded runs PerformMaintenance when episodic
// or semantic memory has grown past its consolidation threshold.
func (e *ReflectionEngine) TriggerConsolidationIfNeeded(ctx context.Context, sessionID string) (bool, error) {
	episodeCount, err := e.memory.EpisodeCount(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("reflection: consolidation check: %w", err)
	}
	factCount, err := e.memory.FactCount(ctx)
	if err != nil {
		return false, fmt.Errorf("reflection: consolidation check: %w", err)
	}

	if episodeCount >= consolidationEpisodeThreshold || factCount >= consolidationFactThreshold {
		e.memory.PerformMaintenance(ctx)
		return true, nil
	}
	return false, nil
}
