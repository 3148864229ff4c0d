package memory

import (
	"context"
	"fmt"
	"strings"

	"autoresearch/pkg/embedclient"
	"autoresearch/pkg/model"
	"autoresearch/pkg/store"
)

// StrategyRecommendation pairs a stored strategy with its relevance to
// a query.
type StrategyRecommendation struct {
	Strategy       *model.Strategy
	RelevanceScore float64
	Reasoning      string
}

// ProceduralManager stores and ranks reusable strategy patterns.
type ProceduralManager struct {
	docs    store.DocumentStore
	vectors store.VectorStore
	embed   embedclient.Client
}

func NewProceduralManager(docs store.DocumentStore, vectors store.VectorStore, embed embedclient.Client) *ProceduralManager {
	return &ProceduralManager{docs: docs, vectors: vectors, embed: embed}
}

// StoreStrategy persists a new named strategy and indexes its
// description for relevance search.
func (m *ProceduralManager) StoreStrategy(ctx context.Context, name, description string, contexts, tools []string, successRate, averageDurationMS float64) (*model.Strategy, error) {
	st := model.NewStrategy(name, description, contexts, tools)
	st.SuccessRate = successRate
	st.AverageDuration = averageDurationMS

	if err := m.docs.StoreStrategy(ctx, st); err != nil {
		return nil, fmt.Errorf("memory: store strategy: %w", err)
	}

	vec, err := m.embed.Embed(ctx, description+"\n"+strings.Join(contexts, " "))
	if err != nil {
		return nil, fmt.Errorf("memory: embed strategy: %w", err)
	}
	if err := m.vectors.StoreEmbedding(ctx, store.CollectionProcedural, st.ID, vec, map[string]interface{}{
		"name": name,
	}); err != nil {
		return nil, fmt.Errorf("memory: index strategy: %w", err)
	}
	return st, nil
}

// RecordStrategyUse updates a strategy's running success rate as an
// exponentially weighted moving average (alpha=0.2); the arithmetic
// lives in the document store so the underlying SQL/in-memory backend
// can apply it atomically.
func (m *ProceduralManager) RecordStrategyUse(ctx context.Context, id string, success bool, durationMS int64) error {
	return m.docs.RecordStrategyUse(ctx, id, success, durationMS)
}

// GetRecommendations ranks strategies whose required tools are a
// subset of availableTools by successRate * textual relevance
// (embedding cosine between query and the strategy's indexed text),
// returning the top k.
func (m *ProceduralManager) GetRecommendations(ctx context.Context, query string, availableTools []string, k int) ([]StrategyRecommendation, error) {
	strategies, err := m.docs.ListStrategies(ctx)
	if err != nil {
		return nil, fmt.Errorf("memory: list strategies: %w", err)
	}

	available := make(map[string]bool, len(availableTools))
	for _, t := range availableTools {
		available[t] = true
	}

	queryVec, err := m.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("memory: embed query: %w", err)
	}

	var recs []StrategyRecommendation
	for _, st := range strategies {
		if !toolsSubsetOf(st.RequiredTools, available) {
			continue
		}

		descVec, err := m.embed.Embed(ctx, st.Description+"\n"+strings.Join(st.ApplicableContexts, " "))
		if err != nil {
			continue
		}
		relevance := float64(cosineSimilarity(queryVec, descVec))
		score := st.SuccessRate * relevance
		recs = append(recs, StrategyRecommendation{
			Strategy:       st,
			RelevanceScore: score,
			Reasoning:      fmt.Sprintf("successRate=%.2f, relevance=%.2f", st.SuccessRate, relevance),
		})
	}

	sortRecommendations(recs)
	if k > 0 && len(recs) > k {
		recs = recs[:k]
	}
	return recs, nil
}

func toolsSubsetOf(required []string, available map[string]bool) bool {
	for _, t := range required {
		if !available[t] {
			return false
		}
	}
	return true
}

func sortRecommendations(recs []StrategyRecommendation) {
	for i := 1; i < len(recs); i++ {
		for j := i; j > 0 && recs[j].RelevanceScore > recs[j-1].RelevanceScore; j-- {
			recs[j], recs[j-1] = recs[j-1], recs[j]
		}
	}
}

// ExtractStrategyFromEpisodes mines a common action-type sequence
// across episodes and, if at least 3 successful episodes share the
// same sequence, produces a new strategy named name with requiredTools
// the union of observed tools and successRate the empirical success
// fraction across episodes exhibiting that sequence.
func (m *ProceduralManager) ExtractStrategyFromEpisodes(ctx context.Context, episodes []*model.EpisodicMemory, name string) (*model.Strategy, error) {
	sequences := make(map[string][]*model.EpisodicMemory)
	for _, e := range episodes {
		key := actionSequenceKey(e.Actions)
		if key == "" {
			continue
		}
		sequences[key] = append(sequences[key], e)
	}

	var bestKey string
	var bestEpisodes []*model.EpisodicMemory
	for key, eps := range sequences {
		successes := 0
		for _, e := range eps {
			if e.Success {
				successes++
			}
		}
		if successes >= 3 && successes > countSuccesses(bestEpisodes) {
			bestKey = key
			bestEpisodes = eps
		}
	}

	if bestEpisodes == nil {
		return nil, nil
	}

	toolSet := make(map[string]bool)
	successes := 0
	for _, e := range bestEpisodes {
		if e.Success {
			successes++
		}
		for _, a := range e.Actions {
			toolSet[a.Tool] = true
		}
	}

	tools := make([]string, 0, len(toolSet))
	for t := range toolSet {
		tools = append(tools, t)
	}

	return m.StoreStrategy(ctx, name,
		fmt.Sprintf("Strategy mined from %d episodes following %s", len(bestEpisodes), bestKey),
		[]string{bestKey}, tools,
		float64(successes)/float64(len(bestEpisodes)), averageDurationOf(bestEpisodes))
}

func actionSequenceKey(actions []model.Action) string {
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = string(a.Type)
	}
	return strings.Join(parts, ">")
}

func countSuccesses(episodes []*model.EpisodicMemory) int {
	n := 0
	for _, e := range episodes {
		if e.Success {
			n++
		}
	}
	return n
}

func averageDurationOf(episodes []*model.EpisodicMemory) float64 {
	if len(episodes) == 0 {
		return 0
	}
	var total int64
	for _, e := range episodes {
		total += e.Duration
	}
	return float64(total) / float64(len(episodes))
}
