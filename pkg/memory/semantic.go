package memory

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"autoresearch/pkg/embedclient"
	"autoresearch/pkg/llmclient"
	"autoresearch/pkg/model"
	"autoresearch/pkg/store"
)

const duplicateFactThreshold = 0.92

// SemanticManager extracts, stores, and decays declarative Fact
// records.
type SemanticManager struct {
	docs    store.DocumentStore
	vectors store.VectorStore
	embed   embedclient.Client
	llm     llmclient.Client
}

func NewSemanticManager(docs store.DocumentStore, vectors store.VectorStore, embed embedclient.Client, llm llmclient.Client) *SemanticManager {
	return &SemanticManager{docs: docs, vectors: vectors, embed: embed, llm: llm}
}

type extractedFact struct {
	Statement  string  `json:"statement"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

type factExtractionResponse struct {
	Facts []extractedFact `json:"facts"`
}

// ExtractFactsFromEpisode asks the LLM to pull discrete, checkable
// statements out of an episode's outcomes and findings, then stores
// each one — folding near-duplicates (cosine similarity >= 0.92)
// into the existing fact instead of creating a new record.
func (m *SemanticManager) ExtractFactsFromEpisode(ctx context.Context, episode *model.EpisodicMemory) ([]*model.Fact, error) {
	var sb strings.Builder
	for _, o := range episode.Outcomes {
		for _, obs := range o.Observations {
			sb.WriteString("- ")
			sb.WriteString(obs)
			sb.WriteString("\n")
		}
	}
	for _, f := range episode.Findings {
		sb.WriteString("- ")
		sb.WriteString(f.Content)
		sb.WriteString("\n")
	}

	prompt := fmt.Sprintf(
		"Extract discrete, checkable facts from the following research episode outcomes.\n\n%s\n"+
			"Return JSON: {\"facts\":[{\"statement\":...,\"category\":...,\"confidence\":0-1}]}",
		sb.String())

	resp, err := m.llm.Complete(ctx, []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}}, llmclient.CompleteOptions{MaxTokens: 1024})
	if err != nil {
		return nil, fmt.Errorf("memory: extract facts: %w", err)
	}

	var parsed factExtractionResponse
	if err := llmclient.ParseJSONLoose(llmclient.ExtractText(resp), &parsed); err != nil {
		return nil, fmt.Errorf("memory: extract facts: unparseable response: %w", err)
	}

	out := make([]*model.Fact, 0, len(parsed.Facts))
	for _, ef := range parsed.Facts {
		if ef.Statement == "" {
			continue
		}
		fact, err := m.storeOrMergeFact(ctx, ef.Statement, ef.Category, episode.ID, ef.Confidence)
		if err != nil {
			return out, err
		}
		out = append(out, fact)
	}
	return out, nil
}

func (m *SemanticManager) storeOrMergeFact(ctx context.Context, statement, category, source string, confidence float64) (*model.Fact, error) {
	vec, err := m.embed.Embed(ctx, statement)
	if err != nil {
		return nil, fmt.Errorf("memory: embed fact: %w", err)
	}

	existing, err := m.docs.ListFacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("memory: list facts: %w", err)
	}
	for _, f := range existing {
		if cosineSimilarity(vec, f.Embedding) >= duplicateFactThreshold {
			f.AccessCount++
			f.LastModified = time.Now().UTC()
			f.LastAccessed = f.LastModified
			if confidence > f.Confidence {
				f.Confidence = confidence
			}
			if err := m.docs.UpdateFact(ctx, f); err != nil {
				return nil, fmt.Errorf("memory: update fact: %w", err)
			}
			return f, nil
		}
	}

	fact := model.NewFact(statement, category, source)
	fact.Confidence = confidence
	fact.Embedding = vec
	if err := m.docs.StoreFact(ctx, fact); err != nil {
		return nil, fmt.Errorf("memory: store fact: %w", err)
	}
	if err := m.vectors.StoreEmbedding(ctx, store.CollectionSemantic, fact.ID, vec, map[string]interface{}{
		"category": category,
	}); err != nil {
		return nil, fmt.Errorf("memory: index fact: %w", err)
	}
	return fact, nil
}

// StoreFact persists a standalone fact without LLM extraction. Like an
// extracted fact, it is merged into an existing near-duplicate
// (cosine similarity >= 0.92) instead of being stored separately.
func (m *SemanticManager) StoreFact(ctx context.Context, content, category, source string, confidence float64) (*model.Fact, error) {
	return m.storeOrMergeFact(ctx, content, category, source, confidence)
}

// SearchFacts embeds query and returns the top-k nearest facts.
func (m *SemanticManager) SearchFacts(ctx context.Context, query string, limit int) ([]*model.Fact, error) {
	if limit <= 0 {
		limit = 10
	}
	vec, err := m.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("memory: embed query: %w", err)
	}
	hits, err := m.vectors.Search(ctx, store.CollectionSemantic, vec, limit, nil)
	if err != nil {
		return nil, fmt.Errorf("memory: search facts: %w", err)
	}
	out := make([]*model.Fact, 0, len(hits))
	for _, h := range hits {
		all, err := m.docs.ListFacts(ctx)
		if err != nil {
			continue
		}
		for _, f := range all {
			if f.ID == h.ID {
				out = append(out, f)
				break
			}
		}
	}
	return out, nil
}

// GetFactsByCategory returns every fact stored under category.
func (m *SemanticManager) GetFactsByCategory(ctx context.Context, category string) ([]*model.Fact, error) {
	return m.docs.GetFactsByCategory(ctx, category)
}

// UpdateRelevance decays every fact's relevance by a monotonic
// function of time since last access, boosted by access count.
func (m *SemanticManager) UpdateRelevance(ctx context.Context) error {
	facts, err := m.docs.ListFacts(ctx)
	if err != nil {
		return fmt.Errorf("memory: list facts: %w", err)
	}

	now := time.Now().UTC()
	for _, f := range facts {
		ageDays := now.Sub(f.LastAccessed).Hours() / 24
		decay := math.Exp(-ageDays / 30)
		boost := 1 + math.Log1p(float64(f.AccessCount))
		relevance := decay * boost
		if relevance > 1 {
			relevance = 1
		}
		f.Relevance = relevance
		if err := m.docs.UpdateFact(ctx, f); err != nil {
			return fmt.Errorf("memory: update fact relevance: %w", err)
		}
	}
	return nil
}

// ConsolidateSimilar merges near-duplicate facts (cosine similarity
// >= threshold) pairwise, keeping the higher-confidence record and
// deleting the other.
func (m *SemanticManager) ConsolidateSimilar(ctx context.Context, threshold float32) (int, error) {
	facts, err := m.docs.ListFacts(ctx)
	if err != nil {
		return 0, fmt.Errorf("memory: list facts: %w", err)
	}

	merged := 0
	removed := make(map[string]bool)
	for i := 0; i < len(facts); i++ {
		if removed[facts[i].ID] {
			continue
		}
		for j := i + 1; j < len(facts); j++ {
			if removed[facts[j].ID] {
				continue
			}
			if cosineSimilarity(facts[i].Embedding, facts[j].Embedding) < threshold {
				continue
			}
			keep, drop := facts[i], facts[j]
			if drop.Confidence > keep.Confidence {
				keep, drop = drop, keep
			}
			if drop.Confidence > keep.Confidence {
				keep.Confidence = drop.Confidence
			}
			keep.AccessCount += drop.AccessCount
			keep.LastModified = time.Now().UTC()
			if err := m.docs.UpdateFact(ctx, keep); err != nil {
				return merged, fmt.Errorf("memory: update fact: %w", err)
			}
			if err := m.docs.DeleteFact(ctx, drop.ID); err != nil {
				return merged, fmt.Errorf("memory: delete fact: %w", err)
			}
			_ = m.vectors.Delete(ctx, store.CollectionSemantic, drop.ID)
			removed[drop.ID] = true
			merged++
		}
	}
	return merged, nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
