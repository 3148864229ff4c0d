package memory

import (
	"context"
	"fmt"
	"time"

	"autoresearch/pkg/embedclient"
	"autoresearch/pkg/model"
	"autoresearch/pkg/store"
)

// EpisodicSearchOptions narrows SearchEpisodes.
type EpisodicSearchOptions struct {
	Limit              int
	SimilarityThreshold float32
	Filters            map[string]interface{}
}

// EpisodicManager persists and retrieves EpisodicMemory records: one
// per stored research experience.
type EpisodicManager struct {
	docs    store.DocumentStore
	vectors store.VectorStore
	embed   embedclient.Client
}

func NewEpisodicManager(docs store.DocumentStore, vectors store.VectorStore, embed embedclient.Client) *EpisodicManager {
	return &EpisodicManager{docs: docs, vectors: vectors, embed: embed}
}

// StoreEpisode persists a new episode and indexes it in the vector
// store keyed on topic+summary.
func (m *EpisodicManager) StoreEpisode(ctx context.Context, sessionID, topic string, actions []model.Action, outcomes []model.Outcome, findings []model.Finding, summary string, tags []string) (*model.EpisodicMemory, error) {
	e := model.NewEpisodicMemory(sessionID, topic)
	e.Actions = actions
	e.Outcomes = outcomes
	e.Findings = findings
	e.Summary = summary
	e.Tags = tags
	e.Success = allOutcomesSucceeded(outcomes)

	var totalDuration int64
	for _, o := range outcomes {
		totalDuration += o.DurationMS
	}
	e.Duration = totalDuration

	vec, err := m.embed.Embed(ctx, topic+"\n"+summary)
	if err != nil {
		return nil, fmt.Errorf("memory: embed episode: %w", err)
	}
	e.Embedding = vec

	if err := m.docs.StoreEpisode(ctx, e); err != nil {
		return nil, fmt.Errorf("memory: store episode: %w", err)
	}

	if err := m.vectors.StoreEmbedding(ctx, store.CollectionEpisodic, e.ID, vec, map[string]interface{}{
		"sessionId": sessionID,
		"success":   e.Success,
		"tags":      tags,
		"timestamp": e.CreatedAt.Unix(),
	}); err != nil {
		return nil, fmt.Errorf("memory: index episode: %w", err)
	}

	return e, nil
}

func allOutcomesSucceeded(outcomes []model.Outcome) bool {
	if len(outcomes) == 0 {
		return false
	}
	for _, o := range outcomes {
		if !o.Success {
			return false
		}
	}
	return true
}

// SearchEpisodes embeds query, runs a k-NN search in the episodic
// collection, hydrates hits via the document store, and drops any
// below the similarity threshold.
func (m *EpisodicManager) SearchEpisodes(ctx context.Context, query string, opts EpisodicSearchOptions) ([]*model.EpisodicMemory, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	vec, err := m.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("memory: embed query: %w", err)
	}

	hits, err := m.vectors.Search(ctx, store.CollectionEpisodic, vec, limit, opts.Filters)
	if err != nil {
		return nil, fmt.Errorf("memory: search episodes: %w", err)
	}

	out := make([]*model.EpisodicMemory, 0, len(hits))
	for _, h := range hits {
		if h.Score < opts.SimilarityThreshold {
			continue
		}
		e, err := m.docs.GetEpisode(ctx, h.ID)
		if err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// GetSessionEpisodes returns every episode stored for sessionID, in
// chronological order.
func (m *EpisodicManager) GetSessionEpisodes(ctx context.Context, sessionID string) ([]*model.EpisodicMemory, error) {
	return m.docs.GetEpisodesBySession(ctx, sessionID)
}

// ConsolidateOlderThan deletes episode records older than daysThreshold
// days, after they have already contributed their facts and strategies
// to the semantic/procedural tiers.
func (m *EpisodicManager) ConsolidateOlderThan(ctx context.Context, daysThreshold int) (int, error) {
	all, err := m.docs.QueryEpisodesSince(ctx, time.Time{})
	if err != nil {
		return 0, fmt.Errorf("memory: list episodes: %w", err)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -daysThreshold)
	removed := 0
	for _, e := range all {
		if e.CreatedAt.Before(cutoff) {
			if err := m.docs.DeleteEpisode(ctx, e.ID); err != nil {
				continue
			}
			_ = m.vectors.Delete(ctx, store.CollectionEpisodic, e.ID)
			removed++
		}
	}
	return removed, nil
}
