// Package memory implements the four-tier memory system behind the
// research agent: session bookkeeping, episodic experience, semantic
// facts, and procedural strategies, plus the context builder that
// packs the most relevant slice of all three into the reasoning
// engine's prompt.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"autoresearch/pkg/embedclient"
	"autoresearch/pkg/llmclient"
	"autoresearch/pkg/model"
	"autoresearch/pkg/store"
)

// Config tunes the memory system's reflection and consolidation
// cadence; the control loop and reflection engine share one instance.
type Config struct {
	ReflectionInterval        int
	MaxContextTokens          int
	AutoReflect               bool
	AutoConsolidate           bool
	ConsolidationThresholdDays int
}

// SetDefaults fills zero-valued fields with the values the agent ships
// with.
func (c *Config) SetDefaults() {
	if c.ReflectionInterval <= 0 {
		c.ReflectionInterval = 5
	}
	if c.MaxContextTokens <= 0 {
		c.MaxContextTokens = defaultContextTokenBudget
	}
	if c.ConsolidationThresholdDays <= 0 {
		c.ConsolidationThresholdDays = 30
	}
}

// StoreExperienceResult is storeExperience's return value: the
// persisted episode, any facts extracted from it, and whether the
// control loop should now trigger a reflection pass.
type StoreExperienceResult struct {
	Episode        *model.EpisodicMemory
	ExtractedFacts []*model.Fact
	ShouldReflect  bool
}

// Memory composes the Session, Episodic, Semantic, and Procedural
// managers over a shared document/vector store, plus the context
// builder and reflection-triggering bookkeeping the control loop
// polls every iteration.
type Memory struct {
	Session    *SessionManager
	Episodic   *EpisodicManager
	Semantic   *SemanticManager
	Procedural *ProceduralManager
	Context    *ContextBuilder

	docs   store.DocumentStore
	config Config
	logger *slog.Logger

	mu                    sync.Mutex
	actionsSinceReflection int
}

// New wires a Memory instance over docs/vectors/embed/llm, creating
// the three vector collections at the embedding client's dimension.
func New(ctx context.Context, docs store.DocumentStore, vectors store.VectorStore, embed embedclient.Client, llm llmclient.Client, cfg Config, logger *slog.Logger) (*Memory, error) {
	cfg.SetDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	dim := uint64(embed.Dimension())
	for _, collection := range []string{store.CollectionEpisodic, store.CollectionSemantic, store.CollectionProcedural} {
		if err := vectors.CreateCollection(ctx, collection, dim); err != nil {
			return nil, fmt.Errorf("memory: create collection %s: %w", collection, err)
		}
	}

	episodic := NewEpisodicManager(docs, vectors, embed)
	semantic := NewSemanticManager(docs, vectors, embed, llm)
	procedural := NewProceduralManager(docs, vectors, embed)

	return &Memory{
		Session:    NewSessionManager(docs, logger),
		Episodic:   episodic,
		Semantic:   semantic,
		Procedural: procedural,
		Context:    NewContextBuilder(episodic, semantic, procedural),
		docs:       docs,
		config:     cfg,
		logger:     logger,
	}, nil
}

// StartSession resets the reflection counter and delegates to the
// Session Manager. It consolidates nothing; consolidation runs in
// CompleteSession.
func (m *Memory) StartSession(ctx context.Context, topic string, goal model.Goal, userID string) (*model.Session, error) {
	m.mu.Lock()
	m.actionsSinceReflection = 0
	m.mu.Unlock()
	return m.Session.StartSession(ctx, topic, goal, userID)
}

// CompleteSession marks the active session completed and, when
// AutoConsolidate is enabled, merges near-duplicate facts
// (ConsolidateSimilar). Episodes are not consolidated here.
func (m *Memory) CompleteSession(ctx context.Context) error {
	if err := m.Session.CompleteSession(ctx); err != nil {
		return err
	}
	if m.config.AutoConsolidate {
		if _, err := m.Semantic.ConsolidateSimilar(ctx, duplicateFactThreshold); err != nil {
			m.logger.Warn("memory: consolidation failed", "error", err)
		}
	}
	return nil
}

// StoreExperience persists one episode of the control loop's
// action/outcome pair, extracts facts from it, and reports whether the
// reflection interval has now elapsed.
func (m *Memory) StoreExperience(ctx context.Context, sessionID string, actions []model.Action, outcomes []model.Outcome, findings []model.Finding, summary string) (*StoreExperienceResult, error) {
	topic := sessionID
	if s := m.Session.GetCurrentSession(); s != nil {
		topic = s.Topic
	}

	tags := make([]string, 0, len(actions))
	for _, a := range actions {
		tags = append(tags, string(a.Type))
	}

	episode, err := m.Episodic.StoreEpisode(ctx, sessionID, topic, actions, outcomes, findings, summary, tags)
	if err != nil {
		return nil, err
	}

	facts, err := m.Semantic.ExtractFactsFromEpisode(ctx, episode)
	if err != nil {
		m.logger.Warn("memory: fact extraction failed", "error", err)
		facts = nil
	}

	m.mu.Lock()
	m.actionsSinceReflection += len(actions)
	shouldReflect := m.config.AutoReflect && m.actionsSinceReflection >= m.config.ReflectionInterval
	m.mu.Unlock()

	return &StoreExperienceResult{Episode: episode, ExtractedFacts: facts, ShouldReflect: shouldReflect}, nil
}

// ShouldReflect reports whether the action counter has reached
// ReflectionInterval since the last reset.
func (m *Memory) ShouldReflect() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config.AutoReflect && m.actionsSinceReflection >= m.config.ReflectionInterval
}

// ResetReflectionCounter is invoked by the Reflection Engine after a
// reflection has been produced.
func (m *Memory) ResetReflectionCounter() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actionsSinceReflection = 0
}

// BuildContext delegates to the Context Builder, defaulting the token
// budget to the configured MaxContextTokens.
func (m *Memory) BuildContext(ctx context.Context, query string, availableTools []string) (*RetrievedContext, error) {
	return m.Context.BuildContext(ctx, query, BuildContextOptions{
		MaxTokens:      m.config.MaxContextTokens,
		AvailableTools: availableTools,
	})
}

// GetStrategyRecommendations delegates to the Procedural Manager.
func (m *Memory) GetStrategyRecommendations(ctx context.Context, query string, availableTools []string, k int) ([]StrategyRecommendation, error) {
	return m.Procedural.GetRecommendations(ctx, query, availableTools, k)
}

// PerformMaintenance runs the periodic upkeep pass: relevance decay
// across semantic memory, near-duplicate fact consolidation, and
// episode consolidation older than the configured threshold. Each
// sub-task runs independently so one failing does not block the
// others.
func (m *Memory) PerformMaintenance(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		if err := m.Semantic.UpdateRelevance(ctx); err != nil {
			m.logger.Warn("memory: relevance update failed", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := m.Semantic.ConsolidateSimilar(ctx, duplicateFactThreshold); err != nil {
			m.logger.Warn("memory: fact consolidation failed", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := m.Episodic.ConsolidateOlderThan(ctx, m.config.ConsolidationThresholdDays); err != nil {
			m.logger.Warn("memory: episode consolidation failed", "error", err)
		}
	}()

	wg.Wait()
}

// EpisodeCount reports how many episodes a session has accumulated;
// used by the reflection engine's consolidation trigger.
func (m *Memory) EpisodeCount(ctx context.Context, sessionID string) (int, error) {
	episodes, err := m.Episodic.GetSessionEpisodes(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return len(episodes), nil
}

// FactCount reports the total number of stored facts; used by the
// reflection engine's consolidation trigger.
func (m *Memory) FactCount(ctx context.Context) (int, error) {
	facts, err := m.docs.ListFacts(ctx)
	if err != nil {
		return 0, err
	}
	return len(facts), nil
}
