package store

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"autoresearch/pkg/model"
)

// InMemoryDocumentStore is a sync.Mutex-protected DocumentStore used in
// tests and the demo wiring where a real SQLite file is unnecessary.
type InMemoryDocumentStore struct {
	mu         sync.Mutex
	sessions   map[string]*model.Session
	episodes   map[string]*model.EpisodicMemory
	facts      map[string]*model.Fact
	strategies map[string]*model.Strategy
	feedback   map[string][]*model.Feedback
}

// NewInMemoryDocumentStore returns an empty store.
func NewInMemoryDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{
		sessions:   make(map[string]*model.Session),
		episodes:   make(map[string]*model.EpisodicMemory),
		facts:      make(map[string]*model.Fact),
		strategies: make(map[string]*model.Strategy),
		feedback:   make(map[string][]*model.Feedback),
	}
}

func (s *InMemoryDocumentStore) Close() error { return nil }

func (s *InMemoryDocumentStore) CreateSession(_ context.Context, sess *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *InMemoryDocumentStore) GetSession(_ context.Context, id string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, &NotFoundError{Kind: "session", ID: id}
	}
	cp := *sess
	return &cp, nil
}

func (s *InMemoryDocumentStore) ListSessions(_ context.Context, filter SessionFilter) ([]*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Session
	for _, sess := range s.sessions {
		if filter.Status != "" && string(sess.Status) != filter.Status {
			continue
		}
		if filter.UserID != "" && sess.UserID != filter.UserID {
			continue
		}
		if filter.Since != nil && sess.CreatedAt.Before(*filter.Since) {
			continue
		}
		cp := *sess
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryDocumentStore) UpdateSession(_ context.Context, sess *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; !ok {
		return &NotFoundError{Kind: "session", ID: sess.ID}
	}
	sess.UpdatedAt = time.Now().UTC()
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *InMemoryDocumentStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return &NotFoundError{Kind: "session", ID: id}
	}
	delete(s.sessions, id)
	return nil
}

func (s *InMemoryDocumentStore) StoreEpisode(_ context.Context, e *model.EpisodicMemory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.episodes[e.ID] = &cp
	return nil
}

func (s *InMemoryDocumentStore) GetEpisode(_ context.Context, id string) (*model.EpisodicMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.episodes[id]
	if !ok {
		return nil, &NotFoundError{Kind: "episode", ID: id}
	}
	cp := *e
	return &cp, nil
}

func (s *InMemoryDocumentStore) GetEpisodesBySession(_ context.Context, sessionID string) ([]*model.EpisodicMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.EpisodicMemory
	for _, e := range s.episodes {
		if e.SessionID == sessionID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryDocumentStore) QueryEpisodesByTag(_ context.Context, tag string) ([]*model.EpisodicMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.EpisodicMemory
	for _, e := range s.episodes {
		for _, t := range e.Tags {
			if t == tag {
				cp := *e
				out = append(out, &cp)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryDocumentStore) QueryEpisodesSince(_ context.Context, since time.Time) ([]*model.EpisodicMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.EpisodicMemory
	for _, e := range s.episodes {
		if e.CreatedAt.After(since) || e.CreatedAt.Equal(since) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryDocumentStore) DeleteEpisode(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.episodes[id]; !ok {
		return &NotFoundError{Kind: "episode", ID: id}
	}
	delete(s.episodes, id)
	return nil
}

func (s *InMemoryDocumentStore) StoreFact(_ context.Context, f *model.Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *f
	s.facts[f.ID] = &cp
	return nil
}

func (s *InMemoryDocumentStore) UpdateFact(_ context.Context, f *model.Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.facts[f.ID]; !ok {
		return &NotFoundError{Kind: "fact", ID: f.ID}
	}
	cp := *f
	s.facts[f.ID] = &cp
	return nil
}

func (s *InMemoryDocumentStore) GetFactsByCategory(_ context.Context, category string) ([]*model.Fact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Fact
	for _, f := range s.facts {
		if f.Category == category {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out, nil
}

func (s *InMemoryDocumentStore) SearchFactsByText(_ context.Context, prefix string) ([]*model.Fact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Fact
	for _, f := range s.facts {
		if strings.HasPrefix(strings.ToLower(f.Content), strings.ToLower(prefix)) {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastAccessed.After(out[j].LastAccessed) })
	return out, nil
}

func (s *InMemoryDocumentStore) ListFacts(_ context.Context) ([]*model.Fact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Fact
	for _, f := range s.facts {
		cp := *f
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastAccessed.After(out[j].LastAccessed) })
	return out, nil
}

func (s *InMemoryDocumentStore) DeleteFact(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.facts[id]; !ok {
		return &NotFoundError{Kind: "fact", ID: id}
	}
	delete(s.facts, id)
	return nil
}

func (s *InMemoryDocumentStore) StoreStrategy(_ context.Context, st *model.Strategy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *st
	s.strategies[st.ID] = &cp
	return nil
}

func (s *InMemoryDocumentStore) UpdateStrategy(_ context.Context, st *model.Strategy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.strategies[st.ID]; !ok {
		return &NotFoundError{Kind: "strategy", ID: st.ID}
	}
	cp := *st
	s.strategies[st.ID] = &cp
	return nil
}

func (s *InMemoryDocumentStore) GetStrategy(_ context.Context, id string) (*model.Strategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.strategies[id]
	if !ok {
		return nil, &NotFoundError{Kind: "strategy", ID: id}
	}
	cp := *st
	return &cp, nil
}

func (s *InMemoryDocumentStore) ListStrategies(_ context.Context) ([]*model.Strategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Strategy
	for _, st := range s.strategies {
		cp := *st
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SuccessRate > out[j].SuccessRate })
	return out, nil
}

func (s *InMemoryDocumentStore) RecordStrategyUse(ctx context.Context, id string, success bool, durationMS int64) error {
	s.mu.Lock()
	st, ok := s.strategies[id]
	s.mu.Unlock()
	if !ok {
		return &NotFoundError{Kind: "strategy", ID: id}
	}

	const alpha = 0.2
	outcome := 0.0
	if success {
		outcome = 1.0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st.TimesUsed == 0 {
		st.SuccessRate = outcome
	} else {
		st.SuccessRate = alpha*outcome + (1-alpha)*st.SuccessRate
	}
	st.AverageDuration = (st.AverageDuration*float64(st.TimesUsed) + float64(durationMS)) / float64(st.TimesUsed+1)
	st.TimesUsed++
	now := time.Now().UTC()
	st.LastUsed = &now
	return nil
}

func (s *InMemoryDocumentStore) StoreFeedback(_ context.Context, f *model.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *f
	s.feedback[f.SessionID] = append(s.feedback[f.SessionID], &cp)
	return nil
}

func (s *InMemoryDocumentStore) GetFeedbackBySession(_ context.Context, sessionID string) ([]*model.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Feedback(nil), s.feedback[sessionID]...), nil
}

// InMemoryVectorStore is a brute-force cosine-similarity VectorStore
// used in tests and the demo wiring, where standing up Qdrant is
// unnecessary.
type InMemoryVectorStore struct {
	mu          sync.Mutex
	collections map[string]map[string]vectorEntry
}

type vectorEntry struct {
	vector   []float32
	metadata map[string]interface{}
}

// NewInMemoryVectorStore returns an empty store.
func NewInMemoryVectorStore() *InMemoryVectorStore {
	return &InMemoryVectorStore{collections: make(map[string]map[string]vectorEntry)}
}

func (v *InMemoryVectorStore) Close() error { return nil }

func (v *InMemoryVectorStore) CreateCollection(_ context.Context, name string, _ uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.collections[name]; !ok {
		v.collections[name] = make(map[string]vectorEntry)
	}
	return nil
}

func (v *InMemoryVectorStore) DeleteCollection(_ context.Context, name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.collections, name)
	return nil
}

func (v *InMemoryVectorStore) StoreEmbedding(_ context.Context, collection, id string, vector []float32, metadata map[string]interface{}) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.collections[collection]; !ok {
		v.collections[collection] = make(map[string]vectorEntry)
	}
	v.collections[collection][id] = vectorEntry{vector: vector, metadata: metadata}
	return nil
}

func (v *InMemoryVectorStore) StoreBatch(ctx context.Context, collection string, ids []string, vectors [][]float32, metadatas []map[string]interface{}) error {
	for i, id := range ids {
		if err := v.StoreEmbedding(ctx, collection, id, vectors[i], metadatas[i]); err != nil {
			return err
		}
	}
	return nil
}

func (v *InMemoryVectorStore) Search(_ context.Context, collection string, query []float32, k int, filters map[string]interface{}) ([]VectorResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	entries := v.collections[collection]
	var results []VectorResult
	for id, e := range entries {
		if !matchesFilter(e.metadata, filters) {
			continue
		}
		results = append(results, VectorResult{
			ID:       id,
			Score:    cosineSimilarity(query, e.vector),
			Metadata: e.metadata,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (v *InMemoryVectorStore) Delete(_ context.Context, collection, id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.collections[collection], id)
	return nil
}

func matchesFilter(metadata map[string]interface{}, filters map[string]interface{}) bool {
	for k, want := range filters {
		got, ok := metadata[k]
		if !ok || got != want {
			return false
		}
	}
	return true
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
