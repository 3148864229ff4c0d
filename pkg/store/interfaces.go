// Package store defines the persistence interfaces the memory system
// depends on — a document store for record CRUD with secondary-index
// queries, and a vector store for per-collection k-NN search — plus
// concrete SQLite and Qdrant implementations and in-memory test doubles.
package store

import (
	"context"
	"time"

	"autoresearch/pkg/model"
)

// Logical vector-store collection names (§4.2).
const (
	CollectionEpisodic  = "episodic_memory"
	CollectionSemantic  = "semantic_memory"
	CollectionProcedural = "procedural_memory"
)

// SessionFilter narrows listSessions queries.
type SessionFilter struct {
	Status string
	UserID string
	Since  *time.Time
}

// DocumentStore is the record-CRUD-plus-secondary-index persistence
// contract. Every method yields an error on store failure; a missing
// record is reported via a typed NotFoundError, never a nil value with
// no error.
type DocumentStore interface {
	CreateSession(ctx context.Context, s *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]*model.Session, error)
	UpdateSession(ctx context.Context, s *model.Session) error
	DeleteSession(ctx context.Context, id string) error

	StoreEpisode(ctx context.Context, e *model.EpisodicMemory) error
	GetEpisode(ctx context.Context, id string) (*model.EpisodicMemory, error)
	GetEpisodesBySession(ctx context.Context, sessionID string) ([]*model.EpisodicMemory, error)
	QueryEpisodesByTag(ctx context.Context, tag string) ([]*model.EpisodicMemory, error)
	QueryEpisodesSince(ctx context.Context, since time.Time) ([]*model.EpisodicMemory, error)
	DeleteEpisode(ctx context.Context, id string) error

	StoreFact(ctx context.Context, f *model.Fact) error
	UpdateFact(ctx context.Context, f *model.Fact) error
	GetFactsByCategory(ctx context.Context, category string) ([]*model.Fact, error)
	SearchFactsByText(ctx context.Context, prefix string) ([]*model.Fact, error)
	ListFacts(ctx context.Context) ([]*model.Fact, error)
	DeleteFact(ctx context.Context, id string) error

	StoreStrategy(ctx context.Context, st *model.Strategy) error
	UpdateStrategy(ctx context.Context, st *model.Strategy) error
	GetStrategy(ctx context.Context, id string) (*model.Strategy, error)
	ListStrategies(ctx context.Context) ([]*model.Strategy, error)
	RecordStrategyUse(ctx context.Context, id string, success bool, durationMS int64) error

	StoreFeedback(ctx context.Context, f *model.Feedback) error
	GetFeedbackBySession(ctx context.Context, sessionID string) ([]*model.Feedback, error)

	Close() error
}

// NotFoundError is returned by DocumentStore lookups for a missing
// record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return e.Kind + " not found: " + e.ID
}

// VectorResult is one k-NN hit from a VectorStore search (cosine
// similarity, higher is closer).
type VectorResult struct {
	ID       string
	Score    float32
	Metadata map[string]interface{}
}

// VectorStore is the k-NN-search-with-metadata-filters persistence
// contract over the three logical memory collections.
type VectorStore interface {
	CreateCollection(ctx context.Context, name string, vectorSize uint64) error
	DeleteCollection(ctx context.Context, name string) error
	StoreEmbedding(ctx context.Context, collection, id string, vector []float32, metadata map[string]interface{}) error
	StoreBatch(ctx context.Context, collection string, ids []string, vectors [][]float32, metadatas []map[string]interface{}) error
	Search(ctx context.Context, collection string, query []float32, k int, filters map[string]interface{}) ([]VectorResult, error)
	Delete(ctx context.Context, collection, id string) error
	Close() error
}
