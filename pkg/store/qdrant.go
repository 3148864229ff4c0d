package store

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig configures a QdrantVectorStore.
type QdrantConfig struct {
	Host      string
	Port      int
	APIKey    string
	EnableTLS bool
}

// SetDefaults fills the usual local-dev values.
func (c *QdrantConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
}

// QdrantVectorStore is the VectorStore implementation backed by Qdrant,
// used for the three logical memory collections.
type QdrantVectorStore struct {
	client *qdrant.Client
	cfg    QdrantConfig
}

// NewQdrantVectorStore dials Qdrant and returns a VectorStore.
func NewQdrantVectorStore(cfg QdrantConfig) (*QdrantVectorStore, error) {
	cfg.SetDefaults()

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.EnableTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("store: dial qdrant at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return &QdrantVectorStore{client: client, cfg: cfg}, nil
}

func (s *QdrantVectorStore) CreateCollection(ctx context.Context, name string, vectorSize uint64) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("store: check collection %s: %w", name, err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("store: create collection %s: %w", name, err)
	}
	return nil
}

func (s *QdrantVectorStore) DeleteCollection(ctx context.Context, name string) error {
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("store: delete collection %s: %w", name, err)
	}
	return nil
}

func (s *QdrantVectorStore) StoreEmbedding(ctx context.Context, collection, id string, vector []float32, metadata map[string]interface{}) error {
	if err := s.ensureCollection(ctx, collection, uint64(len(vector))); err != nil {
		return err
	}

	payload := make(map[string]*qdrant.Value, len(metadata))
	for k, v := range metadata {
		val, err := qdrant.NewValue(v)
		if err != nil {
			return fmt.Errorf("store: convert metadata %q: %w", k, err)
		}
		payload[k] = val
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(id),
		Vectors: qdrant.NewVectors(vector...),
		Payload: payload,
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("store: upsert %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *QdrantVectorStore) StoreBatch(ctx context.Context, collection string, ids []string, vectors [][]float32, metadatas []map[string]interface{}) error {
	if len(ids) != len(vectors) || len(ids) != len(metadatas) {
		return fmt.Errorf("store: batch length mismatch: ids=%d vectors=%d metadatas=%d", len(ids), len(vectors), len(metadatas))
	}
	if len(ids) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx, collection, uint64(len(vectors[0]))); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, 0, len(ids))
	for i, id := range ids {
		payload := make(map[string]*qdrant.Value, len(metadatas[i]))
		for k, v := range metadatas[i] {
			val, err := qdrant.NewValue(v)
			if err != nil {
				return fmt.Errorf("store: convert metadata %q: %w", k, err)
			}
			payload[k] = val
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(id),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: payload,
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("store: batch upsert %s: %w", collection, err)
	}
	return nil
}

func (s *QdrantVectorStore) ensureCollection(ctx context.Context, collection string, vectorSize uint64) error {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("store: check collection %s: %w", collection, err)
	}
	if exists {
		return nil
	}
	return s.CreateCollection(ctx, collection, vectorSize)
}

func (s *QdrantVectorStore) Search(ctx context.Context, collection string, query []float32, k int, filters map[string]interface{}) ([]VectorResult, error) {
	req := &qdrant.SearchPoints{
		CollectionName: collection,
		Vector:         query,
		Limit:          uint64(k),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if len(filters) > 0 {
		req.Filter = buildFilter(filters)
	}

	resp, err := s.client.GetPointsClient().Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("store: search %s: %w", collection, err)
	}

	results := make([]VectorResult, 0, len(resp.Result))
	for _, point := range resp.Result {
		results = append(results, VectorResult{
			ID:       pointID(point.Id),
			Score:    point.Score,
			Metadata: convertPayload(point.Payload),
		})
	}
	return results, nil
}

func (s *QdrantVectorStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: []*qdrant.PointId{qdrant.NewID(id)}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("store: delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *QdrantVectorStore) Close() error {
	return s.client.Close()
}

func buildFilter(filter map[string]interface{}) *qdrant.Filter {
	conditions := make([]*qdrant.Condition, 0, len(filter))
	for key, value := range filter {
		val, err := qdrant.NewValue(value)
		if err != nil {
			continue
		}
		conditions = append(conditions, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: key,
					Match: &qdrant.Match{
						MatchValue: &qdrant.Match_Keyword{Keyword: val.GetStringValue()},
					},
				},
			},
		})
	}
	return &qdrant.Filter{Must: conditions}
}

func pointID(id *qdrant.PointId) string {
	if id == nil || id.PointIdOptions == nil {
		return ""
	}
	switch v := id.PointIdOptions.(type) {
	case *qdrant.PointId_Uuid:
		return v.Uuid
	case *qdrant.PointId_Num:
		return fmt.Sprintf("%d", v.Num)
	default:
		return ""
	}
}

func convertPayload(payload map[string]*qdrant.Value) map[string]interface{} {
	metadata := make(map[string]interface{}, len(payload))
	for key, value := range payload {
		switch v := value.Kind.(type) {
		case *qdrant.Value_StringValue:
			metadata[key] = v.StringValue
		case *qdrant.Value_IntegerValue:
			metadata[key] = v.IntegerValue
		case *qdrant.Value_DoubleValue:
			metadata[key] = v.DoubleValue
		case *qdrant.Value_BoolValue:
			metadata[key] = v.BoolValue
		case *qdrant.Value_ListValue:
			if v.ListValue != nil {
				list := make([]interface{}, len(v.ListValue.Values))
				for i, item := range v.ListValue.Values {
					list[i] = scalarValue(item)
				}
				metadata[key] = list
			}
		}
	}
	return metadata
}

func scalarValue(value *qdrant.Value) interface{} {
	switch v := value.Kind.(type) {
	case *qdrant.Value_StringValue:
		return v.StringValue
	case *qdrant.Value_IntegerValue:
		return v.IntegerValue
	case *qdrant.Value_DoubleValue:
		return v.DoubleValue
	case *qdrant.Value_BoolValue:
		return v.BoolValue
	default:
		return nil
	}
}
