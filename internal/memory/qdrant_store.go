package memory

import (
	"context"
	"fmt"

	"github.com/agixt-go/orchestrator/internal/corerr"
	"github.com/agixt-go/orchestrator/internal/ports"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// originalIDField stores the caller-supplied record ID in the point
// payload, since Qdrant only accepts UUIDs/integers as point IDs.
// Grounded on qdrant_vector.go PAYLOAD_ID_FIELD convention.
const originalIDField = "_original_id"

// QdrantVectorStore adapts github.com/qdrant/go-client to ports.VectorStore.
// Unlike single-collection client, this adapter is
// multi-collection: every call takes the target collection name, since
// one agent's memory spans many collections (durable + per-conversation).
type QdrantVectorStore struct {
	client *qdrant.Client
	metric string
}

func NewQdrantVectorStore(client *qdrant.Client, metric string) *QdrantVectorStore {
	if metric == "" {
		metric = "cosine"
	}
	return &QdrantVectorStore{client: client, metric: metric}
}

func pointUUID(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

func (q *QdrantVectorStore) CreateCollection(ctx context.Context, collection string, dim int) error {
	exists, err := q.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("check collection exists: %w", err)
	}
	if exists {
		return nil
	}
	if dim <= 0 {
		return corerr.New(corerr.InvalidInput, "qdrant requires dimensions > 0")
	}
	var distance qdrant.Distance
	switch q.metric {
	case "l2", "euclidean":
		distance = qdrant.Distance_Euclid
	case "ip", "dot":
		distance = qdrant.Distance_Dot
	default:
		distance = qdrant.Distance_Cosine
	}
	return q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: distance,
		}),
	})
}

func (q *QdrantVectorStore) Upsert(ctx context.Context, collection string, rec ports.VectorRecord) error {
	uid := pointUUID(rec.ID)
	metaAny := make(map[string]any, len(rec.Metadata)+1)
	for k, v := range rec.Metadata {
		metaAny[k] = v
	}
	if uid != rec.ID {
		metaAny[originalIDField] = rec.ID
	}
	points := []*qdrant.PointStruct{{
		Id:      qdrant.NewIDUUID(uid),
		Vectors: qdrant.NewVectorsDense(rec.Embedding),
		Payload: qdrant.NewValueMap(metaAny),
	}}
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{CollectionName: collection, Points: points})
	return err
}

func (q *QdrantVectorStore) Query(ctx context.Context, collection string, vector []float32, k int, minScore float64) ([]ports.VectorMatch, error) {
	if k <= 0 {
		k = 10
	}
	limit := uint64(k)
	resp, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQueryDense(vector),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}
	out := make([]ports.VectorMatch, 0, len(resp))
	for _, hit := range resp {
		score := float64(hit.Score)
		if score < minScore {
			continue
		}
		meta := map[string]string{}
		id := hit.Id.GetUuid()
		if hit.Payload != nil {
			for k, v := range hit.Payload {
				if k == originalIDField {
					id = v.GetStringValue()
					continue
				}
				meta[k] = v.GetStringValue()
			}
		}
		out = append(out, ports.VectorMatch{ID: id, Score: score, Metadata: meta})
	}
	return out, nil
}

func (q *QdrantVectorStore) Delete(ctx context.Context, collection, id string) error {
	uid := pointUUID(id)
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points:         qdrant.NewPointsSelector(qdrant.NewIDUUID(uid)),
	})
	return err
}

// DeleteBySource removes every point whose "source" payload field matches,
// built from a qdrant.Filter the way SimilaritySearch builds
// metadata filters from a map[string]string.
func (q *QdrantVectorStore) DeleteBySource(ctx context.Context, collection, source string) error {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch("source", source)},
	}
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points:         qdrant.NewPointsSelectorFilter(filter),
	})
	return err
}

func (q *QdrantVectorStore) ListSources(ctx context.Context, collection string) ([]string, error) {
	limit := uint32(10_000)
	points, err := q.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: collection,
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	var out []string
	for _, p := range points {
		if p.Payload == nil {
			continue
		}
		src := p.Payload["source"].GetStringValue()
		if src == "" {
			continue
		}
		if _, ok := seen[src]; !ok {
			seen[src] = struct{}{}
			out = append(out, src)
		}
	}
	return out, nil
}

func (q *QdrantVectorStore) Wipe(ctx context.Context, collection string) error {
	exists, err := q.client.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	return q.client.DeleteCollection(ctx, collection)
}
