package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/agixt-go/orchestrator/internal/corerr"
	"github.com/agixt-go/orchestrator/internal/domain"
	"github.com/agixt-go/orchestrator/internal/observability"
	"github.com/agixt-go/orchestrator/internal/ports"
)

// Store is the Memory Store (C1) for a single agent. Collections are
// partitions of one VectorStore namespace, named "agent:<agent>:<coll>".
type Store struct {
	AgentName string
	Vector    ports.VectorStore
	Embedder  ports.Embedder
	// Now is overridable for deterministic tests.
	Now func() time.Time
}

func New(agentName string, vs ports.VectorStore, emb ports.Embedder) *Store {
	return &Store{AgentName: agentName, Vector: vs, Embedder: emb, Now: time.Now}
}

func (s *Store) collectionName(collection string) string {
	return fmt.Sprintf("agent:%s:%s", s.AgentName, collection)
}

// WriteText chunks text, embeds each chunk, and upserts the resulting
// MemoryRecords (write_text).
func (s *Store) WriteText(ctx context.Context, collection, text, source, description string) error {
	chunkSize := defaultChunkSize
	if s.Embedder != nil {
		if cs := s.Embedder.ChunkSize(); cs > 0 {
			chunkSize = cs
		}
	}
	chunks := ChunkText(text, chunkSize)
	if len(chunks) == 0 {
		return nil
	}

	name := s.collectionName(collection)
	if err := s.Vector.CreateCollection(ctx, name, s.dim()); err != nil {
		return corerr.Wrap(corerr.UpstreamFailure, "create collection", err)
	}

	now := s.Now()
	for _, chunk := range chunks {
		vec, err := s.Embedder.Embed(ctx, chunk)
		if err != nil {
			return corerr.Wrap(corerr.UpstreamFailure, "embed chunk", err)
		}
		id := domain.NewMemoryRecordID(chunk, now)
		meta := map[string]string{
			"text":        chunk,
			"source":      source,
			"description": description,
			"timestamp":   now.Format(time.RFC3339Nano),
		}
		if err := s.Vector.Upsert(ctx, name, ports.VectorRecord{ID: id, Embedding: vec, Metadata: meta}); err != nil {
			return corerr.Wrap(corerr.UpstreamFailure, "upsert memory record", err)
		}
	}
	return nil
}

func (s *Store) dim() int {
	if s.Embedder == nil {
		return 0
	}
	return s.Embedder.Dim()
}

// Query returns the top-k records by similarity, filtered by minScore, in
// non-increasing score order. An absent or empty collection returns
// (nil, nil), never an error.
func (s *Store) Query(ctx context.Context, collection, queryText string, k int, minScore float64) ([]domain.ScoredRecord, error) {
	if s.Embedder == nil {
		return nil, nil
	}
	vec, err := s.Embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, corerr.Wrap(corerr.UpstreamFailure, "embed query", err)
	}

	name := s.collectionName(collection)
	matches, err := s.Vector.Query(ctx, name, vec, k, minScore)
	if err != nil {
		observability.LoggerWithTrace(ctx).Debug().Err(err).Str("collection", name).Msg("memory_query_empty_or_failed")
		return nil, nil
	}

	out := make([]domain.ScoredRecord, 0, len(matches))
	for _, m := range matches {
		ts, _ := time.Parse(time.RFC3339Nano, m.Metadata["timestamp"])
		out = append(out, domain.ScoredRecord{
			Record: domain.MemoryRecord{
				ID:             m.ID,
				Text:           m.Metadata["text"],
				Description:    m.Metadata["description"],
				ExternalSource: m.Metadata["source"],
				CollectionID:   collection,
				Timestamp:      ts,
			},
			Score: m.Score,
		})
	}
	return out, nil
}

// QueryWithKeywordRanking retrieves vector-similar records then applies
// the dual (vector, keyword) ranker and concatenates the result up to
// chunkSizeBudget tokens.
func (s *Store) QueryWithKeywordRanking(ctx context.Context, collection, queryText string, k int, minScore float64, chunkSizeBudget int) (string, error) {
	scored, err := s.Query(ctx, collection, queryText, k, minScore)
	if err != nil || len(scored) == 0 {
		return "", err
	}
	ranked := make([]RankedRecord, 0, len(scored))
	for _, sr := range scored {
		ranked = append(ranked, RankedRecord{ID: sr.Record.ID, Text: sr.Record.Text, VectorScore: sr.Score})
	}
	ranked = RankByRelevance(queryText, ranked)
	return ConcatTopK(ranked, chunkSizeBudget), nil
}

// Delete removes one record by id.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	return s.Vector.Delete(ctx, s.collectionName(collection), id)
}

// DeleteBySource removes every record in collection with the given
// ExternalSource (MemoryRecord invariant: "deleting by
// external_source removes every record with that source in the
// collection", not the whole collection).
func (s *Store) DeleteBySource(ctx context.Context, collection, source string) error {
	if err := s.Vector.DeleteBySource(ctx, s.collectionName(collection), source); err != nil {
		return corerr.Wrap(corerr.UpstreamFailure, "delete by source", err)
	}
	return nil
}

// Wipe removes every record in collection.
func (s *Store) Wipe(ctx context.Context, collection string) error {
	return s.Vector.Wipe(ctx, s.collectionName(collection))
}

// ExportedCollection is one collection's full record set, for Export/Import.
type ExportedCollection struct {
	Collection string
	Records    []domain.MemoryRecord
}

// Export returns every collection's records for this agent's memory.
// Collections must be supplied by the caller (the VectorStore port has no
// collection-enumeration primitive); each collection is exported as one
// atomic bulk unit. VectorStore matches carry no vectors, so each record's
// Embedding is recomputed from its text with the store's Embedder.
func (s *Store) Export(ctx context.Context, collections []string) ([]ExportedCollection, error) {
	out := make([]ExportedCollection, 0, len(collections))
	for _, c := range collections {
		records, err := s.Query(ctx, c, "", 1_000_000, -1)
		if err != nil {
			return nil, err
		}
		recs := make([]domain.MemoryRecord, 0, len(records))
		for _, r := range records {
			rec := r.Record
			vec, err := s.Embedder.Embed(ctx, rec.Text)
			if err != nil {
				return nil, corerr.Wrap(corerr.UpstreamFailure, "embed exported record", err)
			}
			rec.Embedding = vec
			recs = append(recs, rec)
		}
		out = append(out, ExportedCollection{Collection: c, Records: recs})
	}
	return out, nil
}

// Import checks every record of a collection before writing any of them,
// then upserts them one at a time. A dimension mismatch fails the whole
// collection's ingest without partial writes (edge case); an upsert error
// keeps the records already written before it.
func (s *Store) Import(ctx context.Context, data []ExportedCollection) error {
	for _, ec := range data {
		name := s.collectionName(ec.Collection)
		staged := make([]ports.VectorRecord, 0, len(ec.Records))
		for _, r := range ec.Records {
			if s.dim() > 0 && len(r.Embedding) != s.dim() {
				return corerr.New(corerr.InvalidInput, fmt.Sprintf("import: embedding dimension mismatch in collection %s", ec.Collection))
			}
			staged = append(staged, ports.VectorRecord{
				ID:        r.ID,
				Embedding: r.Embedding,
				Metadata: map[string]string{
					"text":        r.Text,
					"source":      r.ExternalSource,
					"description": r.Description,
					"timestamp":   r.Timestamp.Format(time.RFC3339Nano),
				},
			})
		}
		if err := s.Vector.CreateCollection(ctx, name, s.dim()); err != nil {
			return corerr.Wrap(corerr.UpstreamFailure, "create collection for import", err)
		}
		for _, rec := range staged {
			if err := s.Vector.Upsert(ctx, name, rec); err != nil {
				return corerr.Wrap(corerr.UpstreamFailure, "import upsert", err)
			}
		}
	}
	return nil
}
