package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agixt-go/orchestrator/internal/corerr"
	"github.com/agixt-go/orchestrator/internal/ports"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgVectorStore adapts github.com/jackc/pgx/v5 plus the pgvector extension
// to ports.VectorStore: a vector column type, <=>/<->/<#> distance
// operators chosen by metric, and float literal serialization for query
// vectors. Every collection gets its own table rather than a shared table
// with a collection column, since one agent's memory spans many
// collections (durable plus per-conversation) the way the Qdrant adapter
// spans many collections natively.
type PgVectorStore struct {
	pool   *pgxpool.Pool
	metric string
}

func NewPgVectorStore(pool *pgxpool.Pool, metric string) *PgVectorStore {
	if metric == "" {
		metric = "cosine"
	}
	return &PgVectorStore{pool: pool, metric: strings.ToLower(strings.TrimSpace(metric))}
}

func (p *PgVectorStore) CreateCollection(ctx context.Context, collection string, dim int) error {
	if dim <= 0 {
		return corerr.New(corerr.InvalidInput, "pgvector requires dimensions > 0")
	}
	if _, err := p.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return corerr.Wrap(corerr.UpstreamFailure, "create vector extension", err)
	}
	_, err := p.pool.Exec(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS embeddings_%[1]s (
  id TEXT PRIMARY KEY,
  vec vector(%[2]d) NOT NULL,
  metadata JSONB NOT NULL DEFAULT '{}'::jsonb
)`, tableSuffix(collection), dim))
	if err != nil {
		return corerr.Wrap(corerr.UpstreamFailure, "create embeddings table", err)
	}
	return nil
}

func (p *PgVectorStore) Upsert(ctx context.Context, collection string, rec ports.VectorRecord) error {
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, fmt.Sprintf(`
INSERT INTO embeddings_%s(id, vec, metadata) VALUES ($1, $2::vector, $3)
ON CONFLICT (id) DO UPDATE SET vec = EXCLUDED.vec, metadata = EXCLUDED.metadata`, tableSuffix(collection)),
		rec.ID, vectorLiteral(rec.Embedding), meta)
	return err
}

func (p *PgVectorStore) Query(ctx context.Context, collection string, vector []float32, k int, minScore float64) ([]ports.VectorMatch, error) {
	if k <= 0 {
		k = 10
	}
	op, scoreExpr := "<=>", "1 - (vec <=> $1::vector)"
	switch p.metric {
	case "l2", "euclidean":
		op, scoreExpr = "<->", "-(vec <-> $1::vector)"
	case "ip", "dot":
		op, scoreExpr = "<#>", "-(vec <#> $1::vector)"
	}
	query := fmt.Sprintf(`SELECT id, %s AS score, metadata FROM embeddings_%s ORDER BY vec %s $1::vector LIMIT $2`,
		scoreExpr, tableSuffix(collection), op)
	rows, err := p.pool.Query(ctx, query, vectorLiteral(vector), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ports.VectorMatch
	for rows.Next() {
		var m ports.VectorMatch
		var metaRaw []byte
		if err := rows.Scan(&m.ID, &m.Score, &metaRaw); err != nil {
			return nil, err
		}
		if m.Score < minScore {
			continue
		}
		meta := map[string]string{}
		_ = json.Unmarshal(metaRaw, &meta)
		m.Metadata = meta
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *PgVectorStore) Delete(ctx context.Context, collection, id string) error {
	_, err := p.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM embeddings_%s WHERE id = $1`, tableSuffix(collection)), id)
	return err
}

// DeleteBySource removes every row whose "source" metadata field matches.
// A no-op on a collection table that doesn't exist yet is not an error,
// matching the ports.VectorStore.DeleteBySource contract.
func (p *PgVectorStore) DeleteBySource(ctx context.Context, collection, source string) error {
	_, err := p.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM embeddings_%s WHERE metadata->>'source' = $1`, tableSuffix(collection)), source)
	if err != nil && strings.Contains(err.Error(), "does not exist") {
		return nil
	}
	return err
}

func (p *PgVectorStore) ListSources(ctx context.Context, collection string) ([]string, error) {
	rows, err := p.pool.Query(ctx, fmt.Sprintf(`SELECT DISTINCT metadata->>'source' FROM embeddings_%s WHERE metadata ? 'source'`, tableSuffix(collection)))
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *PgVectorStore) Wipe(ctx context.Context, collection string) error {
	_, err := p.pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS embeddings_%s`, tableSuffix(collection)))
	return err
}

// tableSuffix maps a collection name to a safe table-name fragment.
// Collection names are built by memory.Store.collectionName as
// "agent:<agent>:<coll>", so both colons and hyphens (from UUID
// collection names) are folded to underscores for a valid unquoted
// Postgres identifier.
func tableSuffix(collection string) string {
	s := strings.ToLower(collection)
	s = strings.ReplaceAll(s, ":", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}

func vectorLiteral(v []float32) string {
	if len(v) == 0 {
		return "[]"
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%g", x)
	}
	b.WriteByte(']')
	return b.String()
}
