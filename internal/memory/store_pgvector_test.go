package memory

import (
	"context"
	"os"
	"testing"

	"github.com/agixt-go/orchestrator/internal/ports"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
)

// Exercises PgVectorStore against a real pgvector-enabled Postgres and is
// skipped unless DATABASE_URL is set, matching the
// internal/store/postgres integration test idiom.
func openPgVectorTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestPgVectorStore_UpsertQueryDelete(t *testing.T) {
	pool := openPgVectorTestPool(t)
	ctx := context.Background()
	s := NewPgVectorStore(pool, "cosine")
	const collection = "test_pgvector_roundtrip"

	require.NoError(t, s.CreateCollection(ctx, collection, 3))
	t.Cleanup(func() { _ = s.Wipe(ctx, collection) })

	require.NoError(t, s.Upsert(ctx, collection, ports.VectorRecord{
		ID: "a", Embedding: []float32{1, 0, 0}, Metadata: map[string]string{"source": "doc1"},
	}))
	require.NoError(t, s.Upsert(ctx, collection, ports.VectorRecord{
		ID: "b", Embedding: []float32{0, 1, 0}, Metadata: map[string]string{"source": "doc2"},
	}))

	matches, err := s.Query(ctx, collection, []float32{1, 0, 0}, 5, -1)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	require.Equal(t, "a", matches[0].ID)

	sources, err := s.ListSources(ctx, collection)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"doc1", "doc2"}, sources)

	require.NoError(t, s.DeleteBySource(ctx, collection, "doc2"))
	matches, err = s.Query(ctx, collection, []float32{0, 1, 0}, 5, -1)
	require.NoError(t, err)
	for _, m := range matches {
		require.NotEqual(t, "b", m.ID)
	}

	require.NoError(t, s.Delete(ctx, collection, "a"))
}
