package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/agixt-go/orchestrator/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
)

// These exercise the adapters against a real Postgres instance and are
// skipped unless DATABASE_URL is set.
func openTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../../.env")
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	p, err := Open(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, InitSchema(ctx, p))
	t.Cleanup(p.Close)
	return p
}

func TestAgentStore_SaveGetRoundTrip(t *testing.T) {
	pool := openTestPool(t)
	s := NewAgentStore(pool)
	ctx := context.Background()

	a := &domain.Agent{
		OwnerUserID: "u-agent-test",
		Name:        "bot",
		Settings:    domain.AgentSettings{ProviderName: "openai", MaxTokens: 2048},
		Commands:    map[string]bool{"search": true},
	}
	require.NoError(t, s.SaveAgent(ctx, a))

	got, err := s.GetAgent(ctx, "u-agent-test", "bot")
	require.NoError(t, err)
	require.Equal(t, "openai", got.Settings.ProviderName)
	require.True(t, got.Commands["search"])
}

func TestTaskStore_ClaimDueTasksIsExclusive(t *testing.T) {
	pool := openTestPool(t)
	s := NewTaskStore(pool)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, s.InsertTask(ctx, domain.TaskItem{
		ID: "task-claim-test", UserID: "u1", DueDate: now.Add(-time.Minute),
		Scheduled: true, Objective: "do it", Payload: map[string]string{"agent_name": "bot"},
	}))

	first, err := s.ClaimDueTasks(ctx, now, 10)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	// Still within the claim lease: a second claim must not re-pick it up.
	second, err := s.ClaimDueTasks(ctx, now, 10)
	require.NoError(t, err)
	for _, item := range second {
		require.NotEqual(t, "task-claim-test", item.ID)
	}

	require.NoError(t, s.CompleteTask(ctx, "task-claim-test"))
	require.NoError(t, s.DeleteTask(ctx, "task-claim-test"))
}
