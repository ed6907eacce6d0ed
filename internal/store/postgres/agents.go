package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/agixt-go/orchestrator/internal/corerr"
	"github.com/agixt-go/orchestrator/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AgentStore is the Postgres-backed ports.AgentStore adapter.
type AgentStore struct {
	pool *pgxpool.Pool
}

func NewAgentStore(pool *pgxpool.Pool) *AgentStore {
	return &AgentStore{pool: pool}
}

func (s *AgentStore) GetAgent(ctx context.Context, ownerUserID, name string) (*domain.Agent, error) {
	row := s.pool.QueryRow(ctx, `
SELECT owner_user_id, name, settings, commands, status
FROM agents WHERE owner_user_id = $1 AND name = $2`, ownerUserID, name)
	a, err := scanAgent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, corerr.New(corerr.NotFound, "agent not found")
	}
	return a, err
}

func (s *AgentStore) ListAgents(ctx context.Context, ownerUserID string) ([]*domain.Agent, error) {
	rows, err := s.pool.Query(ctx, `
SELECT owner_user_id, name, settings, commands, status
FROM agents WHERE owner_user_id = $1 ORDER BY name`, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *AgentStore) SaveAgent(ctx context.Context, agent *domain.Agent) error {
	settings, err := json.Marshal(agent.Settings)
	if err != nil {
		return err
	}
	commands, err := json.Marshal(agent.Commands)
	if err != nil {
		return err
	}
	status, err := json.Marshal(agent.Status)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO agents(owner_user_id, name, settings, commands, status)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (owner_user_id, name) DO UPDATE SET
	settings=EXCLUDED.settings, commands=EXCLUDED.commands, status=EXCLUDED.status, updated_at=now()`,
		agent.OwnerUserID, agent.Name, settings, commands, status)
	return err
}

func (s *AgentStore) RenameAgent(ctx context.Context, ownerUserID, oldName, newName string) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE agents SET name = $3, updated_at = now() WHERE owner_user_id = $1 AND name = $2`,
		ownerUserID, oldName, newName)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return corerr.New(corerr.NotFound, "agent not found")
	}
	return nil
}

func (s *AgentStore) DeleteAgent(ctx context.Context, ownerUserID, name string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM agents WHERE owner_user_id = $1 AND name = $2`, ownerUserID, name)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*domain.Agent, error) {
	var a domain.Agent
	var settings, commands, status []byte
	if err := row.Scan(&a.OwnerUserID, &a.Name, &settings, &commands, &status); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(settings, &a.Settings); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(commands, &a.Commands); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(status, &a.Status); err != nil {
		return nil, err
	}
	return &a, nil
}
