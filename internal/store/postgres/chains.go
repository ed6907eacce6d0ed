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

// ChainStore is the Postgres-backed ports.ChainStore adapter. A chain's
// full step list (with per-step response history) round-trips through a
// single JSONB column rather than a normalized steps table: chains are
// always read and written whole, never by individual step, so the extra
// join buys nothing.
type ChainStore struct {
	pool *pgxpool.Pool
}

func NewChainStore(pool *pgxpool.Pool) *ChainStore {
	return &ChainStore{pool: pool}
}

func (s *ChainStore) GetChain(ctx context.Context, userID, name string) (*domain.Chain, error) {
	row := s.pool.QueryRow(ctx, `
SELECT user_id, name, steps FROM chains WHERE user_id = $1 AND name = $2`, userID, name)
	var c domain.Chain
	var steps []byte
	if err := row.Scan(&c.UserID, &c.Name, &steps); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, corerr.New(corerr.NotFound, "chain not found")
		}
		return nil, err
	}
	if err := json.Unmarshal(steps, &c.Steps); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ChainStore) ListChains(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM chains WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (s *ChainStore) SaveChain(ctx context.Context, c *domain.Chain) error {
	steps, err := json.Marshal(c.Steps)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO chains(user_id, name, steps) VALUES ($1,$2,$3)
ON CONFLICT (user_id, name) DO UPDATE SET steps = EXCLUDED.steps`,
		c.UserID, c.Name, steps)
	return err
}

func (s *ChainStore) RenameChain(ctx context.Context, userID, oldName, newName string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE chains SET name = $3 WHERE user_id = $1 AND name = $2`,
		userID, oldName, newName)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return corerr.New(corerr.NotFound, "chain not found")
	}
	return nil
}

func (s *ChainStore) DeleteChain(ctx context.Context, userID, name string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM chains WHERE user_id = $1 AND name = $2`, userID, name)
	return err
}
