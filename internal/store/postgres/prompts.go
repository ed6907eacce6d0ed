package postgres

import (
	"context"
	"errors"

	"github.com/agixt-go/orchestrator/internal/corerr"
	"github.com/agixt-go/orchestrator/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PromptStore is the Postgres-backed ports.PromptStore adapter.
type PromptStore struct {
	pool *pgxpool.Pool
}

func NewPromptStore(pool *pgxpool.Pool) *PromptStore {
	return &PromptStore{pool: pool}
}

func (s *PromptStore) GetPrompt(ctx context.Context, category, name, userID string) (*domain.Prompt, error) {
	row := s.pool.QueryRow(ctx, `
SELECT category, name, user_id, body FROM prompts WHERE category = $1 AND name = $2 AND user_id = $3`,
		category, name, userID)
	var p domain.Prompt
	if err := row.Scan(&p.Category, &p.Name, &p.UserID, &p.Body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, corerr.New(corerr.NotFound, "prompt not found")
		}
		return nil, err
	}
	return &p, nil
}

func (s *PromptStore) ListPrompts(ctx context.Context, category, userID string) ([]*domain.Prompt, error) {
	rows, err := s.pool.Query(ctx, `
SELECT category, name, user_id, body FROM prompts WHERE category = $1 AND user_id = $2 ORDER BY name`,
		category, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Prompt
	for rows.Next() {
		var p domain.Prompt
		if err := rows.Scan(&p.Category, &p.Name, &p.UserID, &p.Body); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *PromptStore) SavePrompt(ctx context.Context, p *domain.Prompt) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO prompts(category, name, user_id, body) VALUES ($1,$2,$3,$4)
ON CONFLICT (category, name, user_id) DO UPDATE SET body = EXCLUDED.body`,
		p.Category, p.Name, p.UserID, p.Body)
	return err
}

func (s *PromptStore) RenamePrompt(ctx context.Context, category, userID, oldName, newName string) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE prompts SET name = $4 WHERE category = $1 AND user_id = $2 AND name = $3`,
		category, userID, oldName, newName)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return corerr.New(corerr.NotFound, "prompt not found")
	}
	return nil
}

func (s *PromptStore) DeletePrompt(ctx context.Context, category, name, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM prompts WHERE category = $1 AND name = $2 AND user_id = $3`,
		category, name, userID)
	return err
}
