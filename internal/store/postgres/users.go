package postgres

import (
	"context"
	"errors"

	"github.com/agixt-go/orchestrator/internal/corerr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserStore is the Postgres-backed ports.UserStore adapter used by the
// Task Monitor to resolve the email claim of an impersonation JWT.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func (s *UserStore) GetUserEmail(ctx context.Context, userID string) (string, error) {
	row := s.pool.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, userID)
	var email string
	if err := row.Scan(&email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", corerr.New(corerr.NotFound, "user not found")
		}
		return "", err
	}
	return email, nil
}

// UpsertUser records or updates a user's email, used by the boundary
// that authenticates inbound requests before the core ever sees them.
func (s *UserStore) UpsertUser(ctx context.Context, userID, email string) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO users(id, email) VALUES ($1,$2)
ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email`, userID, email)
	return err
}
