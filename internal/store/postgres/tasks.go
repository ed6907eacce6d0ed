package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/agixt-go/orchestrator/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// claimLease bounds how long a claimed task can stay unfinished before
// another ClaimDueTasks call is allowed to pick it back up, so a Task
// Monitor process that dies mid-dispatch doesn't strand its tasks.
const claimLease = 5 * time.Minute

// TaskStore is the Postgres-backed ports.TaskStore adapter. ClaimDueTasks
// uses SELECT ... FOR UPDATE SKIP LOCKED, per the ClaimDueTasks doc
// comment on ports.TaskStore, so multiple Task Monitor processes can
// share one tasks table without double-dispatching a task.
type TaskStore struct {
	pool *pgxpool.Pool
}

func NewTaskStore(pool *pgxpool.Pool) *TaskStore {
	return &TaskStore{pool: pool}
}

func (s *TaskStore) ClaimDueTasks(ctx context.Context, now time.Time, limit int) ([]domain.TaskItem, error) {
	rows, err := s.pool.Query(ctx, `
WITH due AS (
	SELECT id FROM tasks
	WHERE scheduled AND NOT completed
	  AND due_date <= $1
	  AND (claimed_until IS NULL OR claimed_until < $1)
	ORDER BY due_date
	LIMIT $2
	FOR UPDATE SKIP LOCKED
)
UPDATE tasks SET claimed_until = $3
WHERE id IN (SELECT id FROM due)
RETURNING id, user_id, due_date, scheduled, completed, objective, payload`,
		now, limit, now.Add(claimLease))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TaskItem
	for rows.Next() {
		var t domain.TaskItem
		var payload []byte
		if err := rows.Scan(&t.ID, &t.UserID, &t.DueDate, &t.Scheduled, &t.Completed, &t.Objective, &payload); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &t.Payload); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *TaskStore) CompleteTask(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `UPDATE tasks SET completed = true WHERE id = $1`, id)
	return err
}

func (s *TaskStore) DeleteTask(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return err
}

func (s *TaskStore) InsertTask(ctx context.Context, t domain.TaskItem) error {
	payload, err := json.Marshal(t.Payload)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO tasks(id, user_id, due_date, scheduled, completed, objective, payload)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
	due_date=EXCLUDED.due_date, scheduled=EXCLUDED.scheduled,
	completed=EXCLUDED.completed, objective=EXCLUDED.objective, payload=EXCLUDED.payload`,
		t.ID, t.UserID, t.DueDate, t.Scheduled, t.Completed, t.Objective, payload)
	return err
}
